package cmd

import (
	"github.com/spf13/cobra"

	"pdfgears/converter/security"
)

var (
	secOutput     string
	userPassword  string
	ownerPassword string
	algorithm     string
	noPrint       bool
	noCopy        bool
	noAnnotate    bool
)

var protectCmd = &cobra.Command{
	Use:   "protect <input.pdf>",
	Short: "Encrypt a PDF with a password",
	Long: `Encrypt a PDF. AES-256 is used unless --algorithm rc4-128 is given; if
the preferred backend fails, the next one is tried and the fallback is
reported. Printing, copying and annotating are allowed unless disabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alg, err := security.ParseAlgorithm(algorithm)
		if err != nil {
			return err
		}
		doc, err := openPDF(args[0])
		if err != nil {
			return err
		}
		spec := security.NewSpec(userPassword)
		spec.OwnerPassword = ownerPassword
		spec.Algorithm = alg
		if noPrint {
			spec.Denied |= security.PermPrint
		}
		if noCopy {
			spec.Denied |= security.PermCopy
		}
		if noAnnotate {
			spec.Denied |= security.PermAnnotate
		}

		res, err := service.Security.Protect(doc, spec)
		if err != nil {
			return err
		}
		if res.Fallback {
			logger.WithField("backend", res.Backend).Warnf("preferred encryption failed: %s", res.Reason)
		}
		out := secOutput
		if out == "" {
			out = defaultOutput(args[0], "_protected", "pdf")
		}
		if err := writeOutput(out, res.Data); err != nil {
			return err
		}
		created(cmd, out, string(res.Algorithm)+" via "+res.Backend)
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <input.pdf>",
	Short: "Remove password protection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		res, err := service.Security.Unlock(data, userPassword)
		if err != nil {
			return err
		}
		if res.Backend == "" {
			logger.Info("document was not encrypted")
		}
		out := secOutput
		if out == "" {
			out = defaultOutput(args[0], "_unlocked", "pdf")
		}
		if err := writePDF(out, res.Document); err != nil {
			return err
		}
		created(cmd, out, "")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{protectCmd, unlockCmd} {
		c.Flags().StringVarP(&secOutput, "output", "o", "", "Output PDF, - for stdout")
		c.Flags().StringVar(&userPassword, "password", "", "Password required to open the document")
		c.MarkFlagRequired("password")
	}
	protectCmd.Flags().StringVar(&ownerPassword, "owner-password", "", "Owner password (default: <password>_owner)")
	protectCmd.Flags().StringVar(&algorithm, "algorithm", string(security.AlgorithmStrong), "aes-256 or rc4-128")
	protectCmd.Flags().BoolVar(&noPrint, "no-print", false, "Disallow printing")
	protectCmd.Flags().BoolVar(&noCopy, "no-copy", false, "Disallow copying text and images")
	protectCmd.Flags().BoolVar(&noAnnotate, "no-annotate", false, "Disallow annotations and form filling")
	rootCmd.AddCommand(protectCmd, unlockCmd)
}
