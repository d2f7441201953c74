package cmd

import (
	"github.com/spf13/cobra"

	"pdfgears/converter"
	"pdfgears/converter/document"
	"pdfgears/converter/pages"
)

var (
	convertTo       string
	convertFrom     string
	convertOutput   string
	convertPageSize string
	convertFit      string
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> [more images...]",
	Short: "Convert between PDF, Word, Excel, Markdown and images",
	Long: `Convert a document.

  PDF          -> docx, xlsx, md
  docx, xlsx   -> pdf   (needs Chrome, or --browser-download)
  png, jpg     -> pdf   (one page per image, in argument order)`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := document.ParseFormat(convertTo)
		if err != nil {
			return err
		}
		req := converter.Request{
			Target:   target,
			PageSize: pages.PageSize(convertPageSize),
			Fit:      pages.FitMode(convertFit),
		}
		if convertFrom != "" {
			if req.SourceFormat, err = document.ParseFormat(convertFrom); err != nil {
				return err
			}
		}
		if len(args) > 1 {
			if target != document.FormatPDF {
				return document.Errorf(document.KindInvalidInput, "convert", "several inputs can only be combined into a pdf")
			}
			for _, path := range args {
				data, err := readInput(path)
				if err != nil {
					return err
				}
				req.Images = append(req.Images, data)
			}
		} else if req.Source, err = readInput(args[0]); err != nil {
			return err
		}

		res, err := service.Convert(cmd.Context(), req)
		if res == nil {
			return err
		}
		if err := partial(err); err != nil {
			return err
		}
		out := convertOutput
		if out == "" {
			out = defaultOutput(args[0], "", target.Ext())
			if out == args[0] {
				out = defaultOutput(args[0], "_converted", target.Ext())
			}
		}
		if err := writeOutput(out, res.Data); err != nil {
			return err
		}
		detail := ""
		if res.Strategy != "" {
			detail = res.Strategy + " extraction"
		}
		created(cmd, out, detail)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertTo, "to", "t", "", "Target format: docx, xlsx, md or pdf")
	convertCmd.Flags().StringVar(&convertFrom, "from", "", "Source format when it cannot be detected")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output file, - for stdout (default: <input>.<target>)")
	convertCmd.Flags().StringVar(&convertPageSize, "page-size", string(pages.PageLetter), "Page size for images: letter, a4, legal")
	convertCmd.Flags().StringVar(&convertFit, "fit", string(pages.FitContain), "Image placement: fit, fill, stretch")
	convertCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(convertCmd)
}
