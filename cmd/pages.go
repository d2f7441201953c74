package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pdfgears/converter/document"
)

var (
	pagesOutput string
	pagesSelect string
	rotateBy    int
	outputDir   string
	infoJSON    bool
)

var splitCmd = &cobra.Command{
	Use:   "split <input.pdf>",
	Short: "Write every page, or the selected pages, as its own PDF",
	Long: `Split a PDF into single-page PDFs named <input>_page_NNN.pdf.
With --pages only the listed pages are written; pages that do not exist are
skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openPDF(args[0])
		if err != nil {
			return err
		}
		selected, err := parsePages(pagesSelect)
		if err != nil {
			return err
		}
		numbers := selected
		var parts []*document.Document
		if selected == nil {
			parts = service.Pages.Split(doc)
			for i := range parts {
				numbers = append(numbers, i+1)
			}
		} else {
			numbers = nil
			for _, n := range selected {
				if n >= 1 && n <= doc.PageCount() {
					numbers = append(numbers, n)
				}
			}
			parts = service.Pages.SplitSelected(doc, selected)
		}

		base := filepath.Base(args[0])
		for i, part := range parts {
			out := siblingPath(base, fmt.Sprintf("page_%03d.pdf", numbers[i]))
			if outputDir != "" {
				out = filepath.Join(outputDir, out)
			} else {
				out = filepath.Join(filepath.Dir(args[0]), out)
			}
			if err := writePDF(out, part); err != nil {
				return err
			}
			created(cmd, out, "")
		}
		return nil
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <a.pdf> <b.pdf> [more.pdf...]",
	Short: "Concatenate PDFs in argument order",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs := make([]*document.Document, 0, len(args))
		for _, path := range args {
			doc, err := openPDF(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			docs = append(docs, doc)
		}
		out := outputOr(defaultOutput(args[0], "_merged", "pdf"))
		merged := service.Pages.Merge(docs...)
		if err := writePDF(out, merged); err != nil {
			return err
		}
		created(cmd, out, fmt.Sprintf("%d pages", merged.PageCount()))
		return nil
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate <input.pdf>",
	Short: "Rotate every page by a multiple of 90 degrees",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openPDF(args[0])
		if err != nil {
			return err
		}
		rotated, err := service.Pages.Rotate(doc, rotateBy)
		if err != nil {
			return err
		}
		out := outputOr(defaultOutput(args[0], "_rotated", "pdf"))
		if err := writePDF(out, rotated); err != nil {
			return err
		}
		created(cmd, out, "")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <input.pdf>",
	Short: "Remove the pages listed in --pages",
	Long:  "Remove pages. Page numbers that do not exist are ignored.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return selectPages(cmd, args[0], "_deleted", func(doc *document.Document, pages []int) (*document.Document, error) {
			return service.Pages.Delete(doc, pages), nil
		})
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <input.pdf>",
	Short: "Build a PDF from the pages listed in --pages, in that order",
	Long:  "Extract pages into a new PDF. Every listed page must exist.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return selectPages(cmd, args[0], "_extracted", service.Pages.Extract)
	},
}

func selectPages(cmd *cobra.Command, input, suffix string, op func(*document.Document, []int) (*document.Document, error)) error {
	selected, err := parsePages(pagesSelect)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return document.Errorf(document.KindInvalidInput, cmd.Name(), "--pages is required")
	}
	doc, err := openPDF(input)
	if err != nil {
		return err
	}
	result, err := op(doc, selected)
	if err != nil {
		return err
	}
	out := outputOr(defaultOutput(input, suffix, "pdf"))
	if err := writePDF(out, result); err != nil {
		return err
	}
	created(cmd, out, fmt.Sprintf("%d pages", result.PageCount()))
	return nil
}

var compressCmd = &cobra.Command{
	Use:   "compress <input.pdf>",
	Short: "Shrink page content streams and drop unused objects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openPDF(args[0])
		if err != nil {
			return err
		}
		compressed, stats, err := service.Pages.Compress(doc)
		if err != nil {
			return err
		}
		out := outputOr(defaultOutput(args[0], "_compressed", "pdf"))
		if err := writePDF(out, compressed); err != nil {
			return err
		}
		saved := 0.0
		if stats.OriginalSize > 0 {
			saved = 100 * float64(stats.OriginalSize-stats.CompressedSize) / float64(stats.OriginalSize)
		}
		created(cmd, out, fmt.Sprintf("%d -> %d bytes, %.1f%% smaller", stats.OriginalSize, stats.CompressedSize, saved))
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <input.pdf>",
	Short: "Show page count, page rotations and encryption",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		info, err := service.Info(data)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if infoJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Fprintf(w, "File:      %s\n", args[0])
		fmt.Fprintf(w, "Size:      %d bytes\n", info.Size)
		fmt.Fprintf(w, "Encrypted: %t\n", info.Encrypted)
		if info.Pages > 0 {
			fmt.Fprintf(w, "Pages:     %d\n", info.Pages)
			fmt.Fprintf(w, "Text:      %s\n", info.Class)
			for i, rot := range info.Rotations {
				if rot != 0 {
					fmt.Fprintf(w, "  page %d rotated %d\n", i+1, rot)
				}
			}
		}
		return nil
	},
}

func outputOr(def string) string {
	if pagesOutput != "" {
		return pagesOutput
	}
	return def
}

func init() {
	splitCmd.Flags().StringVarP(&pagesSelect, "pages", "p", "", "Pages to write, e.g. 1,3-5 (default: all)")
	splitCmd.Flags().StringVarP(&outputDir, "dir", "d", "", "Output directory (default: next to the input)")

	rotateCmd.Flags().IntVar(&rotateBy, "degrees", 90, "Clockwise rotation, a multiple of 90")

	for _, c := range []*cobra.Command{deleteCmd, extractCmd} {
		c.Flags().StringVarP(&pagesSelect, "pages", "p", "", "Pages, e.g. 1,3-5")
	}
	for _, c := range []*cobra.Command{mergeCmd, rotateCmd, deleteCmd, extractCmd, compressCmd} {
		c.Flags().StringVarP(&pagesOutput, "output", "o", "", "Output PDF, - for stdout")
	}
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print JSON")

	rootCmd.AddCommand(splitCmd, mergeCmd, rotateCmd, deleteCmd, extractCmd, compressCmd, infoCmd)
}
