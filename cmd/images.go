package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pdfgears/converter"
	"pdfgears/converter/document"
	"pdfgears/converter/raster"
)

var (
	imagesFormat  string
	imagesQuality int
	imagesZoom    float64
	imagesPages   string
	imagesZip     bool
	imagesOutput  string
)

var imagesCmd = &cobra.Command{
	Use:   "images <input.pdf>",
	Short: "Render PDF pages to PNG or JPEG",
	Long: `Render pages to images. Quality tiers map to 150, 200 and 300 DPI;
--zoom (a multiple of 72 DPI) overrides the tier. A single page is written as
an image, several pages as a ZIP of page_NNN.<ext> entries. Pages that do not
exist are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := document.ParseFormat(imagesFormat)
		if err != nil {
			return err
		}
		selected, err := parsePages(imagesPages)
		if err != nil {
			return err
		}
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		target := format
		if imagesZip {
			target = document.FormatZIP
		}
		res, err := service.Convert(cmd.Context(), converter.Request{
			Source:       data,
			SourceFormat: document.FormatPDF,
			Target:       target,
			Raster: raster.Options{
				Zoom:    imagesZoom,
				Quality: raster.Quality(imagesQuality),
				Format:  format,
				Pages:   selected,
			},
		})
		if res == nil {
			return err
		}
		if err := partial(err); err != nil {
			return err
		}
		out := imagesOutput
		if out == "" {
			out = siblingPath(args[0], res.Filename)
		}
		if err := writeOutput(out, res.Data); err != nil {
			return err
		}
		created(cmd, out, "")
		return nil
	},
}

var previewOutput string

var previewCmd = &cobra.Command{
	Use:   "preview <input.pdf>",
	Short: "Render small PNG thumbnails of every page into a ZIP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := openPDF(args[0])
		if err != nil {
			return err
		}
		images, err := service.Raster.Previews(cmd.Context(), doc)
		if images == nil {
			return err
		}
		if err := partial(err); err != nil {
			return err
		}
		data, err := converter.Archive(images)
		if err != nil {
			return err
		}
		out := previewOutput
		if out == "" {
			out = defaultOutput(args[0], "_preview", "zip")
		}
		if err := writeOutput(out, data); err != nil {
			return err
		}
		created(cmd, out, fmt.Sprintf("%d pages", len(images)))
		return nil
	},
}

func init() {
	imagesCmd.Flags().StringVarP(&imagesFormat, "format", "f", "png", "Image format: png or jpg")
	imagesCmd.Flags().IntVarP(&imagesQuality, "quality", "q", int(raster.QualityMedium), "Quality tier: 1 (150 DPI), 2 (200 DPI), 3 (300 DPI)")
	imagesCmd.Flags().Float64Var(&imagesZoom, "zoom", 0, "Zoom factor relative to 72 DPI, overrides --quality")
	imagesCmd.Flags().StringVarP(&imagesPages, "pages", "p", "", "Pages to render, e.g. 1,3-5 (default: all)")
	imagesCmd.Flags().BoolVar(&imagesZip, "zip", false, "Always write a ZIP, even for one page")
	imagesCmd.Flags().StringVarP(&imagesOutput, "output", "o", "", "Output file, - for stdout")
	rootCmd.AddCommand(imagesCmd)

	previewCmd.Flags().StringVarP(&previewOutput, "output", "o", "", "Output ZIP (default: <input>_preview.zip)")
	rootCmd.AddCommand(previewCmd)
}
