package pages

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdfgears/converter/document"
)

// PageSize is a named paper format for images-to-PDF.
type PageSize string

const (
	PageLetter PageSize = "letter"
	PageA4     PageSize = "a4"
	PageLegal  PageSize = "legal"
)

// FitMode controls how an image is placed on its page.
type FitMode string

const (
	// FitContain scales the image into the page with a margin, keeping its
	// aspect ratio.
	FitContain FitMode = "fit"
	// FitFill scales the image to the page edges, keeping its aspect ratio.
	FitFill FitMode = "fill"
	// FitStretch makes the image exactly the page size.
	FitStretch FitMode = "stretch"
)

// ImageOptions configures FromImages. Zero values select letter and fit.
type ImageOptions struct {
	PageSize PageSize
	Fit      FitMode
}

// importDetails renders the options in pdfcpu's import description syntax.
func (o ImageOptions) importDetails() (string, error) {
	var size string
	switch PageSize(strings.ToLower(string(o.PageSize))) {
	case "", PageLetter:
		size = "Letter"
	case PageA4:
		size = "A4"
	case PageLegal:
		size = "Legal"
	default:
		return "", document.Errorf(document.KindInvalidInput, "images to pdf", "unknown page size %q", o.PageSize)
	}

	var placement string
	switch FitMode(strings.ToLower(string(o.Fit))) {
	case "", FitContain:
		placement = "pos:c, sc:0.9 rel"
	case FitFill:
		placement = "pos:c, sc:1.0 rel"
	case FitStretch:
		placement = "pos:full"
	default:
		return "", document.Errorf(document.KindInvalidInput, "images to pdf", "unknown fit mode %q", o.Fit)
	}
	return fmt.Sprintf("f:%s, %s", size, placement), nil
}

// FromImages builds a PDF with one page per PNG or JPEG image, in order.
func (m *Manipulator) FromImages(images [][]byte, opts ImageOptions) (*document.Document, error) {
	if len(images) == 0 {
		return nil, document.Errorf(document.KindInvalidInput, "images to pdf", "no images given")
	}
	details, err := opts.importDetails()
	if err != nil {
		return nil, err
	}

	readers := make([]io.Reader, len(images))
	for i, img := range images {
		f, err := document.Sniff(img)
		if err != nil || (f != document.FormatPNG && f != document.FormatJPEG) {
			return nil, document.Errorf(document.KindUnsupportedFormat, "images to pdf", "image %d is not a PNG or JPEG", i+1)
		}
		readers[i] = bytes.NewReader(img)
	}

	imp, err := pdfcpu.ParseImportDetails(details, types.POINTS)
	if err != nil {
		return nil, document.Wrap(document.KindConversionFailure, "images to pdf", err)
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, imp, document.NewConfig()); err != nil {
		return nil, document.Wrap(document.KindConversionFailure, "images to pdf", fmt.Errorf("pdfcpu import failed: %w", err))
	}
	m.logger.WithField("images", len(images)).Debug("built PDF from images")
	return document.Open(buf.Bytes())
}
