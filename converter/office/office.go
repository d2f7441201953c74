// Package office converts Word and Excel documents to PDF by rendering them
// as HTML and printing the page with headless Chrome.
package office

import (
	"context"

	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: "Liberation Serif", "Times New Roman", serif; font-size: 12pt; line-height: 1.35; }
  table { border-collapse: collapse; width: 100%; margin: 0.5em 0; }
  th, td { border: 1px solid #999; padding: 3px 6px; text-align: left; vertical-align: top; font-size: 10pt; }
  th { background: #eee; }
  .page-break { page-break-after: always; }
</style>
</head>
<body>
`

// Converter turns DOCX and XLSX bytes into PDF documents.
type Converter struct {
	printer *Printer
	logger  logrus.FieldLogger
}

// NewConverter creates a Converter printing with p.
func NewConverter(p *Printer, logger logrus.FieldLogger) *Converter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Converter{printer: p, logger: logger}
}

// Available reports whether a browser can be used.
func (c *Converter) Available() bool { return c.printer.Available() }

// HTML renders data of the given format as a standalone HTML page.
func HTML(data []byte, format document.Format) (string, error) {
	var (
		body string
		err  error
	)
	switch format {
	case document.FormatDOCX:
		body, err = DOCXToHTML(data)
	case document.FormatXLSX:
		body, err = XLSXToHTML(data)
	default:
		return "", document.Errorf(document.KindUnsupportedFormat, "office to pdf", "cannot convert %q to PDF", format)
	}
	if err != nil {
		return "", document.Wrap(document.KindInvalidInput, "office to pdf", err)
	}
	return pageTemplate + body + "</body>\n</html>\n", nil
}

// ToPDF converts a DOCX or XLSX document to PDF.
func (c *Converter) ToPDF(ctx context.Context, data []byte, format document.Format) (*document.Document, error) {
	page, err := HTML(data, format)
	if err != nil {
		return nil, err
	}
	if !c.Available() {
		return nil, document.Errorf(document.KindConversionFailure, "office to pdf",
			"no browser available; install Chrome or Chromium or enable browser download")
	}
	c.logger.WithField("format", format).Debug("printing office document")
	pdf, err := c.printer.Print(ctx, page)
	if err != nil {
		return nil, document.Wrap(document.KindConversionFailure, "office to pdf", err)
	}
	return document.Open(pdf)
}
