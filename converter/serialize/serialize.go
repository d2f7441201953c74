// Package serialize writes styled paragraphs into target document formats.
package serialize

import (
	"pdfgears/converter/document"
)

// Writer encodes paragraphs into one output format.
type Writer func(paras []document.StyledParagraph) ([]byte, error)

// For returns the writer producing format.
func For(format document.Format) (Writer, error) {
	switch format {
	case document.FormatDOCX:
		return DOCX, nil
	case document.FormatXLSX:
		return XLSX, nil
	case document.FormatMarkdown:
		return Markdown, nil
	}
	return nil, document.Errorf(document.KindUnsupportedFormat, "serialize", "cannot write paragraphs as %q", format)
}
