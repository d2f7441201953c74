package document

import (
	"fmt"
	"strings"
)

// Format names a document or image encoding accepted or produced by pdfgears.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatXLSX     Format = "xlsx"
	FormatMarkdown Format = "md"
	FormatPNG      Format = "png"
	FormatJPEG     Format = "jpg"
	FormatZIP      Format = "zip"
)

// Media types returned alongside output bytes.
const (
	MediaPDF      = "application/pdf"
	MediaDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaMarkdown = "text/markdown; charset=utf-8"
	MediaPNG      = "image/png"
	MediaJPEG     = "image/jpeg"
	MediaZIP      = "application/zip"
)

// MediaType returns the declared media type for f.
func (f Format) MediaType() string {
	switch f {
	case FormatPDF:
		return MediaPDF
	case FormatDOCX:
		return MediaDOCX
	case FormatXLSX:
		return MediaXLSX
	case FormatMarkdown:
		return MediaMarkdown
	case FormatPNG:
		return MediaPNG
	case FormatJPEG:
		return MediaJPEG
	case FormatZIP:
		return MediaZIP
	}
	return "application/octet-stream"
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

// ParseFormat normalises user input such as ".PDF", "jpeg" or "word".
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "pdf":
		return FormatPDF, nil
	case "docx", "word", "doc":
		return FormatDOCX, nil
	case "xlsx", "excel", "xls":
		return FormatXLSX, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "png", "":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "zip":
		return FormatZIP, nil
	}
	return "", Errorf(KindInvalidInput, "parse format", "unknown format %q", s)
}

// Sniff guesses the Format of data from its leading bytes. ZIP containers are
// reported as ZIP; callers that know better (DOCX/XLSX) pass their own kind.
func Sniff(data []byte) (Format, error) {
	switch {
	case len(data) >= 5 && string(data[:5]) == "%PDF-":
		return FormatPDF, nil
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return FormatPNG, nil
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG, nil
	case len(data) >= 4 && string(data[:4]) == "PK\x03\x04":
		return FormatZIP, nil
	}
	return "", &Error{Kind: KindUnsupportedFormat, Op: "sniff", Msg: fmt.Sprintf("unrecognised content (%d bytes)", len(data))}
}
