package serialize

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"pdfgears/converter/document"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

	documentTail = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr></w:body></w:document>`

	pageBreakXML = `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`
)

// DOCX writes paragraphs as a Word document. A page break separates
// paragraphs that came from different source pages.
func DOCX(paras []document.StyledParagraph) ([]byte, error) {
	var body strings.Builder
	body.WriteString(documentHead)
	for i, p := range paras {
		if i > 0 && p.Page != paras[i-1].Page {
			body.WriteString(pageBreakXML)
		}
		writeParagraph(&body, p)
	}
	body.WriteString(documentTail)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/document.xml", body.String()},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeParagraph(sb *strings.Builder, p document.StyledParagraph) {
	sb.WriteString("<w:p>")
	for _, r := range p.Runs {
		sb.WriteString("<w:r>")
		if r.Bold || r.Italic || r.Size > 0 {
			sb.WriteString("<w:rPr>")
			if r.Bold {
				sb.WriteString("<w:b/>")
			}
			if r.Italic {
				sb.WriteString("<w:i/>")
			}
			if r.Size > 0 {
				// w:sz is in half-points
				fmt.Fprintf(sb, `<w:sz w:val="%d"/>`, int(math.Round(r.Size*2)))
			}
			sb.WriteString("</w:rPr>")
		}
		sb.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(sb, []byte(r.Text))
		sb.WriteString("</w:t></w:r>")
	}
	sb.WriteString("</w:p>")
}
