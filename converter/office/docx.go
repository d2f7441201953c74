package office

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"
)

// DOCXToHTML renders the body of a Word document as HTML. Headings, lists,
// bold and italic runs, explicit page breaks and tables are kept; everything
// else is reduced to paragraphs of text.
func DOCXToHTML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}
	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return parseDocumentXML(rc)
}

type docxParser struct {
	out strings.Builder

	// element name stack for context queries
	stack []string

	inPara    bool
	paraStyle string
	isList    bool
	paraHTML  strings.Builder
	pageBreak bool
	inList    bool

	inRun     bool
	runBold   bool
	runItalic bool
	runText   strings.Builder

	tableDepth int
}

func (p *docxParser) push(name string) { p.stack = append(p.stack, name) }
func (p *docxParser) pop() {
	if len(p.stack) > 0 {
		p.stack = p.stack[:len(p.stack)-1]
	}
}

func (p *docxParser) inCtx(name string) bool {
	for _, s := range p.stack {
		if s == name {
			return true
		}
	}
	return false
}

func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	p := &docxParser{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.push(t.Name.Local)
			p.handleStart(t)
		case xml.EndElement:
			p.handleEnd(t.Name.Local)
			p.pop()
		case xml.CharData:
			if p.inRun && p.inCtx("t") {
				p.runText.Write(t)
			}
		}
	}
	p.closeList()
	return p.out.String(), nil
}

func (p *docxParser) handleStart(t xml.StartElement) {
	switch t.Name.Local {
	case "tbl":
		p.closeList()
		p.tableDepth++
		p.out.WriteString("<table>")
	case "tr":
		p.out.WriteString("<tr>")
	case "tc":
		p.out.WriteString("<td>")
	case "p":
		p.inPara = true
		p.paraStyle = ""
		p.isList = false
		p.pageBreak = false
		p.paraHTML.Reset()
	case "pStyle":
		if p.inPara && p.inCtx("pPr") {
			p.paraStyle = attrVal(t, "val")
		}
	case "numPr":
		if p.inPara {
			p.isList = true
		}
	case "r":
		if p.inPara {
			p.inRun = true
			p.runBold = false
			p.runItalic = false
			p.runText.Reset()
		}
	case "b":
		if p.inRun && p.inCtx("rPr") && attrVal(t, "val") != "0" && attrVal(t, "val") != "false" {
			p.runBold = true
		}
	case "i":
		if p.inRun && p.inCtx("rPr") && attrVal(t, "val") != "0" && attrVal(t, "val") != "false" {
			p.runItalic = true
		}
	case "tab":
		if p.inRun {
			p.runText.WriteByte('\t')
		}
	case "br":
		if p.inRun {
			if attrVal(t, "type") == "page" {
				p.pageBreak = true
			} else {
				p.runText.WriteByte('\n')
			}
		}
	}
}

func (p *docxParser) handleEnd(local string) {
	switch local {
	case "r":
		if p.inRun {
			p.paraHTML.WriteString(inlineHTML(p.runText.String(), p.runBold, p.runItalic))
			p.inRun = false
		}
	case "p":
		if p.inPara {
			p.writeParagraph()
			if p.pageBreak && p.tableDepth == 0 {
				p.closeList()
				p.out.WriteString(`<div class="page-break"></div>` + "\n")
			}
			p.inPara = false
		}
	case "tc":
		p.out.WriteString("</td>")
	case "tr":
		p.out.WriteString("</tr>")
	case "tbl":
		if p.tableDepth > 0 {
			p.tableDepth--
			p.out.WriteString("</table>\n")
		}
	}
}

func (p *docxParser) writeParagraph() {
	body := p.paraHTML.String()
	if p.tableDepth > 0 {
		if body != "" {
			p.out.WriteString("<p>" + body + "</p>")
		}
		return
	}
	if p.isList {
		if !p.inList {
			p.out.WriteString("<ul>\n")
			p.inList = true
		}
		p.out.WriteString("<li>" + body + "</li>\n")
		return
	}
	p.closeList()
	if strings.TrimSpace(body) == "" {
		return
	}
	tag := headingTag(p.paraStyle)
	p.out.WriteString("<" + tag + ">" + body + "</" + tag + ">\n")
}

func (p *docxParser) closeList() {
	if p.inList {
		p.out.WriteString("</ul>\n")
		p.inList = false
	}
}

// headingTag maps Word's built-in heading styles onto HTML headings.
func headingTag(style string) string {
	switch style {
	case "Title", "Heading1":
		return "h1"
	case "Heading2":
		return "h2"
	case "Heading3":
		return "h3"
	case "Heading4":
		return "h4"
	case "Heading5":
		return "h5"
	case "Heading6":
		return "h6"
	}
	return "p"
}

func inlineHTML(text string, bold, italic bool) string {
	if text == "" {
		return ""
	}
	out := strings.ReplaceAll(html.EscapeString(text), "\n", "<br/>")
	if italic {
		out = "<em>" + out + "</em>"
	}
	if bold {
		out = "<strong>" + out + "</strong>"
	}
	return out
}

func attrVal(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
