package serialize

import (
	"fmt"
	"html"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"pdfgears/converter/document"
)

// HTML renders paragraphs as an HTML fragment. Paragraphs set noticeably
// larger than the body text become headings, and a rule separates pages.
func HTML(paras []document.StyledParagraph) string {
	body := bodySize(paras)
	var sb strings.Builder
	for i, p := range paras {
		if i > 0 && p.Page != paras[i-1].Page {
			sb.WriteString("<hr/>\n")
		}
		tag := "p"
		if lvl := headingLevel(p, body); lvl > 0 {
			tag = fmt.Sprintf("h%d", lvl)
		}
		sb.WriteString("<" + tag + ">")
		for _, r := range p.Runs {
			text := html.EscapeString(r.Text)
			if r.Italic {
				text = "<em>" + text + "</em>"
			}
			if r.Bold && tag == "p" {
				text = "<strong>" + text + "</strong>"
			}
			sb.WriteString(text)
		}
		sb.WriteString("</" + tag + ">\n")
	}
	return sb.String()
}

// Markdown renders paragraphs as Markdown by way of HTML.
func Markdown(paras []document.StyledParagraph) ([]byte, error) {
	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(HTML(paras))
	if err != nil {
		return nil, fmt.Errorf("html to markdown: %w", err)
	}
	return []byte(strings.TrimSpace(out) + "\n"), nil
}

// bodySize is the median run size, ignoring runs without one.
func bodySize(paras []document.StyledParagraph) float64 {
	var sizes []float64
	for _, p := range paras {
		for _, r := range p.Runs {
			if r.Size > 0 {
				sizes = append(sizes, r.Size)
			}
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	sort.Float64s(sizes)
	return sizes[len(sizes)/2]
}

func headingLevel(p document.StyledParagraph, body float64) int {
	if body <= 0 || len(p.Runs) == 0 {
		return 0
	}
	size := 0.0
	for _, r := range p.Runs {
		size = max(size, r.Size)
	}
	switch {
	case size >= body*1.6:
		return 1
	case size >= body*1.3:
		return 2
	}
	return 0
}
