package extract

import (
	"strings"

	"pdfgears/converter/document"
)

// Reconstruct turns the text lines of one page into styled paragraphs, one
// per line. Whitespace-only runs are dropped and lines left empty produce no
// paragraph. Run order, font size and the bold/italic bits carry over as is.
func Reconstruct(page int, lines []document.Line) []document.StyledParagraph {
	var out []document.StyledParagraph
	for _, line := range lines {
		var runs []document.StyledRun
		for _, r := range line {
			if strings.TrimSpace(r.Text) == "" {
				continue
			}
			runs = append(runs, document.StyledRun{
				Text:   r.Text,
				Size:   r.FontSize,
				Bold:   r.Bold(),
				Italic: r.Italic(),
			})
		}
		if len(runs) > 0 {
			out = append(out, document.StyledParagraph{Page: page, Runs: runs})
		}
	}
	return out
}
