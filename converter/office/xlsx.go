package office

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXToHTML renders the first worksheet as an HTML table. The first row is
// treated as the header.
func XLSXToHTML(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}

	var sb strings.Builder
	sb.WriteString("<h2>" + html.EscapeString(sheets[0]) + "</h2>\n")
	if cols == 0 {
		return sb.String(), nil
	}
	sb.WriteString("<table>\n")
	for i, r := range rows {
		cell := "td"
		if i == 0 {
			cell = "th"
		}
		sb.WriteString("<tr>")
		for c := 0; c < cols; c++ {
			v := ""
			if c < len(r) {
				v = r[c]
			}
			sb.WriteString("<" + cell + ">" + html.EscapeString(v) + "</" + cell + ">")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>\n")
	return sb.String(), nil
}
