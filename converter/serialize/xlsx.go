package serialize

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"pdfgears/converter/document"
)

const xlsxSheet = "Content"

// XLSX writes one row per paragraph with columns Page, Line and Content.
// Line restarts at 1 on every page.
func XLSX(paras []document.StyledParagraph) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &[]any{"Page", "Line", "Content"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(xlsxSheet, "A1", "C1", style)
	}

	row, line, page := 2, 0, 0
	for _, p := range paras {
		text := strings.TrimSpace(p.Text())
		if text == "" {
			continue
		}
		if p.Page != page {
			page, line = p.Page, 0
		}
		line++
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &[]any{p.Page, line, text}); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}
	_ = f.SetColWidth(xlsxSheet, "A", "B", 8)
	_ = f.SetColWidth(xlsxSheet, "C", "C", 100)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
