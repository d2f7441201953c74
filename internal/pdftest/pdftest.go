// Package pdftest builds small, valid PDF files in memory for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Font selects one of the four Helvetica faces registered on every page.
type Font int

const (
	Regular Font = iota
	Bold
	Italic
	BoldItalic
)

var baseFonts = []string{"Helvetica", "Helvetica-Bold", "Helvetica-Oblique", "Helvetica-BoldOblique"}

// Run is a piece of text in one face and size.
type Run struct {
	Text string
	Font Font
	Size float64
}

// Page describes one page: its rotation and lines of runs, top to bottom.
type Page struct {
	Rotate int
	Lines  [][]Run
}

// TextPage is a page with one regular 12pt run per line.
func TextPage(lines ...string) Page {
	p := Page{}
	for _, l := range lines {
		p.Lines = append(p.Lines, []Run{{Text: l, Size: 12}})
	}
	return p
}

// Words returns a line of n distinct words.
func Words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("word%d", i+1)
	}
	return strings.Join(w, " ")
}

// Build renders pages into a complete PDF with a correct xref table.
func Build(pages ...Page) []byte {
	var objs []string

	// 1: catalog, 2: page tree, 3-6: fonts, then page/content pairs.
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 7+2*i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	for _, name := range baseFonts {
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
			name, widths))
	}

	for i, p := range pages {
		content := pageContent(p)
		rotate := ""
		if p.Rotate != 0 {
			rotate = fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F0 3 0 R /F1 4 0 R /F2 5 0 R /F3 6 0 R >> >> /Contents %d 0 R%s >>",
			8+2*i, rotate))
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func pageContent(p Page) string {
	var sb strings.Builder
	y := 720.0
	for _, line := range p.Lines {
		size := 12.0
		if len(line) > 0 && line[0].Size > 0 {
			size = line[0].Size
		}
		fmt.Fprintf(&sb, "BT 72 %.0f Td ", y)
		for _, r := range line {
			s := r.Size
			if s <= 0 {
				s = 12
			}
			fmt.Fprintf(&sb, "/F%d %.0f Tf (%s) Tj ", int(r.Font), s, escape(r.Text))
		}
		sb.WriteString("ET\n")
		y -= size * 1.5
	}
	return sb.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
