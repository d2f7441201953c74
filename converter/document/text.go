package document

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// wordGapFactor is the horizontal gap, as a fraction of the font size, above
// which two glyphs on one row are treated as separate words.
const wordGapFactor = 0.25

// rowTolerance is the vertical distance in points within which glyphs share a row.
const rowTolerance = 2.0

func (s *source) open() (*pdf.Reader, error) {
	if !s.opened {
		s.opened = true
		s.reader, s.openErr = pdf.NewReader(bytes.NewReader(s.data), int64(len(s.data)))
		if s.openErr != nil {
			s.openErr = fmt.Errorf("open text layer: %w", s.openErr)
		}
	}
	return s.reader, s.openErr
}

// page returns the codec page n. The caller holds s.mu.
func (s *source) page(n int) (pdf.Page, error) {
	r, err := s.open()
	if err != nil {
		return pdf.Page{}, err
	}
	if n < 1 || n > r.NumPage() {
		return pdf.Page{}, Errorf(KindInvalidPageNumber, "text", "page %d out of range [1, %d]", n, r.NumPage())
	}
	p := r.Page(n)
	if p.V.IsNull() {
		return pdf.Page{}, fmt.Errorf("page %d has no page object", n)
	}
	return p, nil
}

// textLines returns runs grouped by visual row. The codec panics on some
// malformed content streams; that is reported as an error for this page only.
func (s *source) textLines(n int) (lines []Line, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.lines[n]; ok {
		return cached, nil
	}
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("malformed text content on page %d: %v", n, r)
		}
	}()

	p, err := s.page(n)
	if err != nil {
		return nil, err
	}
	for _, row := range glyphRows(p.Content().Text) {
		if line := groupGlyphs(row); len(line) > 0 {
			lines = append(lines, line)
		}
	}
	s.lines[n] = lines
	return lines, nil
}

// plainText returns the page text as the codec lays it out, one line per row.
func (s *source) plainText(n int) (text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.plain[n]; ok {
		return cached, nil
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed text content on page %d: %v", n, r)
		}
	}()

	p, err := s.page(n)
	if err != nil {
		return "", err
	}
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	text, err = p.GetPlainText(fonts)
	if err != nil {
		return "", fmt.Errorf("read text of page %d: %w", n, err)
	}
	s.plain[n] = text
	return text, nil
}

// glyphRows buckets glyphs into visual rows, top of the page first, each row
// ordered left to right.
func glyphRows(glyphs []pdf.Text) [][]pdf.Text {
	sorted := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			sorted = append(sorted, g)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows [][]pdf.Text
	rowY := math.Inf(1)
	for _, g := range sorted {
		if len(rows) == 0 || rowY-g.Y > rowTolerance {
			rows = append(rows, nil)
			rowY = g.Y
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], g)
	}
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	}
	return rows
}

// groupGlyphs merges the codec's per-glyph output into runs. Adjacent glyphs
// join while font and size are unchanged; a visible gap inserts a space.
func groupGlyphs(glyphs []pdf.Text) Line {
	var (
		line Line
		cur  *TextRun
		font string
		endX float64
	)
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if cur != nil && g.Font == font && g.FontSize == cur.FontSize {
			if gap := g.X - endX; gap > wordGapFactor*math.Max(g.FontSize, 1) && !strings.HasSuffix(cur.Text, " ") {
				cur.Text += " "
			}
			cur.Text += g.S
			endX = g.X + g.W
			continue
		}
		if cur != nil {
			if gap := g.X - endX; gap > wordGapFactor*math.Max(g.FontSize, 1) && !strings.HasSuffix(cur.Text, " ") {
				cur.Text += " "
			}
		}
		line = append(line, TextRun{
			Text:       g.S,
			FontSize:   g.FontSize,
			StyleFlags: StyleFlagsForFont(g.Font),
			X:          g.X,
			Y:          g.Y,
		})
		cur = &line[len(line)-1]
		font = g.Font
		endX = g.X + g.W
	}
	return line
}

// StyleFlagsForFont derives the style bitmask from a font's PostScript name,
// e.g. "Helvetica-BoldOblique" yields StyleBold|StyleItalic.
func StyleFlagsForFont(name string) int {
	n := strings.ToLower(name)
	flags := 0
	for _, w := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(n, w) {
			flags |= StyleBold
			break
		}
	}
	if strings.Contains(n, "italic") || strings.Contains(n, "oblique") {
		flags |= StyleItalic
	}
	return flags
}
