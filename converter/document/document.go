// Package document holds the page-oriented document model shared by the
// conversion, manipulation and encryption engines.
//
// A Document is an ordered list of Pages. Pages reference immutable source
// bytes; manipulation never edits a page in place, it builds a new Document
// from copied Page values. Encoding a Document back to PDF bytes happens only
// when a caller asks for output.
package document

import (
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
)

// Style bits carried by TextRun.StyleFlags.
const (
	StyleItalic = 0x02
	StyleBold   = 0x10
)

// TextRun is a contiguous piece of text sharing one font and size.
type TextRun struct {
	Text       string  `json:"text"`
	FontSize   float64 `json:"font_size"`
	StyleFlags int     `json:"style_flags"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Bold reports whether the bold bit is set.
func (r TextRun) Bold() bool { return r.StyleFlags&StyleBold != 0 }

// Italic reports whether the italic bit is set.
func (r TextRun) Italic() bool { return r.StyleFlags&StyleItalic != 0 }

// Line is one visual line of runs in reading order.
type Line []TextRun

// StyledRun is a run with its style decoded.
type StyledRun struct {
	Text   string  `json:"text"`
	Size   float64 `json:"size,omitempty"`
	Bold   bool    `json:"bold,omitempty"`
	Italic bool    `json:"italic,omitempty"`
}

// StyledParagraph is the serializer-facing paragraph model.
// Page is the 1-based source page the paragraph came from.
type StyledParagraph struct {
	Page int         `json:"page"`
	Runs []StyledRun `json:"runs"`
}

// PlainParagraph builds an unstyled paragraph.
func PlainParagraph(page int, text string) StyledParagraph {
	return StyledParagraph{Page: page, Runs: []StyledRun{{Text: text}}}
}

// Text concatenates the paragraph's runs.
func (p StyledParagraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// source is a set of PDF bytes that pages point into. It is never mutated
// after creation apart from the lazily filled text caches.
type source struct {
	data      []byte
	rotations []int

	mu      sync.Mutex
	opened  bool
	reader  *pdf.Reader
	openErr error
	lines   map[int][]Line
	plain   map[int]string
}

func newSource(data []byte, rotations []int) *source {
	return &source{
		data:      data,
		rotations: rotations,
		lines:     make(map[int][]Line),
		plain:     make(map[int]string),
	}
}

func (s *source) pageCount() int { return len(s.rotations) }

// Page is one page of a Document.
type Page struct {
	index    int
	rotation int
	src      *source
	srcPage  int
}

// NewPage builds a detached page with no text layer. It is used by callers
// that assemble documents from non-PDF inputs and by tests.
func NewPage(rotation int) Page {
	return Page{rotation: NormalizeRotation(rotation)}
}

// Index is the 1-based position of the page in its Document.
func (p Page) Index() int { return p.index }

// Rotation is the page rotation in degrees, one of 0, 90, 180 or 270.
func (p Page) Rotation() int { return p.rotation }

// SourcePage is the 1-based page number inside the originating PDF bytes.
func (p Page) SourcePage() int { return p.srcPage }

// SameContent reports whether p and q render the same source page.
func (p Page) SameContent(q Page) bool { return p.src == q.src && p.srcPage == q.srcPage }

// WithRotation returns a copy of p rotated to deg, normalised to [0, 360).
func (p Page) WithRotation(deg int) Page {
	p.rotation = NormalizeRotation(deg)
	return p
}

// Lines returns the page's text lines. Results are computed on first use.
func (p Page) Lines() ([]Line, error) {
	if p.src == nil {
		return nil, nil
	}
	return p.src.textLines(p.srcPage)
}

// TextRuns returns every run on the page in reading order.
func (p Page) TextRuns() ([]TextRun, error) {
	lines, err := p.Lines()
	if err != nil {
		return nil, err
	}
	var runs []TextRun
	for _, l := range lines {
		runs = append(runs, l...)
	}
	return runs, nil
}

// Text returns the page's plain text without style information.
func (p Page) Text() (string, error) {
	if p.src == nil {
		return "", nil
	}
	return p.src.plainText(p.srcPage)
}

// NormalizeRotation maps any angle onto [0, 360).
func NormalizeRotation(deg int) int {
	r := deg % 360
	if r < 0 {
		r += 360
	}
	return r
}

// Document is an ordered, immutable list of pages.
type Document struct {
	pages []Page
}

// FromPages builds a Document from pages, renumbering them 1..n in the order
// given. The slice is copied.
func FromPages(pages []Page) *Document {
	out := make([]Page, len(pages))
	for i, p := range pages {
		p.index = i + 1
		p.rotation = NormalizeRotation(p.rotation)
		out[i] = p
	}
	return &Document{pages: out}
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Pages returns a copy of the page list.
func (d *Document) Pages() []Page {
	out := make([]Page, len(d.pages))
	copy(out, d.pages)
	return out
}

// Page returns the page with the given 1-based index.
func (d *Document) Page(n int) (Page, error) {
	if n < 1 || n > len(d.pages) {
		return Page{}, Errorf(KindInvalidPageNumber, "page", "page %d out of range [1, %d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}
