// Package pages implements page-level edits on documents: split, merge,
// rotate, delete, extract, compress and images-to-PDF. Every operation
// returns a new Document and leaves its inputs untouched.
package pages

import (
	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
)

// Manipulator performs structural page edits.
type Manipulator struct {
	logger logrus.FieldLogger
}

// New creates a Manipulator. A nil logger uses the standard logger.
func New(logger logrus.FieldLogger) *Manipulator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manipulator{logger: logger}
}

// Split returns one single-page Document per page, in page order.
func (m *Manipulator) Split(doc *document.Document) []*document.Document {
	pages := doc.Pages()
	out := make([]*document.Document, len(pages))
	for i, p := range pages {
		out[i] = document.FromPages([]document.Page{p})
	}
	return out
}

// Merge concatenates docs in the order given.
func (m *Manipulator) Merge(docs ...*document.Document) *document.Document {
	var all []document.Page
	for _, d := range docs {
		all = append(all, d.Pages()...)
	}
	m.logger.WithFields(logrus.Fields{"documents": len(docs), "pages": len(all)}).Debug("merged")
	return document.FromPages(all)
}

// Rotate turns every page by degrees, which must be a multiple of 90.
func (m *Manipulator) Rotate(doc *document.Document, degrees int) (*document.Document, error) {
	if degrees%90 != 0 {
		return nil, document.Errorf(document.KindInvalidInput, "rotate", "invalid rotation %d: must be a multiple of 90", degrees)
	}
	pages := doc.Pages()
	for i, p := range pages {
		pages[i] = p.WithRotation(p.Rotation() + degrees)
	}
	return document.FromPages(pages), nil
}

// Delete drops the pages whose index is in del. Unknown indices are ignored;
// deleting every page yields an empty Document.
func (m *Manipulator) Delete(doc *document.Document, del []int) *document.Document {
	drop := make(map[int]bool, len(del))
	for _, n := range del {
		drop[n] = true
	}
	var keep []document.Page
	for _, p := range doc.Pages() {
		if !drop[p.Index()] {
			keep = append(keep, p)
		}
	}
	return document.FromPages(keep)
}

// Extract builds a Document from the given pages in caller order; repeats
// are allowed. Any out-of-range index fails the whole call.
func (m *Manipulator) Extract(doc *document.Document, indices []int) (*document.Document, error) {
	out := make([]document.Page, 0, len(indices))
	for _, n := range indices {
		p, err := doc.Page(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return document.FromPages(out), nil
}

// Page returns page n as its own Document.
func (m *Manipulator) Page(doc *document.Document, n int) (*document.Document, error) {
	return m.Extract(doc, []int{n})
}

// SplitSelected returns a single-page Document for every valid index in
// indices, in the order given. Out-of-range indices are skipped.
func (m *Manipulator) SplitSelected(doc *document.Document, indices []int) []*document.Document {
	var out []*document.Document
	for _, n := range indices {
		p, err := doc.Page(n)
		if err != nil {
			m.logger.WithField("page", n).Debug("skipping out-of-range page")
			continue
		}
		out = append(out, document.FromPages([]document.Page{p}))
	}
	return out
}
