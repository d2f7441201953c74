// Package extract turns PDF documents into styled paragraphs. It provides
// the document sniffer, the layout reconstructor and three extraction
// strategies (structured, regular and OCR) that callers chain as fallbacks.
package extract

import (
	"context"

	"pdfgears/converter/document"
)

// Status is the outcome of extracting one page.
type Status int

const (
	// PageOK means the page produced its paragraphs.
	PageOK Status = iota
	// PageRecoverable means this strategy failed on the page but a weaker
	// strategy may still read it.
	PageRecoverable
	// PageFatal means the page could not be read and no retry is useful.
	PageFatal
)

func (s Status) String() string {
	switch s {
	case PageRecoverable:
		return "recoverable"
	case PageFatal:
		return "fatal"
	}
	return "ok"
}

// PageResult is one page's extraction outcome.
type PageResult struct {
	Page       int
	Status     Status
	Paragraphs []document.StyledParagraph
	Err        error
}

// Result is a whole-document extraction, pages in document order.
type Result struct {
	Strategy string
	Pages    []PageResult
}

// Paragraphs flattens every page's paragraphs in page order.
func (r *Result) Paragraphs() []document.StyledParagraph {
	var out []document.StyledParagraph
	for _, p := range r.Pages {
		out = append(out, p.Paragraphs...)
	}
	return out
}

// Failures lists the pages that did not end up OK.
func (r *Result) Failures() []document.ItemFailure {
	var out []document.ItemFailure
	for _, p := range r.Pages {
		if p.Status == PageOK {
			continue
		}
		reason := p.Status.String()
		if p.Err != nil {
			reason = p.Err.Error()
		}
		out = append(out, document.ItemFailure{Item: p.Page, Reason: reason})
	}
	return out
}

// Strategy extracts styled paragraphs from a document.
type Strategy interface {
	Name() string
	// Available reports whether the strategy's collaborators are present.
	Available() bool
	Extract(ctx context.Context, doc *document.Document) (*Result, error)
}
