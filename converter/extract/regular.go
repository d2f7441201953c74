package extract

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
)

// RegularStrategy reads plain text without style and emits one paragraph per
// non-empty line.
type RegularStrategy struct {
	logger logrus.FieldLogger
}

// NewRegular creates the plain-text strategy.
func NewRegular(logger logrus.FieldLogger) *RegularStrategy {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RegularStrategy{logger: logger}
}

func (s *RegularStrategy) Name() string    { return "regular" }
func (s *RegularStrategy) Available() bool { return true }

// ExtractPage reads a single page.
func (s *RegularStrategy) ExtractPage(p document.Page) ([]document.StyledParagraph, error) {
	text, err := p.Text()
	if err != nil {
		return nil, err
	}
	var out []document.StyledParagraph
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, document.PlainParagraph(p.Index(), line))
		}
	}
	return out, nil
}

// Extract reads every page; it fails with NoTextExtracted when the document
// has no text at all.
func (s *RegularStrategy) Extract(ctx context.Context, doc *document.Document) (*Result, error) {
	res := &Result{Strategy: s.Name()}
	paragraphs := 0
	for _, p := range doc.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, document.Wrap(document.KindConversionFailure, "regular extract", err)
		}
		paras, err := s.ExtractPage(p)
		if err != nil {
			s.logger.WithField("page", p.Index()).WithError(err).Warn("plain text extraction failed on page")
			res.Pages = append(res.Pages, PageResult{Page: p.Index(), Status: PageFatal, Err: err})
			continue
		}
		paragraphs += len(paras)
		res.Pages = append(res.Pages, PageResult{Page: p.Index(), Status: PageOK, Paragraphs: paras})
	}
	if paragraphs == 0 {
		return nil, document.Errorf(document.KindNoTextExtracted, "regular extract", "document has no text")
	}
	return res, nil
}
