package extract

import (
	"context"

	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
)

// StructuredStrategy reads positioned, styled text runs and rebuilds
// paragraphs with Reconstruct.
type StructuredStrategy struct {
	logger logrus.FieldLogger
}

// NewStructured creates the layout-aware strategy.
func NewStructured(logger logrus.FieldLogger) *StructuredStrategy {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StructuredStrategy{logger: logger}
}

func (s *StructuredStrategy) Name() string    { return "structured" }
func (s *StructuredStrategy) Available() bool { return true }

// Extract reads every page. A page whose text layer cannot be parsed is
// marked PageRecoverable and does not affect the other pages. The call fails
// only when no page yields anything and nothing is left to recover.
func (s *StructuredStrategy) Extract(ctx context.Context, doc *document.Document) (*Result, error) {
	res := &Result{Strategy: s.Name()}
	paragraphs, recoverable := 0, 0
	for _, p := range doc.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, document.Wrap(document.KindConversionFailure, "structured extract", err)
		}
		lines, err := p.Lines()
		if err != nil {
			s.logger.WithField("page", p.Index()).WithError(err).Warn("structured extraction failed on page")
			res.Pages = append(res.Pages, PageResult{Page: p.Index(), Status: PageRecoverable, Err: err})
			recoverable++
			continue
		}
		paras := Reconstruct(p.Index(), lines)
		paragraphs += len(paras)
		res.Pages = append(res.Pages, PageResult{Page: p.Index(), Status: PageOK, Paragraphs: paras})
	}
	if paragraphs == 0 && recoverable == 0 {
		return nil, document.Errorf(document.KindNoTextExtracted, "structured extract", "no extractable text structure")
	}
	return res, nil
}
