package extract

import (
	"strings"

	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
)

// Class is the sniffed character of a document.
type Class int

const (
	// Structured documents carry a usable text layer.
	Structured Class = iota
	// Scanned documents are image-only.
	Scanned
)

func (c Class) String() string {
	if c == Scanned {
		return "scanned"
	}
	return "structured"
}

const (
	samplePages          = 3
	scannedWordThreshold = 10
)

// Sniffer classifies documents from a text-density sample of their first pages.
type Sniffer struct {
	logger logrus.FieldLogger
}

// NewSniffer creates a Sniffer. A nil logger uses the standard logger.
func NewSniffer(logger logrus.FieldLogger) *Sniffer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sniffer{logger: logger}
}

// Sniff counts words on the first min(3, pageCount) pages and reports
// Scanned when there are fewer than 10. Any read failure yields Structured;
// the extraction chain deals with broken text layers itself.
func (s *Sniffer) Sniff(doc *document.Document) Class {
	k := min(samplePages, doc.PageCount())
	words := 0
	for i := 1; i <= k; i++ {
		p, err := doc.Page(i)
		if err != nil {
			return Structured
		}
		text, err := p.Text()
		if err != nil {
			s.logger.WithField("page", i).WithError(err).Debug("sniff: text unreadable, assuming structured")
			return Structured
		}
		words += len(strings.Fields(text))
	}
	class := Structured
	if words < scannedWordThreshold {
		class = Scanned
	}
	s.logger.WithFields(logrus.Fields{"sampled_pages": k, "words": words, "class": class}).Debug("sniffed document")
	return class
}
