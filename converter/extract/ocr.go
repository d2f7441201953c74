package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
	"pdfgears/converter/raster"
	"pdfgears/internal/workpool"
)

// ocrDPI is the resolution pages are rendered at before recognition.
const ocrDPI = 300

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// OCRStrategy rasterizes every page and runs a Recognizer over it.
type OCRStrategy struct {
	raster     *raster.Engine
	recognizer Recognizer
	workers    int
	logger     logrus.FieldLogger
}

// NewOCR creates the OCR strategy. Pages are processed on at most workers
// goroutines.
func NewOCR(r *raster.Engine, rec Recognizer, workers int, logger logrus.FieldLogger) *OCRStrategy {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if workers < 1 {
		workers = 1
	}
	return &OCRStrategy{raster: r, recognizer: rec, workers: workers, logger: logger}
}

func (s *OCRStrategy) Name() string { return "ocr" }

// Available reports whether both a page renderer and the recognizer exist.
func (s *OCRStrategy) Available() bool {
	return s.recognizer != nil && s.recognizer.Available() && s.raster.Available()
}

// Extract recognizes every page. A page that fails to render or recognize
// becomes an "[OCR error on page N: reason]" paragraph instead of failing the
// document. When ctx expires, the pages finished so far are returned along
// with a PartialFailure error; with no finished page the call fails.
func (s *OCRStrategy) Extract(ctx context.Context, doc *document.Document) (*Result, error) {
	if !s.Available() {
		return nil, document.Errorf(document.KindConversionFailure, "ocr", "OCR is not available: install tesseract and a page renderer")
	}
	job, err := s.raster.Open(doc)
	if err != nil {
		return nil, document.Wrap(document.KindConversionFailure, "ocr", err)
	}
	defer job.Close()

	n := doc.PageCount()
	pages := make([]PageResult, n)
	opts := raster.Options{Zoom: raster.ZoomForDPI(ocrDPI), Format: document.FormatPNG}
	errs := workpool.Run(ctx, n, s.workers, func(ctx context.Context, i int) error {
		page := i + 1
		pages[i] = s.page(ctx, job, page, opts)
		if ctx.Err() != nil && pages[i].Status != PageOK {
			return ctx.Err()
		}
		return nil
	})

	res := &Result{Strategy: s.Name(), Pages: pages}
	done := 0
	var failures []document.ItemFailure
	for i, err := range errs {
		if err != nil {
			pages[i] = PageResult{Page: i + 1, Status: PageFatal, Err: err}
			failures = append(failures, document.ItemFailure{Item: i + 1, Reason: err.Error()})
			continue
		}
		done++
	}
	if len(failures) == 0 {
		return res, nil
	}
	if done == 0 {
		return nil, document.Wrap(document.KindConversionFailure, "ocr", fmt.Errorf("timed out before any page was recognized: %w", ctx.Err()))
	}
	s.logger.WithFields(logrus.Fields{"done": done, "aborted": len(failures)}).Warn("OCR stopped early")
	return res, &document.Error{Kind: document.KindPartialFailure, Op: "ocr", Err: ctx.Err(), Items: failures}
}

func (s *OCRStrategy) page(ctx context.Context, job *raster.Job, page int, opts raster.Options) PageResult {
	log := s.logger.WithField("page", page)

	img, err := job.Render(ctx, page, opts)
	if err != nil {
		log.WithError(err).Warn("OCR render failed")
		return errorPage(page, err)
	}
	text, err := s.recognizer.Recognize(ctx, img.Data, img.Format)
	if err != nil {
		log.WithError(err).Warn("OCR recognition failed")
		return errorPage(page, err)
	}
	log.Debug("page recognized")

	paras := SplitParagraphs(page, text)
	if len(paras) == 0 {
		paras = []document.StyledParagraph{document.PlainParagraph(page, fmt.Sprintf("[No text detected on page %d]", page))}
	}
	return PageResult{Page: page, Status: PageOK, Paragraphs: paras}
}

func errorPage(page int, err error) PageResult {
	reason := err.Error()
	var de *document.Error
	if errors.As(err, &de) && de.Err != nil {
		reason = de.Err.Error()
	}
	return PageResult{
		Page:       page,
		Status:     PageFatal,
		Err:        err,
		Paragraphs: []document.StyledParagraph{document.PlainParagraph(page, fmt.Sprintf("[OCR error on page %d: %s]", page, reason))},
	}
}

// SplitParagraphs splits recognized text on blank lines. Line breaks inside
// a paragraph become spaces.
func SplitParagraphs(page int, text string) []document.StyledParagraph {
	var out []document.StyledParagraph
	for _, chunk := range blankLine.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1) {
		var parts []string
		for _, l := range strings.Split(chunk, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				parts = append(parts, l)
			}
		}
		if len(parts) > 0 {
			out = append(out, document.PlainParagraph(page, strings.Join(parts, " ")))
		}
	}
	return out
}
