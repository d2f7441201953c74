// Package converter is the conversion orchestrator. It classifies a PDF,
// runs the extraction fallback chain and hands the paragraphs to a
// serializer, and it dispatches every other conversion (office to PDF,
// images to PDF, PDF to images) to the engine that performs it.
package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pdfgears/config"
	"pdfgears/converter/document"
	"pdfgears/converter/extract"
	"pdfgears/converter/office"
	"pdfgears/converter/pages"
	"pdfgears/converter/raster"
	"pdfgears/converter/security"
	"pdfgears/converter/serialize"
)

// Options holds the configuration for the conversion services
type Options struct {
	MaxFileSizeBytes int64
	Workers          int
	Timeout          time.Duration
	OCRLanguage      string
	ChromePath       string
	BrowserDownload  bool
	NoSandbox        bool
	Logger           logrus.FieldLogger
}

// OptionsFromConfig maps environment configuration onto Options.
func OptionsFromConfig(cfg *config.Config, logger logrus.FieldLogger) Options {
	return Options{
		MaxFileSizeBytes: cfg.MaxFileSizeBytes,
		Workers:          cfg.Workers,
		Timeout:          cfg.Timeout,
		OCRLanguage:      cfg.OCRLanguage,
		ChromePath:       cfg.ChromePath,
		BrowserDownload:  cfg.BrowserDownload,
		Logger:           logger,
	}
}

// Converter interface defines the contract for conversion entry points
type Converter interface {
	Convert(ctx context.Context, req Request) (*Result, error)
}

// Service wires the engines together. It is built once and holds no
// per-request state.
type Service struct {
	Raster   *raster.Engine
	Pages    *pages.Manipulator
	Security *security.Engine
	Office   *office.Converter

	sniffer    *extract.Sniffer
	structured extract.Strategy
	regular    *extract.RegularStrategy
	ocr        extract.Strategy

	maxBytes int64
	timeout  time.Duration
	logger   logrus.FieldLogger
}

var _ Converter = (*Service)(nil)

// New builds a Service with the default backends.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = config.DefaultWorkers
	}

	rast := raster.NewEngine(raster.WithWorkers(workers), raster.WithLogger(logger))
	printerOpts := []office.PrinterOption{
		office.WithChromePath(opts.ChromePath),
		office.WithAutoDownload(opts.BrowserDownload),
	}
	if opts.NoSandbox {
		printerOpts = append(printerOpts, office.WithNoSandbox())
	}

	return &Service{
		Raster:     rast,
		Pages:      pages.New(logger),
		Security:   security.NewEngine(security.WithLogger(logger)),
		Office:     office.NewConverter(office.NewPrinter(printerOpts...), logger),
		sniffer:    extract.NewSniffer(logger),
		structured: extract.NewStructured(logger),
		regular:    extract.NewRegular(logger),
		ocr:        extract.NewOCR(rast, extract.Tesseract{Language: opts.OCRLanguage}, workers, logger),
		maxBytes:   opts.MaxFileSizeBytes,
		timeout:    opts.Timeout,
		logger:     logger,
	}
}

// WithStrategies replaces the extraction strategies; nil arguments keep the
// current ones.
func (s *Service) WithStrategies(structured extract.Strategy, ocr extract.Strategy) *Service {
	c := *s
	if structured != nil {
		c.structured = structured
	}
	if ocr != nil {
		c.ocr = ocr
	}
	return &c
}

// Extraction is the outcome of the extraction chain.
type Extraction struct {
	Class      extract.Class
	Strategy   string
	Paragraphs []document.StyledParagraph
	Failures   []document.ItemFailure
	// Recovered lists pages the structured pass failed on and the plain text
	// pass read instead.
	Recovered []int
}

// Extract runs the fallback chain over doc. Scanned documents go straight to
// OCR. Structured documents use the layout-aware strategy, retry any page it
// failed on with plain text extraction, and fall back to OCR when nothing
// usable came out. When OCR stops early on the deadline, the partial
// extraction is returned together with a PartialFailure error.
func (s *Service) Extract(ctx context.Context, doc *document.Document) (*Extraction, error) {
	class := s.sniffer.Sniff(doc)
	log := s.logger.WithField("class", class)

	if class == extract.Scanned {
		log.Debug("running OCR on scanned document")
		return s.runOCR(ctx, doc, class, nil)
	}

	var structuredErr error
	if s.structured.Available() {
		res, err := s.structured.Extract(ctx, doc)
		if err == nil {
			ex := s.recoverPages(doc, res)
			ex.Class = class
			if len(ex.Paragraphs) > 0 {
				return ex, nil
			}
			err = document.Errorf(document.KindNoTextExtracted, "extract", "structured extraction produced no text")
		}
		structuredErr = err
		log.WithError(err).Info("structured extraction failed, falling back to OCR")
	}
	return s.runOCR(ctx, doc, class, structuredErr)
}

// recoverPages re-reads recoverable pages with the regular strategy.
func (s *Service) recoverPages(doc *document.Document, res *extract.Result) *Extraction {
	ex := &Extraction{Strategy: res.Strategy}
	for _, pr := range res.Pages {
		if pr.Status == extract.PageRecoverable {
			if p, err := doc.Page(pr.Page); err == nil {
				paras, err := s.regular.ExtractPage(p)
				if err == nil {
					s.logger.WithField("page", pr.Page).Info("page recovered with plain text extraction")
					ex.Recovered = append(ex.Recovered, pr.Page)
					ex.Paragraphs = append(ex.Paragraphs, paras...)
					continue
				}
				pr.Err = fmt.Errorf("%v; plain text: %w", pr.Err, err)
			}
			ex.Failures = append(ex.Failures, document.ItemFailure{Item: pr.Page, Reason: pr.Err.Error()})
			continue
		}
		ex.Paragraphs = append(ex.Paragraphs, pr.Paragraphs...)
	}
	return ex
}

func (s *Service) runOCR(ctx context.Context, doc *document.Document, class extract.Class, prior error) (*Extraction, error) {
	if !s.ocr.Available() {
		if prior != nil {
			return nil, &document.Error{
				Kind: document.KindConversionFailure,
				Op:   "extract",
				Msg:  "OCR fallback unavailable",
				Err:  prior,
			}
		}
		return nil, document.Errorf(document.KindConversionFailure, "extract", "document looks scanned and OCR is not available")
	}
	res, err := s.ocr.Extract(ctx, doc)
	if res == nil {
		if err == nil {
			err = errors.New("no result")
		}
		if document.KindOf(err) != document.KindConversionFailure {
			err = document.Wrap(document.KindConversionFailure, "extract", err)
		}
		return nil, err
	}
	ex := &Extraction{
		Class:      class,
		Strategy:   res.Strategy,
		Paragraphs: res.Paragraphs(),
		Failures:   res.Failures(),
	}
	return ex, err
}

// Request is a conversion request.
type Request struct {
	// Source holds the input document. For images-to-PDF, Images is used
	// instead when non-empty.
	Source       []byte
	SourceFormat document.Format
	Target       document.Format

	Images    [][]byte
	PageSize  pages.PageSize
	Fit       pages.FitMode
	Raster    raster.Options
	RequestID string
}

// Result is a conversion's output.
type Result struct {
	Data      []byte                 `json:"-"`
	MediaType string                 `json:"media_type"`
	Filename  string                 `json:"filename"`
	Strategy  string                 `json:"strategy,omitempty"`
	Failures  []document.ItemFailure `json:"failures,omitempty"`
	RequestID string                 `json:"request_id"`
}

func (s *Service) checkSize(n int) error {
	if s.maxBytes > 0 && int64(n) > s.maxBytes {
		return document.Errorf(document.KindInvalidInput, "convert", "input is %d bytes, limit is %d MB", n, s.maxBytes>>20)
	}
	return nil
}

// Convert performs one conversion. Partial results come back with both a
// Result and a PartialFailure error.
func (s *Service) Convert(ctx context.Context, req Request) (*Result, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	log := s.logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"source":     req.SourceFormat,
		"target":     req.Target,
	})
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if len(req.Source) == 0 && len(req.Images) == 0 {
		return nil, document.Errorf(document.KindInvalidInput, "convert", "empty input")
	}
	total := len(req.Source)
	for _, img := range req.Images {
		total += len(img)
	}
	if err := s.checkSize(total); err != nil {
		return nil, err
	}
	if req.SourceFormat == "" && len(req.Source) > 0 {
		f, err := document.Sniff(req.Source)
		if err != nil {
			return nil, err
		}
		req.SourceFormat = f
	}
	if req.SourceFormat == document.FormatZIP {
		f, err := SniffOffice(req.Source)
		if err != nil {
			return nil, err
		}
		req.SourceFormat = f
	}

	start := time.Now()
	res, err := s.dispatch(ctx, req)
	if res != nil {
		res.RequestID = req.RequestID
	}
	entry := log.WithField("elapsed", time.Since(start).Round(time.Millisecond))
	switch {
	case err != nil && res == nil:
		entry.WithError(err).Warn("conversion failed")
	case err != nil:
		entry.WithError(err).Warn("conversion partially succeeded")
	default:
		entry.WithField("bytes", len(res.Data)).Info("conversion done")
	}
	return res, err
}

func (s *Service) dispatch(ctx context.Context, req Request) (*Result, error) {
	switch {
	case req.Target == document.FormatPDF && (len(req.Images) > 0 || req.SourceFormat == document.FormatPNG || req.SourceFormat == document.FormatJPEG):
		return s.imagesToPDF(req)
	case req.Target == document.FormatPDF && (req.SourceFormat == document.FormatDOCX || req.SourceFormat == document.FormatXLSX):
		return s.officeToPDF(ctx, req)
	case req.SourceFormat != document.FormatPDF:
		return nil, document.Errorf(document.KindUnsupportedFormat, "convert", "cannot convert %s to %s", req.SourceFormat, req.Target)
	}

	doc, err := document.Open(req.Source)
	if err != nil {
		return nil, err
	}
	switch req.Target {
	case document.FormatDOCX, document.FormatXLSX, document.FormatMarkdown:
		return s.pdfToText(ctx, doc, req.Target)
	case document.FormatPNG, document.FormatJPEG, document.FormatZIP:
		return s.pdfToImages(ctx, doc, req)
	case document.FormatPDF:
		data, err := doc.Encode()
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, MediaType: document.MediaPDF, Filename: "document.pdf"}, nil
	}
	return nil, document.Errorf(document.KindUnsupportedFormat, "convert", "cannot convert pdf to %s", req.Target)
}

func (s *Service) pdfToText(ctx context.Context, doc *document.Document, target document.Format) (*Result, error) {
	write, err := serialize.For(target)
	if err != nil {
		return nil, err
	}
	ex, exErr := s.Extract(ctx, doc)
	if ex == nil {
		return nil, exErr
	}
	data, err := write(ex.Paragraphs)
	if err != nil {
		return nil, document.Wrap(document.KindConversionFailure, "serialize", err)
	}
	return &Result{
		Data:      data,
		MediaType: target.MediaType(),
		Filename:  "document." + target.Ext(),
		Strategy:  ex.Strategy,
		Failures:  ex.Failures,
	}, exErr
}

func (s *Service) pdfToImages(ctx context.Context, doc *document.Document, req Request) (*Result, error) {
	opts := req.Raster
	if req.Target != document.FormatZIP {
		opts.Format = req.Target
	}
	images, rErr := s.Raster.Rasterize(ctx, doc, opts)
	if images == nil && rErr != nil {
		return nil, rErr
	}
	if len(images) == 0 {
		return nil, document.Errorf(document.KindInvalidPageNumber, "convert", "no requested page exists in a %d-page document", doc.PageCount())
	}
	res := &Result{}
	if de := (*document.Error)(nil); errors.As(rErr, &de) {
		res.Failures = de.Items
	}
	if len(images) == 1 && req.Target != document.FormatZIP {
		res.Data, res.MediaType, res.Filename = images[0].Data, images[0].MediaType(), images[0].Filename()
		return res, rErr
	}
	data, err := Archive(images)
	if err != nil {
		return nil, document.Wrap(document.KindConversionFailure, "convert", err)
	}
	res.Data, res.MediaType, res.Filename = data, document.MediaZIP, "pages.zip"
	return res, rErr
}

func (s *Service) imagesToPDF(req Request) (*Result, error) {
	images := req.Images
	if len(images) == 0 {
		images = [][]byte{req.Source}
	}
	doc, err := s.Pages.FromImages(images, pages.ImageOptions{PageSize: req.PageSize, Fit: req.Fit})
	if err != nil {
		return nil, err
	}
	data, err := doc.Encode()
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, MediaType: document.MediaPDF, Filename: "images.pdf"}, nil
}

func (s *Service) officeToPDF(ctx context.Context, req Request) (*Result, error) {
	doc, err := s.Office.ToPDF(ctx, req.Source, req.SourceFormat)
	if err != nil {
		return nil, err
	}
	data, err := doc.Encode()
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, MediaType: document.MediaPDF, Filename: "document.pdf"}, nil
}
