// Package raster renders document pages to PNG or JPEG images.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
	"pdfgears/internal/workpool"
)

// Quality is a named resolution tier.
type Quality int

const (
	QualityLow    Quality = 1
	QualityMedium Quality = 2
	QualityHigh   Quality = 3
)

// DPI returns the resolution of the tier. Unknown tiers fall back to medium.
func (q Quality) DPI() float64 {
	switch q {
	case QualityLow:
		return 150
	case QualityHigh:
		return 300
	}
	return 200
}

// Zoom is the scale factor relative to 72 DPI.
func (q Quality) Zoom() float64 { return ZoomForDPI(q.DPI()) }

// ZoomForDPI converts a resolution into a zoom factor.
func ZoomForDPI(dpi float64) float64 { return dpi / 72 }

const (
	jpegQuality = 95
	previewZoom = 0.5
)

// Options selects what and how to render. An explicit Zoom wins over Quality.
type Options struct {
	Zoom    float64
	Quality Quality
	Format  document.Format
	// Pages lists 1-based page numbers in output order; empty means all.
	Pages []int
}

// DPI resolves the effective resolution.
func (o Options) DPI() float64 {
	if o.Zoom > 0 {
		return o.Zoom * 72
	}
	return o.Quality.DPI()
}

func (o Options) format() (document.Format, error) {
	switch o.Format {
	case "", document.FormatPNG:
		return document.FormatPNG, nil
	case document.FormatJPEG:
		return document.FormatJPEG, nil
	}
	return "", document.Errorf(document.KindInvalidInput, "rasterize", "unsupported image format %q", o.Format)
}

// Image is one encoded page image.
type Image struct {
	Page   int
	Format document.Format
	Data   []byte
	Width  int
	Height int
}

// Filename is the conventional archive entry name, e.g. "page_003.png".
func (im Image) Filename() string {
	return fmt.Sprintf("page_%03d.%s", im.Page, im.Format.Ext())
}

// MediaType returns the image's media type.
func (im Image) MediaType() string { return im.Format.MediaType() }

// Engine is the page rasterizer. It tries its backends in order for every
// page until one succeeds.
type Engine struct {
	backends []Backend
	workers  int
	logger   logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackends replaces the default backend chain.
func WithBackends(b ...Backend) Option {
	return func(e *Engine) { e.backends = b }
}

// WithWorkers bounds the number of pages rendered concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a rasterizer backed by MuPDF with poppler fallbacks.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		backends: []Backend{Fitz(), Poppler("pdftoppm"), Poppler("pdftocairo")},
		workers:  4,
		logger:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Available reports whether any backend can run.
func (e *Engine) Available() bool {
	for _, b := range e.backends {
		if b.Available() {
			return true
		}
	}
	return false
}

// Job is a document prepared for rendering. Backend sessions are opened on
// first use and reused for every page.
type Job struct {
	engine    *Engine
	data      []byte
	pageCount int

	mu       sync.Mutex
	sessions []Session
	openErrs []error
}

// Open encodes doc once so its pages can be rendered individually.
func (e *Engine) Open(doc *document.Document) (*Job, error) {
	data, err := doc.Encode()
	if err != nil {
		return nil, err
	}
	return &Job{
		engine:    e,
		data:      data,
		pageCount: doc.PageCount(),
		sessions:  make([]Session, len(e.backends)),
		openErrs:  make([]error, len(e.backends)),
	}, nil
}

// PageCount is the number of pages in the job's document.
func (j *Job) PageCount() int { return j.pageCount }

func (j *Job) session(i int) (Session, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sessions[i] == nil && j.openErrs[i] == nil {
		j.sessions[i], j.openErrs[i] = j.engine.backends[i].Open(j.data)
	}
	return j.sessions[i], j.openErrs[i]
}

// Image renders page at dpi, falling back through the backend chain.
func (j *Job) Image(ctx context.Context, page int, dpi float64) (image.Image, error) {
	if page < 1 || page > j.pageCount {
		return nil, document.Errorf(document.KindInvalidPageNumber, "rasterize", "page %d out of range [1, %d]", page, j.pageCount)
	}
	var errs []error
	for i, b := range j.engine.backends {
		if !b.Available() {
			continue
		}
		s, err := j.session(i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		img, err := s.Render(ctx, page, dpi)
		if err == nil {
			return img, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		j.engine.logger.WithFields(logrus.Fields{"backend": b.Name(), "page": page}).WithError(err).Warn("render failed, trying next backend")
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, document.Errorf(document.KindConversionFailure, "rasterize",
			"no page renderer available; install MuPDF or poppler-utils")
	}
	return nil, document.Wrap(document.KindConversionFailure, "rasterize", errors.Join(errs...))
}

// Render renders page and encodes it as opts asks.
func (j *Job) Render(ctx context.Context, page int, opts Options) (Image, error) {
	format, err := opts.format()
	if err != nil {
		return Image{}, err
	}
	img, err := j.Image(ctx, page, opts.DPI())
	if err != nil {
		return Image{}, err
	}
	data, err := encode(img, format)
	if err != nil {
		return Image{}, document.Wrap(document.KindConversionFailure, "rasterize", fmt.Errorf("encode page %d: %w", page, err))
	}
	b := img.Bounds()
	return Image{Page: page, Format: format, Data: data, Width: b.Dx(), Height: b.Dy()}, nil
}

// Close releases backend resources.
func (j *Job) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var errs []error
	for i, s := range j.sessions {
		if s != nil {
			errs = append(errs, s.Close())
			j.sessions[i] = nil
		}
	}
	return errors.Join(errs...)
}

// Rasterize renders opts.Pages (all pages when empty) in the order given.
// Out-of-range page numbers are skipped. When at least one page was rendered
// but others failed or ran out of time, the rendered pages are returned
// together with a PartialFailure error listing the rest.
func (e *Engine) Rasterize(ctx context.Context, doc *document.Document, opts Options) ([]Image, error) {
	if _, err := opts.format(); err != nil {
		return nil, err
	}
	var pages []int
	if len(opts.Pages) == 0 {
		for i := 1; i <= doc.PageCount(); i++ {
			pages = append(pages, i)
		}
	} else {
		for _, p := range opts.Pages {
			if p < 1 || p > doc.PageCount() {
				e.logger.WithField("page", p).Debug("skipping out-of-range page")
				continue
			}
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, nil
	}

	job, err := e.Open(doc)
	if err != nil {
		return nil, err
	}
	defer job.Close()

	e.logger.WithFields(logrus.Fields{"pages": len(pages), "dpi": opts.DPI()}).Debug("rasterizing")
	images := make([]Image, len(pages))
	errs := workpool.Run(ctx, len(pages), e.workers, func(ctx context.Context, i int) error {
		img, err := job.Render(ctx, pages[i], opts)
		images[i] = img
		return err
	})

	var (
		out      []Image
		failures []document.ItemFailure
		firstErr error
	)
	for i, err := range errs {
		if err == nil {
			out = append(out, images[i])
			continue
		}
		cancelled := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
		if !cancelled && firstErr == nil {
			firstErr = err
		}
		failures = append(failures, document.ItemFailure{Item: pages[i], Reason: err.Error()})
	}
	cause := firstErr
	if cause == nil {
		cause = ctx.Err()
	}
	switch {
	case len(failures) == 0:
		return out, nil
	case len(out) > 0:
		return out, &document.Error{Kind: document.KindPartialFailure, Op: "rasterize", Err: cause, Items: failures}
	case firstErr != nil:
		return nil, firstErr
	}
	return nil, document.Wrap(document.KindConversionFailure, "rasterize", cause)
}

// RenderPage renders exactly one page; an out-of-range page is an error.
func (e *Engine) RenderPage(ctx context.Context, doc *document.Document, page int, opts Options) (Image, error) {
	if page < 1 || page > doc.PageCount() {
		return Image{}, document.Errorf(document.KindInvalidPageNumber, "rasterize", "page %d out of range [1, %d]", page, doc.PageCount())
	}
	job, err := e.Open(doc)
	if err != nil {
		return Image{}, err
	}
	defer job.Close()
	return job.Render(ctx, page, opts)
}

// Previews renders every page as a small PNG thumbnail.
func (e *Engine) Previews(ctx context.Context, doc *document.Document) ([]Image, error) {
	return e.Rasterize(ctx, doc, Options{Zoom: previewZoom, Format: document.FormatPNG})
}

func encode(img image.Image, format document.Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if format == document.FormatJPEG {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	} else {
		err = png.Encode(&buf, img)
	}
	return buf.Bytes(), err
}
