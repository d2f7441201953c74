package raster

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/gen2brain/go-fitz"
)

// Backend is one way of turning PDF bytes into page images.
type Backend interface {
	Name() string
	// Available reports whether the backend can run in this environment.
	Available() bool
	Open(data []byte) (Session, error)
}

// Session renders pages of one opened PDF. Render must be safe for
// concurrent use.
type Session interface {
	// Render draws 1-based page at dpi.
	Render(ctx context.Context, page int, dpi float64) (image.Image, error)
	Close() error
}

// lookPath is swapped by tests to simulate missing poppler tools.
var lookPath = exec.LookPath

// Fitz renders with MuPDF through go-fitz.
func Fitz() Backend { return fitzBackend{} }

type fitzBackend struct{}

func (fitzBackend) Name() string    { return "mupdf" }
func (fitzBackend) Available() bool { return true }

func (fitzBackend) Open(data []byte) (Session, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("mupdf open: %w", err)
	}
	return &fitzSession{doc: doc}, nil
}

type fitzSession struct {
	doc *fitz.Document
}

func (s *fitzSession) Render(ctx context.Context, page int, dpi float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > s.doc.NumPage() {
		return nil, fmt.Errorf("mupdf: page %d out of range [1, %d]", page, s.doc.NumPage())
	}
	img, err := s.doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("mupdf render page %d: %w", page, err)
	}
	return img, nil
}

func (s *fitzSession) Close() error { return s.doc.Close() }

// Poppler renders by running one of poppler's command line tools,
// "pdftoppm" or "pdftocairo", once per page.
func Poppler(tool string) Backend { return popplerBackend{tool: tool} }

type popplerBackend struct {
	tool string
}

func (b popplerBackend) Name() string { return b.tool }

func (b popplerBackend) Available() bool {
	_, err := lookPath(b.tool)
	return err == nil
}

func (b popplerBackend) Open(data []byte) (Session, error) {
	if _, err := lookPath(b.tool); err != nil {
		return nil, fmt.Errorf("%s not found: %w", b.tool, err)
	}
	dir, err := os.MkdirTemp("", "pdfgears-raster-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to stage input: %w", err)
	}
	return &popplerSession{tool: b.tool, dir: dir, input: path}, nil
}

type popplerSession struct {
	tool  string
	dir   string
	input string
	seq   atomic.Int64
}

func (s *popplerSession) Render(ctx context.Context, page int, dpi float64) (image.Image, error) {
	// Every call gets its own prefix so concurrent renders never collide.
	prefix := filepath.Join(s.dir, fmt.Sprintf("page-%d-%d", page, s.seq.Add(1)))
	p := strconv.Itoa(page)

	cmd := exec.CommandContext(ctx, s.tool,
		"-png",
		"-r", strconv.FormatFloat(dpi, 'f', -1, 64),
		"-f", p,
		"-l", p,
		"-singlefile",
		s.input,
		prefix,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w\nOutput: %s", s.tool, err, string(output))
	}

	path := prefix + ".png"
	defer os.Remove(path)
	return loadPNG(path)
}

func (s *popplerSession) Close() error { return os.RemoveAll(s.dir) }

// loadPNG loads a PNG image from a file
func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return png.Decode(f)
}
