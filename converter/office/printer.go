package office

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
)

// chromeNames are the executables looked up on PATH.
var chromeNames = []string{
	"chromium-browser", "chromium", "google-chrome",
	"google-chrome-stable", "chrome",
}

// lookPath is swapped by tests.
var lookPath = exec.LookPath

// Printer prints HTML to PDF with headless Chrome.
type Printer struct {
	chromePath   string
	autoDownload bool
	noSandbox    bool
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithChromePath uses the browser at path instead of searching PATH.
func WithChromePath(path string) PrinterOption {
	return func(p *Printer) { p.chromePath = path }
}

// WithAutoDownload fetches a Chromium build when none is installed.
func WithAutoDownload(enabled bool) PrinterOption {
	return func(p *Printer) { p.autoDownload = enabled }
}

// WithNoSandbox disables Chrome's sandbox, needed when running as root in
// containers.
func WithNoSandbox() PrinterOption {
	return func(p *Printer) { p.noSandbox = true }
}

// NewPrinter creates a Printer. The browser is started per call.
func NewPrinter(opts ...PrinterOption) *Printer {
	p := &Printer{}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Available reports whether a browser is configured, installed, or may be
// downloaded.
func (p *Printer) Available() bool {
	if p.chromePath != "" || p.autoDownload {
		return true
	}
	_, err := p.findChrome()
	return err == nil
}

func (p *Printer) findChrome() (string, error) {
	for _, name := range chromeNames {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome or Chromium executable found on PATH")
}

// resolveBrowser returns the executable to launch, downloading Chromium
// into rod's cache if allowed and nothing else is found.
func (p *Printer) resolveBrowser() (string, error) {
	if p.chromePath != "" {
		return p.chromePath, nil
	}
	if path, err := p.findChrome(); err == nil {
		return path, nil
	}
	if !p.autoDownload {
		return "", fmt.Errorf("no Chrome or Chromium executable found on PATH")
	}
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("downloading browser: %w", err)
	}
	return path, nil
}

// Print renders an HTML document to US Letter PDF bytes.
func (p *Printer) Print(ctx context.Context, htmlDoc string) ([]byte, error) {
	execPath, err := p.resolveBrowser()
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "pdfgears-*.html")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)
	if _, err := f.WriteString(htmlDoc); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
		chromedp.ExecPath(execPath),
	)
	if p.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	var buf []byte
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				WithMarginTop(0.75).
				WithMarginBottom(0.75).
				WithMarginLeft(0.75).
				WithMarginRight(0.75).
				WithPrintBackground(true).
				Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return buf, nil
}
