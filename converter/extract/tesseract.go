package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"pdfgears/converter/document"
)

// lookPath is the exec.LookPath implementation used by Tesseract.Available.
// Tests replace it to simulate a missing binary.
var lookPath = exec.LookPath

// Recognizer maps a raster image to the text it shows.
type Recognizer interface {
	Name() string
	Available() bool
	Recognize(ctx context.Context, img []byte, format document.Format) (string, error)
}

// Tesseract recognizes text by running the tesseract command line tool.
type Tesseract struct {
	// Language is passed to -l; empty means tesseract's default.
	Language string
}

func (t Tesseract) Name() string { return "tesseract" }

// Available returns true when the "tesseract" binary is on PATH.
func (t Tesseract) Available() bool {
	_, err := lookPath("tesseract")
	return err == nil
}

// Recognize writes img to a temp file and reads tesseract's stdout.
func (t Tesseract) Recognize(ctx context.Context, img []byte, format document.Format) (string, error) {
	if !t.Available() {
		return "", fmt.Errorf("tesseract is not installed or not on PATH")
	}

	tmp, err := os.CreateTemp("", "pdfgears-ocr-*."+format.Ext())
	if err != nil {
		return "", fmt.Errorf("create temp file for OCR: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(img); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp file for OCR: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file for OCR: %w", err)
	}

	args := []string{tmpPath, "stdout"}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "tesseract", args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
