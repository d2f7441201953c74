package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pdfgears/converter/document"
)

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if cfg != nil && cfg.MaxFileSizeBytes > 0 && int64(len(data)) > cfg.MaxFileSizeBytes {
		return nil, document.Errorf(document.KindInvalidInput, "read", "%s is larger than %d MB", path, cfg.MaxFileSizeMB())
	}
	return data, nil
}

// writeOutput writes data to path, or stdout when path is "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// created reports a written file. Reports go to stderr when the data itself
// went to stdout.
func created(cmd *cobra.Command, path, detail string) {
	w := cmd.OutOrStdout()
	if path == "-" {
		w = cmd.ErrOrStderr()
		path = "stdout"
	}
	if detail != "" {
		fmt.Fprintf(w, "Created %s (%s)\n", path, detail)
		return
	}
	fmt.Fprintf(w, "Created %s\n", path)
}

func openPDF(path string) (*document.Document, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return document.Open(data)
}

func writePDF(path string, doc *document.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	return writeOutput(path, data)
}

// defaultOutput derives "<input><suffix>.<ext>" next to the input.
func defaultOutput(input, suffix, ext string) string {
	if input == "-" {
		return "-"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix + "." + ext
}

// siblingPath names a file after the input, e.g. "report_page_002.png".
func siblingPath(input, name string) string {
	if input == "-" {
		return "-"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "_" + name
}

// parsePages parses "1,3-5,8" into page numbers in the order given.
// An empty string means every page and yields nil.
// maxPageSpan bounds how many pages a single range may expand to.
const maxPageSpan = 10000

func parsePages(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, document.Errorf(document.KindInvalidInput, "parse pages", "bad page %q", part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || last < first {
				return nil, document.Errorf(document.KindInvalidInput, "parse pages", "bad page range %q", part)
			}
			if last-first >= maxPageSpan {
				return nil, document.Errorf(document.KindInvalidInput, "parse pages", "page range %q spans more than %d pages", part, maxPageSpan)
			}
		}
		for p := first; p <= last; p++ {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

// partial logs the failed items of a PartialFailure and swallows it; any
// other error is returned.
func partial(err error) error {
	var de *document.Error
	if err == nil || !errors.As(err, &de) || de.Kind != document.KindPartialFailure {
		return err
	}
	for _, item := range de.Items {
		logger.WithField("item", item.Item).Warn(item.Reason)
	}
	logger.Warnf("output is incomplete: %d item(s) failed", len(de.Items))
	return nil
}
