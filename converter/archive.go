package converter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"

	"pdfgears/converter/document"
	"pdfgears/converter/raster"
)

// Archive packs page images into a ZIP, one entry per image. A page that
// appears more than once gets a sequence suffix, as in page_001_2.png.
func Archive(images []raster.Image) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]int, len(images))
	for _, im := range images {
		name := im.Filename()
		seen[name]++
		if n := seen[name]; n > 1 {
			ext := path.Ext(name)
			name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := w.Write(im.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SniffOffice tells a Word document from a workbook by the parts inside the
// ZIP container.
func SniffOffice(data []byte) (document.Format, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", document.Wrap(document.KindUnsupportedFormat, "sniff", err)
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return document.FormatDOCX, nil
		case strings.HasPrefix(f.Name, "xl/"):
			return document.FormatXLSX, nil
		}
	}
	return "", document.Errorf(document.KindUnsupportedFormat, "sniff", "ZIP archive is neither a Word document nor a workbook")
}
