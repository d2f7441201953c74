package document

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var encryptRef = regexp.MustCompile(`/Encrypt\s*(\d+\s+\d+\s+R|<<)`)

// IsEncrypted reports whether data carries an /Encrypt entry.
func IsEncrypted(data []byte) bool {
	return encryptRef.Match(data)
}

// NewConfig returns the pdfcpu configuration used for reading and writing.
func NewConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Open parses PDF bytes into a Document. The bytes are retained, not copied;
// callers must not modify them afterwards.
func Open(data []byte) (*Document, error) {
	if len(data) < 5 || string(data[:5]) != "%PDF-" {
		return nil, Errorf(KindUnsupportedFormat, "open", "not a PDF document")
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), NewConfig())
	if err != nil {
		if IsEncrypted(data) {
			return nil, Errorf(KindInvalidPassword, "open", "document is password protected")
		}
		return nil, Wrap(KindUnsupportedFormat, "open", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, Wrap(KindUnsupportedFormat, "open", err)
	}

	rotations := make([]int, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		pageDict, _, inhPAttrs, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, Wrap(KindUnsupportedFormat, "open", fmt.Errorf("page %d: %w", i, err))
		}
		rot := 0
		if r := pageDict.IntEntry("Rotate"); r != nil {
			rot = *r
		} else if inhPAttrs != nil {
			rot = inhPAttrs.Rotate
		}
		rotations[i-1] = NormalizeRotation(rot)
	}

	src := newSource(data, rotations)
	pages := make([]Page, len(rotations))
	for i, rot := range rotations {
		pages[i] = Page{index: i + 1, rotation: rot, src: src, srcPage: i + 1}
	}
	return &Document{pages: pages}, nil
}

// identity returns the source bytes when d is exactly one source's pages in
// original order and rotation.
func (d *Document) identity() ([]byte, bool) {
	if len(d.pages) == 0 {
		return nil, false
	}
	src := d.pages[0].src
	if src == nil || src.pageCount() != len(d.pages) {
		return nil, false
	}
	for i, p := range d.pages {
		if p.src != src || p.srcPage != i+1 || p.rotation != src.rotations[i] {
			return nil, false
		}
	}
	return src.data, true
}

type pageGroup struct {
	src   *source
	pages []string
}

// groups splits pages into maximal runs that share one source.
func (d *Document) groups() []pageGroup {
	var out []pageGroup
	for _, p := range d.pages {
		n := len(out)
		if n == 0 || out[n-1].src != p.src {
			out = append(out, pageGroup{src: p.src})
			n++
		}
		out[n-1].pages = append(out[n-1].pages, strconv.Itoa(p.srcPage))
	}
	return out
}

// Encode materialises d as PDF bytes: each run of pages from one source is
// collected in order, the runs are merged, and rotation changes relative to
// the source are applied last.
func (d *Document) Encode() ([]byte, error) {
	if len(d.pages) == 0 {
		return nil, Errorf(KindInvalidInput, "encode", "document has no pages")
	}
	if data, ok := d.identity(); ok {
		return data, nil
	}
	for _, p := range d.pages {
		if p.src == nil {
			return nil, Errorf(KindInvalidInput, "encode", "page %d has no source content", p.index)
		}
	}

	conf := NewConfig()
	var parts []io.ReadSeeker
	for _, g := range d.groups() {
		var buf bytes.Buffer
		if err := api.Collect(bytes.NewReader(g.src.data), &buf, g.pages, conf); err != nil {
			return nil, Wrap(KindConversionFailure, "encode", fmt.Errorf("collect pages: %w", err))
		}
		parts = append(parts, bytes.NewReader(buf.Bytes()))
	}

	var data []byte
	if len(parts) == 1 {
		b, err := io.ReadAll(parts[0])
		if err != nil {
			return nil, Wrap(KindConversionFailure, "encode", err)
		}
		data = b
	} else {
		var buf bytes.Buffer
		if err := api.MergeRaw(parts, &buf, false, conf); err != nil {
			return nil, Wrap(KindConversionFailure, "encode", fmt.Errorf("merge: %w", err))
		}
		data = buf.Bytes()
	}

	deltas := make(map[int][]string)
	for _, p := range d.pages {
		delta := NormalizeRotation(p.rotation - p.src.rotations[p.srcPage-1])
		if delta != 0 {
			deltas[delta] = append(deltas[delta], strconv.Itoa(p.index))
		}
	}
	keys := make([]int, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, delta := range keys {
		var buf bytes.Buffer
		if err := api.Rotate(bytes.NewReader(data), &buf, delta, deltas[delta], conf); err != nil {
			return nil, Wrap(KindConversionFailure, "encode", fmt.Errorf("rotate %d: %w", delta, err))
		}
		data = buf.Bytes()
	}
	return data, nil
}
