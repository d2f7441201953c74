package pages

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sirupsen/logrus"

	"pdfgears/converter/document"
)

// inlineImage matches the inline image operator. Streams holding inline
// image data are binary and never minified.
var inlineImage = regexp.MustCompile(`(^|\s)BI(\s|$)`)

// CompressStats describes what Compress did.
type CompressStats struct {
	OriginalSize   int `json:"original_size"`
	CompressedSize int `json:"compressed_size"`
	Streams        int `json:"streams_rewritten"`
}

// Compress rewrites page content streams with redundant whitespace removed
// and Flate encoding, then lets pdfcpu drop duplicate and unused objects.
// Page count, rotation and text are unchanged. When the result would not be
// smaller the original bytes are kept.
func (m *Manipulator) Compress(doc *document.Document) (*document.Document, CompressStats, error) {
	data, err := doc.Encode()
	if err != nil {
		return nil, CompressStats{}, err
	}
	stats := CompressStats{OriginalSize: len(data), CompressedSize: len(data)}

	conf := document.NewConfig()
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, stats, document.Wrap(document.KindConversionFailure, "compress", fmt.Errorf("failed to parse PDF: %w", err))
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, stats, document.Wrap(document.KindConversionFailure, "compress", fmt.Errorf("failed to determine page count: %w", err))
	}

	for pageNum := 1; pageNum <= ctx.PageCount; pageNum++ {
		n, err := m.compressPage(ctx, pageNum)
		if err != nil {
			m.logger.WithField("page", pageNum).WithError(err).Warn("content stream left as is")
			continue
		}
		stats.Streams += n
	}

	var written bytes.Buffer
	if err := api.WriteContext(ctx, &written); err != nil {
		return nil, stats, document.Wrap(document.KindConversionFailure, "compress", fmt.Errorf("failed to write PDF: %w", err))
	}
	var optimized bytes.Buffer
	if err := api.Optimize(bytes.NewReader(written.Bytes()), &optimized, conf); err != nil {
		return nil, stats, document.Wrap(document.KindConversionFailure, "compress", fmt.Errorf("optimize: %w", err))
	}

	if optimized.Len() >= len(data) {
		m.logger.WithField("size", len(data)).Debug("compression did not help, keeping original")
		return doc, stats, nil
	}
	out, err := document.Open(optimized.Bytes())
	if err != nil {
		return nil, stats, err
	}
	stats.CompressedSize = optimized.Len()
	m.logger.WithFields(logrus.Fields{
		"before":  stats.OriginalSize,
		"after":   stats.CompressedSize,
		"streams": stats.Streams,
	}).Info("compressed")
	return out, stats, nil
}

// compressPage rewrites the content streams of one page and returns how
// many changed.
func (m *Manipulator) compressPage(ctx *model.Context, pageNum int) (int, error) {
	pageDict, _, _, err := ctx.PageDict(pageNum, false)
	if err != nil {
		return 0, fmt.Errorf("failed to get page dict: %w", err)
	}
	contentsEntry, found := pageDict.Find("Contents")
	if !found {
		return 0, nil
	}

	var refs []types.IndirectRef
	switch contents := contentsEntry.(type) {
	case types.IndirectRef:
		refs = append(refs, contents)
	case types.Array:
		for _, item := range contents {
			if ref, ok := item.(types.IndirectRef); ok {
				refs = append(refs, ref)
			}
		}
	}

	changed := 0
	for _, ref := range refs {
		ok, err := compressStream(ctx, ref)
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

// compressStream re-encodes one content stream with Flate when that makes it
// smaller.
func compressStream(ctx *model.Context, ref types.IndirectRef) (bool, error) {
	obj, err := ctx.Dereference(ref)
	if err != nil {
		return false, err
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return false, nil
	}
	before := len(sd.Raw)

	// Skip streams we can't decode
	if err := sd.Decode(); err != nil || sd.Content == nil {
		return false, nil
	}

	// The dict is shared with the xref entry; edit a copy so a discarded
	// rewrite leaves the original stream intact.
	dict := make(types.Dict, len(sd.Dict))
	for k, v := range sd.Dict {
		dict[k] = v
	}
	sd.Dict = dict

	sd.Content = minifyContent(sd.Content)
	sd.FilterPipeline = []types.PDFFilter{{Name: filter.Flate}}
	sd.Dict.Update("Filter", types.Name(filter.Flate))
	sd.Dict.Delete("DecodeParms")
	if err := sd.Encode(); err != nil {
		return false, fmt.Errorf("failed to encode stream: %w", err)
	}
	if before > 0 && len(sd.Raw) >= before {
		return false, nil
	}
	sd.Dict["Length"] = types.Integer(len(sd.Raw))

	entry, found := ctx.FindTableEntryForIndRef(&ref)
	if !found {
		return false, fmt.Errorf("could not find xref entry")
	}
	entry.Object = sd
	return true, nil
}

// minifyContent collapses whitespace between content stream tokens. Literal
// and hex strings are copied verbatim. Streams with inline images are
// returned unchanged.
func minifyContent(content []byte) []byte {
	if inlineImage.Match(content) {
		return content
	}
	out := make([]byte, 0, len(content))
	// depth is the literal string nesting; inHex is set inside <...>.
	depth := 0
	inHex := false
	pending := byte(0)
	for i := 0; i < len(content); i++ {
		c := content[i]
		switch {
		case depth > 0:
			out = append(out, c)
			switch c {
			case '\\':
				if i+1 < len(content) {
					i++
					out = append(out, content[i])
				}
			case '(':
				depth++
			case ')':
				depth--
			}
			continue
		case inHex:
			out = append(out, c)
			if c == '>' {
				inHex = false
			}
			continue
		case isSpace(c):
			if c == '\n' || c == '\r' {
				pending = '\n'
			} else if pending == 0 {
				pending = ' '
			}
			continue
		}
		if pending != 0 && len(out) > 0 {
			out = append(out, pending)
		}
		pending = 0
		out = append(out, c)
		switch c {
		case '(':
			depth = 1
		case '<':
			if i+1 < len(content) && content[i+1] == '<' {
				out = append(out, '<')
				i++
			} else {
				inHex = true
			}
		}
	}
	return out
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}
