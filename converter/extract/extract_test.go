package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfgears/converter/document"
	"pdfgears/converter/raster"
	"pdfgears/internal/pdftest"
)

func openDoc(t *testing.T, pages ...pdftest.Page) *document.Document {
	t.Helper()
	doc, err := document.Open(pdftest.Build(pages...))
	require.NoError(t, err)
	return doc
}

// pageBackend renders a 1-pixel-wide image whose height is the page number,
// so a recognizer can tell pages apart.
type pageBackend struct{}

func (pageBackend) Name() string                        { return "page" }
func (pageBackend) Available() bool                     { return true }
func (pageBackend) Open([]byte) (raster.Session, error) { return pageSession{}, nil }

type pageSession struct{}

func (pageSession) Render(_ context.Context, page int, _ float64) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 1, page)), nil
}
func (pageSession) Close() error { return nil }

// scriptedRecognizer answers per page; errors are returned as failures.
type scriptedRecognizer struct {
	text  map[int]string
	fail  map[int]error
	delay time.Duration
	calls atomic.Int32
}

func (r *scriptedRecognizer) Name() string    { return "scripted" }
func (r *scriptedRecognizer) Available() bool { return true }

func (r *scriptedRecognizer) Recognize(ctx context.Context, img []byte, _ document.Format) (string, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", err
	}
	page := cfg.Height
	if err := r.fail[page]; err != nil {
		return "", err
	}
	return r.text[page], nil
}

func newOCR(rec Recognizer, workers int) *OCRStrategy {
	return NewOCR(raster.NewEngine(raster.WithBackends(pageBackend{})), rec, workers, nil)
}

func TestSniff_TextInFirstPagesIsStructured(t *testing.T) {
	doc := openDoc(t,
		pdftest.TextPage(pdftest.Words(8)),
		pdftest.TextPage(pdftest.Words(7)),
		pdftest.TextPage(pdftest.Words(6)),
		pdftest.Page{},
		pdftest.Page{},
	)
	assert.Equal(t, Structured, NewSniffer(nil).Sniff(doc))
}

func TestSniff_Threshold(t *testing.T) {
	cases := []struct {
		name  string
		pages []pdftest.Page
		want  Class
	}{
		{"blank pages", []pdftest.Page{{}, {}}, Scanned},
		{"nine words", []pdftest.Page{pdftest.TextPage(pdftest.Words(9))}, Scanned},
		{"ten words", []pdftest.Page{pdftest.TextPage(pdftest.Words(10))}, Structured},
		{"text only after page three", []pdftest.Page{{}, {}, {}, pdftest.TextPage(pdftest.Words(50))}, Scanned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewSniffer(nil).Sniff(openDoc(t, tc.pages...)))
		})
	}
}

func TestReconstruct_StyleBits(t *testing.T) {
	lines := []document.Line{
		{{Text: "bold", FontSize: 14, StyleFlags: 16}},
		{{Text: "both", FontSize: 9, StyleFlags: 18}, {Text: "   "}, {Text: " tail", FontSize: 9, StyleFlags: 4}},
		{{Text: " "}, {Text: ""}},
		{{Text: "italic", FontSize: 11, StyleFlags: 2}},
	}

	paras := Reconstruct(7, lines)
	require.Len(t, paras, 3)

	assert.Equal(t, document.StyledParagraph{Page: 7, Runs: []document.StyledRun{{Text: "bold", Size: 14, Bold: true}}}, paras[0])

	require.Len(t, paras[1].Runs, 2)
	assert.Equal(t, document.StyledRun{Text: "both", Size: 9, Bold: true, Italic: true}, paras[1].Runs[0])
	assert.Equal(t, document.StyledRun{Text: " tail", Size: 9}, paras[1].Runs[1])

	assert.Equal(t, document.StyledRun{Text: "italic", Size: 11, Italic: true}, paras[2].Runs[0])
}

func TestStructured_ExtractsStyledParagraphs(t *testing.T) {
	doc := openDoc(t,
		pdftest.Page{Lines: [][]pdftest.Run{
			{{Text: "Heading", Font: pdftest.Bold, Size: 20}},
			{{Text: "Body text here", Size: 12}},
		}},
		pdftest.TextPage("second page"),
	)

	res, err := NewStructured(nil).Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, res.Pages, 2)
	assert.Empty(t, res.Failures())

	paras := res.Paragraphs()
	require.Len(t, paras, 3)
	assert.Equal(t, "Heading", strings.TrimSpace(paras[0].Text()))
	assert.True(t, paras[0].Runs[0].Bold)
	assert.InDelta(t, 20, paras[0].Runs[0].Size, 0.01)
	assert.Equal(t, "Body text here", strings.TrimSpace(paras[1].Text()))
	assert.False(t, paras[1].Runs[0].Bold)
	assert.Equal(t, 2, paras[2].Page)
}

func TestStructured_NoTextFails(t *testing.T) {
	_, err := NewStructured(nil).Extract(context.Background(), openDoc(t, pdftest.Page{}))
	assert.ErrorIs(t, err, document.ErrNoTextExtracted)
}

func TestRegular_OneParagraphPerLine(t *testing.T) {
	doc := openDoc(t, pdftest.TextPage("first line", "second line"))

	res, err := NewRegular(nil).Extract(context.Background(), doc)
	require.NoError(t, err)

	var all []string
	for _, p := range res.Paragraphs() {
		assert.Len(t, p.Runs, 1)
		assert.False(t, p.Runs[0].Bold)
		all = append(all, p.Text())
	}
	joined := strings.Join(all, " ")
	assert.Contains(t, joined, "first line")
	assert.Contains(t, joined, "second line")
}

func TestRegular_NoText(t *testing.T) {
	_, err := NewRegular(nil).Extract(context.Background(), openDoc(t, pdftest.Page{}, pdftest.Page{}))
	assert.ErrorIs(t, err, document.ErrNoTextExtracted)
}

func TestSplitParagraphs(t *testing.T) {
	paras := SplitParagraphs(2, "Hello\nworld\n\n  \n\nSecond  block\r\n\r\nthird")
	require.Len(t, paras, 3)
	assert.Equal(t, "Hello world", paras[0].Text())
	assert.Equal(t, "Second  block", paras[1].Text())
	assert.Equal(t, "third", paras[2].Text())
	assert.Equal(t, 2, paras[2].Page)

	assert.Empty(t, SplitParagraphs(1, " \n\n "))
}

func TestOCR_PlaceholdersKeepOtherPages(t *testing.T) {
	rec := &scriptedRecognizer{
		text: map[int]string{1: "Hello world\n\nSecond para", 3: "last"},
		fail: map[int]error{2: errors.New("engine crashed")},
	}
	doc := openDoc(t, pdftest.Page{}, pdftest.Page{}, pdftest.Page{}, pdftest.Page{})

	res, err := newOCR(rec, 2).Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, res.Pages, 4)

	var texts []string
	for _, p := range res.Paragraphs() {
		texts = append(texts, p.Text())
	}
	assert.Equal(t, []string{
		"Hello world",
		"Second para",
		"[OCR error on page 2: engine crashed]",
		"last",
		"[No text detected on page 4]",
	}, texts)

	assert.Equal(t, PageFatal, res.Pages[1].Status)
	assert.Equal(t, []document.ItemFailure{{Item: 2, Reason: "engine crashed"}}, res.Failures())
}

func TestOCR_Unavailable(t *testing.T) {
	orig := lookPath
	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	defer func() { lookPath = orig }()

	s := newOCR(Tesseract{}, 1)
	assert.False(t, s.Available())
	_, err := s.Extract(context.Background(), openDoc(t, pdftest.Page{}))
	assert.ErrorIs(t, err, document.ErrConversionFailure)
}

func TestOCR_DeadlineReturnsPartial(t *testing.T) {
	rec := &scriptedRecognizer{text: map[int]string{1: "one", 2: "two", 3: "three"}, delay: 30 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Millisecond)
	defer cancel()

	res, err := newOCR(rec, 1).Extract(ctx, openDoc(t, pdftest.Page{}, pdftest.Page{}, pdftest.Page{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrPartialFailure)
	require.NotNil(t, res)
	assert.Equal(t, PageOK, res.Pages[0].Status)
	assert.Equal(t, "one", res.Pages[0].Paragraphs[0].Text())
	assert.Equal(t, PageFatal, res.Pages[2].Status)
	assert.Len(t, res.Failures(), 2)
}

func TestOCR_DeadlineBeforeAnyPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newOCR(&scriptedRecognizer{}, 2).Extract(ctx, openDoc(t, pdftest.Page{}, pdftest.Page{}))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, document.ErrConversionFailure)
}

func TestTesseract_Recognize(t *testing.T) {
	tess := Tesseract{Language: "eng"}
	if !tess.Available() {
		t.Skip("tesseract not installed")
	}
	blank := image.NewGray(image.Rect(0, 0, 200, 50))
	for i := range blank.Pix {
		blank.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, blank))

	text, err := tess.Recognize(context.Background(), buf.Bytes(), document.FormatPNG)
	require.NoError(t, err)
	assert.Empty(t, text)
}
