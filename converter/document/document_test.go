package document

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfgears/internal/pdftest"
)

func openTest(t *testing.T, pages ...pdftest.Page) *Document {
	t.Helper()
	doc, err := Open(pdftest.Build(pages...))
	require.NoError(t, err)
	return doc
}

func TestOpen_PageCountAndRotation(t *testing.T) {
	doc := openTest(t,
		pdftest.TextPage("first page"),
		pdftest.Page{Rotate: 90, Lines: [][]pdftest.Run{{{Text: "second page", Size: 12}}}},
		pdftest.TextPage("third page"),
	)

	require.Equal(t, 3, doc.PageCount())
	for i, want := range []int{0, 90, 0} {
		p, err := doc.Page(i + 1)
		require.NoError(t, err)
		assert.Equal(t, i+1, p.Index())
		assert.Equal(t, want, p.Rotation(), "page %d", i+1)
	}
}

func TestOpen_RejectsNonPDF(t *testing.T) {
	_, err := Open([]byte("hello world"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestPage_OutOfRange(t *testing.T) {
	doc := openTest(t, pdftest.TextPage("only"))

	for _, n := range []int{0, 2, -1} {
		_, err := doc.Page(n)
		assert.ErrorIs(t, err, ErrInvalidPageNumber, "page %d", n)
	}
}

func TestPage_LinesCarryStyle(t *testing.T) {
	doc := openTest(t, pdftest.Page{Lines: [][]pdftest.Run{
		{{Text: "Plain", Size: 12}, {Text: " Strong", Font: pdftest.Bold, Size: 12}},
		{{Text: "Slanted", Font: pdftest.BoldItalic, Size: 18}},
	}})
	p, err := doc.Page(1)
	require.NoError(t, err)

	lines, err := p.Lines()
	require.NoError(t, err)
	require.Len(t, lines, 2)

	require.Len(t, lines[0], 2)
	assert.Equal(t, "Plain", strings.TrimSpace(lines[0][0].Text))
	assert.False(t, lines[0][0].Bold())
	assert.Equal(t, "Strong", strings.TrimSpace(lines[0][1].Text))
	assert.True(t, lines[0][1].Bold())
	assert.False(t, lines[0][1].Italic())

	require.Len(t, lines[1], 1)
	assert.True(t, lines[1][0].Bold())
	assert.True(t, lines[1][0].Italic())
	assert.InDelta(t, 18, lines[1][0].FontSize, 0.01)
}

func TestPage_Text(t *testing.T) {
	doc := openTest(t, pdftest.TextPage("alpha beta gamma"))
	p, _ := doc.Page(1)

	text, err := p.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "alpha beta gamma")
}

func TestStyleFlagsForFont(t *testing.T) {
	cases := map[string]int{
		"Helvetica":                0,
		"Helvetica-Bold":           StyleBold,
		"Times-Italic":             StyleItalic,
		"Helvetica-BoldOblique":    StyleBold | StyleItalic,
		"ABCDEF+Arial-BlackItalic": StyleBold | StyleItalic,
		"Courier":                  0,
	}
	for name, want := range cases {
		assert.Equal(t, want, StyleFlagsForFont(name), name)
	}
}

func TestNormalizeRotation(t *testing.T) {
	cases := map[int]int{0: 0, 90: 90, 360: 0, 450: 90, -90: 270, -360: 0, -450: 270}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRotation(in), "%d", in)
	}
}

func TestFromPages_RenumbersAndCopies(t *testing.T) {
	doc := openTest(t, pdftest.TextPage("one"), pdftest.TextPage("two"), pdftest.TextPage("three"))
	pages := doc.Pages()

	out := FromPages([]Page{pages[2], pages[0]})
	require.Equal(t, 2, out.PageCount())
	p1, _ := out.Page(1)
	p2, _ := out.Page(2)
	assert.Equal(t, 1, p1.Index())
	assert.Equal(t, 3, p1.SourcePage())
	assert.Equal(t, 2, p2.Index())
	assert.Equal(t, 1, p2.SourcePage())

	// the input is untouched
	orig, _ := doc.Page(1)
	assert.Equal(t, 1, orig.Index())
	assert.Equal(t, 3, doc.PageCount())
}

func TestEncode_IdentityReturnsSource(t *testing.T) {
	data := pdftest.Build(pdftest.TextPage("a"), pdftest.TextPage("b"))
	doc, err := Open(data)
	require.NoError(t, err)

	out, err := doc.Encode()
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestEncode_ReorderAndRotate(t *testing.T) {
	doc := openTest(t, pdftest.TextPage("page one"), pdftest.TextPage("page two"))
	pages := doc.Pages()

	edited := FromPages([]Page{pages[1], pages[0].WithRotation(180)})
	data, err := edited.Encode()
	require.NoError(t, err)

	reopened, err := Open(data)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.PageCount())

	p1, _ := reopened.Page(1)
	p2, _ := reopened.Page(2)
	t1, err := p1.Text()
	require.NoError(t, err)
	t2, err := p2.Text()
	require.NoError(t, err)
	assert.Contains(t, t1, "page two")
	assert.Contains(t, t2, "page one")
	assert.Equal(t, 0, p1.Rotation())
	assert.Equal(t, 180, p2.Rotation())
}

func TestEncode_EmptyDocument(t *testing.T) {
	_, err := FromPages(nil).Encode()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEncode_DetachedPage(t *testing.T) {
	_, err := FromPages([]Page{NewPage(0)}).Encode()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIsEncrypted(t *testing.T) {
	assert.False(t, IsEncrypted(pdftest.Build(pdftest.TextPage("x"))))
	assert.True(t, IsEncrypted([]byte("trailer << /Root 1 0 R /Encrypt 9 0 R >>")))
}

func TestError_KindMatching(t *testing.T) {
	err := fmt.Errorf("outer: %w", Errorf(KindInvalidPassword, "unlock", "wrong password"))

	assert.ErrorIs(t, err, ErrInvalidPassword)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, KindInvalidPassword, KindOf(err))
	assert.Equal(t, KindConversionFailure, KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))

	d := Describe(err)
	assert.Equal(t, KindInvalidPassword, d.Kind)
	assert.Contains(t, d.Message, "wrong password")
}

func TestError_ItemsInMessage(t *testing.T) {
	err := &Error{Kind: KindPartialFailure, Op: "ocr", Items: []ItemFailure{{Item: 2, Reason: "timeout"}}}
	assert.Contains(t, err.Error(), "1 item(s) failed")
	assert.Len(t, Describe(err).Items, 1)
}

func TestParseFormatAndMedia(t *testing.T) {
	f, err := ParseFormat(".JPEG")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, f)
	assert.Equal(t, MediaJPEG, f.MediaType())

	f, err = ParseFormat("word")
	require.NoError(t, err)
	assert.Equal(t, MediaDOCX, f.MediaType())

	_, err = ParseFormat("tiff")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSniff(t *testing.T) {
	f, err := Sniff(pdftest.Build(pdftest.TextPage("x")))
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	f, err = Sniff([]byte("PK\x03\x04rest"))
	require.NoError(t, err)
	assert.Equal(t, FormatZIP, f)

	_, err = Sniff([]byte("nope"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
