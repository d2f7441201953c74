package pages

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfgears/converter/document"
	"pdfgears/internal/pdftest"
)

func openDoc(t *testing.T, pages ...pdftest.Page) *document.Document {
	t.Helper()
	doc, err := document.Open(pdftest.Build(pages...))
	require.NoError(t, err)
	return doc
}

func numbered(t *testing.T, n int) *document.Document {
	t.Helper()
	pages := make([]pdftest.Page, n)
	for i := range pages {
		pages[i] = pdftest.TextPage("content of page " + string(rune('A'+i)))
	}
	return openDoc(t, pages...)
}

func sources(doc *document.Document) []int {
	var out []int
	for _, p := range doc.Pages() {
		out = append(out, p.SourcePage())
	}
	return out
}

func rotations(doc *document.Document) []int {
	var out []int
	for _, p := range doc.Pages() {
		out = append(out, p.Rotation())
	}
	return out
}

// texts encodes doc, reopens it and returns each page's text.
func texts(t *testing.T, doc *document.Document) []string {
	t.Helper()
	data, err := doc.Encode()
	require.NoError(t, err)
	re, err := document.Open(data)
	require.NoError(t, err)
	var out []string
	for _, p := range re.Pages() {
		s, err := p.Text()
		require.NoError(t, err)
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func TestRotate_RoundTrip(t *testing.T) {
	m := New(nil)
	doc := openDoc(t,
		pdftest.TextPage("a"),
		pdftest.Page{Rotate: 90, Lines: [][]pdftest.Run{{{Text: "b"}}}},
	)

	for _, d := range []int{0, 90, 180, 270, 360, -90, 450} {
		rotated, err := m.Rotate(doc, d)
		require.NoError(t, err)
		back, err := m.Rotate(rotated, -d)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 90}, rotations(back), "degrees %d", d)
	}

	rotated, err := m.Rotate(doc, 90)
	require.NoError(t, err)
	assert.Equal(t, []int{90, 180}, rotations(rotated))
	assert.Equal(t, []int{0, 90}, rotations(doc), "input untouched")
}

func TestRotate_RejectsOddAngles(t *testing.T) {
	_, err := New(nil).Rotate(numbered(t, 1), 45)
	assert.ErrorIs(t, err, document.ErrInvalidInput)
}

func TestRotate_Encoded(t *testing.T) {
	rotated, err := New(nil).Rotate(numbered(t, 2), 270)
	require.NoError(t, err)
	data, err := rotated.Encode()
	require.NoError(t, err)

	re, err := document.Open(data)
	require.NoError(t, err)
	assert.Equal(t, []int{270, 270}, rotations(re))
}

func TestSplitThenMerge(t *testing.T) {
	m := New(nil)
	doc := numbered(t, 3)

	parts := m.Split(doc)
	require.Len(t, parts, 3)
	for i, part := range parts {
		assert.Equal(t, 1, part.PageCount())
		p, _ := part.Page(1)
		assert.Equal(t, i+1, p.SourcePage())
	}

	merged := m.Merge(parts...)
	assert.Equal(t, doc.PageCount(), merged.PageCount())
	assert.Equal(t, texts(t, doc), texts(t, merged))
}

func TestMerge_DocumentOrder(t *testing.T) {
	m := New(nil)
	a := openDoc(t, pdftest.TextPage("alpha one"), pdftest.TextPage("alpha two"))
	b := openDoc(t, pdftest.TextPage("beta one"))

	merged := m.Merge(b, a)
	require.Equal(t, 3, merged.PageCount())
	for i, p := range merged.Pages() {
		assert.Equal(t, i+1, p.Index())
	}
	got := texts(t, merged)
	assert.Contains(t, got[0], "beta one")
	assert.Contains(t, got[1], "alpha one")
	assert.Contains(t, got[2], "alpha two")
}

func TestDelete(t *testing.T) {
	m := New(nil)
	doc := numbered(t, 4)

	same := m.Delete(doc, nil)
	assert.Equal(t, sources(doc), sources(same))

	none := m.Delete(doc, []int{1, 2, 3, 4})
	assert.Equal(t, 0, none.PageCount())

	some := m.Delete(doc, []int{2, 4, 9})
	assert.Equal(t, []int{1, 3}, sources(some))
	p, _ := some.Page(2)
	assert.Equal(t, 2, p.Index())
	assert.Equal(t, 4, doc.PageCount(), "input untouched")
}

func TestExtract(t *testing.T) {
	m := New(nil)
	doc := numbered(t, 3)

	sub, err := m.Extract(doc, []int{3, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 3}, sources(sub))

	got := texts(t, sub)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "page C")
	assert.Contains(t, got[1], "page A")
	assert.Contains(t, got[2], "page C")

	_, err = m.Extract(doc, []int{1, 4})
	assert.ErrorIs(t, err, document.ErrInvalidPageNumber)
}

func TestPageAndSplitSelected(t *testing.T) {
	m := New(nil)
	doc := numbered(t, 3)

	one, err := m.Page(doc, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, sources(one))

	_, err = m.Page(doc, 5)
	assert.ErrorIs(t, err, document.ErrInvalidPageNumber)

	sel := m.SplitSelected(doc, []int{3, 0, 1, 7})
	require.Len(t, sel, 2)
	assert.Equal(t, []int{3}, sources(sel[0]))
	assert.Equal(t, []int{1}, sources(sel[1]))
}

func TestCompress_PreservesPages(t *testing.T) {
	m := New(nil)
	doc := openDoc(t,
		pdftest.TextPage(pdftest.Words(30), pdftest.Words(30), pdftest.Words(30)),
		pdftest.Page{Rotate: 180, Lines: [][]pdftest.Run{{{Text: "turned   around", Size: 12}}}},
	)

	out, stats, err := m.Compress(doc)
	require.NoError(t, err)
	assert.Equal(t, doc.PageCount(), out.PageCount())
	assert.Equal(t, rotations(doc), rotations(out))
	assert.LessOrEqual(t, stats.CompressedSize, stats.OriginalSize)
	assert.Equal(t, texts(t, doc), texts(t, out))
}

func TestCompress_SmallPageStaysDecodable(t *testing.T) {
	doc := openDoc(t, pdftest.TextPage("hello world"))

	out, _, err := New(nil).Compress(doc)
	require.NoError(t, err)
	require.Equal(t, 1, out.PageCount())
	assert.Equal(t, []string{"hello world"}, texts(t, out))
	assert.Equal(t, []string{"hello world"}, texts(t, doc))
}

func TestMinifyContent(t *testing.T) {
	in := "BT\n  72   720 Td\n/F0 12 Tf\n(keep   these  (nested)  \\) spaces) Tj\n<48  65> Tj\n<< /MCID 0 >> BDC\nET\n"
	want := "BT\n72 720 Td\n/F0 12 Tf\n(keep   these  (nested)  \\) spaces) Tj\n<48  65> Tj\n<< /MCID 0 >> BDC\nET"
	assert.Equal(t, want, string(minifyContent([]byte(in))))

	img := []byte("q BI /W 1 /H 1 ID \x00\x01 EI Q")
	assert.Equal(t, img, minifyContent(img))
}

func testImage(t *testing.T, jpg bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 100, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if jpg {
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	} else {
		require.NoError(t, png.Encode(&buf, img))
	}
	return buf.Bytes()
}

func TestFromImages(t *testing.T) {
	m := New(nil)
	for _, opts := range []ImageOptions{
		{},
		{PageSize: PageA4, Fit: FitFill},
		{PageSize: PageLegal, Fit: FitStretch},
	} {
		doc, err := m.FromImages([][]byte{testImage(t, false), testImage(t, true)}, opts)
		require.NoError(t, err, "%+v", opts)
		assert.Equal(t, 2, doc.PageCount())
	}
}

func TestFromImages_Invalid(t *testing.T) {
	m := New(nil)

	_, err := m.FromImages(nil, ImageOptions{})
	assert.ErrorIs(t, err, document.ErrInvalidInput)

	_, err = m.FromImages([][]byte{[]byte("not an image")}, ImageOptions{})
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)

	_, err = m.FromImages([][]byte{testImage(t, false)}, ImageOptions{PageSize: "tabloid"})
	assert.ErrorIs(t, err, document.ErrInvalidInput)

	_, err = m.FromImages([][]byte{testImage(t, false)}, ImageOptions{Fit: "zoom"})
	assert.ErrorIs(t, err, document.ErrInvalidInput)
}
