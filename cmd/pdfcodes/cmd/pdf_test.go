package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/testutil"
)

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeBlankPDF(t, dir, "a.pdf", 1)
	b := writeBlankPDF(t, dir, "b.pdf", 2)
	out := filepath.Join(dir, "merged.pdf")

	output, err := execute(t, "merge", "-o", out, a, b)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote "+out)

	n, err := pdf.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMergeCommand_WithImages(t *testing.T) {
	dir := t.TempDir()
	a := writeBlankPDF(t, dir, "a.pdf", 1)
	img := writeCodePNG(t, dir, "scan.png", "M-1")
	out := filepath.Join(dir, "bundle.pdf")

	_, err := execute(t, "merge", "-o", out, "--page-format", "letter", a, img)
	require.NoError(t, err)

	n, err := pdf.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMergeCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	a := writeBlankPDF(t, dir, "a.pdf", 1)

	_, err := execute(t, "merge", a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	notes := testutil.MustWriteFile(t, dir, "notes.txt", []byte("x"))
	_, err = execute(t, "merge", "-o", filepath.Join(dir, "o.pdf"), a, notes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input")
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	one := writeCodePNG(t, dir, "one.png", "C-1")
	two := writeCodePNG(t, dir, "two.png", "C-2")
	out := filepath.Join(dir, "images.pdf")

	output, err := execute(t, "convert", "-o", out, "--page-format", "A5", one, two)
	require.NoError(t, err)
	assert.Contains(t, output, "2 pages, A5")

	n, err := pdf.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = execute(t, "convert", "-o", out, "--page-format", "B7", one)
	assert.Error(t, err)

	_, err = execute(t, "convert", "-o", out, filepath.Join(dir, "x.pdf"))
	assert.Error(t, err)
}

func TestTextCommand(t *testing.T) {
	dir := t.TempDir()
	doc := testutil.MustWriteFile(t, dir, "doc.pdf", testutil.MustTextPDF(t, "Hello pdfcodes", "Second page"))

	output, err := execute(t, "text", doc)
	require.NoError(t, err)
	assert.Contains(t, output, "Page 1:")
	assert.Contains(t, output, "Hello")
	assert.Contains(t, output, "Page 2:")

	out := filepath.Join(dir, "doc.txt")
	output, err = execute(t, "text", doc, "--pages", "2", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, output, "(1 pages)")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Page 2:")
	assert.NotContains(t, string(data), "Page 1:")

	_, err = execute(t, "text", doc, "--pages", "5-2")
	assert.ErrorIs(t, err, pdf.ErrPageRange)
}

func TestStampCommand(t *testing.T) {
	dir := t.TempDir()
	doc := writeBlankPDF(t, dir, "doc.pdf", 2)

	for _, symbol := range []string{"qr", "code128"} {
		t.Run(symbol, func(t *testing.T) {
			out := filepath.Join(dir, symbol+".pdf")
			_, err := execute(t, "stamp", doc, "-o", out, "--symbol", symbol)
			require.NoError(t, err)

			n, err := pdf.PageCount(out)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}

	t.Run("broken input", func(t *testing.T) {
		broken := testutil.MustWriteFile(t, dir, "broken.pdf", testutil.TruncatedPDF())
		_, err := execute(t, "stamp", broken, "-o", filepath.Join(dir, "x.pdf"))
		var oe *pdf.OpenError
		assert.ErrorAs(t, err, &oe)
	})
}
