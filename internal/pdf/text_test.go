package pdf

import (
	"testing"

	"github.com/MeKo-Tech/pdfcodes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textPDF(t *testing.T, lines ...string) string {
	t.Helper()
	return testutil.MustWriteFile(t, t.TempDir(), "text.pdf", testutil.MustTextPDF(t, lines...))
}

func TestExtractText(t *testing.T) {
	path := textPDF(t, "Invoice 42", "Second page", "Third page")

	t.Run("all pages", func(t *testing.T) {
		pages, err := ExtractText(path, "")
		require.NoError(t, err)
		require.Len(t, pages, 3)
		assert.Equal(t, 1, pages[0].Page)
		assert.Contains(t, pages[0].Text, "Invoice")
		assert.Contains(t, pages[2].Text, "Third")
	})

	t.Run("page range", func(t *testing.T) {
		pages, err := ExtractText(path, "2-3,9")
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, 2, pages[0].Page)
		assert.Equal(t, 3, pages[1].Page)
	})

	t.Run("bad range", func(t *testing.T) {
		_, err := ExtractText(path, "3-1")
		assert.ErrorIs(t, err, ErrPageRange)
	})
}

func TestExtractText_NotAPDF(t *testing.T) {
	path := testutil.MustWriteFile(t, t.TempDir(), "x.pdf", []byte("hello"))
	_, err := ExtractText(path, "")
	var oe *OpenError
	assert.ErrorAs(t, err, &oe)
}

func TestFormatText(t *testing.T) {
	got := FormatText([]PageText{{Page: 1, Text: "a"}, {Page: 2, Text: ""}})
	assert.Equal(t, "Page 1:\na\n\nPage 2:\n\n\n", got)
	assert.Empty(t, FormatText(nil))
}
