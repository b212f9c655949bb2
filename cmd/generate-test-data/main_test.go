package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
)

func TestGenerate(t *testing.T) {
	dir := t.TempDir()

	fixtures, err := generate(dir)
	require.NoError(t, err)
	require.Len(t, fixtures, 6)

	for _, f := range fixtures {
		assert.FileExists(t, filepath.Join(dir, f.File))
	}

	n, err := pdf.PageCount(filepath.Join(dir, "qr_page_four.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var manifest []fixture
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, fixtures, manifest)
}
