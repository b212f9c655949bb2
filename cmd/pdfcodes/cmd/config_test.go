package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfcodes.yaml")

	output, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_pages: 3")

	output, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "# loaded from "+path)
	assert.Contains(t, output, "port: 5032")
	assert.Contains(t, output, "page_format: A4")
}

func TestConfigPaths(t *testing.T) {
	output, err := execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, output, "/etc/pdfcodes")
}
