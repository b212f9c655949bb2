package support

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/pdfcodes/internal/server"
	"github.com/MeKo-Tech/pdfcodes/internal/upload"
)

// APIContext holds the state of one scenario.
type APIContext struct {
	// Test environment
	TempDir    string
	WorkDir    string
	HTTPServer *httptest.Server

	// Named uploads prepared by Given steps
	Uploads map[string][]byte

	// HTTP response state
	LastStatus  int
	LastBody    []byte
	LastHeaders http.Header
	LastJSON    map[string]any
}

// NewAPIContext starts an in-process server whose temp files land in a
// scenario-private directory.
func NewAPIContext() (*APIContext, error) {
	tempDir, err := os.MkdirTemp("", "pdfcodes-api-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	workDir := filepath.Join(tempDir, "work")
	if err := os.Mkdir(workDir, 0o750); err != nil {
		return nil, errors.Join(err, os.RemoveAll(tempDir))
	}

	srv := server.NewServer(server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 2,
		TimeoutSec:  30,
		TempDir:     workDir,
	})

	return &APIContext{
		TempDir:    tempDir,
		WorkDir:    workDir,
		HTTPServer: httptest.NewServer(srv.Handler()),
		Uploads:    map[string][]byte{},
	}, nil
}

// URL resolves path against the test server.
func (c *APIContext) URL(path string) string {
	return c.HTTPServer.URL + path
}

// LeftoverFiles lists temp files the server failed to release.
func (c *APIContext) LeftoverFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(c.WorkDir, upload.Prefix+"*"))
}

// Cleanup stops the server and removes the scenario directory.
func (c *APIContext) Cleanup() error {
	if c.HTTPServer != nil {
		c.HTTPServer.Close()
		c.HTTPServer = nil
	}
	return os.RemoveAll(c.TempDir)
}
