package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
	"github.com/MeKo-Tech/pdfcodes/internal/testutil"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeExtractor records uploads and returns a canned result.
type fakeExtractor struct {
	mu          sync.Mutex
	res         *pipeline.Result
	err         error
	calls       int
	body        []byte
	hadDeadline bool
}

func (f *fakeExtractor) Extract(ctx context.Context, u pipeline.Upload, _ pipeline.Mode) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := pipeline.Validate(u); err != nil {
		return nil, err
	}
	f.body, _ = io.ReadAll(u.Body)
	_, f.hadDeadline = ctx.Deadline()
	return f.res, f.err
}

func sampleResult() *pipeline.Result {
	one, two := 1, 2
	return &pipeline.Result{
		Codes: []pipeline.Hit{
			{Type: pipeline.KindBarcode, Data: "B1", Format: "CODE128", Confidence: 1, Page: &one,
				Bounds: &pipeline.BoundingBox{X: 1, Y: 2, Width: 3, Height: 1}},
			{Type: pipeline.KindQR, Data: "Q1", Format: "QR_CODE", Confidence: 1, Page: &two},
		},
		GeneratedAt: fixedNow,
		Stats:       pipeline.Stats{Source: "pdf", Pages: 2},
	}
}

// newTestServer builds a server over ex, or over the real pipeline when ex
// is nil, with all temp files under a per-test directory.
func newTestServer(t *testing.T, ex codeExtractor) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{CORSOrigin: "*", MaxUploadMB: 2, TimeoutSec: 30, TempDir: dir, Extractor: ex}
	if ex == nil {
		cfg.Extraction = pipeline.Config{Clock: func() time.Time { return fixedNow }}
	}
	s := NewServer(cfg)
	s.clock = func() time.Time { return fixedNow }
	return s, dir
}

func uploadRequest(t *testing.T, path string, files ...testutil.FormFile) *http.Request {
	t.Helper()
	body, contentType := testutil.MultipartBody(t, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body.Bytes(), &m))
	return m
}

func assertNoLeaks(t *testing.T, dir string) {
	t.Helper()
	require.Empty(t, testutil.TempFiles(t, dir, "pdfcodes-*"), "temp files leaked")
}
