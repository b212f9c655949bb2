package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pdfcodes/internal/barcode"
	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
	"github.com/MeKo-Tech/pdfcodes/internal/testutil"
)

func TestServer_HealthHandler(t *testing.T) {
	server, _ := newTestServer(t, &fakeExtractor{})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
		checkResponse  bool
	}{
		{name: "GET request success", method: "GET", expectedStatus: http.StatusOK, checkResponse: true},
		{name: "POST request not allowed", method: "POST", expectedStatus: http.StatusMethodNotAllowed},
		{name: "PUT request not allowed", method: "PUT", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			server.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.checkResponse {
				var response HealthResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, "healthy", response.Status)
				assert.Equal(t, "pdfcodes", response.Service)
				assert.Equal(t, "2024-05-01T12:00:00Z", response.Time)
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServer_CodesEnvelopes(t *testing.T) {
	server, _ := newTestServer(t, &fakeExtractor{res: sampleResult()})
	file := testutil.FormFile{Field: "file", Filename: "doc.pdf", Content: []byte("%PDF")}

	t.Run("barcodes", func(t *testing.T) {
		w := serve(server, uploadRequest(t, "/codes/barcodes", file))
		require.Equal(t, http.StatusOK, w.Code)
		var resp BarcodesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 1, resp.Count)
		require.Len(t, resp.Barcodes, 1)
		assert.Equal(t, "B1", resp.Barcodes[0].Data)
		assert.Equal(t, "2024-05-01T12:00:00Z", resp.Timestamp)
	})

	t.Run("qr", func(t *testing.T) {
		w := serve(server, uploadRequest(t, "/codes/qr", file))
		require.Equal(t, http.StatusOK, w.Code)
		m := decodeMap(t, w.Body)
		assert.EqualValues(t, 1, m["count"])
		qrs := m["qrCodes"].([]any)
		require.Len(t, qrs, 1)
		hit := qrs[0].(map[string]any)
		assert.Equal(t, "qr", hit["type"])
		assert.Equal(t, "QR_CODE", hit["format"])
		assert.EqualValues(t, 2, hit["page"])
		assert.NotContains(t, hit, "bounds")
	})

	t.Run("all", func(t *testing.T) {
		w := serve(server, uploadRequest(t, "/codes/all", file))
		require.Equal(t, http.StatusOK, w.Code)
		var resp AllCodesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.TotalCount)
		assert.Len(t, resp.Codes, 2)
		assert.Equal(t, len(resp.Barcodes)+len(resp.QRCodes), resp.TotalCount)
		assert.Equal(t, "barcode", string(resp.Codes[0].Type))
		require.NotNil(t, resp.Codes[0].Bounds)
		assert.Equal(t, pipeline.BoundingBox{X: 1, Y: 2, Width: 3, Height: 1}, *resp.Codes[0].Bounds)
	})

	t.Run("legacy paths", func(t *testing.T) {
		for _, path := range []string{"/api/pdf/read-barcodes", "/api/pdf/read-qr-codes", "/api/pdf/read-all-codes"} {
			w := serve(server, uploadRequest(t, path, file))
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})
}

func TestServer_EmptyResultUsesEmptyArrays(t *testing.T) {
	server, _ := newTestServer(t, &fakeExtractor{res: pipeline.Aggregate(nil, false, fixedNow)})

	w := serve(server, uploadRequest(t, "/codes/all",
		testutil.FormFile{Field: "file", Filename: "blank.png", Content: []byte("x")}))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"codes":[]`)
	assert.Contains(t, body, `"barcodes":[]`)
	assert.Contains(t, body, `"qrCodes":[]`)
	assert.Contains(t, body, `"totalCount":0`)
}

func TestServer_CodesValidation(t *testing.T) {
	ex := &fakeExtractor{res: sampleResult()}
	server, _ := newTestServer(t, ex)

	tests := []struct {
		name  string
		files []testutil.FormFile
	}{
		{"no file field", []testutil.FormFile{{Field: "other", Filename: "a.pdf", Content: []byte("x")}}},
		{"unsupported extension", []testutil.FormFile{{Field: "file", Filename: "notes.txt", Content: []byte("x")}}},
		{"no extension", []testutil.FormFile{{Field: "file", Filename: "README", Content: []byte("x")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, uploadRequest(t, "/codes/all", tt.files...))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			m := decodeMap(t, w.Body)
			assert.NotEmpty(t, m["message"])
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/codes/qr", strings.NewReader("plain"))
		w := serve(server, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := serve(server, httptest.NewRequest(http.MethodGet, "/codes/barcodes", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestServer_UploadTooLarge(t *testing.T) {
	server, _ := newTestServer(t, &fakeExtractor{res: sampleResult()})

	big := bytes.Repeat([]byte("a"), 3*1024*1024)
	w := serve(server, uploadRequest(t, "/codes/all", testutil.FormFile{Field: "file", Filename: "big.png", Content: big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, decodeMap(t, w.Body)["message"], "too large")
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", &pipeline.ValidationError{Message: "No file uploaded"}, http.StatusBadRequest, "No file uploaded"},
		{"too large", &http.MaxBytesError{Limit: 2 << 20}, http.StatusRequestEntityTooLarge, "File too large (limit 2 MB)"},
		{"open", &pdf.OpenError{Path: "x.pdf", Reason: "malformed", Err: errors.New("eof")}, http.StatusInternalServerError, "Failed to read document"},
		{"detection", fmt.Errorf("page 1: %w", &barcode.DetectionError{Detector: "qr", Err: errors.New("bad")}), http.StatusInternalServerError, "Code detection failed"},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusForError(tt.err))
			assert.Contains(t, messageForError(tt.err), tt.msg)
		})
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	server, _ := newTestServer(t, &fakeExtractor{})

	w := serve(server, httptest.NewRequest(http.MethodOptions, "/codes/all", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestServer_TimeoutMiddlewareSetsDeadline(t *testing.T) {
	ex := &fakeExtractor{res: sampleResult()}
	server, _ := newTestServer(t, ex)

	w := serve(server, uploadRequest(t, "/codes/qr", testutil.FormFile{Field: "file", Filename: "a.pdf", Content: []byte("%PDF")}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ex.hadDeadline)
	assert.Equal(t, []byte("%PDF"), ex.body)
}

// The tests below run the real extraction pipeline.

func TestServer_Code128JPEG(t *testing.T) {
	server, dir := newTestServer(t, nil)
	page := testutil.Page(700, 300, testutil.Placement{Image: testutil.MustCode128(t, "123456789"), At: image.Pt(60, 60)})

	w := serve(server, uploadRequest(t, "/codes/barcodes",
		testutil.FormFile{Field: "file", Filename: "label.jpg", Content: testutil.MustEncode(t, "label.jpg", page)}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BarcodesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.GreaterOrEqual(t, resp.Count, 1)
	var found bool
	for _, h := range resp.Barcodes {
		if h.Data == "123456789" {
			found = true
			assert.Equal(t, "CODE128", h.Format)
			assert.Nil(t, h.Page)
			assert.NotNil(t, h.Bounds)
		}
	}
	assert.True(t, found, "payload missing from %s", w.Body.String())
	assertNoLeaks(t, dir)
}

func TestServer_SingleQRImage(t *testing.T) {
	server, dir := newTestServer(t, nil)
	page := testutil.Page(400, 400, testutil.Placement{Image: testutil.MustQR(t, "https://example.com/x"), At: image.Pt(60, 60)})

	w := serve(server, uploadRequest(t, "/codes/qr",
		testutil.FormFile{Field: "file", Filename: "qr.png", Content: testutil.MustEncode(t, "qr.png", page)}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	m := decodeMap(t, w.Body)
	qrs := m["qrCodes"].([]any)
	require.Len(t, qrs, 1)
	hit := qrs[0].(map[string]any)
	assert.Equal(t, "https://example.com/x", hit["data"])
	assert.NotContains(t, hit, "bounds")
	assert.NotContains(t, hit, "page")
	assertNoLeaks(t, dir)
}

func TestServer_BarcodeOnSecondPage(t *testing.T) {
	server, dir := newTestServer(t, nil)
	blank := testutil.Page(600, 400)
	symbol := testutil.MustCode128(t, "PAGE-TWO")
	at := image.Pt(40, 100)
	second := testutil.Page(600, 400, testutil.Placement{Image: symbol, At: at})
	doc := testutil.MustPDF(t, blank, second)

	w := serve(server, uploadRequest(t, "/codes/barcodes",
		testutil.FormFile{Field: "file", Filename: "two.pdf", Content: doc}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BarcodesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var hit *pipeline.Hit
	for i := range resp.Barcodes {
		if resp.Barcodes[i].Data == "PAGE-TWO" {
			hit = &resp.Barcodes[i]
		}
	}
	require.NotNil(t, hit, "payload missing from %s", w.Body.String())
	require.NotNil(t, hit.Page)
	assert.Equal(t, 2, *hit.Page)
	require.NotNil(t, hit.Bounds)
	box := image.Rect(hit.Bounds.X, hit.Bounds.Y, hit.Bounds.X+hit.Bounds.Width, hit.Bounds.Y+hit.Bounds.Height)
	placed := symbol.Bounds().Add(at)
	assert.True(t, box.In(placed), "bounds %v outside the symbol at %v", box, placed)
	assert.Greater(t, hit.Bounds.Width, placed.Dx()/2)
	assert.GreaterOrEqual(t, hit.Bounds.Height, 60, "bounds should cover the bars, not one scan row")
	assertNoLeaks(t, dir)
}

func TestServer_TruncatedPDF(t *testing.T) {
	server, dir := newTestServer(t, nil)

	w := serve(server, uploadRequest(t, "/codes/all",
		testutil.FormFile{Field: "file", Filename: "broken.pdf", Content: testutil.TruncatedPDF()}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeMap(t, w.Body)["message"], "Failed to read document")
	assertNoLeaks(t, dir)
}

func TestServer_EmptyUpload(t *testing.T) {
	server, dir := newTestServer(t, nil)

	w := serve(server, uploadRequest(t, "/codes/all", testutil.FormFile{Field: "file", Filename: "empty.pdf"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assertNoLeaks(t, dir)
}

func TestServer_AllCodesIdempotent(t *testing.T) {
	server, _ := newTestServer(t, nil)
	page := testutil.Page(700, 500,
		testutil.Placement{Image: testutil.MustCode128(t, "REPEAT-1"), At: image.Pt(40, 20)},
		testutil.Placement{Image: testutil.MustQR(t, "repeat"), At: image.Pt(420, 200)})
	content := testutil.MustEncode(t, "both.png", page)

	first := serve(server, uploadRequest(t, "/codes/all", testutil.FormFile{Field: "file", Filename: "both.png", Content: content}))
	second := serve(server, uploadRequest(t, "/codes/all", testutil.FormFile{Field: "file", Filename: "both.png", Content: content}))
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	a, b := decodeMap(t, first.Body), decodeMap(t, second.Body)
	delete(a, "timestamp")
	delete(b, "timestamp")
	assert.Equal(t, a, b)
}
