package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pdfcodes/internal/barcode"
	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/raster"
	"github.com/MeKo-Tech/pdfcodes/internal/testutil"
)

type stubDetector struct {
	hits  []barcode.Hit
	err   error
	calls atomic.Int32
}

func (s *stubDetector) Detect(ctx context.Context, buf *raster.Buffer) ([]barcode.Hit, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.hits, s.err
}

type stubRenderer struct {
	pages []*raster.Page
	err   error
}

func (s *stubRenderer) Rasterize(context.Context, string) ([]*raster.Page, error) {
	return s.pages, s.err
}

func blankPages(n int) []*raster.Page {
	pages := make([]*raster.Page, n)
	for i := range n {
		pages[i] = raster.FromImage(testutil.Page(32, 32), i)
	}
	return pages
}

func newTestExtractor(t *testing.T, dets *barcode.Detectors, r PageRenderer) (*Extractor, string) {
	t.Helper()
	dir := t.TempDir()
	return NewExtractor(Config{TempDir: dir, Detectors: dets, Renderer: r, Clock: func() time.Time { return fixedNow }}), dir
}

func assertNoLeaks(t *testing.T, dir string) {
	t.Helper()
	assert.Empty(t, testutil.TempFiles(t, dir, "pdfcodes-*"), "temp files leaked")
}

func TestExtract_Validation(t *testing.T) {
	ex, dir := newTestExtractor(t, &barcode.Detectors{Barcodes: &stubDetector{}, QR: &stubDetector{}}, &stubRenderer{})

	tests := []struct {
		name   string
		upload Upload
	}{
		{"no body", Upload{Filename: "a.pdf"}},
		{"empty filename", Upload{Filename: "  ", Body: strings.NewReader("x")}},
		{"unsupported extension", Upload{Filename: "notes.txt", Body: strings.NewReader("x")}},
		{"empty file", Upload{Filename: "a.pdf", Body: strings.NewReader("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ex.Extract(context.Background(), tt.upload, ModeAll)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assertNoLeaks(t, dir)
		})
	}
}

func TestExtract_PDFStampsPagesAndRespectsMode(t *testing.T) {
	bars := &stubDetector{hits: []barcode.Hit{{Payload: "B", Symbology: "CODE128", Box: image.Rect(1, 2, 30, 3), HasBox: true}}}
	qrs := &stubDetector{hits: []barcode.Hit{{Payload: "Q", Symbology: barcode.QRFormatName}}}
	ex, dir := newTestExtractor(t, &barcode.Detectors{Barcodes: bars, QR: qrs}, &stubRenderer{pages: blankPages(3)})

	res, err := ex.Extract(context.Background(), Upload{Filename: "Doc.PDF", Body: strings.NewReader("%PDF")}, ModeAll)
	require.NoError(t, err)
	require.Len(t, res.Codes, 6)
	for i, h := range res.Codes {
		require.NotNil(t, h.Page)
		assert.Equal(t, i/2+1, *h.Page)
	}
	assert.Equal(t, KindBarcode, res.Codes[0].Type)
	assert.Equal(t, KindQR, res.Codes[1].Type)
	assert.Equal(t, "pdf", res.Stats.Source)
	assert.Equal(t, 3, res.Stats.Pages)
	assertNoLeaks(t, dir)

	bars.calls.Store(0)
	qrs.calls.Store(0)
	res, err = ex.Extract(context.Background(), Upload{Filename: "doc.pdf", Body: strings.NewReader("%PDF")}, ModeQR)
	require.NoError(t, err)
	assert.Len(t, res.Barcodes(), 0)
	assert.Len(t, res.QRCodes(), 3)
	assert.Zero(t, bars.calls.Load())
	assert.EqualValues(t, 3, qrs.calls.Load())
}

func TestExtract_DetectorFailureAbortsAndCleansUp(t *testing.T) {
	boom := &barcode.DetectionError{Detector: "barcode", Err: errors.New("bad buffer")}
	ex, dir := newTestExtractor(t,
		&barcode.Detectors{Barcodes: &stubDetector{err: boom}, QR: &stubDetector{}},
		&stubRenderer{pages: blankPages(2)})

	res, err := ex.Extract(context.Background(), Upload{Filename: "a.pdf", Body: strings.NewReader("%PDF")}, ModeAll)
	assert.Nil(t, res)
	var de *barcode.DetectionError
	require.ErrorAs(t, err, &de)
	assertNoLeaks(t, dir)
}

func TestExtract_RendererFailureCleansUp(t *testing.T) {
	openErr := &pdf.OpenError{Path: "x", Reason: "malformed", Err: errors.New("eof")}
	ex, dir := newTestExtractor(t, &barcode.Detectors{Barcodes: &stubDetector{}, QR: &stubDetector{}}, &stubRenderer{err: openErr})

	_, err := ex.Extract(context.Background(), Upload{Filename: "a.pdf", Body: strings.NewReader("junk")}, ModeAll)
	var oe *pdf.OpenError
	require.ErrorAs(t, err, &oe)
	assertNoLeaks(t, dir)
}

func TestExtract_MalformedPageIsDetectionError(t *testing.T) {
	bad := &raster.Page{Index: 0, Width: 10, Height: 10, Channels: 3, Pix: make([]byte, 5)}
	ex, dir := newTestExtractor(t, &barcode.Detectors{Barcodes: &stubDetector{}, QR: &stubDetector{}}, &stubRenderer{pages: []*raster.Page{bad}})

	_, err := ex.Extract(context.Background(), Upload{Filename: "a.pdf", Body: strings.NewReader("%PDF")}, ModeAll)
	var de *barcode.DetectionError
	require.ErrorAs(t, err, &de)
	assertNoLeaks(t, dir)
}

func TestExtract_UndecodableImageIsValidationError(t *testing.T) {
	ex, dir := newTestExtractor(t, nil, nil)

	_, err := ex.Extract(context.Background(), Upload{Filename: "photo.png", Body: strings.NewReader("not a png")}, ModeAll)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assertNoLeaks(t, dir)
}

func TestExtract_Code128JPEG(t *testing.T) {
	page := testutil.Page(700, 300, testutil.Placement{Image: testutil.MustCode128(t, "123456789"), At: image.Pt(60, 60)})
	body := testutil.MustEncode(t, "scan.jpg", page)
	ex, dir := newTestExtractor(t, nil, nil)

	res, err := ex.Extract(context.Background(), Upload{Filename: "scan.jpg", Body: bytes.NewReader(body)}, ModeBarcodes)
	require.NoError(t, err)
	require.NotEmpty(t, res.Codes)

	var found *Hit
	for i := range res.Codes {
		if res.Codes[i].Data == "123456789" {
			found = &res.Codes[i]
		}
	}
	require.NotNil(t, found, "payload missing from %+v", res.Codes)
	assert.Equal(t, "CODE128", found.Format)
	assert.Nil(t, found.Page)
	require.NotNil(t, found.Bounds)
	assert.Greater(t, found.Bounds.Width, 0)
	assert.Equal(t, "image", res.Stats.Source)
	assertNoLeaks(t, dir)
}

func TestExtract_QROnlyBeyondPageCapIsIgnored(t *testing.T) {
	blank := testutil.Page(300, 300)
	withQR := testutil.Page(300, 300, testutil.Placement{Image: testutil.MustQR(t, "late"), At: image.Pt(30, 30)})
	doc := testutil.MustPDF(t, blank, blank, blank, withQR)
	ex, dir := newTestExtractor(t, nil, nil)

	res, err := ex.Extract(context.Background(), Upload{Filename: "four.pdf", Body: bytes.NewReader(doc)}, ModeQR)
	require.NoError(t, err)
	assert.Empty(t, res.Codes)
	assert.Equal(t, 3, res.Stats.Pages)
	assertNoLeaks(t, dir)
}

func TestExtract_QROnFirstPage(t *testing.T) {
	withQR := testutil.Page(300, 300, testutil.Placement{Image: testutil.MustQR(t, "first"), At: image.Pt(30, 30)})
	doc := testutil.MustPDF(t, withQR)
	ex, dir := newTestExtractor(t, nil, nil)

	res, err := ex.Extract(context.Background(), Upload{Filename: "one.pdf", Body: bytes.NewReader(doc)}, ModeQR)
	require.NoError(t, err)
	require.Len(t, res.QRCodes(), 1)
	q := res.QRCodes()[0]
	assert.Equal(t, "first", q.Data)
	assert.Equal(t, "QR_CODE", q.Format)
	require.NotNil(t, q.Page)
	assert.Equal(t, 1, *q.Page)
	assertNoLeaks(t, dir)
}

func TestExtract_TruncatedPDF(t *testing.T) {
	ex, dir := newTestExtractor(t, nil, nil)

	_, err := ex.Extract(context.Background(), Upload{Filename: "broken.pdf", Body: bytes.NewReader(testutil.TruncatedPDF())}, ModeAll)
	var oe *pdf.OpenError
	require.ErrorAs(t, err, &oe)
	assertNoLeaks(t, dir)
}

func TestExtract_Idempotent(t *testing.T) {
	page := testutil.Page(700, 300, testutil.Placement{Image: testutil.MustCode128(t, "ABC-123"), At: image.Pt(60, 60)})
	body := testutil.MustEncode(t, "scan.png", page)
	ex, _ := newTestExtractor(t, nil, nil)

	first, err := ex.Extract(context.Background(), Upload{Filename: "scan.png", Body: bytes.NewReader(body)}, ModeAll)
	require.NoError(t, err)
	second, err := ex.Extract(context.Background(), Upload{Filename: "scan.png", Body: bytes.NewReader(body)}, ModeAll)
	require.NoError(t, err)
	assert.Equal(t, first.Codes, second.Codes)
}

// cancellingRenderer renders pages and cancels the request while doing so.
type cancellingRenderer struct {
	cancel context.CancelFunc
}

func (c *cancellingRenderer) Rasterize(context.Context, string) ([]*raster.Page, error) {
	c.cancel()
	return blankPages(2), nil
}

func TestExtract_CancelledAfterRenderSkipsDetection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bars, qr := &stubDetector{}, &stubDetector{}
	ex, dir := newTestExtractor(t, &barcode.Detectors{Barcodes: bars, QR: qr}, &cancellingRenderer{cancel: cancel})

	_, err := ex.Extract(ctx, Upload{Filename: "doc.pdf", Body: strings.NewReader("%PDF-1.4")}, ModeAll)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, bars.calls.Load())
	assert.Zero(t, qr.calls.Load())
	assertNoLeaks(t, dir)
}
