package barcode

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"unicode/utf8"

	"github.com/MeKo-Tech/pdfcodes/internal/raster"
)

// QRFormatName is the symbology name attached to QRDetector hits.
const QRFormatName = "QR_CODE"

// Hit is one decoded symbol on a buffer.
type Hit struct {
	Payload   string
	Symbology string
	// Box is in buffer pixels, top-left origin. Only meaningful when HasBox.
	Box    image.Rectangle
	HasBox bool
}

// Detector decodes symbols from a normalized buffer.
type Detector interface {
	Detect(ctx context.Context, buf *raster.Buffer) ([]Hit, error)
}

// DetectionError reports a detector that could not run on its input.
type DetectionError struct {
	Detector string
	Err      error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("%s detection failed: %v", e.Detector, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// LinearDetector returns every symbol found on a buffer with its bounding box.
type LinearDetector struct {
	backend Backend
	opts    Options
}

// NewLinearDetector builds a multi-symbol detector. A nil backend selects
// the default one.
func NewLinearDetector(backend Backend, formats []Format, tryHarder bool) *LinearDetector {
	if backend == nil {
		backend = NewBackend()
	}
	return &LinearDetector{
		backend: backend,
		opts:    Options{Formats: append([]Format(nil), formats...), TryHarder: tryHarder, Multi: true},
	}
}

// Detect implements Detector.
func (d *LinearDetector) Detect(ctx context.Context, buf *raster.Buffer) (hits []Hit, err error) {
	results, err := decode(ctx, "barcode", d.backend, buf, d.opts)
	if err != nil {
		return nil, err
	}

	hits = make([]Hit, 0, len(results))
	for _, r := range results {
		if !utf8.ValidString(r.Value) {
			slog.Debug("Dropping barcode with non UTF-8 payload", "format", r.Type.String())
			continue
		}
		box := r.BBox.Intersect(image.Rect(0, 0, buf.Width, buf.Height))
		hits = append(hits, Hit{
			Payload:   r.Value,
			Symbology: r.Type.String(),
			Box:       box,
			HasBox:    true,
		})
	}
	return hits, nil
}

// QRDetector decodes a single QR code per buffer and reports no geometry.
type QRDetector struct {
	backend Backend
	opts    Options
}

// NewQRDetector builds a single-result QR detector. A nil backend selects
// the default one.
func NewQRDetector(backend Backend, tryHarder bool) *QRDetector {
	if backend == nil {
		backend = NewBackend()
	}
	return &QRDetector{
		backend: backend,
		opts:    Options{Formats: []Format{FormatQR}, TryHarder: tryHarder},
	}
}

// Detect implements Detector.
func (d *QRDetector) Detect(ctx context.Context, buf *raster.Buffer) ([]Hit, error) {
	results, err := decode(ctx, "qr", d.backend, buf, d.opts)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Value == "" || !utf8.ValidString(r.Value) {
			continue
		}
		return []Hit{{Payload: r.Value, Symbology: QRFormatName}}, nil
	}
	return nil, nil
}

func decode(ctx context.Context, name string, backend Backend, buf *raster.Buffer, opts Options) (results []Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := buf.Validate(); err != nil {
		return nil, &DetectionError{Detector: name, Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = &DetectionError{Detector: name, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	results, err = backend.Decode(ctx, buf.Image(), opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DetectionError{Detector: name, Err: err}
	}
	return results, nil
}
