package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Mode selects which detectors run.
type Mode int

const (
	ModeAll Mode = iota
	ModeBarcodes
	ModeQR
)

func (m Mode) String() string {
	switch m {
	case ModeBarcodes:
		return "barcodes"
	case ModeQR:
		return "qr"
	default:
		return "all"
	}
}

// ParseMode accepts "all", "barcodes" (or "barcode") and "qr".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ModeAll, nil
	case "barcodes", "barcode":
		return ModeBarcodes, nil
	case "qr", "qrcodes", "qr-codes":
		return ModeQR, nil
	}
	return ModeAll, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) barcodes() bool { return m == ModeAll || m == ModeBarcodes }
func (m Mode) qr() bool       { return m == ModeAll || m == ModeQR }

// Kind tells which detector produced a hit.
type Kind string

const (
	KindBarcode Kind = "barcode"
	KindQR      Kind = "qr"
)

// BoundingBox is an axis-aligned box in page pixels, top-left origin.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Hit is one decoded code. QR hits never carry Bounds; barcode hits always do.
type Hit struct {
	Type       Kind         `json:"type"`
	Data       string       `json:"data"`
	Format     string       `json:"format"`
	Confidence float64      `json:"confidence"`
	Page       *int         `json:"page,omitempty"`
	Bounds     *BoundingBox `json:"bounds,omitempty"`
}

// Stats describes how a result was produced.
type Stats struct {
	Source    string // "pdf" or "image"
	Pages     int
	Rasterize time.Duration
	Detect    time.Duration
}

// Result is the ordered outcome of one extraction.
type Result struct {
	Codes       []Hit
	GeneratedAt time.Time
	Stats       Stats
}

// Barcodes returns the barcode hits in result order.
func (r *Result) Barcodes() []Hit { return r.filter(KindBarcode) }

// QRCodes returns the QR hits in result order.
func (r *Result) QRCodes() []Hit { return r.filter(KindQR) }

// TotalCount is the number of hits of either kind.
func (r *Result) TotalCount() int { return len(r.Codes) }

func (r *Result) filter(k Kind) []Hit {
	out := make([]Hit, 0, len(r.Codes))
	for _, h := range r.Codes {
		if h.Type == k {
			out = append(out, h)
		}
	}
	return out
}

// Upload is a document received from a client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// ValidationError reports an upload the pipeline refuses to process.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
