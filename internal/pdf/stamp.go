package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Symbol is a code type that can be stamped onto a document.
type Symbol string

const (
	SymbolQR      Symbol = "qr"
	SymbolCode128 Symbol = "code128"
)

// Default payloads used when a stamp request carries no text.
const (
	DefaultQRText      = "https://example.com"
	DefaultBarcodeText = "123456789"
)

// stampDescription places the symbol bottom-right at a quarter of the page width.
const stampDescription = "pos:br, scale:0.25 abs, rot:0"

// ErrEmptyPayload is returned when there is nothing to encode.
var ErrEmptyPayload = errors.New("empty payload")

// RenderSymbol encodes text as a white-padded PNG-ready image.
func RenderSymbol(sym Symbol, text string) (image.Image, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPayload
	}

	var (
		bc  barcode.Barcode
		err error
		w   int
		h   int
	)
	switch sym {
	case SymbolQR:
		bc, err = qr.Encode(text, qr.M, qr.Auto)
		w, h = 400, 400
	case SymbolCode128:
		bc, err = code128.Encode(text)
		if err == nil {
			w, h = bc.Bounds().Dx()*4, 160
		}
	default:
		return nil, fmt.Errorf("unknown symbol %q", sym)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", sym, err)
	}

	scaled, err := barcode.Scale(bc, w, h)
	if err != nil {
		return nil, fmt.Errorf("scale %s: %w", sym, err)
	}
	return scaled, nil
}

// Stamp draws the symbol for text onto the first page of in and writes the
// result to out.
func Stamp(in, out string, sym Symbol, text string) error {
	if err := api.ValidateFile(in, nil); err != nil {
		return &OpenError{Path: in, Reason: openReason(err), Err: err}
	}

	img, err := RenderSymbol(sym, text)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(out), "pdfcodes-stamp-*.png")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	buf, err := encodePNG8(img)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write symbol: %w", err)
	}
	if _, err := buf.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write symbol: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write symbol: %w", err)
	}

	if err := api.AddImageWatermarksFile(in, out, []string{"1"}, true, tmpPath, stampDescription, nil); err != nil {
		return fmt.Errorf("stamp %s: %w", sym, err)
	}
	return nil
}
