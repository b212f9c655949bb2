package barcode

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

// formatNames follows the zbar symbology names clients of the service
// already match on.
var formatNames = map[Format]string{
	FormatQR:         "QRCODE",
	FormatDataMatrix: "DATAMATRIX",
	FormatAztec:      "AZTEC",
	FormatCode128:    "CODE128",
	FormatCode39:     "CODE39",
	FormatEAN8:       "EAN8",
	FormatEAN13:      "EAN13",
	FormatUPCA:       "UPCA",
	FormatUPCE:       "UPCE",
	FormatITF:        "I25",
	FormatCodabar:    "CODABAR",
}

// String returns the symbology name reported in results.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

// AllFormats lists every symbology the linear detector searches by default.
func AllFormats() []Format {
	return []Format{
		FormatEAN13, FormatEAN8, FormatUPCE, FormatUPCA,
		FormatCode128, FormatCode39, FormatITF, FormatCodabar,
		FormatQR, FormatDataMatrix, FormatAztec,
	}
}

// Is1D reports whether f is a linear symbology.
func (f Format) Is1D() bool {
	switch f {
	case FormatCode128, FormatCode39, FormatEAN8, FormatEAN13,
		FormatUPCA, FormatUPCE, FormatITF, FormatCodabar:
		return true
	}
	return false
}

// ParseFormat accepts the reported names plus common spellings such as
// "qr_code", "code-128" or "itf".
func ParseFormat(s string) (Format, error) {
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToUpper(strings.TrimSpace(s)))
	switch key {
	case "QR", "QRCODE":
		return FormatQR, nil
	case "DATAMATRIX":
		return FormatDataMatrix, nil
	case "AZTEC":
		return FormatAztec, nil
	case "CODE128":
		return FormatCode128, nil
	case "CODE39":
		return FormatCode39, nil
	case "EAN8":
		return FormatEAN8, nil
	case "EAN13":
		return FormatEAN13, nil
	case "UPCA":
		return FormatUPCA, nil
	case "UPCE":
		return FormatUPCE, nil
	case "ITF", "I25", "INTERLEAVED2OF5":
		return FormatITF, nil
	case "CODABAR":
		return FormatCodabar, nil
	}
	return FormatUnknown, fmt.Errorf("unknown barcode format %q", s)
}

// ParseFormats parses a list of names. An empty list yields nil, meaning
// "all formats".
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// Multi enables multi-symbol detection in a single image.
	Multi bool
}

// Point is an integer point in image coordinates.
type Point struct {
	X int
	Y int
}

// Result represents a decoded symbol as reported by a Backend.
type Result struct {
	Type   Format
	Value  string
	Points []Point
	BBox   image.Rectangle // hull of Points
}

// Backend is a pluggable barcode decoder implementation. A symbol that is
// absent or fails to decode yields no Result rather than an error.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default gozxing-backed implementation.
func NewBackend() Backend { return &gozxingBackend{} }
