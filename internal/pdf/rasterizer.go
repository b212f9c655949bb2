package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/MeKo-Tech/pdfcodes/internal/raster"
	fitz "github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	// NativeDPI renders one pixel per PDF point.
	NativeDPI = 72.0

	// DefaultMaxPages is the number of leading pages scanned for codes.
	DefaultMaxPages = 3
)

// RasterConfig controls page rendering.
type RasterConfig struct {
	MaxPages int
	DPI      float64
}

// DefaultRasterConfig returns the native-density, three page configuration.
func DefaultRasterConfig() RasterConfig {
	return RasterConfig{MaxPages: DefaultMaxPages, DPI: NativeDPI}
}

// Rasterizer renders the leading pages of a PDF file.
type Rasterizer struct {
	cfg RasterConfig
}

// NewRasterizer creates a rasterizer. Non-positive values fall back to the
// defaults.
func NewRasterizer(cfg RasterConfig) *Rasterizer {
	def := DefaultRasterConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	return &Rasterizer{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Rasterizer) Config() RasterConfig { return r.cfg }

// PageCount returns the number of pages after a structural check of the file.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, &OpenError{Path: path, Reason: openReason(err), Err: err}
	}
	if n <= 0 {
		return 0, &OpenError{Path: path, Reason: "document has no pages"}
	}
	return n, nil
}

// Rasterize renders up to MaxPages leading pages in document order. Each
// page is RGBA at the configured density.
func (r *Rasterizer) Rasterize(ctx context.Context, path string) ([]*raster.Page, error) {
	total, err := PageCount(path)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, &OpenError{Path: path, Reason: "malformed", Err: err}
	}
	defer func() { _ = doc.Close() }()

	n := min(doc.NumPage(), r.cfg.MaxPages)
	pages := make([]*raster.Page, 0, n)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, r.cfg.DPI)
		if err != nil {
			return nil, &OpenError{Path: path, Reason: fmt.Sprintf("render page %d", i+1), Err: err}
		}
		pages = append(pages, raster.FromImage(img, i))
	}

	slog.Debug("Rasterized PDF",
		"file", filepath.Base(path),
		"total_pages", total,
		"rendered", len(pages),
		"dpi", r.cfg.DPI)
	return pages, nil
}
