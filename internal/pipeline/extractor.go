package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/pdfcodes/internal/barcode"
	"github.com/MeKo-Tech/pdfcodes/internal/common"
	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/raster"
	"github.com/MeKo-Tech/pdfcodes/internal/upload"
	"github.com/MeKo-Tech/pdfcodes/internal/utils"
)

// PageRenderer renders the leading pages of a PDF file.
type PageRenderer interface {
	Rasterize(ctx context.Context, path string) ([]*raster.Page, error)
}

// Config holds extractor settings. Zero values select defaults.
type Config struct {
	// TempDir receives persisted uploads; os.TempDir when empty.
	TempDir string
	// Workers bounds concurrent page detection; GOMAXPROCS when <= 0.
	Workers int
	Raster  pdf.RasterConfig

	Detectors *barcode.Detectors
	Renderer  PageRenderer
	Clock     func() time.Time
}

// Extractor runs uploads through persistence, rendering and detection.
type Extractor struct {
	tempDir   string
	workers   int
	detectors *barcode.Detectors
	renderer  PageRenderer
	clock     func() time.Time
}

// NewExtractor builds an Extractor, filling unset fields with defaults.
func NewExtractor(cfg Config) *Extractor {
	e := &Extractor{
		tempDir:   cfg.TempDir,
		workers:   cfg.Workers,
		detectors: cfg.Detectors,
		renderer:  cfg.Renderer,
		clock:     cfg.Clock,
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.detectors == nil {
		e.detectors = barcode.Default()
	}
	if e.renderer == nil {
		e.renderer = pdf.NewRasterizer(cfg.Raster)
	}
	if e.clock == nil {
		e.clock = func() time.Time { return time.Now().UTC() }
	}
	return e
}

// SupportedExtension reports whether the file name is a PDF or a supported image.
func SupportedExtension(filename string) bool {
	return utils.IsPDF(filename) || utils.IsSupportedImage(filename)
}

// Validate checks an upload before anything touches the filesystem.
func Validate(u Upload) error {
	if u.Body == nil {
		return &ValidationError{Message: "No file uploaded"}
	}
	if strings.TrimSpace(u.Filename) == "" {
		return &ValidationError{Message: "No file selected"}
	}
	if !SupportedExtension(u.Filename) {
		return &ValidationError{Message: fmt.Sprintf("Unsupported file type: %q", filepath.Ext(u.Filename))}
	}
	return nil
}

// Extract persists the upload to a private temp file, extracts codes from it
// and removes the file again on every path out.
func (e *Extractor) Extract(ctx context.Context, u Upload, mode Mode) (*Result, error) {
	if err := Validate(u); err != nil {
		return nil, err
	}

	file, err := upload.Persist(e.tempDir, u.Filename, u.Body)
	if err != nil {
		return nil, fmt.Errorf("persist upload: %w", err)
	}
	defer file.ReleaseQuietly()

	if file.Size == 0 {
		return nil, &ValidationError{Message: "Uploaded file is empty"}
	}

	slog.Debug("Upload persisted", "filename", u.Filename, "bytes", file.Size, "mode", mode.String())
	return e.ExtractFile(ctx, file.Path, mode)
}

// ExtractFile extracts codes from a file already on disk. The file is not
// removed.
func (e *Extractor) ExtractFile(ctx context.Context, path string, mode Mode) (*Result, error) {
	timer := common.NewNamedTimer("extract")

	pages, source, err := e.load(ctx, path)
	if err != nil {
		return nil, err
	}
	timer.Lap("render")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detections, err := e.detectPages(ctx, pages, mode)
	if err != nil {
		return nil, err
	}
	timer.Lap("detect")
	timer.Stop()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := Aggregate(detections, source == "pdf", e.clock())
	res.Stats = Stats{
		Source:    source,
		Pages:     len(pages),
		Rasterize: timer.LapDuration("render"),
		Detect:    timer.LapDuration("detect"),
	}

	slog.Debug("Extraction complete",
		"file", filepath.Base(path),
		"source", source,
		"pages", len(pages),
		"codes", res.TotalCount(),
		"timing", timer)
	return res, nil
}

func (e *Extractor) load(ctx context.Context, path string) ([]*raster.Page, string, error) {
	if utils.IsPDF(path) {
		pages, err := e.renderer.Rasterize(ctx, path)
		if err != nil {
			return nil, "", err
		}
		return pages, "pdf", nil
	}

	img, _, err := utils.LoadImage(path)
	if err != nil {
		var ipe *utils.ImageProcessingError
		if errors.As(err, &ipe) && ipe.Operation == "decode" {
			return nil, "", &ValidationError{Message: "Uploaded file is not a readable image"}
		}
		return nil, "", err
	}
	return []*raster.Page{raster.FromImage(img, 0)}, "image", nil
}

// detectPages runs the selected detectors over every page. Results land in
// the slot of their page, so the output order never depends on scheduling.
func (e *Extractor) detectPages(ctx context.Context, pages []*raster.Page, mode Mode) ([]PageDetections, error) {
	out := make([]PageDetections, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := page.Validate(); err != nil {
				return &barcode.DetectionError{Detector: "normalize", Err: err}
			}
			buf := raster.Normalize(page)

			det := PageDetections{PageIndex: page.Index}
			if mode.barcodes() {
				hits, err := e.detectors.Barcodes.Detect(gctx, buf)
				if err != nil {
					return err
				}
				det.Barcodes = hits
			}
			if mode.qr() {
				hits, err := e.detectors.QR.Detect(gctx, buf)
				if err != nil {
					return err
				}
				if len(hits) > 0 {
					det.QR = &hits[0]
				}
			}
			out[i] = det
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
