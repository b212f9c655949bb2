package batch

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
)

// FileExtractor extracts codes from a file already on disk.
type FileExtractor interface {
	ExtractFile(ctx context.Context, path string, mode pipeline.Mode) (*pipeline.Result, error)
}

// processFiles runs the extractor over files with at most workers in flight.
// A failing file is recorded and does not stop the others; only context
// cancellation aborts the batch.
func processFiles(ctx context.Context, ex FileExtractor, files []string, mode pipeline.Mode, workers int) ([]FileResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]FileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = processSingleFile(ctx, ex, path, mode)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func processSingleFile(ctx context.Context, ex FileExtractor, path string, mode pipeline.Mode) FileResult {
	if !pipeline.SupportedExtension(path) {
		return FileResult{File: path, Error: "unsupported file type"}
	}

	res, err := ex.ExtractFile(ctx, path, mode)
	if err != nil {
		slog.Warn("Scan failed", "file", path, "error", err)
		return FileResult{File: path, Error: err.Error()}
	}
	slog.Debug("Scanned file", "file", path, "codes", res.TotalCount())
	return FileResult{File: path, Result: res}
}
