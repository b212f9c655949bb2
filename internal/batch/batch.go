// Package batch scans local files and directories for codes.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/MeKo-Tech/pdfcodes/internal/common"
)

// ErrNoFiles is returned when discovery finds nothing to scan.
var ErrNoFiles = errors.New("no PDF or image files found")

// ProcessBatch discovers the files named by paths and scans each of them.
func ProcessBatch(ctx context.Context, ex FileExtractor, paths []string, config *Config) (*Result, error) {
	files, err := discoverFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	memBefore := common.GetMemoryStats()
	timer := common.NewNamedTimer("scan")
	results, err := processFiles(ctx, ex, files, config.Mode, workers)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}
	duration := timer.Stop()
	memAfter := common.GetMemoryStats()

	return &Result{
		Files:       results,
		Duration:    duration,
		WorkerCount: workers,
		Memory:      memAfter,
		Allocated:   memAfter.AllocatedSince(memBefore),
	}, nil
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err := io.WriteString(w, output)
		return err
	}

	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Stats()
	_, _ = fmt.Fprintf(w, "\nScan Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", s.Files)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", s.Processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Codes: %d\n", s.Codes)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Allocated: %d KB (%s)\n", r.Allocated/1024, r.Memory)
}
