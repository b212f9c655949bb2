package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/pdfcodes/internal/common"
	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
)

// Output formats understood by FormatResults.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Config holds all configuration for a batch scan.
type Config struct {
	Mode    pipeline.Mode
	Workers int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string
	Quiet      bool
}

// ParseFormat normalizes an output format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatText, "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use json, yaml or text)", s)
	}
}

// FileResult is the outcome for one input file. Exactly one of Result and
// Error is set.
type FileResult struct {
	File   string
	Result *pipeline.Result
	Error  string
}

// Result holds the result of a batch scan, in discovery order.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
	Memory      common.MemoryStats
	Allocated   uint64
}

// Stats summarizes a batch.
type Stats struct {
	Files     int
	Processed int
	Failed    int
	Codes     int
}

// Stats counts processed and failed files and detected codes.
func (r *Result) Stats() Stats {
	s := Stats{Files: len(r.Files)}
	for _, f := range r.Files {
		if f.Result == nil {
			s.Failed++
			continue
		}
		s.Processed++
		s.Codes += f.Result.TotalCount()
	}
	return s
}
