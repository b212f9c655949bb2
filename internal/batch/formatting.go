package batch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
)

type fileView struct {
	File       string    `json:"file" yaml:"file"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	TotalCount int       `json:"totalCount" yaml:"totalCount"`
	Codes      []hitView `json:"codes" yaml:"codes"`
}

type hitView struct {
	Type       string   `json:"type" yaml:"type"`
	Data       string   `json:"data" yaml:"data"`
	Format     string   `json:"format" yaml:"format"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Page       *int     `json:"page,omitempty" yaml:"page,omitempty"`
	Bounds     *boxView `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

type boxView struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

type batchView struct {
	Files      []fileView `json:"files" yaml:"files"`
	TotalCount int        `json:"totalCount" yaml:"totalCount"`
	Failed     int        `json:"failed" yaml:"failed"`
	Timestamp  string     `json:"timestamp" yaml:"timestamp"`
}

// FormatResults renders the batch as json, yaml or text.
func (r *Result) FormatResults(format string) (string, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	switch f {
	case FormatYAML:
		return formatYAML(r)
	case FormatText:
		return formatText(r), nil
	default:
		return formatJSON(r)
	}
}

func toView(r *Result) batchView {
	s := r.Stats()
	v := batchView{
		Files:      make([]fileView, 0, len(r.Files)),
		TotalCount: s.Codes,
		Failed:     s.Failed,
	}
	var latest time.Time
	for _, f := range r.Files {
		fv := fileView{File: f.File, Error: f.Error, Codes: []hitView{}}
		if f.Result != nil {
			fv.TotalCount = f.Result.TotalCount()
			for _, h := range f.Result.Codes {
				fv.Codes = append(fv.Codes, toHitView(h))
			}
			if f.Result.GeneratedAt.After(latest) {
				latest = f.Result.GeneratedAt
			}
		}
		v.Files = append(v.Files, fv)
	}
	if !latest.IsZero() {
		v.Timestamp = latest.Format(time.RFC3339Nano)
	}
	return v
}

func toHitView(h pipeline.Hit) hitView {
	hv := hitView{
		Type:       string(h.Type),
		Data:       h.Data,
		Format:     h.Format,
		Confidence: h.Confidence,
		Page:       h.Page,
	}
	if h.Bounds != nil {
		hv.Bounds = &boxView{X: h.Bounds.X, Y: h.Bounds.Y, Width: h.Bounds.Width, Height: h.Bounds.Height}
	}
	return hv
}

func formatJSON(r *Result) (string, error) {
	bts, err := json.MarshalIndent(toView(r), "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatYAML(r *Result) (string, error) {
	bts, err := yaml.Marshal(toView(r))
	if err != nil {
		return "", err
	}
	return string(bts), nil
}

// formatText prints one "# file" block per input with a line per code.
func formatText(r *Result) string {
	var out strings.Builder
	for i, f := range r.Files {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "# %s\n", f.File)
		switch {
		case f.Result == nil:
			fmt.Fprintf(&out, "error: %s\n", f.Error)
		case f.Result.TotalCount() == 0:
			out.WriteString("no codes found\n")
		default:
			for _, h := range f.Result.Codes {
				out.WriteString(textLine(h))
			}
		}
	}
	return out.String()
}

func textLine(h pipeline.Hit) string {
	var b strings.Builder
	if h.Page != nil {
		fmt.Fprintf(&b, "page %d ", *h.Page)
	}
	fmt.Fprintf(&b, "%s %s: %s", h.Type, h.Format, h.Data)
	if h.Bounds != nil {
		fmt.Fprintf(&b, " @ %d,%d %dx%d", h.Bounds.X, h.Bounds.Y, h.Bounds.Width, h.Bounds.Height)
	}
	b.WriteString("\n")
	return b.String()
}
