package pdf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNoInputs is returned when a merge or conversion has nothing to work on.
var ErrNoInputs = errors.New("no input files")

// Merge concatenates the given PDFs, in order, into out.
func Merge(inputs []string, out string) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}
	for _, in := range inputs {
		if err := api.ValidateFile(in, nil); err != nil {
			return &OpenError{Path: in, Reason: openReason(err), Err: err}
		}
	}
	if len(inputs) == 1 {
		return copyFile(inputs[0], out)
	}
	if err := api.MergeCreateFile(inputs, out, false, nil); err != nil {
		return fmt.Errorf("merge %d files: %w", len(inputs), err)
	}
	return nil
}

// MergeAll appends one PDF built from images after the given PDFs. Either
// list may be empty, not both.
func MergeAll(pdfs, images []string, out string, format PageFormat) error {
	if len(pdfs) == 0 && len(images) == 0 {
		return ErrNoInputs
	}

	inputs := append([]string(nil), pdfs...)
	if len(images) > 0 {
		tmp, err := os.CreateTemp(filepath.Dir(out), "pdfcodes-images-*.pdf")
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		tmpPath := tmp.Name()
		_ = tmp.Close()
		defer func() { _ = os.Remove(tmpPath) }()

		if err := ImagesToPDF(images, tmpPath, format); err != nil {
			return err
		}
		inputs = append(inputs, tmpPath)
	}
	return Merge(inputs, out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: path comes from the caller's own temp files
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) //nolint:gosec // G304: destination chosen by the caller
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
