package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/pdfcodes/internal/testutil"
)

// fixture describes one generated file and the codes a scan should report.
type fixture struct {
	Name     string         `json:"name"`
	File     string         `json:"file"`
	Expected []expectedCode `json:"expected"`
}

type expectedCode struct {
	Type   string `json:"type"`
	Format string `json:"format"`
	Data   string `json:"data"`
	Page   int    `json:"page,omitempty"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "testdata/codes", "output directory, relative to the project root")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate sample images and PDFs with embedded barcodes and QR codes.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                      # Write to testdata/codes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -out /tmp/samples    # Write elsewhere\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	dir := *outDir
	if !filepath.IsAbs(dir) {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, dir)
	}

	slog.Info("Starting test data generation", "dir", dir)

	fixtures, err := generate(dir)
	if err != nil {
		slog.Error("Failed to generate test data", "error", err)
		os.Exit(1)
	}

	if *verbose {
		for _, f := range fixtures {
			slog.Info("Generated fixture", "name", f.Name, "file", f.File, "codes", len(f.Expected))
		}
	}

	slog.Info("Test data generation completed", "fixtures", len(fixtures))
}

// generate writes every sample and a manifest.json describing them.
func generate(dir string) ([]fixture, error) {
	if err := testutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	code128, err := testutil.Code128("PDFCODES-0001", 3, 120)
	if err != nil {
		return nil, err
	}
	ean13, err := testutil.EAN13("400638133393", 3, 120)
	if err != nil {
		return nil, err
	}
	qrImg, err := testutil.QR("https://example.com/pdfcodes", 240)
	if err != nil {
		return nil, err
	}
	qrLate, err := testutil.QR("page-four", 240)
	if err != nil {
		return nil, err
	}

	labelled := func(text string, placements ...testutil.Placement) *image.NRGBA {
		page := testutil.Page(800, 500, placements...)
		testutil.Label(page, text, image.Pt(40, 30))
		return page
	}

	var fixtures []fixture

	writeImage := func(name string, img image.Image, expected ...expectedCode) error {
		if err := testutil.WriteImage(filepath.Join(dir, name), img); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		fixtures = append(fixtures, fixture{Name: trimExt(name), File: name, Expected: expected})
		return nil
	}
	writePDF := func(name string, pages []image.Image, expected ...expectedCode) error {
		if err := testutil.WritePDF(filepath.Join(dir, name), pages...); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		fixtures = append(fixtures, fixture{Name: trimExt(name), File: name, Expected: expected})
		return nil
	}

	blank := labelled("no codes on this page")
	steps := []func() error{
		func() error {
			return writeImage("code128.png", labelled("CODE128", testutil.Placement{Image: code128, At: image.Pt(60, 80)}),
				expectedCode{Type: "barcode", Format: "CODE128", Data: "PDFCODES-0001"})
		},
		func() error {
			return writeImage("ean13.jpg", labelled("EAN-13", testutil.Placement{Image: ean13, At: image.Pt(60, 80)}),
				expectedCode{Type: "barcode", Format: "EAN13", Data: "4006381333931"})
		},
		func() error {
			return writeImage("qr.png", labelled("QR", testutil.Placement{Image: qrImg, At: image.Pt(60, 80)}),
				expectedCode{Type: "qr", Format: "QR_CODE", Data: "https://example.com/pdfcodes"})
		},
		func() error {
			return writeImage("blank.png", blank)
		},
		func() error {
			mixed := labelled("CODE128 and QR",
				testutil.Placement{Image: code128, At: image.Pt(40, 80)},
				testutil.Placement{Image: qrImg, At: image.Pt(500, 200)})
			return writePDF("multi_page.pdf", []image.Image{blank, mixed},
				expectedCode{Type: "barcode", Format: "CODE128", Data: "PDFCODES-0001", Page: 2},
				expectedCode{Type: "qr", Format: "QR_CODE", Data: "https://example.com/pdfcodes", Page: 2})
		},
		func() error {
			// Only the first three pages are scanned.
			late := labelled("QR on page four", testutil.Placement{Image: qrLate, At: image.Pt(60, 80)})
			return writePDF("qr_page_four.pdf", []image.Image{blank, blank, blank, late})
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	manifest, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), manifest, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return fixtures, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
