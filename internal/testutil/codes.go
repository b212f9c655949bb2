package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/qr"
	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// quietModules is the white margin, in modules, around generated symbols.
const quietModules = 10

// Placement positions a symbol on a page.
type Placement struct {
	Image image.Image
	At    image.Point
}

// Code128 renders payload as a CODE128 symbol with a quiet zone.
func Code128(payload string, module, height int) (image.Image, error) {
	bc, err := code128.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode code128: %w", err)
	}
	return linear(bc, module, height)
}

// EAN13 renders a 12 or 13 digit payload as an EAN-13 symbol.
func EAN13(payload string, module, height int) (image.Image, error) {
	bc, err := ean.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode ean13: %w", err)
	}
	return linear(bc, module, height)
}

func linear(bc barcode.Barcode, module, height int) (image.Image, error) {
	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*module, height)
	if err != nil {
		return nil, fmt.Errorf("scale barcode: %w", err)
	}
	pad := quietModules * module
	return withMargin(scaled, pad, pad), nil
}

// QR renders payload as a QR code of roughly size pixels per side.
func QR(payload string, size int) (image.Image, error) {
	bc, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	scaled, err := barcode.Scale(bc, size, size)
	if err != nil {
		return nil, fmt.Errorf("scale qr: %w", err)
	}
	pad := size / 8
	return withMargin(scaled, pad, pad), nil
}

func withMargin(img image.Image, padX, padY int) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx()+2*padX, b.Dy()+2*padY, color.White)
	return imaging.Paste(bg, img, image.Pt(padX, padY))
}

// Page composes symbols on a white page.
func Page(width, height int, placements ...Placement) *image.NRGBA {
	page := imaging.New(width, height, color.White)
	for _, p := range placements {
		page = imaging.Paste(page, p.Image, p.At)
	}
	return page
}

// Label draws text in black at the given baseline origin.
func Label(img *image.NRGBA, text string, at image.Point) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(text)
}

// WriteImage saves img, choosing the encoder from the file extension.
func WriteImage(path string, img image.Image) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return imaging.Save(img, path, imaging.JPEGQuality(95))
}

// EncodeImage encodes img the way WriteImage would for a file named name.
func EncodeImage(name string, img image.Image) ([]byte, error) {
	f, err := imaging.FormatFromFilename(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f, imaging.JPEGQuality(95)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePDF writes one page per image. Pages are sized in points to the image
// size so a 72 DPI rendering reproduces the image pixel for pixel.
func WritePDF(path string, pages ...image.Image) error {
	pdf, err := buildPDF(pages)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// PDFBytes is WritePDF into memory.
func PDFBytes(pages ...image.Image) ([]byte, error) {
	pdf, err := buildPDF(pages)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildPDF(pages []image.Image) (*gofpdf.Fpdf, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages")
	}
	first := pages[0].Bounds()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: float64(first.Dx()), Ht: float64(first.Dy())},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range pages {
		b := img.Bounds()
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		w, h := float64(b.Dx()), float64(b.Dy())
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("build pdf: %w", err)
	}
	return pdf, nil
}

// TextPDF writes one A4 page per line of Helvetica text.
func TextPDF(lines ...string) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for _, line := range lines {
		pdf.AddPage()
		pdf.Text(72, 100, line)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("build text pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// TruncatedPDF returns bytes that start like a PDF but have no body,
// cross-reference table or trailer.
func TruncatedPDF() []byte {
	return []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R")
}

// MustCode128 is Code128 for tests.
func MustCode128(t testing.TB, payload string) image.Image {
	t.Helper()
	img, err := Code128(payload, 3, 120)
	require.NoError(t, err)
	return img
}

// MustQR is QR for tests.
func MustQR(t testing.TB, payload string) image.Image {
	t.Helper()
	img, err := QR(payload, 240)
	require.NoError(t, err)
	return img
}

// MustPDF is PDFBytes for tests.
func MustPDF(t testing.TB, pages ...image.Image) []byte {
	t.Helper()
	data, err := PDFBytes(pages...)
	require.NoError(t, err)
	return data
}

// MustTextPDF is TextPDF for tests.
func MustTextPDF(t testing.TB, lines ...string) []byte {
	t.Helper()
	data, err := TextPDF(lines...)
	require.NoError(t, err)
	return data
}

// MustWriteFile writes data under dir and returns the path.
func MustWriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// MustEncode is EncodeImage for tests.
func MustEncode(t testing.TB, name string, img image.Image) []byte {
	t.Helper()
	data, err := EncodeImage(name, img)
	require.NoError(t, err)
	return data
}
