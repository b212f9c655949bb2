package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/MeKo-Tech/pdfcodes/internal/utils"
	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// PageFormat is an output page size for image conversion.
type PageFormat string

const (
	PageA4     PageFormat = "A4"
	PageA3     PageFormat = "A3"
	PageA5     PageFormat = "A5"
	PageLetter PageFormat = "LETTER"
)

// pageMargin is the blank border, in points, around converted images.
const pageMargin = 20.0

var pageSizes = map[PageFormat]gofpdf.SizeType{
	PageA4:     {Wd: 595, Ht: 842},
	PageA3:     {Wd: 842, Ht: 1191},
	PageA5:     {Wd: 420, Ht: 595},
	PageLetter: {Wd: 612, Ht: 792},
}

// SupportedPageFormats lists the accepted output formats.
func SupportedPageFormats() []PageFormat {
	return []PageFormat{PageA4, PageA3, PageA5, PageLetter}
}

// ParsePageFormat accepts a format name in any case. Empty means A4.
func ParsePageFormat(s string) (PageFormat, error) {
	if s == "" {
		return PageA4, nil
	}
	f := PageFormat(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := pageSizes[f]; !ok {
		return "", fmt.Errorf("unsupported page format %q", s)
	}
	return f, nil
}

// Size returns the portrait page size in points.
func (f PageFormat) Size() (width, height float64) {
	s, ok := pageSizes[f]
	if !ok {
		s = pageSizes[PageA4]
	}
	return s.Wd, s.Ht
}

// ImagesToPDF writes one page per image. Each image is scaled to fit the
// page inside a margin, keeping its aspect ratio; landscape images get a
// landscape page.
func ImagesToPDF(images []string, out string, format PageFormat) error {
	if len(images) == 0 {
		return ErrNoInputs
	}
	pw, ph := format.Size()

	doc := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: pw, Ht: ph}})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, path := range images {
		img, meta, err := utils.LoadImage(path)
		if err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}

		buf, err := encodePNG8(img)
		if err != nil {
			return fmt.Errorf("image %d: encode: %w", i+1, err)
		}

		w, h := pw, ph
		if meta.Width > meta.Height {
			w, h = ph, pw
		}
		iw, ih := fitInto(float64(meta.Width), float64(meta.Height), w-2*pageMargin, h-2*pageMargin)

		name := fmt.Sprintf("img%d", i)
		doc.RegisterImageOptionsReader(name, opts, buf)
		doc.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		doc.ImageOptions(name, (w-iw)/2, (h-ih)/2, iw, ih, false, opts, 0, "")
	}

	if err := doc.OutputFileAndClose(out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// encodePNG8 encodes img as an 8 bit per channel PNG. gofpdf rejects 16 bit
// PNGs, which is what png.Encode writes for YCbCr (JPEG) and Gray16 sources.
func encodePNG8(img image.Image) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.Clone(img)); err != nil {
		return nil, err
	}
	return &buf, nil
}

// fitInto scales (w, h) to the largest size within (maxW, maxH) with the
// same aspect ratio.
func fitInto(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := min(maxW/w, maxH/h)
	return w * scale, h * scale
}
