package barcode

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type gozxingBackend struct{}

// Decode binarizes img once and runs the readers for opts.Formats over it.
// A symbol that fails to decode, in any reader, is no result.
func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = AllFormats()
	}
	reader := newCompositeReader(formats)
	if len(reader.readers) == 0 {
		return nil, nil
	}
	hints := decodeHints(formats, opts.TryHarder)

	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(gozxing.NewLuminanceSourceFromImage(img)))
	if err != nil {
		return nil, fmt.Errorf("binarize image: %w", err)
	}

	var found []*gozxing.Result
	if opts.Multi {
		mr := newMultiReader(ctx, reader)
		found, _ = mr.DecodeMultiple(bitmap, hints)
		if err := mr.Err(); err != nil {
			return nil, err
		}
		if hasFormat(formats, FormatQR) {
			qrs, qrErr := multiqr.NewQRCodeMultiReader().DecodeMultiple(bitmap, hints)
			if qrErr != nil {
				slog.Debug("Multi QR search found nothing", "error", qrErr)
			}
			found = appendUnique(found, qrs...)
		}
	} else if r, err := reader.Decode(bitmap, hints); err == nil {
		found = []*gozxing.Result{r}
	}

	out := make([]Result, 0, len(found))
	for _, r := range found {
		out = append(out, b.toResult(bitmap, r))
	}
	return out, nil
}

func (b *gozxingBackend) toResult(bitmap *gozxing.BinaryBitmap, r *gozxing.Result) Result {
	var points []Point
	for _, p := range r.GetResultPoints() {
		if p == nil {
			continue
		}
		points = append(points, Point{X: clampInt(p.GetX()), Y: clampInt(p.GetY())})
	}
	res := Result{
		Type:   mapFormatFromZXing(r.GetBarcodeFormat()),
		Value:  r.GetText(),
		Points: points,
		BBox:   rectFromPoints(points),
	}
	if res.Type.Is1D() && res.BBox.Dy() == 1 {
		if matrix, err := bitmap.GetBlackMatrix(); err == nil {
			res.BBox = linearExtent(matrix, res.BBox)
		}
	}
	return res
}

func decodeHints(formats []Format, tryHarder bool) map[gozxing.DecodeHintType]interface{} {
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
	}
	var zxFormats []gozxing.BarcodeFormat
	for _, f := range formats {
		if bf, ok := mapFormatToZXing(f); ok {
			zxFormats = append(zxFormats, bf)
		}
	}
	if len(zxFormats) > 0 {
		hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = zxFormats
	}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return hints
}

func hasFormat(formats []Format, f Format) bool {
	for _, x := range formats {
		if x == f {
			return true
		}
	}
	return false
}

// compositeReader tries each reader in turn and returns the first decode.
type compositeReader struct {
	readers []gozxing.Reader
}

func newCompositeReader(formats []Format) *compositeReader {
	c := &compositeReader{}
	for _, f := range formats {
		if r := newReader(f); r != nil {
			c.readers = append(c.readers, r)
		}
	}
	return c
}

func newReader(f Format) gozxing.Reader {
	switch f {
	case FormatEAN13:
		return oned.NewEAN13Reader()
	case FormatEAN8:
		return oned.NewEAN8Reader()
	case FormatUPCA:
		return oned.NewUPCAReader()
	case FormatUPCE:
		return oned.NewUPCEReader()
	case FormatCode128:
		return oned.NewCode128Reader()
	case FormatCode39:
		return oned.NewCode39Reader()
	case FormatITF:
		return oned.NewITFReader()
	case FormatCodabar:
		return oned.NewCodaBarReader()
	case FormatQR:
		return qrcode.NewQRCodeReader()
	case FormatDataMatrix:
		return datamatrix.NewDataMatrixReader()
	case FormatAztec:
		return aztec.NewAztecReader()
	}
	return nil
}

func (c *compositeReader) DecodeWithoutHints(image *gozxing.BinaryBitmap) (*gozxing.Result, error) {
	return c.Decode(image, nil)
}

func (c *compositeReader) Decode(image *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) (*gozxing.Result, error) {
	var err error = gozxing.NewNotFoundException("no readers")
	for _, r := range c.readers {
		res, e := r.Decode(image, hints)
		if e == nil {
			return res, nil
		}
		err = e
	}
	return nil, err
}

func (c *compositeReader) Reset() {
	for _, r := range c.readers {
		r.Reset()
	}
}

func mapFormatToZXing(f Format) (gozxing.BarcodeFormat, bool) {
	switch f {
	case FormatQR:
		return gozxing.BarcodeFormat_QR_CODE, true
	case FormatDataMatrix:
		return gozxing.BarcodeFormat_DATA_MATRIX, true
	case FormatAztec:
		return gozxing.BarcodeFormat_AZTEC, true
	case FormatCode128:
		return gozxing.BarcodeFormat_CODE_128, true
	case FormatCode39:
		return gozxing.BarcodeFormat_CODE_39, true
	case FormatEAN8:
		return gozxing.BarcodeFormat_EAN_8, true
	case FormatEAN13:
		return gozxing.BarcodeFormat_EAN_13, true
	case FormatUPCA:
		return gozxing.BarcodeFormat_UPC_A, true
	case FormatUPCE:
		return gozxing.BarcodeFormat_UPC_E, true
	case FormatITF:
		return gozxing.BarcodeFormat_ITF, true
	case FormatCodabar:
		return gozxing.BarcodeFormat_CODABAR, true
	default:
		return 0, false
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return FormatAztec
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}

func clampInt(v float64) int {
	if v < 0 {
		return 0
	}
	return int(v)
}

// rectFromPoints returns the smallest rectangle containing every point.
// Linear symbols report two points on the scan row, so their box starts out
// one pixel high; see linearExtent.
func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// barTolerance is the share of pixels in which a row may differ from the
// decoded row and still count as part of the same bars.
const barTolerance = 0.1

// linearExtent grows the one-row box of a linear symbol up and down while
// the binarized rows repeat the bar pattern of the decoded row.
func linearExtent(m *gozxing.BitMatrix, box image.Rectangle) image.Rectangle {
	x0, x1 := max(box.Min.X, 0), min(box.Max.X, m.GetWidth())
	row := box.Min.Y
	if x1-x0 < 2 || row < 0 || row >= m.GetHeight() {
		return box
	}

	top, bottom := row, row
	for top > 0 && sameBars(m, x0, x1, row, top-1) {
		top--
	}
	for bottom < m.GetHeight()-1 && sameBars(m, x0, x1, row, bottom+1) {
		bottom++
	}
	return image.Rect(box.Min.X, top, box.Max.X, bottom+1)
}

func sameBars(m *gozxing.BitMatrix, x0, x1, ref, y int) bool {
	limit := int(float64(x1-x0) * barTolerance)
	diff := 0
	for x := x0; x < x1; x++ {
		if m.Get(x, ref) != m.Get(x, y) {
			diff++
			if diff > limit {
				return false
			}
		}
	}
	return true
}
