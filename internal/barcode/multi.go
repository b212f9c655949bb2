package barcode

import (
	"context"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi"
)

const (
	// minDimensionToRecur is the smallest region, in pixels, searched again
	// after a symbol was found next to it.
	minDimensionToRecur = 100
	maxSearchDepth      = 4
)

// multiReader finds several symbols by decoding the whole bitmap, then
// searching the regions left of, above, right of and below every hit.
// Payloads already found are not reported again.
type multiReader struct {
	ctx      context.Context
	delegate gozxing.Reader
	err      error
}

var _ multi.MultipleBarcodeReader = (*multiReader)(nil)

func newMultiReader(ctx context.Context, delegate gozxing.Reader) *multiReader {
	return &multiReader{ctx: ctx, delegate: delegate}
}

// Err reports why a search stopped early, nil when it ran to completion.
func (m *multiReader) Err() error { return m.err }

func (m *multiReader) DecodeMultipleWithoutHint(image *gozxing.BinaryBitmap) ([]*gozxing.Result, error) {
	return m.DecodeMultiple(image, nil)
}

// DecodeMultiple returns a NotFoundException when nothing decodes.
func (m *multiReader) DecodeMultiple(image *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) ([]*gozxing.Result, error) {
	var results []*gozxing.Result
	m.search(image, hints, &results, 0, 0, 0)
	if m.err != nil {
		return results, m.err
	}
	if len(results) == 0 {
		return nil, gozxing.NewNotFoundException("no symbols")
	}
	return results, nil
}

func (m *multiReader) search(image *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{},
	results *[]*gozxing.Result, xOffset, yOffset, depth int,
) {
	if depth > maxSearchDepth || m.err != nil {
		return
	}
	if err := m.ctx.Err(); err != nil {
		m.err = err
		return
	}

	result, err := m.delegate.Decode(image, hints)
	if err != nil {
		return
	}
	*results = appendUnique(*results, translateResult(result, xOffset, yOffset))

	points := result.GetResultPoints()
	if len(points) == 0 {
		return
	}

	width, height := image.GetWidth(), image.GetHeight()
	minX, minY := float64(width), float64(height)
	maxX, maxY := 0.0, 0.0
	for _, p := range points {
		if p == nil {
			continue
		}
		minX, minY = min(minX, p.GetX()), min(minY, p.GetY())
		maxX, maxY = max(maxX, p.GetX()), max(maxY, p.GetY())
	}

	type region struct{ left, top, w, h int }
	var regions []region
	if minX > minDimensionToRecur {
		regions = append(regions, region{0, 0, int(minX), height})
	}
	if minY > minDimensionToRecur {
		regions = append(regions, region{0, 0, width, int(minY)})
	}
	if maxX < float64(width-minDimensionToRecur) {
		regions = append(regions, region{int(maxX), 0, width - int(maxX), height})
	}
	if maxY < float64(height-minDimensionToRecur) {
		regions = append(regions, region{0, int(maxY), width, height - int(maxY)})
	}

	for _, r := range regions {
		cropped, err := image.Crop(r.left, r.top, r.w, r.h)
		if err != nil {
			continue
		}
		m.search(cropped, hints, results, xOffset+r.left, yOffset+r.top, depth+1)
	}
}

// translateResult moves the result points of a decode on a crop back into
// the coordinates of the full bitmap.
func translateResult(r *gozxing.Result, xOffset, yOffset int) *gozxing.Result {
	if xOffset == 0 && yOffset == 0 {
		return r
	}
	old := r.GetResultPoints()
	points := make([]gozxing.ResultPoint, 0, len(old))
	for _, p := range old {
		if p == nil {
			continue
		}
		points = append(points, gozxing.NewResultPoint(p.GetX()+float64(xOffset), p.GetY()+float64(yOffset)))
	}
	out := gozxing.NewResultWithNumBits(r.GetText(), r.GetRawBytes(), r.GetNumBits(), points,
		r.GetBarcodeFormat(), r.GetTimestamp())
	out.PutAllMetadata(r.GetResultMetadata())
	return out
}

// appendUnique appends the results whose text is not already present.
func appendUnique(results []*gozxing.Result, more ...*gozxing.Result) []*gozxing.Result {
	for _, r := range more {
		if r == nil || containsText(results, r.GetText()) {
			continue
		}
		results = append(results, r)
	}
	return results
}

func containsText(results []*gozxing.Result, text string) bool {
	for _, r := range results {
		if r.GetText() == text {
			return true
		}
	}
	return false
}
