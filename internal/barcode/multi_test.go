package barcode

import (
	"image"
	"testing"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateResult(t *testing.T) {
	r := gozxing.NewResult("abc", nil, []gozxing.ResultPoint{
		gozxing.NewResultPoint(1, 2),
		gozxing.NewResultPoint(30, 2),
	}, gozxing.BarcodeFormat_CODE_128)

	assert.Same(t, r, translateResult(r, 0, 0))

	moved := translateResult(r, 100, 50)
	require.Len(t, moved.GetResultPoints(), 2)
	assert.InDelta(t, 101.0, moved.GetResultPoints()[0].GetX(), 1e-9)
	assert.InDelta(t, 52.0, moved.GetResultPoints()[0].GetY(), 1e-9)
	assert.InDelta(t, 130.0, moved.GetResultPoints()[1].GetX(), 1e-9)
	assert.Equal(t, "abc", moved.GetText())
	assert.Equal(t, gozxing.BarcodeFormat_CODE_128, moved.GetBarcodeFormat())
}

func TestAppendUnique(t *testing.T) {
	a := gozxing.NewResult("a", nil, nil, gozxing.BarcodeFormat_QR_CODE)
	a2 := gozxing.NewResult("a", nil, nil, gozxing.BarcodeFormat_CODE_128)
	b := gozxing.NewResult("b", nil, nil, gozxing.BarcodeFormat_EAN_13)

	got := appendUnique(nil, a, nil, a2, b)
	require.Len(t, got, 2)
	assert.Same(t, a, got[0])
	assert.Same(t, b, got[1])
}

// barMatrix draws vertical bars every other column in rows [top, bottom).
func barMatrix(t *testing.T, w, h, top, bottom int) *gozxing.BitMatrix {
	t.Helper()
	m, err := gozxing.NewBitMatrix(w, h)
	require.NoError(t, err)
	for y := top; y < bottom; y++ {
		for x := 0; x < w; x += 2 {
			m.Set(x, y)
		}
	}
	return m
}

func TestLinearExtent(t *testing.T) {
	m := barMatrix(t, 40, 50, 10, 30)

	got := linearExtent(m, image.Rect(2, 20, 38, 21))
	assert.Equal(t, image.Rect(2, 10, 38, 30), got)

	t.Run("bars touching the edges", func(t *testing.T) {
		full := barMatrix(t, 40, 20, 0, 20)
		assert.Equal(t, image.Rect(0, 0, 40, 20), linearExtent(full, image.Rect(0, 5, 40, 6)))
	})

	t.Run("degenerate boxes are kept", func(t *testing.T) {
		assert.Equal(t, image.Rect(5, 20, 6, 21), linearExtent(m, image.Rect(5, 20, 6, 21)))
		assert.Equal(t, image.Rect(2, 80, 38, 81), linearExtent(m, image.Rect(2, 80, 38, 81)))
	})
}
