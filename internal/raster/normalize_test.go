package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		page     *Page
		expected []byte
	}{
		{
			name:     "RGB swaps channel order",
			page:     &Page{Width: 2, Height: 1, Channels: 3, Pix: []byte{10, 20, 30, 40, 50, 60}},
			expected: []byte{30, 20, 10, 60, 50, 40},
		},
		{
			name:     "RGBA drops alpha without blending",
			page:     &Page{Width: 1, Height: 2, Channels: 4, Pix: []byte{1, 2, 3, 0, 4, 5, 6, 128}},
			expected: []byte{3, 2, 1, 6, 5, 4},
		},
		{
			name:     "opaque white stays white",
			page:     &Page{Width: 1, Height: 1, Channels: 4, Pix: []byte{255, 255, 255, 255}},
			expected: []byte{255, 255, 255},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Normalize(tt.page)
			require.NoError(t, buf.Validate())
			assert.Equal(t, tt.page.Width, buf.Width)
			assert.Equal(t, tt.page.Height, buf.Height)
			assert.Equal(t, tt.expected, buf.Pix)
		})
	}
}

func TestNormalize_PanicsOnMalformedPage(t *testing.T) {
	tests := []struct {
		name string
		page *Page
	}{
		{"nil page", nil},
		{"zero width", &Page{Width: 0, Height: 1, Channels: 3}},
		{"two channels", &Page{Width: 1, Height: 1, Channels: 2, Pix: []byte{1, 2}}},
		{"short pixel slice", &Page{Width: 2, Height: 2, Channels: 3, Pix: make([]byte, 11)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.page.Validate())
			assert.Panics(t, func() { Normalize(tt.page) })
		})
	}
}

func TestFromImage(t *testing.T) {
	t.Run("RGBA keeps four channels", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 3, 2))
		img.Set(2, 1, color.RGBA{R: 9, G: 8, B: 7, A: 255})

		p := FromImage(img, 4)
		require.NoError(t, p.Validate())
		assert.Equal(t, 4, p.Index)
		assert.Equal(t, 4, p.Channels)
		assert.Equal(t, []byte{9, 8, 7, 255}, p.Pix[len(p.Pix)-4:])
	})

	t.Run("sub image honours bounds and stride", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		img.Set(1, 1, color.RGBA{R: 100, A: 255})
		sub := img.SubImage(image.Rect(1, 1, 3, 3))

		p := FromImage(sub, 0)
		require.NoError(t, p.Validate())
		assert.Equal(t, 2, p.Width)
		assert.Equal(t, 2, p.Height)
		assert.Equal(t, byte(100), p.Pix[0])
	})

	t.Run("gray flattens to RGB", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 2, 2))
		img.SetGray(0, 0, color.Gray{Y: 77})

		p := FromImage(img, 0)
		require.NoError(t, p.Validate())
		assert.Equal(t, 3, p.Channels)
		assert.Equal(t, []byte{77, 77, 77}, p.Pix[:3])
	})
}

func TestBuffer_Image(t *testing.T) {
	buf := &Buffer{Width: 2, Height: 1, Pix: []byte{1, 2, 3, 4, 5, 6}}
	img := buf.Image()

	assert.Equal(t, image.Rect(0, 0, 2, 1), img.Bounds())
	assert.Equal(t, color.RGBA{R: 3, G: 2, B: 1, A: 255}, img.At(0, 0))
	assert.Equal(t, color.RGBA{R: 6, G: 5, B: 4, A: 255}, img.At(1, 0))
	assert.Equal(t, color.RGBA{}, img.At(5, 5))
}
