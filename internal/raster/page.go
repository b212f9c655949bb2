package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// ErrMalformedPage is returned by Validate when a page's dimensions do not
// describe its pixel slice.
var ErrMalformedPage = errors.New("malformed raster page")

// Page is a rendered PDF page or a decoded image.
type Page struct {
	// Index is the 0-based position of the page in its source document.
	Index    int
	Width    int
	Height   int
	Channels int // 3 (RGB) or 4 (RGBA)
	Pix      []byte
}

// Validate reports whether the page dimensions and pixel slice agree.
func (p *Page) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil page", ErrMalformedPage)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrMalformedPage, p.Width, p.Height)
	}
	if p.Channels != 3 && p.Channels != 4 {
		return fmt.Errorf("%w: %d channels", ErrMalformedPage, p.Channels)
	}
	if want := p.Width * p.Height * p.Channels; len(p.Pix) != want {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrMalformedPage, len(p.Pix), want)
	}
	return nil
}

// FromImage copies img into a Page. RGBA-backed images keep four channels;
// everything else is flattened to RGB.
func FromImage(img image.Image, index int) *Page {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.RGBA:
		return &Page{Index: index, Width: w, Height: h, Channels: 4, Pix: copyRows(src.Pix, src.Stride, w*4, h, src.PixOffset(b.Min.X, b.Min.Y))}
	case *image.NRGBA:
		return &Page{Index: index, Width: w, Height: h, Channels: 4, Pix: copyRows(src.Pix, src.Stride, w*4, h, src.PixOffset(b.Min.X, b.Min.Y))}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	pix := make([]byte, 0, w*h*3)
	for i := 0; i < len(rgba.Pix); i += 4 {
		pix = append(pix, rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2])
	}
	return &Page{Index: index, Width: w, Height: h, Channels: 3, Pix: pix}
}

func copyRows(src []byte, stride, rowLen, rows, offset int) []byte {
	out := make([]byte, rowLen*rows)
	for y := range rows {
		start := offset + y*stride
		copy(out[y*rowLen:(y+1)*rowLen], src[start:start+rowLen])
	}
	return out
}

// Buffer is a normalized three-channel image in B,G,R order.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

// Validate reports whether the buffer is a well-formed BGR image.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrMalformedPage)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrMalformedPage, b.Width, b.Height)
	}
	if want := b.Width * b.Height * 3; len(b.Pix) != want {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrMalformedPage, len(b.Pix), want)
	}
	return nil
}

// Image returns a read-only image.Image view of the buffer.
func (b *Buffer) Image() image.Image { return &bgrImage{buf: b} }

type bgrImage struct {
	buf *Buffer
}

func (m *bgrImage) ColorModel() color.Model { return color.RGBAModel }

func (m *bgrImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.buf.Width, m.buf.Height)
}

func (m *bgrImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.buf.Width || y >= m.buf.Height {
		return color.RGBA{}
	}
	i := (y*m.buf.Width + x) * 3
	return color.RGBA{R: m.buf.Pix[i+2], G: m.buf.Pix[i+1], B: m.buf.Pix[i], A: 0xff}
}
