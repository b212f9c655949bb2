package raster

import "fmt"

// Normalize converts an RGB or RGBA page into a BGR buffer. Alpha is
// discarded. A page that fails Validate is a caller bug and panics.
func Normalize(p *Page) *Buffer {
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("raster.Normalize: %v", err))
	}

	n := p.Width * p.Height
	c := p.Channels
	out := make([]byte, n*3)
	for i, j := 0, 0; i < n*c; i, j = i+c, j+3 {
		out[j] = p.Pix[i+2]
		out[j+1] = p.Pix[i+1]
		out[j+2] = p.Pix[i]
	}
	return &Buffer{Width: p.Width, Height: p.Height, Pix: out}
}
