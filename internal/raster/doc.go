// Package raster holds decoded page pixels and the BGR normalization that
// every code detector consumes.
//
// A Page is what the PDF rasterizer or the image loader produces: RGB or
// RGBA, row-major and channel-interleaved. Normalize turns it into a Buffer
// with exactly three channels in B,G,R order. Alpha is dropped, never
// blended, so a transparent region keeps whatever color values it carried.
package raster
