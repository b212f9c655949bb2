package pipeline

import (
	"cmp"
	"slices"
	"time"

	"github.com/MeKo-Tech/pdfcodes/internal/barcode"
)

// PageDetections holds what the detectors found on one page or image.
type PageDetections struct {
	PageIndex int
	Barcodes  []barcode.Hit
	QR        *barcode.Hit
}

// Aggregate merges per-page detections into a Result. Pages are ordered by
// index regardless of input order; within a page barcode hits keep detector
// order and precede the QR hit. When paged is set every hit carries the
// 1-based page number.
func Aggregate(pages []PageDetections, paged bool, now time.Time) *Result {
	sorted := slices.Clone(pages)
	slices.SortStableFunc(sorted, func(a, b PageDetections) int {
		return cmp.Compare(a.PageIndex, b.PageIndex)
	})

	codes := make([]Hit, 0)
	for _, p := range sorted {
		for _, b := range p.Barcodes {
			codes = append(codes, Hit{
				Type:       KindBarcode,
				Data:       b.Payload,
				Format:     b.Symbology,
				Confidence: 1.0,
				Page:       pageNumber(p.PageIndex, paged),
				Bounds: &BoundingBox{
					X:      b.Box.Min.X,
					Y:      b.Box.Min.Y,
					Width:  b.Box.Dx(),
					Height: b.Box.Dy(),
				},
			})
		}
		if p.QR != nil {
			codes = append(codes, Hit{
				Type:       KindQR,
				Data:       p.QR.Payload,
				Format:     p.QR.Symbology,
				Confidence: 1.0,
				Page:       pageNumber(p.PageIndex, paged),
			})
		}
	}

	return &Result{Codes: codes, GeneratedAt: now}
}

func pageNumber(index int, paged bool) *int {
	if !paged {
		return nil
	}
	n := index + 1
	return &n
}
