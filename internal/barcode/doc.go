// Package barcode decodes 1D and 2D symbols from normalized raster buffers.
//
// Two detectors are exposed behind the Detector interface:
//
//   - LinearDetector finds every symbol it can on a page, including the 2D
//     symbologies, and reports a bounding box for each hit.
//   - QRDetector decodes at most one QR code and reports no geometry.
//
// Both run on the gozxing Backend. Detectors are immutable after
// construction and safe for concurrent use; the underlying gozxing readers
// carry scratch state and are built per call.
package barcode
