// Package pipeline turns an uploaded PDF or image into an ordered list of
// decoded codes.
//
// The Extractor persists the upload to a scoped temp file, renders the
// leading PDF pages (or loads the image), runs the barcode and QR detectors
// on every page concurrently and hands the per-page detections to
// Aggregate, which assigns page numbers and fixes the output order.
package pipeline
