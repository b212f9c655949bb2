// Package pdf renders PDF pages to raster buffers and provides the document
// utilities around code extraction: merging, image conversion and text
// extraction.
//
// Rendering uses MuPDF through go-fitz. pdfcpu checks the document structure
// first so a truncated or encrypted upload is reported as an OpenError
// before MuPDF attempts to repair it.
package pdf
