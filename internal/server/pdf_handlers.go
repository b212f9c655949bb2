package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pdfcodes/internal/barcode"
	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
	"github.com/MeKo-Tech/pdfcodes/internal/upload"
	"github.com/MeKo-Tech/pdfcodes/internal/utils"
)

const contentTypePDF = "application/pdf"

// mergePDFsHandler concatenates the uploaded PDFs in upload order.
func (s *Server) mergePDFsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	headers, err := s.formFiles(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	set := &upload.Set{}
	defer set.ReleaseQuietly()

	pdfs, err := s.persistMatching(set, headers, utils.IsPDF)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(pdfs) == 0 {
		s.writeErrorResponse(w, "No valid PDF files found", http.StatusBadRequest)
		return
	}

	out := set.Path(s.tempDir, ".pdf")
	if err := pdf.Merge(pdfs, out); err != nil {
		s.writeError(w, err)
		return
	}
	s.sendFile(w, out, s.outputName("merged_pdfs"), contentTypePDF)
}

// imagesToPDFHandler builds one PDF page per uploaded image.
func (s *Server) imagesToPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	format, err := s.requestPageFormat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	headers, err := s.formFiles(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	set := &upload.Set{}
	defer set.ReleaseQuietly()

	images, err := s.persistMatching(set, headers, utils.IsSupportedImage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(images) == 0 {
		s.writeErrorResponse(w, "No valid image files found", http.StatusBadRequest)
		return
	}

	out := set.Path(s.tempDir, ".pdf")
	if err := pdf.ImagesToPDF(images, out, format); err != nil {
		s.writeError(w, err)
		return
	}
	s.sendFile(w, out, s.outputName("images_to_pdf"), contentTypePDF)
}

// mergeAllHandler merges uploaded PDFs and appends the uploaded images as
// extra pages.
func (s *Server) mergeAllHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	format, err := s.requestPageFormat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	headers, err := s.formFiles(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	set := &upload.Set{}
	defer set.ReleaseQuietly()

	pdfs, err := s.persistMatching(set, headers, utils.IsPDF)
	if err != nil {
		s.writeError(w, err)
		return
	}
	images, err := s.persistMatching(set, headers, utils.IsSupportedImage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(pdfs) == 0 && len(images) == 0 {
		s.writeErrorResponse(w, "No valid PDF or image files found", http.StatusBadRequest)
		return
	}

	out := set.Path(s.tempDir, ".pdf")
	if err := pdf.MergeAll(pdfs, images, out, format); err != nil {
		s.writeError(w, err)
		return
	}
	s.sendFile(w, out, s.outputName("merged_pdfs_and_images"), contentTypePDF)
}

// extractTextHandler returns the plain text of an uploaded PDF.
func (s *Server) extractTextHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path, name, release, err := s.persistPDF(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()

	pages, err := pdf.ExtractText(path, r.FormValue("pages"))
	if err != nil {
		if errors.Is(err, pdf.ErrPageRange) {
			err = &pipeline.ValidationError{Message: err.Error()}
		}
		s.writeError(w, err)
		return
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(base+"_extracted_text.txt"))
	if _, err := w.Write([]byte(pdf.FormatText(pages))); err != nil {
		slog.Error("Failed to write text response", "error", err)
	}
}

func (s *Server) addQRCodeHandler(w http.ResponseWriter, r *http.Request) {
	s.handleStamp(w, r, pdf.SymbolQR, pdf.DefaultQRText, "_with_qr.pdf")
}

func (s *Server) addBarcodeHandler(w http.ResponseWriter, r *http.Request) {
	s.handleStamp(w, r, pdf.SymbolCode128, pdf.DefaultBarcodeText, "_with_barcode.pdf")
}

// handleStamp draws a generated code onto the first page of an uploaded PDF.
func (s *Server) handleStamp(w http.ResponseWriter, r *http.Request, sym pdf.Symbol, fallback, suffix string) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path, name, release, err := s.persistPDF(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer release()

	text := r.FormValue("text")
	if text == "" {
		text = fallback
	}

	set := &upload.Set{}
	defer set.ReleaseQuietly()
	out := set.Path(s.tempDir, ".pdf")

	if err := pdf.Stamp(path, out, sym, text); err != nil {
		s.writeError(w, err)
		return
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	s.sendFile(w, out, base+suffix, contentTypePDF)
}

// supportedFormatsHandler describes accepted inputs and outputs.
func (s *Server) supportedFormatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	outputs := make([]string, 0, 4)
	for _, f := range pdf.SupportedPageFormats() {
		outputs = append(outputs, string(f))
	}
	symbologies := make([]string, 0, len(barcode.AllFormats()))
	for _, f := range barcode.AllFormats() {
		symbologies = append(symbologies, f.String())
	}

	writeJSON(w, http.StatusOK, SupportedFormatsResponse{
		Service:                s.serviceName,
		SupportedImageFormats:  utils.SupportedImageExtensions,
		SupportedPdfFormats:    []string{".pdf"},
		SupportedOutputFormats: outputs,
		SupportedSymbologies:   symbologies,
		Features: []string{
			"Barcode and QR code extraction from PDFs and images",
			"PDF merging",
			"Image to PDF conversion",
			"Merging PDFs with images",
			"PDF text extraction",
			"QR code and barcode stamping",
		},
	})
}

// formFiles returns the files uploaded under the "files" field.
func (s *Server) formFiles(w http.ResponseWriter, r *http.Request) ([]*multipart.FileHeader, error) {
	if err := s.parseForm(w, r); err != nil {
		return nil, err
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, &pipeline.ValidationError{Message: "No files uploaded"}
	}
	return headers, nil
}

// persistMatching persists the uploads whose names satisfy match, keeping
// upload order, and returns their paths. Other uploads are skipped.
func (s *Server) persistMatching(set *upload.Set, headers []*multipart.FileHeader, match func(string) bool) ([]string, error) {
	var paths []string
	for _, h := range headers {
		if !match(h.Filename) {
			continue
		}
		if h.Size == 0 {
			slog.Debug("Skipping empty upload", "filename", h.Filename)
			continue
		}
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %q: %w", h.Filename, err)
		}
		persisted, err := set.Persist(s.tempDir, h.Filename, f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		uploadSizeBytes.Observe(float64(persisted.Size))
		paths = append(paths, persisted.Path)
	}
	return paths, nil
}

// persistPDF stores the single PDF uploaded under "file". The returned
// release func removes it.
func (s *Server) persistPDF(w http.ResponseWriter, r *http.Request) (path, name string, release func(), err error) {
	file, header, err := s.formFile(w, r, "file")
	if err != nil {
		return "", "", nil, err
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		return "", "", nil, &pipeline.ValidationError{Message: "No file selected"}
	}
	if !utils.IsPDF(header.Filename) {
		return "", "", nil, &pipeline.ValidationError{Message: "Uploaded file is not a PDF"}
	}

	persisted, err := upload.Persist(s.tempDir, header.Filename, file)
	if err != nil {
		return "", "", nil, err
	}
	uploadSizeBytes.Observe(float64(persisted.Size))
	return persisted.Path, header.Filename, persisted.ReleaseQuietly, nil
}

// requestPageFormat reads ?outputFormat=, falling back to the configured format.
func (s *Server) requestPageFormat(r *http.Request) (pdf.PageFormat, error) {
	raw := r.URL.Query().Get("outputFormat")
	if raw == "" {
		return s.pageFormat, nil
	}
	format, err := pdf.ParsePageFormat(raw)
	if err != nil {
		return "", &pipeline.ValidationError{Message: err.Error()}
	}
	return format, nil
}

// outputName builds "<prefix>_<yyyymmdd_hhmmss>.pdf".
func (s *Server) outputName(prefix string) string {
	return prefix + "_" + s.clock().Format("20060102_150405") + ".pdf"
}

// sendFile streams a finished temp file as an attachment.
func (s *Server) sendFile(w http.ResponseWriter, path, name, contentType string) {
	f, err := os.Open(path) //nolint:gosec // G304: path was generated by upload.Set
	if err != nil {
		s.writeError(w, fmt.Errorf("open result: %w", err))
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, fmt.Errorf("stat result: %w", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment(name))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		slog.Error("Failed to stream file", "name", name, "error", err)
	}
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
