package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MeKo-Tech/pdfcodes/internal/barcode"
	"github.com/MeKo-Tech/pdfcodes/internal/common"
	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
	"github.com/MeKo-Tech/pdfcodes/internal/version"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to disk.
const multipartMemory = 32 << 20

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: s.serviceName,
		Version: version.Version,
		Time:    s.clock().UTC().Format(time.RFC3339),
	})
}

func (s *Server) barcodesHandler(w http.ResponseWriter, r *http.Request) {
	s.handleCodes(w, r, pipeline.ModeBarcodes)
}

func (s *Server) qrCodesHandler(w http.ResponseWriter, r *http.Request) {
	s.handleCodes(w, r, pipeline.ModeQR)
}

func (s *Server) allCodesHandler(w http.ResponseWriter, r *http.Request) {
	s.handleCodes(w, r, pipeline.ModeAll)
}

// handleCodes runs one uploaded file through the extraction pipeline.
func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request, mode pipeline.Mode) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := s.formFile(w, r, "file")
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))

	res, err := s.runExtraction(r.Context(), pipeline.Upload{Filename: header.Filename, Body: file}, mode)
	if err != nil {
		slog.Warn("Code extraction failed", "filename", header.Filename, "mode", mode.String(), "error", err)
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, codesResponse(mode, res))
}

// runExtraction calls the pipeline and records extraction metrics.
func (s *Server) runExtraction(ctx context.Context, u pipeline.Upload, mode pipeline.Mode) (*pipeline.Result, error) {
	timer := common.NewNamedTimer("extract")
	res, err := s.extractor.Extract(ctx, u, mode)
	duration := timer.Stop()

	if err != nil {
		extractionRequestsTotal.WithLabelValues(mode.String(), "unknown", "error").Inc()
		return nil, err
	}

	extractionRequestsTotal.WithLabelValues(mode.String(), res.Stats.Source, "success").Inc()
	extractionDuration.WithLabelValues(mode.String()).Observe(duration.Seconds())
	codesDetected.WithLabelValues(string(pipeline.KindBarcode)).Observe(float64(len(res.Barcodes())))
	codesDetected.WithLabelValues(string(pipeline.KindQR)).Observe(float64(len(res.QRCodes())))
	if res.Stats.Source == "pdf" {
		pagesRasterized.Observe(float64(res.Stats.Pages))
	}
	return res, nil
}

// codesResponse shapes a result for the endpoint of the given mode.
func codesResponse(mode pipeline.Mode, res *pipeline.Result) any {
	ts := res.GeneratedAt.Format(time.RFC3339Nano)
	switch mode {
	case pipeline.ModeBarcodes:
		bars := res.Barcodes()
		return BarcodesResponse{Success: true, Barcodes: bars, Count: len(bars), Timestamp: ts}
	case pipeline.ModeQR:
		qrs := res.QRCodes()
		return QRCodesResponse{Success: true, QRCodes: qrs, Count: len(qrs), Timestamp: ts}
	default:
		return AllCodesResponse{
			Success:    true,
			Codes:      res.Codes,
			Barcodes:   res.Barcodes(),
			QRCodes:    res.QRCodes(),
			TotalCount: res.TotalCount(),
			Timestamp:  ts,
		}
	}
}

// limitBody caps the request body at the configured upload size and fails
// early when the declared length is already too large.
func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) error {
	limit := s.maxUploadMB * 1024 * 1024
	if r.ContentLength > limit {
		return &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return nil
}

// parseForm parses a multipart body within the upload limit.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	if err := s.limitBody(w, r); err != nil {
		return err
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return &pipeline.ValidationError{Message: "No file uploaded"}
	}
	return nil
}

// formFile returns the single file uploaded under field.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := s.parseForm(w, r); err != nil {
		return nil, nil, err
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, &pipeline.ValidationError{Message: "No file uploaded"}
	}
	return file, header, nil
}

// statusForError maps pipeline and collaborator errors onto HTTP statuses.
func statusForError(err error) int {
	var (
		ve  *pipeline.ValidationError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// messageForError renders the client-facing message for err.
func messageForError(err error) string {
	var (
		ve  *pipeline.ValidationError
		mbe *http.MaxBytesError
		oe  *pdf.OpenError
		de  *barcode.DetectionError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &mbe):
		return fmt.Sprintf("File too large (limit %d MB)", mbe.Limit/(1024*1024))
	case errors.As(err, &oe):
		return fmt.Sprintf("Failed to read document: %v", oe)
	case errors.As(err, &de):
		return fmt.Sprintf("Code detection failed: %v", de)
	case errors.Is(err, context.DeadlineExceeded):
		return "Processing timed out"
	default:
		return fmt.Sprintf("Processing failed: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorResponse(w, messageForError(err), statusForError(err))
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
