package server

import (
	"context"
	"net/http"
	"time"

	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
)

// codeExtractor is the part of the pipeline the handlers depend on.
type codeExtractor interface {
	Extract(ctx context.Context, u pipeline.Upload, mode pipeline.Mode) (*pipeline.Result, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	extractor   codeExtractor
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	serviceName string
	tempDir     string
	pageFormat  pdf.PageFormat
	clock       func() time.Time
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	ServiceName string
	TempDir     string
	PageFormat  pdf.PageFormat

	Extraction pipeline.Config
	// Extractor overrides the pipeline built from Extraction.
	Extractor codeExtractor
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// BarcodesResponse is returned by POST /codes/barcodes.
type BarcodesResponse struct {
	Success   bool           `json:"success"`
	Barcodes  []pipeline.Hit `json:"barcodes"`
	Count     int            `json:"count"`
	Timestamp string         `json:"timestamp"`
}

// QRCodesResponse is returned by POST /codes/qr.
type QRCodesResponse struct {
	Success   bool           `json:"success"`
	QRCodes   []pipeline.Hit `json:"qrCodes"`
	Count     int            `json:"count"`
	Timestamp string         `json:"timestamp"`
}

// AllCodesResponse is returned by POST /codes/all.
type AllCodesResponse struct {
	Success    bool           `json:"success"`
	Codes      []pipeline.Hit `json:"codes"`
	Barcodes   []pipeline.Hit `json:"barcodes"`
	QRCodes    []pipeline.Hit `json:"qrCodes"`
	TotalCount int            `json:"totalCount"`
	Timestamp  string         `json:"timestamp"`
}

type SupportedFormatsResponse struct {
	Service                string   `json:"service"`
	SupportedImageFormats  []string `json:"supportedImageFormats"`
	SupportedPdfFormats    []string `json:"supportedPdfFormats"`
	SupportedOutputFormats []string `json:"supportedOutputFormats"`
	SupportedSymbologies   []string `json:"supportedSymbologies"`
	Features               []string `json:"features"`
}

// NewServer creates a server. The extraction pipeline is built from
// cfg.Extraction unless cfg.Extractor is set.
func NewServer(cfg Config) *Server {
	ex := cfg.Extractor
	if ex == nil {
		ec := cfg.Extraction
		if ec.TempDir == "" {
			ec.TempDir = cfg.TempDir
		}
		ex = pipeline.NewExtractor(ec)
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pdfcodes"
	}
	if cfg.PageFormat == "" {
		cfg.PageFormat = pdf.PageA4
	}

	return &Server{
		extractor:   ex,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeoutSec:  cfg.TimeoutSec,
		serviceName: cfg.ServiceName,
		tempDir:     cfg.TempDir,
		pageFormat:  cfg.PageFormat,
		clock:       time.Now,
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", metricsHandler())

	mux.HandleFunc("/codes/barcodes", s.corsMiddleware(s.timeoutMiddleware(s.barcodesHandler)))
	mux.HandleFunc("/codes/qr", s.corsMiddleware(s.timeoutMiddleware(s.qrCodesHandler)))
	mux.HandleFunc("/codes/all", s.corsMiddleware(s.timeoutMiddleware(s.allCodesHandler)))

	// Paths used by earlier clients of the service.
	mux.HandleFunc("/api/pdf/read-barcodes", s.corsMiddleware(s.timeoutMiddleware(s.barcodesHandler)))
	mux.HandleFunc("/api/pdf/read-qr-codes", s.corsMiddleware(s.timeoutMiddleware(s.qrCodesHandler)))
	mux.HandleFunc("/api/pdf/read-all-codes", s.corsMiddleware(s.timeoutMiddleware(s.allCodesHandler)))

	mux.HandleFunc("/api/pdf/merge-pdfs", s.corsMiddleware(s.timeoutMiddleware(s.mergePDFsHandler)))
	mux.HandleFunc("/api/pdf/images-to-pdf", s.corsMiddleware(s.timeoutMiddleware(s.imagesToPDFHandler)))
	mux.HandleFunc("/api/pdf/merge-all", s.corsMiddleware(s.timeoutMiddleware(s.mergeAllHandler)))
	mux.HandleFunc("/api/pdf/extract-text", s.corsMiddleware(s.timeoutMiddleware(s.extractTextHandler)))
	mux.HandleFunc("/api/pdf/add-qr-code", s.corsMiddleware(s.timeoutMiddleware(s.addQRCodeHandler)))
	mux.HandleFunc("/api/pdf/add-barcode", s.corsMiddleware(s.timeoutMiddleware(s.addBarcodeHandler)))
	mux.HandleFunc("/api/pdf/supported-formats", s.corsMiddleware(s.supportedFormatsHandler))

	mux.HandleFunc("/ws/codes", s.codesWebSocketHandler)
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
