package barcode

import "sync"

// Detectors is the pair of detectors the extraction pipeline runs per page.
type Detectors struct {
	Barcodes Detector
	QR       Detector
}

// Config selects the symbologies and effort of a detector pair.
type Config struct {
	Formats   []Format
	TryHarder bool
}

// NewDetectors builds a detector pair over the default backend.
func NewDetectors(cfg Config) *Detectors {
	backend := NewBackend()
	return &Detectors{
		Barcodes: NewLinearDetector(backend, cfg.Formats, cfg.TryHarder),
		QR:       NewQRDetector(backend, cfg.TryHarder),
	}
}

var defaultDetectors = sync.OnceValue(func() *Detectors {
	return NewDetectors(Config{TryHarder: true})
})

// Default returns the process-wide detector pair, built on first use.
func Default() *Detectors { return defaultDetectors() }
