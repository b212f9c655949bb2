package pdf

import (
	"fmt"
	"strings"
)

// OpenError reports a document that cannot be opened or parsed.
type OpenError struct {
	Path   string
	Reason string
	Err    error
}

func (e *OpenError) Error() string {
	msg := "cannot open PDF"
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OpenError) Unwrap() error { return e.Err }

// openReason classifies pdfcpu read failures.
func openReason(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "encrypted"),
		strings.Contains(msg, "password"),
		strings.Contains(msg, "decrypt"):
		return "encrypted"
	default:
		return "malformed"
	}
}
