package pdf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
	"golang.org/x/text/unicode/norm"
)

// ErrPageRange marks a malformed page selection.
var ErrPageRange = errors.New("invalid page range")

// PageText is the plain text of one page.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// ExtractText returns the plain text of the selected pages ("1-3,5"; empty
// selects every page). Text is NFC-normalized.
func ExtractText(path, pageRange string) (pages []PageText, err error) {
	selected, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrPageRange, pageRange, err)
	}

	// dslipak/pdf panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &OpenError{Path: path, Reason: "malformed", Err: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Reason: "malformed", Err: err}
	}

	total := reader.NumPage()
	if len(selected) == 0 {
		for i := 1; i <= total; i++ {
			selected = append(selected, i)
		}
	}

	pages = make([]PageText, 0, len(selected))
	for _, n := range selected {
		if n < 1 || n > total {
			continue
		}
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(make(map[string]*pdf.Font))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		pages = append(pages, PageText{Page: n, Text: norm.NFC.String(text)})
	}
	return pages, nil
}

// FormatText renders pages as "Page N:" blocks separated by blank lines.
func FormatText(pages []PageText) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "Page %d:\n%s\n\n", p.Page, p.Text)
	}
	return b.String()
}
