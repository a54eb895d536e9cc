package pipeline

import (
	"fmt"
	"strings"
)

// Method records how a page's text was obtained.
type Method string

const (
	// MethodDirect: text came straight from the content stream.
	MethodDirect Method = "direct"
	// MethodOCR: the page was rasterized and recognized.
	MethodOCR Method = "ocr"
	// MethodEmpty: neither path yielded text; the page marker is kept.
	MethodEmpty Method = "empty"
)

// PageResult is the outcome for one page.
type PageResult struct {
	Page   int
	Method Method
	Text   string
	// Err records a page-local failure. Such pages contribute an empty
	// body under their marker rather than failing the document.
	Err error
}

// Result is the outcome for a whole document.
type Result struct {
	Pages []PageResult
	// Truncated is set when the document had more pages than the cap.
	Truncated bool
}

// Text assembles the document text: each page under its marker, pages
// separated by a blank line. Pages without text keep their marker so
// downstream consumers see the document structure.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		parts = append(parts, fmt.Sprintf("=== PAGE %d ===\n%s", p.Page, p.Text))
	}
	return strings.Join(parts, "\n\n")
}

// DirectPages counts pages resolved without OCR.
func (r *Result) DirectPages() int {
	n := 0
	for _, p := range r.Pages {
		if p.Method == MethodDirect {
			n++
		}
	}
	return n
}

// OCRPages counts pages that went through recognition.
func (r *Result) OCRPages() int {
	n := 0
	for _, p := range r.Pages {
		if p.Method == MethodOCR {
			n++
		}
	}
	return n
}
