package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/bankdocs/contract-extractor/constants"
)

// Config selects the poppler binaries; empty values fall back to PATH names.
type Config struct {
	Pdftotext string
	Pdftoppm  string
}

// Document is an opened PDF staged on disk for the poppler tools.
// PageCount is zero when the primary reader could not parse the file;
// such documents can still be rasterized page by page (OCR-only path).
type Document struct {
	path      string
	dir       string
	pageCount int
	parseable bool

	cfg    Config
	runner Runner
	log    *slog.Logger
}

// ErrNotPDF is returned for inputs without the %PDF magic prefix.
var ErrNotPDF = fmt.Errorf("input is not a PDF")

// Open validates the byte stream, stages it in a temp file and reads the
// page count with pdfcpu. A stream that pdfcpu rejects is still returned
// (parseable=false) so the caller can try the rasterize-everything path.
func Open(ctx context.Context, raw []byte, cfg Config, runner Runner, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewRunner(logger)
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}

	if !constants.IsPDF(raw) {
		return nil, ErrNotPDF
	}

	dir, err := os.MkdirTemp("", "ce-doc-*")
	if err != nil {
		return nil, fmt.Errorf("stage document: %w", err)
	}
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("stage document: %w", err)
	}

	d := &Document{path: path, dir: dir, cfg: cfg, runner: runner, log: logger}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(raw), conf)
	if err != nil || n <= 0 {
		logger.Warn("primary reader failed, document usable for OCR only", "error", err)
		return d, nil
	}
	d.pageCount = n
	d.parseable = true
	return d, nil
}

// PageCount returns the number of pages, or 0 when the primary reader
// could not parse the document.
func (d *Document) PageCount() int { return d.pageCount }

// Parseable reports whether the primary reader opened the document.
func (d *Document) Parseable() bool { return d.parseable }

// Close removes the staged file.
func (d *Document) Close() error {
	if d.dir == "" {
		return nil
	}
	err := os.RemoveAll(d.dir)
	d.dir = ""
	return err
}

// tmpDir creates a scratch directory tied to the staged document.
func (d *Document) tmpDir(pattern string) (string, error) {
	return os.MkdirTemp(d.dir, pattern)
}
