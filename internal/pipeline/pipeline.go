// Package pipeline orchestrates per-page text extraction: direct
// content-stream extraction first, OCR as the fallback, with a single
// strong-preprocessing retry for pages the first OCR pass left empty.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"strings"
	"unicode"

	"github.com/bankdocs/contract-extractor/internal/imaging"
	"github.com/bankdocs/contract-extractor/internal/ocr"
	"github.com/bankdocs/contract-extractor/internal/quality"
)

const (
	// MinDirectChars is the minimum count of non-whitespace characters
	// for direct extraction to be accepted without OCR.
	MinDirectChars = 25

	// MinOCRDPI is the rasterization floor. Configured DPI below this
	// is raised; recognition accuracy collapses under 300.
	MinOCRDPI = 300

	// DefaultMaxPages caps how many pages of a document are processed.
	DefaultMaxPages = 10
)

// ErrNoPages is returned when a document yields no processable pages.
var ErrNoPages = errors.New("document has no pages")

// Source is the document side of the pipeline. *pdf.Document satisfies
// it; tests substitute stubs.
type Source interface {
	PageCount() int
	Parseable() bool
	DirectText(ctx context.Context, page int) (string, error)
	RenderPage(ctx context.Context, page, dpi int) (image.Image, error)
	RenderAll(ctx context.Context, dpi, maxPages int) ([]image.Image, error)
}

// Recognizer is the OCR side of the pipeline. *ocr.Invoker satisfies it.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, mode ocr.PreprocessMode) string
}

// Options control a single document run.
type Options struct {
	// DPI is the requested rasterization density; raised to MinOCRDPI.
	DPI int
	// MaxPages caps processing; 0 means DefaultMaxPages.
	MaxPages int
	// ForceOCR skips direct extraction entirely.
	ForceOCR bool
	// Strong runs the full preprocessing chain on the first OCR pass
	// instead of keeping it in reserve for the retry.
	Strong bool
	// Quality overrides the corruption heuristic; zero value means the
	// deployed default.
	Quality *quality.Config
}

func (o Options) dpi() int {
	if o.DPI > MinOCRDPI {
		return o.DPI
	}
	return MinOCRDPI
}

func (o Options) maxPages() int {
	if o.MaxPages > 0 {
		return o.MaxPages
	}
	return DefaultMaxPages
}

func (o Options) quality() quality.Config {
	if o.Quality != nil {
		return *o.Quality
	}
	return quality.DefaultConfig()
}

// Orchestrator runs the page pipeline over a document.
type Orchestrator struct {
	rec Recognizer
	log *slog.Logger
}

func NewOrchestrator(rec Recognizer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{rec: rec, log: logger}
}

// Run extracts text from every page of the document, up to the page
// cap. Page failures are contained: a failing page contributes an empty
// body under its marker and processing continues. Run fails only when
// the document produces no pages at all or the context is cancelled.
func (p *Orchestrator) Run(ctx context.Context, src Source, opts Options) (*Result, error) {
	if !src.Parseable() {
		return p.runRasterOnly(ctx, src, opts)
	}

	total := src.PageCount()
	if total <= 0 {
		return nil, ErrNoPages
	}
	n := total
	if limit := opts.maxPages(); n > limit {
		p.log.Warn("pipeline.pages.truncated", "total", total, "limit", limit)
		n = limit
	}

	res := &Result{Pages: make([]PageResult, 0, n), Truncated: n < total}
	for page := 1; page <= n; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pr := p.runPage(ctx, src, page, opts)
		res.Pages = append(res.Pages, pr)
		// Page rasters are large; release them before the next page.
		runtime.GC()
	}
	return res, nil
}

// runRasterOnly handles documents the primary reader rejected: every
// page is rasterized in one pass and recognized, with no direct-text
// attempt.
func (p *Orchestrator) runRasterOnly(ctx context.Context, src Source, opts Options) (*Result, error) {
	p.log.Warn("pipeline.document.unparseable", "mode", "raster-only")

	imgs, err := src.RenderAll(ctx, opts.dpi(), opts.maxPages())
	if err != nil {
		return nil, fmt.Errorf("rasterize document: %w", err)
	}
	if len(imgs) == 0 {
		return nil, ErrNoPages
	}

	res := &Result{Pages: make([]PageResult, 0, len(imgs))}
	for i, img := range imgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := i + 1
		pr := PageResult{Page: page, Method: MethodEmpty}
		text := p.recognize(ctx, img, opts)
		if strings.TrimSpace(text) != "" {
			pr.Method = MethodOCR
			pr.Text = text
		}
		res.Pages = append(res.Pages, pr)
		imgs[i] = nil
		runtime.GC()
	}
	return res, nil
}

// runPage extracts one page, absorbing panics and page-local errors.
func (p *Orchestrator) runPage(ctx context.Context, src Source, page int, opts Options) (pr PageResult) {
	pr = PageResult{Page: page, Method: MethodEmpty}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline.page.panic", "page", page, "panic", r)
			pr = PageResult{Page: page, Method: MethodEmpty, Err: fmt.Errorf("page %d: panic: %v", page, r)}
		}
	}()

	if !opts.ForceOCR {
		text, err := src.DirectText(ctx, page)
		if err != nil {
			p.log.Warn("pipeline.page.direct_failed", "page", page, "error", err)
		} else if nonWhitespace(text) >= MinDirectChars && !quality.Corrupted(text, opts.quality()) {
			p.log.Debug("pipeline.page.direct", "page", page, "chars", len(text))
			pr.Method = MethodDirect
			pr.Text = strings.TrimSpace(text)
			return pr
		}
	}

	raster, err := src.RenderPage(ctx, page, opts.dpi())
	if err != nil {
		p.log.Warn("pipeline.page.render_failed", "page", page, "error", err)
		pr.Err = fmt.Errorf("page %d: %w", page, err)
		return pr
	}

	text := p.recognize(ctx, raster, opts)

	// One retry with the full enhancement chain on the same raster,
	// only when the first pass produced nothing. Any non-empty result,
	// however poor, is kept as-is.
	if !opts.Strong && strings.TrimSpace(text) == "" {
		p.log.Info("pipeline.page.retry_strong", "page", page)
		enhanced := imaging.Preprocess(raster, true)
		text = p.rec.Recognize(ctx, enhanced, ocr.PreprocessNone)
	}

	if strings.TrimSpace(text) == "" {
		p.log.Warn("pipeline.page.empty", "page", page)
		return pr
	}
	pr.Method = MethodOCR
	pr.Text = strings.TrimSpace(text)
	return pr
}

func (p *Orchestrator) recognize(ctx context.Context, img image.Image, opts Options) string {
	mode := ocr.PreprocessAuto
	if opts.Strong {
		mode = ocr.PreprocessStrong
	}
	return p.rec.Recognize(ctx, img, mode)
}

func nonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
