package ocr

import (
	"context"
	"image"
	"log/slog"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/bankdocs/contract-extractor/internal/imaging"
)

const (
	// MaxImageDim caps either raster dimension before recognition;
	// larger pages are downscaled isotropically.
	MaxImageDim = 2200

	// autoStrongPixels is the pixel count above which automatic
	// preprocessing switches to the strong chain. High-resolution
	// rasters usually come from the retry path where contrast work
	// pays off.
	autoStrongPixels = 1800 * 1800
)

// PreprocessMode selects how the invoker prepares a raster before
// recognition.
type PreprocessMode int

const (
	// PreprocessAuto cleans the raster, choosing the strong chain for
	// large images.
	PreprocessAuto PreprocessMode = iota
	// PreprocessStrong always runs the full enhancement chain.
	PreprocessStrong
	// PreprocessNone passes the raster through untouched. Used when the
	// caller already preprocessed it.
	PreprocessNone
)

// Invoker turns a page raster into text via the recognition engine. It
// owns preprocessing, size capping and the decoding of both engine
// output shapes. Engine failures degrade to an empty page rather than
// failing the document.
type Invoker struct {
	engine Engine
	log    *slog.Logger
}

func NewInvoker(engine Engine, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{engine: engine, log: logger}
}

// Recognize runs the full raster-to-text path. The returned string is
// empty when the page has no recognizable text or the engine failed.
func (inv *Invoker) Recognize(ctx context.Context, img image.Image, mode PreprocessMode) string {
	switch mode {
	case PreprocessStrong:
		img = imaging.Preprocess(img, true)
	case PreprocessAuto:
		b := img.Bounds()
		img = imaging.Preprocess(img, b.Dx()*b.Dy() > autoStrongPixels)
	}

	img = capSize(img)

	start := time.Now()
	out, err := inv.engine.Recognize(ctx, img)
	if err != nil {
		inv.log.Warn("ocr.recognize.failed",
			"engine", inv.engine.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return ""
	}

	text := decode(out)
	inv.log.Debug("ocr.recognize.done",
		"engine", inv.engine.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(text))
	return text
}

// decode flattens either engine output shape into page text.
func decode(out Output) string {
	switch out.Kind {
	case KindLines:
		parts := make([]string, 0, len(out.Lines))
		for _, l := range out.Lines {
			if l.Confidence > ConfidenceThreshold && strings.TrimSpace(l.Text) != "" {
				parts = append(parts, l.Text)
			}
		}
		return strings.Join(parts, "\n")

	case KindDetections:
		kept := out.Detections[:0:0]
		for _, d := range out.Detections {
			if d.Confidence > ConfidenceThreshold && strings.TrimSpace(d.Text) != "" {
				kept = append(kept, d)
			}
		}
		if lines := Reconstruct(kept); len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
		// Geometry was unusable; fall back to raw token order.
		parts := make([]string, 0, len(kept))
		for _, d := range kept {
			parts = append(parts, d.Text)
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// capSize downscales so that neither dimension exceeds MaxImageDim.
func capSize(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= MaxImageDim && h <= MaxImageDim {
		return img
	}
	scale := float64(MaxImageDim) / float64(w)
	if h > w {
		scale = float64(MaxImageDim) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
