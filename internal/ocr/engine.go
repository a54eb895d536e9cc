// Package ocr wraps the recognition engine and turns its raw output
// into page text. Engines report results in one of two shapes: already
// assembled lines with confidences, or raw box detections that must be
// reconstructed into lines and words geometrically.
package ocr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
)

// ConfidenceThreshold drops recognized fragments at or below this
// confidence before assembly.
const ConfidenceThreshold = 0.5

// Point is a pixel coordinate in image space.
type Point struct {
	X, Y float64
}

// Detection is one recognized fragment: its bounding polygon, the
// recognized string and a confidence in [0,1].
type Detection struct {
	Polygon    []Point
	Text       string
	Confidence float64
}

// Line is an engine-assembled text line with its confidence.
type Line struct {
	Text       string
	Confidence float64
}

// OutputKind tags which shape of result an engine produced.
type OutputKind int

const (
	// KindLines: Output.Lines holds assembled lines with confidences.
	KindLines OutputKind = iota
	// KindDetections: Output.Detections holds raw boxes to reconstruct.
	KindDetections
)

// Output is the tagged union of the two engine response shapes. Exactly
// one of Lines/Detections is meaningful, selected by Kind.
type Output struct {
	Kind       OutputKind
	Lines      []Line
	Detections []Detection
}

// Engine is the recognition provider contract.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (Output, error)
}

// EngineConfig configures the shared Tesseract engine.
type EngineConfig struct {
	Languages   []string
	TessdataDir string
}

// ErrEngineUnavailable is returned when the engine cannot be
// constructed. It is fatal to the run: no page can be recognized.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

var (
	engineOnce sync.Once
	engine     Engine
	engineErr  error
)

// SharedEngine returns the process-wide recognition engine, constructing
// it on first use. Construction is expensive (model load) and must not
// repeat per page; the sync.Once also makes first use safe when the
// server runs more than one worker. The configuration of the first
// caller wins.
func SharedEngine(cfg EngineConfig, logger *slog.Logger) (Engine, error) {
	engineOnce.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("initializing ocr engine", "languages", cfg.Languages)
		e, err := newTesseractEngine(cfg)
		if err != nil {
			logger.Error("ocr engine init failed", "error", err)
			engineErr = errors.Join(ErrEngineUnavailable, err)
			return
		}
		engine = e
		logger.Info("ocr engine ready", "engine", e.Name())
	})
	return engine, engineErr
}
