package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// tesseractEngine adapts a long-lived gosseract client to Engine. The
// client is not safe for concurrent use, so calls are serialized; the
// handle itself is read-only after construction.
type tesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func newTesseractEngine(cfg EngineConfig) (*tesseractEngine, error) {
	c := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataDir); err != nil {
			c.Close()
			return nil, fmt.Errorf("set tessdata dir: %w", err)
		}
	}
	if len(cfg.Languages) > 0 {
		if err := c.SetLanguage(cfg.Languages...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	return &tesseractEngine{client: c}, nil
}

func (e *tesseractEngine) Name() string { return "tesseract" }

// Recognize runs detection+recognition on the prepared image. Line
// boxes are preferred (engine already assembled them); when the engine
// yields none, word boxes are returned as raw detections for geometric
// reconstruction.
func (e *tesseractEngine) Recognize(ctx context.Context, img image.Image) (Output, error) {
	select {
	case <-ctx.Done():
		return Output{}, ctx.Err()
	default:
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Output{}, fmt.Errorf("encode image: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Output{}, fmt.Errorf("set image: %w", err)
	}

	if lines, err := e.lineBoxes(); err == nil && len(lines) > 0 {
		return Output{Kind: KindLines, Lines: lines}, nil
	}

	dets, err := e.wordBoxes()
	if err != nil {
		return Output{}, err
	}
	return Output{Kind: KindDetections, Detections: dets}, nil
}

func (e *tesseractEngine) lineBoxes() ([]Line, error) {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("line boxes: %w", err)
	}
	lines := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, Line{Text: text, Confidence: b.Confidence / 100.0})
	}
	return lines, nil
}

func (e *tesseractEngine) wordBoxes() ([]Detection, error) {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("word boxes: %w", err)
	}
	dets := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		r := b.Box
		dets = append(dets, Detection{
			Polygon: []Point{
				{float64(r.Min.X), float64(r.Min.Y)},
				{float64(r.Max.X), float64(r.Min.Y)},
				{float64(r.Max.X), float64(r.Max.Y)},
				{float64(r.Min.X), float64(r.Max.Y)},
			},
			Text:       b.Word,
			Confidence: b.Confidence / 100.0,
		})
	}
	return dets, nil
}
