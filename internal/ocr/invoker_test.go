package ocr

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"
)

type stubEngine struct {
	out     Output
	err     error
	lastImg image.Image
}

func (s *stubEngine) Name() string { return "stub" }
func (s *stubEngine) Recognize(_ context.Context, img image.Image) (Output, error) {
	s.lastImg = img
	return s.out, s.err
}

func newTestInvoker(e Engine) *Invoker {
	return NewInvoker(e, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func smallImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 40, 40))
}

func TestRecognizeLineOutputFiltersConfidence(t *testing.T) {
	eng := &stubEngine{out: Output{Kind: KindLines, Lines: []Line{
		{Text: "КОНТРАКТ № 7", Confidence: 0.93},
		{Text: "noise", Confidence: 0.31},
		{Text: "Дата: 2023-01-10", Confidence: 0.88},
		{Text: "   ", Confidence: 0.99},
	}}}
	got := newTestInvoker(eng).Recognize(context.Background(), smallImage(), PreprocessNone)
	want := "КОНТРАКТ № 7\nДата: 2023-01-10"
	if got != want {
		t.Fatalf("Recognize = %q, want %q", got, want)
	}
}

func TestRecognizeDetectionOutputReconstructed(t *testing.T) {
	eng := &stubEngine{out: Output{Kind: KindDetections, Detections: []Detection{
		{Polygon: []Point{{120, 0}, {180, 0}, {180, 20}, {120, 20}}, Text: "№45", Confidence: 0.9},
		{Polygon: []Point{{0, 2}, {100, 2}, {100, 22}, {0, 22}}, Text: "КОНТРАКТ", Confidence: 0.8},
		{Polygon: []Point{{0, 60}, {80, 60}, {80, 80}, {0, 80}}, Text: "skipped", Confidence: 0.2},
	}}}
	got := newTestInvoker(eng).Recognize(context.Background(), smallImage(), PreprocessNone)
	want := "КОНТРАКТ №45"
	if got != want {
		t.Fatalf("Recognize = %q, want %q", got, want)
	}
}

func TestRecognizeEngineFailureYieldsEmpty(t *testing.T) {
	eng := &stubEngine{err: errors.New("tesseract crashed")}
	if got := newTestInvoker(eng).Recognize(context.Background(), smallImage(), PreprocessNone); got != "" {
		t.Fatalf("engine failure must yield empty text, got %q", got)
	}
}

func TestRecognizeCapsOversizedRaster(t *testing.T) {
	eng := &stubEngine{out: Output{Kind: KindLines}}
	big := image.NewRGBA(image.Rect(0, 0, 4400, 2200))
	newTestInvoker(eng).Recognize(context.Background(), big, PreprocessNone)

	b := eng.lastImg.Bounds()
	if b.Dx() > MaxImageDim || b.Dy() > MaxImageDim {
		t.Fatalf("raster not capped: %dx%d", b.Dx(), b.Dy())
	}
	if b.Dx() != MaxImageDim {
		t.Fatalf("long side should land on the cap, got %d", b.Dx())
	}
	// Aspect ratio is preserved.
	if b.Dy() != MaxImageDim/2 {
		t.Fatalf("short side should scale proportionally, got %d", b.Dy())
	}
}

func TestRecognizeSmallRasterNotScaled(t *testing.T) {
	eng := &stubEngine{out: Output{Kind: KindLines}}
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	newTestInvoker(eng).Recognize(context.Background(), img, PreprocessNone)
	if eng.lastImg != img {
		t.Fatalf("small raster must pass through untouched")
	}
}
