package ocr

import (
	"reflect"
	"testing"
)

func rect(x0, y0, x1, y1 float64, text string) Detection {
	return Detection{
		Polygon: []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}},
		Text:    text,
	}
}

func TestReconstructTwoRows(t *testing.T) {
	dets := []Detection{
		rect(200, 100, 300, 120, "Дата"),
		rect(0, 10, 100, 30, "КОНТРАКТ"),
		rect(120, 12, 180, 32, "№45"),
	}
	got := Reconstruct(dets)
	want := []string{"КОНТРАКТ №45", "Дата"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reconstruct = %q, want %q", got, want)
	}
}

func TestReconstructWordGapMerging(t *testing.T) {
	// Median height 20; gap threshold 14. The first two fragments are
	// 2px apart (same word), the third is 40px away (new word).
	dets := []Detection{
		rect(0, 0, 50, 20, "Кон"),
		rect(52, 0, 100, 20, "тракт"),
		rect(140, 0, 200, 20, "№7"),
	}
	got := Reconstruct(dets)
	want := []string{"Контракт №7"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reconstruct = %q, want %q", got, want)
	}
}

func TestReconstructTracksDriftingBaseline(t *testing.T) {
	// Each box drifts 5px down; the running average keeps them on one
	// line while a fixed anchor would split them.
	dets := []Detection{
		rect(0, 0, 40, 20, "a"),
		rect(50, 5, 90, 25, "b"),
		rect(100, 10, 140, 30, "c"),
		rect(150, 15, 190, 35, "d"),
	}
	got := Reconstruct(dets)
	if len(got) != 1 {
		t.Fatalf("Reconstruct split drifting line: %q", got)
	}
}

func TestReconstructEmptyAndDegenerate(t *testing.T) {
	if got := Reconstruct(nil); got != nil {
		t.Fatalf("Reconstruct(nil) = %q, want nil", got)
	}
	if got := Reconstruct([]Detection{{Text: "x"}}); got != nil {
		t.Fatalf("detection without polygon must be skipped, got %q", got)
	}
}

func TestReconstructReordersWithinLine(t *testing.T) {
	// Same row, supplied right-to-left.
	dets := []Detection{
		rect(200, 0, 260, 20, "three"),
		rect(100, 1, 160, 21, "two"),
		rect(0, 2, 60, 22, "one"),
	}
	got := Reconstruct(dets)
	want := []string{"one two three"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reconstruct = %q, want %q", got, want)
	}
}
