package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// fillRotatedRect paints a filled rectangle rotated by angle degrees
// about the image center.
func fillRotatedRect(g *image.Gray, w, h int, angle float64) {
	b := g.Bounds()
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	rad := angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			// Rotate back into the axis-aligned frame.
			dx, dy := float64(x)-cx, float64(y)-cy
			u := dx*cos + dy*sin
			v := -dx*sin + dy*cos
			if math.Abs(u) <= float64(w)/2 && math.Abs(v) <= float64(h)/2 {
				g.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
}

func invert(g *image.Gray) {
	for i, v := range g.Pix {
		g.Pix[i] = 255 - v
	}
}

func TestMinAreaRectAngleOfRotatedRect(t *testing.T) {
	for _, want := range []float64{-8, -3, 4, 11} {
		g := image.NewGray(image.Rect(0, 0, 400, 400))
		fillRotatedRect(g, 240, 80, want)
		invert(g) // rect becomes ink on white paper

		pts := foregroundPoints(g, foregroundThreshold)
		if len(pts) < 10 {
			t.Fatalf("angle %v: too few foreground points (%d)", want, len(pts))
		}
		got := minAreaRectAngle(pts)
		if math.Abs(got-want) > 1.5 {
			t.Errorf("minAreaRectAngle = %.2f, want %.2f±1.5", got, want)
		}
	}
}

func TestMinAreaRectAngleAxisAligned(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 200, 200))
	fillRotatedRect(g, 120, 40, 0)
	invert(g)

	pts := foregroundPoints(g, foregroundThreshold)
	if got := minAreaRectAngle(pts); math.Abs(got) > 0.5 {
		t.Fatalf("axis-aligned rect should yield ~0, got %.2f", got)
	}
}

func TestFoldAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{30, 30},
		{-30, -30},
		{80, -10},  // past -45 folds to the complementary axis
		{-80, 10},
		{90, 0},
	}
	for _, c := range cases {
		if got := foldAngle(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("foldAngle(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestForegroundPointsIgnoresWhite(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	if pts := foregroundPoints(g, foregroundThreshold); len(pts) != 0 {
		t.Fatalf("blank page must have no foreground points, got %d", len(pts))
	}
}

func TestRotateGrayPreservesDimensions(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 120, 80))
	out := rotateGray(g, 7)
	if out.Bounds() != g.Bounds() {
		t.Fatalf("rotation changed bounds: %v -> %v", g.Bounds(), out.Bounds())
	}
}
