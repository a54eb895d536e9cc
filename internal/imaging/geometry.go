package imaging

import (
	"image"
	"math"
	"sort"
)

type point struct {
	X, Y float64
}

// foregroundPoints collects candidate hull points from the non-background
// pixels of a grayscale page. Only the leftmost and rightmost foreground
// pixel of each row can be a convex-hull vertex, so two points per row
// are enough and the hull stays cheap even for 300-DPI pages.
func foregroundPoints(img *image.Gray, threshold uint8) []point {
	b := img.Bounds()
	pts := make([]point, 0, 2*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		left, right := -1, -1
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()]
		for x, v := range row {
			if v < threshold {
				if left < 0 {
					left = x
				}
				right = x
			}
		}
		if left >= 0 {
			pts = append(pts, point{float64(left), float64(y - b.Min.Y)})
			if right != left {
				pts = append(pts, point{float64(right), float64(y - b.Min.Y)})
			}
		}
	}
	return pts
}

// convexHull returns the hull in counter-clockwise order (monotone chain).
func convexHull(pts []point) []point {
	if len(pts) < 3 {
		return pts
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	cross := func(o, a, b point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// minAreaRectAngle computes the orientation of the minimal-area bounding
// rectangle of the points, folded into [-45, 45) degrees. Rotating the
// image by the negative of this angle deskews it. Returns 0 when there
// are too few points to orient.
func minAreaRectAngle(pts []point) float64 {
	if len(pts) < 10 {
		return 0
	}
	hull := convexHull(pts)
	if len(hull) < 3 {
		return 0
	}

	best := math.Inf(1)
	bestTheta := 0.0
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		ux, uy := dx/length, dy/length // edge direction
		vx, vy := -uy, ux              // edge normal

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			u := p.X*ux + p.Y*uy
			v := p.X*vx + p.Y*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		area := (maxU - minU) * (maxV - minV)
		if area < best {
			best = area
			bestTheta = math.Atan2(dy, dx) * 180 / math.Pi
		}
	}

	return foldAngle(bestTheta)
}

// foldAngle reduces a rectangle-edge angle to the equivalent skew in
// [-45, 45): rectangle edges repeat every 90 degrees, and a tilt past
// 45 degrees is better corrected by rotating toward the perpendicular.
func foldAngle(theta float64) float64 {
	theta = math.Mod(theta, 90)
	if theta >= 45 {
		theta -= 90
	} else if theta < -45 {
		theta += 90
	}
	return theta
}

// rotateGray rotates the image by angle degrees around its center with
// bilinear sampling. Samples outside the source replicate the border,
// matching the replicated-border warp used for scans.
func rotateGray(src *image.Gray, angle float64) *image.Gray {
	if angle == 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	rad := angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx, cy := float64(w)/2, float64(h)/2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Inverse mapping: destination pixel -> source location.
			dx := float64(x) - cx
			dy := float64(y) - cy
			sx := cos*dx + sin*dy + cx
			sy := -sin*dx + cos*dy + cy
			dst.Pix[y*dst.Stride+x] = sampleBilinear(src, sx, sy)
		}
	}
	return dst
}

func sampleBilinear(img *image.Gray, x, y float64) uint8 {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	at := func(xi, yi int) float64 {
		xi = clampInt(xi, 0, w-1)
		yi = clampInt(yi, 0, h-1)
		return float64(img.Pix[yi*img.Stride+xi])
	}

	top := at(x0, y0)*(1-fx) + at(x0+1, y0)*fx
	bot := at(x0, y0+1)*(1-fx) + at(x0+1, y0+1)*fx
	v := top*(1-fy) + bot*fy
	return uint8(math.Round(math.Min(255, math.Max(0, v))))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
