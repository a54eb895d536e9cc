package imaging

import (
	"image"
	"math"
)

const (
	// claheTiles is the grid size for local histogram equalization.
	claheTiles = 8
	// claheClipLimit bounds per-bin histogram counts relative to a
	// uniform distribution; excess is redistributed.
	claheClipLimit = 2.0
	// unsharpSigma is the Gaussian radius of the unsharp mask.
	unsharpSigma = 1.0
	// unsharpAmount scales the original in "amount*img - (amount-1)*blur".
	unsharpAmount = 1.5
)

// CLAHE performs contrast-limited adaptive histogram equalization on a
// tiles x tiles grid. Per-tile equalization mappings are computed from
// clipped histograms and pixels are remapped by bilinear interpolation
// between the four surrounding tile mappings, which avoids visible tile
// seams.
func CLAHE(g *image.Gray, tiles int, clipLimit float64) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < tiles || h < tiles {
		return g
	}

	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles

	// Per-tile lookup tables.
	luts := make([][256]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := minInt(x0+tileW, w), minInt(y0+tileH, h)

			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[g.Pix[y*g.Stride+x]]++
				}
			}

			n := (x1 - x0) * (y1 - y0)
			clip := int(clipLimit * float64(n) / 256)
			if clip < 1 {
				clip = 1
			}
			excess := 0
			for i := range hist {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			// Redistribute clipped mass evenly.
			add := excess / 256
			rem := excess % 256
			for i := range hist {
				hist[i] += add
				if i < rem {
					hist[i]++
				}
			}

			cum := 0
			scale := 255.0 / float64(n)
			for i := range hist {
				cum += hist[i]
				luts[ty*tiles+tx][i] = uint8(math.Round(float64(cum) * scale))
			}
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		// Tile-space coordinate of the pixel center.
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := clampInt(int(math.Floor(fy)), 0, tiles-1)
		ty1 := clampInt(ty0+1, 0, tiles-1)
		wy := fy - math.Floor(fy)
		if fy < 0 {
			wy = 0
		}

		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := clampInt(int(math.Floor(fx)), 0, tiles-1)
			tx1 := clampInt(tx0+1, 0, tiles-1)
			wx := fx - math.Floor(fx)
			if fx < 0 {
				wx = 0
			}

			v := g.Pix[y*g.Stride+x]
			top := float64(luts[ty0*tiles+tx0][v])*(1-wx) + float64(luts[ty0*tiles+tx1][v])*wx
			bot := float64(luts[ty1*tiles+tx0][v])*(1-wx) + float64(luts[ty1*tiles+tx1][v])*wx
			dst.Pix[y*dst.Stride+x] = uint8(math.Round(top*(1-wy) + bot*wy))
		}
	}
	return dst
}

// Unsharp sharpens edges by subtracting a scaled Gaussian blur:
// out = amount*src - (amount-1)*blur(src).
func Unsharp(g *image.Gray, sigma, amount float64) *image.Gray {
	blur := gaussianBlur(g, sigma)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := amount*float64(g.Pix[y*g.Stride+x]) - (amount-1)*float64(blur.Pix[y*blur.Stride+x])
			dst.Pix[y*dst.Stride+x] = uint8(math.Min(255, math.Max(0, math.Round(v))))
		}
	}
	return dst
}

// gaussianBlur applies a separable Gaussian kernel with replicated
// borders. Kernel radius is 3*sigma, the usual cutoff.
func gaussianBlur(g *image.Gray, sigma float64) *image.Gray {
	r := int(math.Ceil(3 * sigma))
	if r < 1 {
		r = 1
	}
	kernel := make([]float64, 2*r+1)
	sum := 0.0
	for i := -r; i <= r; i++ {
		kernel[i+r] = math.Exp(-float64(i*i) / (2 * sigma * sigma))
		sum += kernel[i+r]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	b := g.Bounds()
	w, h := b.Dx(), b.Dy()

	// Horizontal pass.
	tmp := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i := -r; i <= r; i++ {
				xx := clampInt(x+i, 0, w-1)
				acc += kernel[i+r] * float64(g.Pix[y*g.Stride+xx])
			}
			tmp.Pix[y*tmp.Stride+x] = uint8(math.Round(acc))
		}
	}
	// Vertical pass.
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i := -r; i <= r; i++ {
				yy := clampInt(y+i, 0, h-1)
				acc += kernel[i+r] * float64(tmp.Pix[yy*tmp.Stride+x])
			}
			dst.Pix[y*dst.Stride+x] = uint8(math.Round(acc))
		}
	}
	return dst
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
