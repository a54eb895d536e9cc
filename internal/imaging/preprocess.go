// Package imaging prepares rasterized pages for OCR. The steps mirror a
// conventional scan-cleanup chain: grayscale, upscale small pages,
// deskew, median denoise, and in strong mode local contrast enhancement
// plus unsharp masking. All operations are deterministic.
package imaging

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

const (
	// TargetWidth is the minimum working width; narrower pages are
	// upscaled isotropically before recognition.
	TargetWidth = 1800

	// foregroundThreshold separates ink from paper during deskew;
	// pure white (255) is background, everything below counts as ink.
	foregroundThreshold = 255

	// medianRadius is the half-size of the 3x3 denoise window.
	medianRadius = 1
)

// Preprocess normalizes a page raster for OCR. With strong=true the
// contrast/sharpness stage runs as well (slower, for poor scans).
func Preprocess(src image.Image, strong bool) image.Image {
	g := ToGray(src)

	if w := g.Bounds().Dx(); w > 0 && w < TargetWidth {
		scale := float64(TargetWidth) / float64(w)
		g = scaleGray(g, TargetWidth, int(math.Round(float64(g.Bounds().Dy())*scale)))
	}

	g = Deskew(g)
	g = medianBlur(g, medianRadius)

	if strong {
		g = CLAHE(g, claheTiles, claheClipLimit)
		g = Unsharp(g, unsharpSigma, unsharpAmount)
	}

	return grayToRGB(g)
}

// ToGray converts any image to single-channel grayscale.
func ToGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), src, b.Min, draw.Src)
	return g
}

// Deskew straightens a page by the orientation of the minimal bounding
// rectangle of its ink pixels. Pages with too little ink are returned
// unchanged.
func Deskew(g *image.Gray) *image.Gray {
	pts := foregroundPoints(g, foregroundThreshold)
	if len(pts) < 10 {
		return g
	}
	angle := minAreaRectAngle(pts)
	if angle == 0 {
		return g
	}
	return rotateGray(g, -angle)
}

// scaleGray resizes with Catmull-Rom interpolation (smooth, no ringing
// on text edges).
func scaleGray(g *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), g, g.Bounds(), xdraw.Src, nil)
	return dst
}

// medianBlur applies a (2r+1)x(2r+1) median filter with replicated
// borders to suppress salt-and-pepper scan noise.
func medianBlur(g *image.Gray, r int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	side := 2*r + 1
	window := make([]uint8, 0, side*side)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -r; dy <= r; dy++ {
				yy := clampInt(y+dy, 0, h-1)
				for dx := -r; dx <= r; dx++ {
					xx := clampInt(x+dx, 0, w-1)
					window = append(window, g.Pix[yy*g.Stride+xx])
				}
			}
			dst.Pix[y*dst.Stride+x] = medianOf(window)
		}
	}
	return dst
}

// medianOf sorts in place (tiny windows, insertion sort).
func medianOf(v []uint8) uint8 {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
	return v[len(v)/2]
}

// grayToRGB expands back to three channels for OCR engines that expect
// color input.
func grayToRGB(g *image.Gray) *image.RGBA {
	b := g.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := g.Pix[y*g.Stride+x]
			i := y*dst.Stride + x*4
			dst.Pix[i] = v
			dst.Pix[i+1] = v
			dst.Pix[i+2] = v
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}
