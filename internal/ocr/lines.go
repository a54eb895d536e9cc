package ocr

import (
	"math"
	"sort"
	"strings"
)

// Line-grouping constants. The tolerance adapts to the dominant glyph
// size on the page rather than using a fixed pixel value.
const (
	// LineToleranceMin is the floor, in pixels, of the vertical band
	// that keeps detections on one line.
	LineToleranceMin = 8.0
	// LineToleranceScale multiplies the median detection height to get
	// the adaptive tolerance.
	LineToleranceScale = 0.6
	// WordGapScale multiplies the median detection height to get the
	// horizontal gap at which a new word starts.
	WordGapScale = 0.7
)

// box is a detection reduced to the axis-aligned extents used for
// line/word assembly.
type box struct {
	text   string
	left   float64
	right  float64
	midY   float64
	height float64
}

// Reconstruct converts raw detections into readable line strings.
// Detections are sorted by (vertical center, left edge) and swept into
// lines: a detection joins the current line while its vertical center
// stays within tolerance of the line's running average center, which is
// updated as members join so a slowly drifting skew is tracked. Members
// of a closed line are re-sorted by left edge and merged into words.
func Reconstruct(dets []Detection) []string {
	boxes := make([]box, 0, len(dets))
	for _, d := range dets {
		b, ok := toBox(d)
		if ok {
			boxes = append(boxes, b)
		}
	}
	if len(boxes) == 0 {
		return nil
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].midY != boxes[j].midY {
			return boxes[i].midY < boxes[j].midY
		}
		return boxes[i].left < boxes[j].left
	})

	medianH := medianHeight(boxes)
	tol := math.Max(LineToleranceMin, medianH*LineToleranceScale)

	var lines []string
	current := []box{boxes[0]}
	curY := boxes[0].midY

	for _, b := range boxes[1:] {
		if math.Abs(b.midY-curY) <= tol {
			current = append(current, b)
			curY = (curY*float64(len(current)-1) + b.midY) / float64(len(current))
		} else {
			lines = append(lines, mergeWords(current, medianH))
			current = []box{b}
			curY = b.midY
		}
	}
	lines = append(lines, mergeWords(current, medianH))
	return lines
}

// mergeWords joins a line's members into words: neighbors closer than
// WordGapScale of the median height are glued without a space, wider
// gaps separate words.
func mergeWords(boxes []box, medianH float64) string {
	if len(boxes) == 0 {
		return ""
	}
	sort.SliceStable(boxes, func(i, j int) bool { return boxes[i].left < boxes[j].left })

	var words []string
	word := boxes[0].text
	for i := 1; i < len(boxes); i++ {
		gap := boxes[i].left - boxes[i-1].right
		if gap > medianH*WordGapScale {
			words = append(words, word)
			word = boxes[i].text
		} else {
			word += boxes[i].text
		}
	}
	words = append(words, word)
	return strings.Join(words, " ")
}

func toBox(d Detection) (box, bool) {
	if len(d.Polygon) == 0 {
		return box{}, false
	}
	left, right := math.Inf(1), math.Inf(-1)
	top, bottom := math.Inf(1), math.Inf(-1)
	for _, p := range d.Polygon {
		left = math.Min(left, p.X)
		right = math.Max(right, p.X)
		top = math.Min(top, p.Y)
		bottom = math.Max(bottom, p.Y)
	}
	return box{
		text:   d.Text,
		left:   left,
		right:  right,
		midY:   (top + bottom) / 2,
		height: math.Max(1, bottom-top),
	}, true
}

func medianHeight(boxes []box) float64 {
	hs := make([]float64, len(boxes))
	for i, b := range boxes {
		hs[i] = b.height
	}
	sort.Float64s(hs)
	n := len(hs)
	if n%2 == 1 {
		return hs[n/2]
	}
	return (hs[n/2-1] + hs[n/2]) / 2
}
