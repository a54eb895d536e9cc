package pdf

import (
	"context"
	"encoding/xml"
	"fmt"
	"math"
	"sort"
	"strings"
)

// TextBlock is one geometric text block from the page's content stream.
// Coordinates are in PDF points with the origin at the top-left.
type TextBlock struct {
	X0, Y0, X1, Y1 float64
	Text           string
}

// bboxDoc mirrors the XML emitted by pdftotext -bbox-layout.
type bboxDoc struct {
	XMLName xml.Name   `xml:"html"`
	Pages   []bboxPage `xml:"body>doc>page"`
}

type bboxPage struct {
	Flows []bboxFlow `xml:"flow"`
}

type bboxFlow struct {
	Blocks []bboxBlock `xml:"block"`
}

type bboxBlock struct {
	XMin  float64    `xml:"xMin,attr"`
	YMin  float64    `xml:"yMin,attr"`
	XMax  float64    `xml:"xMax,attr"`
	YMax  float64    `xml:"yMax,attr"`
	Lines []bboxLine `xml:"line"`
}

type bboxLine struct {
	Words []bboxWord `xml:"word"`
}

type bboxWord struct {
	Text string `xml:",chardata"`
}

// DirectText returns the page's text in reading order, or "" when the
// content stream yields nothing extractable. Blocks are sorted
// top-to-bottom then left-to-right; coordinates are rounded to two
// decimals first so float jitter cannot reorder visually aligned blocks.
func (d *Document) DirectText(ctx context.Context, page int) (string, error) {
	blocks, err := d.textBlocks(ctx, page)
	if err != nil {
		// Geometry unavailable; the linear extraction below still may work.
		d.log.Debug("bbox extraction failed", "page", page, "error", err)
	}

	kept := blocks[:0]
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) != "" {
			kept = append(kept, b)
		}
	}
	SortReadingOrder(kept)

	parts := make([]string, 0, len(kept))
	for _, b := range kept {
		parts = append(parts, strings.TrimSpace(b.Text))
	}
	text := strings.Join(parts, "\n")

	if strings.TrimSpace(text) == "" {
		return d.plainText(ctx, page)
	}
	return text, nil
}

// SortReadingOrder orders blocks by (rounded top, rounded left).
func SortReadingOrder(blocks []TextBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		yi, yj := round2(blocks[i].Y0), round2(blocks[j].Y0)
		if yi != yj {
			return yi < yj
		}
		return round2(blocks[i].X0) < round2(blocks[j].X0)
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// textBlocks runs pdftotext -bbox-layout for a single page and flattens
// the block/line/word tree into TextBlocks.
func (d *Document) textBlocks(ctx context.Context, page int) ([]TextBlock, error) {
	p := fmt.Sprint(page)
	out, _, err := d.runner.Run(ctx, d.cfg.Pdftotext,
		"-f", p, "-l", p, "-bbox-layout", "-enc", "UTF-8", d.path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext bbox: %w", err)
	}

	var doc bboxDoc
	if err := xml.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("decode bbox xml: %w", err)
	}

	var blocks []TextBlock
	for _, pg := range doc.Pages {
		for _, fl := range pg.Flows {
			for _, bl := range fl.Blocks {
				lines := make([]string, 0, len(bl.Lines))
				for _, ln := range bl.Lines {
					words := make([]string, 0, len(ln.Words))
					for _, w := range ln.Words {
						if t := strings.TrimSpace(w.Text); t != "" {
							words = append(words, t)
						}
					}
					if len(words) > 0 {
						lines = append(lines, strings.Join(words, " "))
					}
				}
				blocks = append(blocks, TextBlock{
					X0:   bl.XMin,
					Y0:   bl.YMin,
					X1:   bl.XMax,
					Y1:   bl.YMax,
					Text: strings.Join(lines, "\n"),
				})
			}
		}
	}
	return blocks, nil
}

// plainText is the linear fallback when no geometric blocks exist.
func (d *Document) plainText(ctx context.Context, page int) (string, error) {
	p := fmt.Sprint(page)
	out, _, err := d.runner.Run(ctx, d.cfg.Pdftotext,
		"-f", p, "-l", p, "-layout", "-enc", "UTF-8", "-eol", "unix", d.path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return strings.TrimSpace(strings.ReplaceAll(string(out), "\f", "")), nil
}
