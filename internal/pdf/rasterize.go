package pdf

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
)

// RenderPage rasterizes a single 1-based page at the given DPI.
func (d *Document) RenderPage(ctx context.Context, page, dpi int) (image.Image, error) {
	tmp, err := d.tmpDir("raster-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	p := fmt.Sprint(page)
	prefix := filepath.Join(tmp, "page")
	// pdftoppm -f n -l n -r dpi -png -singlefile <doc> <prefix>
	_, errb, err := d.runner.Run(ctx, d.cfg.Pdftoppm,
		"-f", p, "-l", p, "-r", fmt.Sprint(dpi), "-png", "-singlefile", d.path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w (%s)", page, err, truncate(string(errb), 512))
	}

	return decodePNGFile(prefix + ".png")
}

// RenderAll rasterizes up to maxPages pages at the given DPI without
// consulting the page count, for documents the primary reader rejected.
// pdftoppm runs once and the generated files are collected in order.
func (d *Document) RenderAll(ctx context.Context, dpi, maxPages int) ([]image.Image, error) {
	tmp, err := d.tmpDir("raster-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	prefix := filepath.Join(tmp, "page")
	args := []string{"-r", fmt.Sprint(dpi), "-png"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", fmt.Sprint(maxPages))
	}
	args = append(args, d.path, prefix)
	if _, errb, err := d.runner.Run(ctx, d.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if maxPages > 0 && len(matches) > maxPages {
		matches = matches[:maxPages]
	}

	imgs := make([]image.Image, 0, len(matches))
	for _, m := range matches {
		img, err := decodePNGFile(m)
		if err != nil {
			d.log.Warn("skipping undecodable page image", "file", filepath.Base(m), "error", err)
			continue
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

func decodePNGFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}
	return img, nil
}
