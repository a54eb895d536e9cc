package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// stubRunner dispatches on the binary name and records calls.
type stubRunner struct {
	bbox  []byte
	plain []byte
	fail  map[string]error
	calls []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	if err, ok := s.fail[name]; ok {
		return nil, []byte("boom"), err
	}
	switch name {
	case "pdftotext":
		for _, a := range args {
			if a == "-bbox-layout" {
				return s.bbox, nil, nil
			}
		}
		return s.plain, nil, nil
	case "pdftoppm":
		// Write the PNG the caller expects at the prefix argument.
		prefix := args[len(args)-1]
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
			return nil, nil, err
		}
		if err := os.WriteFile(prefix+".png", buf.Bytes(), 0o600); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected binary %q", name)
}

const bboxFixture = `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<body>
<doc>
<page width="595" height="842">
  <flow>
    <block xMin="300.0" yMin="50.0" xMax="500.0" yMax="70.0">
      <line><word>Дата:</word><word>2023-01-10</word></line>
    </block>
    <block xMin="50.0" yMin="50.0" xMax="250.0" yMax="70.0">
      <line><word>КОНТРАКТ</word><word>№</word><word>45</word></line>
    </block>
    <block xMin="50.0" yMin="120.0" xMax="400.0" yMax="160.0">
      <line><word>Контрагент:</word><word>Xintai</word><word>Trading</word></line>
      <line><word>Страна:</word><word>Китай</word></line>
    </block>
  </flow>
</page>
</doc>
</body>
</html>`

func openTestDoc(t *testing.T, runner Runner) *Document {
	t.Helper()
	doc, err := Open(context.Background(), []byte("%PDF-1.4\nbogus"), Config{}, runner,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func TestDirectTextReadingOrder(t *testing.T) {
	runner := &stubRunner{bbox: []byte(bboxFixture)}
	doc := openTestDoc(t, runner)

	got, err := doc.DirectText(context.Background(), 1)
	if err != nil {
		t.Fatalf("direct text: %v", err)
	}
	want := "КОНТРАКТ № 45\nДата: 2023-01-10\nКонтрагент: Xintai Trading\nСтрана: Китай"
	if got != want {
		t.Fatalf("DirectText =\n%q\nwant\n%q", got, want)
	}
}

func TestDirectTextFallsBackToPlainLayout(t *testing.T) {
	runner := &stubRunner{
		bbox:  []byte(`<?xml version="1.0"?><html xmlns="x"><body><doc><page></page></doc></body></html>`),
		plain: []byte("linear page text\f"),
	}
	doc := openTestDoc(t, runner)

	got, err := doc.DirectText(context.Background(), 1)
	if err != nil {
		t.Fatalf("direct text: %v", err)
	}
	if got != "linear page text" {
		t.Fatalf("DirectText = %q, want plain fallback", got)
	}
}

func TestDirectTextToolFailure(t *testing.T) {
	runner := &stubRunner{fail: map[string]error{"pdftotext": errors.New("exit 1")}}
	doc := openTestDoc(t, runner)

	if _, err := doc.DirectText(context.Background(), 1); err == nil {
		t.Fatalf("expected error when both extraction paths fail")
	}
}

func TestRenderPageDecodesOutput(t *testing.T) {
	runner := &stubRunner{}
	doc := openTestDoc(t, runner)

	img, err := doc.RenderPage(context.Background(), 1, 300)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Fatalf("unexpected raster width %d", img.Bounds().Dx())
	}
	// The scratch directory must not outlive the call.
	entries, err := os.ReadDir(filepath.Dir(doc.path))
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			t.Fatalf("scratch dir %q left behind", e.Name())
		}
	}
}

func TestSortReadingOrderRoundsJitter(t *testing.T) {
	blocks := []TextBlock{
		{X0: 200, Y0: 50.004, Text: "right"},
		{X0: 50, Y0: 49.996, Text: "left"},
	}
	SortReadingOrder(blocks)
	if blocks[0].Text != "left" {
		t.Fatalf("sub-pixel jitter must not reorder aligned blocks: %+v", blocks)
	}
}
