package pdf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenRejectsNonPDF(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("PK\x03\x04 zip archive"),
		[]byte("JVBERi0xLjQ="), // base64 of %PDF-1.4, not raw bytes
	}
	for _, raw := range inputs {
		_, err := Open(context.Background(), raw, Config{}, &stubRunner{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if !errors.Is(err, ErrNotPDF) {
			t.Errorf("Open(%q) err = %v, want ErrNotPDF", raw, err)
		}
	}
}

func TestOpenDamagedPDFIsOCROnly(t *testing.T) {
	doc := openTestDoc(t, &stubRunner{})
	if doc.Parseable() {
		t.Fatalf("garbage body must not be parseable")
	}
	if doc.PageCount() != 0 {
		t.Fatalf("unparseable document must report 0 pages, got %d", doc.PageCount())
	}
}

func TestCloseRemovesStagedFile(t *testing.T) {
	doc, err := Open(context.Background(), []byte("%PDF-1.4\nbody"), Config{}, &stubRunner{},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	dir := filepath.Dir(doc.path)
	if err := doc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("staging dir still present after Close")
	}
	// Second close is a no-op.
	if err := doc.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}
