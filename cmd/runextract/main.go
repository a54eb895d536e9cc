// runextract is a one-shot CLI: it takes a PDF path, runs the page
// pipeline and prints the extracted text, optionally followed by the
// contract fields from the LLM.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bankdocs/contract-extractor/internal/common"
	"github.com/bankdocs/contract-extractor/internal/llm"
	"github.com/bankdocs/contract-extractor/internal/llm/openai"
	"github.com/bankdocs/contract-extractor/internal/ocr"
	"github.com/bankdocs/contract-extractor/internal/pdf"
	"github.com/bankdocs/contract-extractor/internal/pipeline"
)

func main() {
	var (
		dpi      = flag.Int("dpi", 300, "rasterization DPI for OCR pages")
		maxPages = flag.Int("max-pages", 10, "maximum pages to process")
		forceOCR = flag.Bool("force-ocr", false, "skip direct text extraction")
		strong   = flag.Bool("strong", false, "always use the strong preprocessing chain")
		fields   = flag.Bool("fields", false, "also extract contract fields via the LLM")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: runextract [flags] <file.pdf>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read input", "path", path, "error", err)
		os.Exit(1)
	}

	cfg, err := common.LoadConfig("")
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	engine, err := ocr.SharedEngine(ocr.EngineConfig{
		Languages:   cfg.OCR.Languages,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)
	if err != nil {
		logger.Error("ocr engine init", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	doc, err := pdf.Open(ctx, raw,
		pdf.Config{Pdftotext: cfg.OCR.Pdftotext, Pdftoppm: cfg.OCR.Pdftoppm}, nil, logger)
	if err != nil {
		logger.Error("open document", "error", err)
		os.Exit(1)
	}
	defer doc.Close()

	orch := pipeline.NewOrchestrator(ocr.NewInvoker(engine, logger), logger)
	start := time.Now()
	res, err := orch.Run(ctx, doc, pipeline.Options{
		DPI:      *dpi,
		MaxPages: *maxPages,
		ForceOCR: *forceOCR,
		Strong:   *strong,
	})
	if err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	text := res.Text()
	fmt.Println(text)
	logger.Info("extraction ok",
		"pages", len(res.Pages),
		"direct", res.DirectPages(),
		"ocr", res.OCRPages(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if !*fields {
		return
	}

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	_, rawJSON, err := client.ExtractFields(ctx, llm.ExtractRequest{
		Text:         text,
		FilenameHint: filepath.Base(path),
	})
	if err != nil {
		logger.Error("field extraction failed", "error", err)
		os.Exit(1)
	}

	var pretty map[string]any
	if err := json.Unmarshal(rawJSON, &pretty); err == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Println(string(rawJSON))
	}
}
