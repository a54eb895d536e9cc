package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bankdocs/contract-extractor/internal/common"
	"github.com/bankdocs/contract-extractor/internal/export"
	"github.com/bankdocs/contract-extractor/internal/extract"
	"github.com/bankdocs/contract-extractor/internal/llm/openai"
	"github.com/bankdocs/contract-extractor/internal/ocr"
	"github.com/bankdocs/contract-extractor/internal/pdf"
	"github.com/bankdocs/contract-extractor/internal/pipeline"
	"github.com/bankdocs/contract-extractor/internal/repository"
	"github.com/bankdocs/contract-extractor/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := db.HealthCheck(ctx, 3*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
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

	jobs := repository.NewExtractJobRepository(db, logger)
	orch := pipeline.NewOrchestrator(ocr.NewInvoker(engine, logger), logger)
	extractor := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	proc := extract.NewProcessor(jobs, orch, extractor,
		pdf.Config{Pdftotext: cfg.OCR.Pdftotext, Pdftoppm: cfg.OCR.Pdftoppm},
		pipeline.Options{
			DPI:      cfg.Pipeline.DPI,
			MaxPages: cfg.Pipeline.MaxPages,
			ForceOCR: cfg.Pipeline.ForceOCR,
			Strong:   cfg.Pipeline.Strong,
		}, logger)

	queue := server.NewProcessorQueue(proc, logger,
		server.WithWorkers(cfg.Server.Workers),
		server.WithQueueSize(cfg.Server.QueueSize),
		server.WithProcessTimeout(cfg.Server.ProcessTimeout),
	)

	svc := server.NewService(jobs, queue, export.NewService(jobs, logger), db, logger)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
