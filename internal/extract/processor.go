// Package extract runs a complete extraction job: PDF staging, the page
// pipeline, persistence, and contract-field extraction.
package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bankdocs/contract-extractor/internal/common"
	"github.com/bankdocs/contract-extractor/internal/llm"
	"github.com/bankdocs/contract-extractor/internal/pdf"
	"github.com/bankdocs/contract-extractor/internal/pipeline"
	"github.com/bankdocs/contract-extractor/internal/repository"
)

// Processor drives one job end to end. It is safe for concurrent use;
// all mutable state lives in the job row.
type Processor struct {
	jobs      repository.ExtractJobRepository
	orch      *pipeline.Orchestrator
	extractor llm.FieldExtractor
	pdfCfg    pdf.Config
	opts      pipeline.Options
	log       *slog.Logger
}

func NewProcessor(
	jobs repository.ExtractJobRepository,
	orch *pipeline.Orchestrator,
	extractor llm.FieldExtractor,
	pdfCfg pdf.Config,
	opts pipeline.Options,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		jobs:      jobs,
		orch:      orch,
		extractor: extractor,
		pdfCfg:    pdfCfg,
		opts:      opts,
		log:       logger,
	}
}

// Process runs text extraction and field parsing for one uploaded
// document. Failures are persisted on the job row before returning.
func (p *Processor) Process(ctx context.Context, jobID uuid.UUID, filename string, raw []byte) error {
	start := time.Now()
	if err := p.jobs.MarkRunning(ctx, jobID); err != nil {
		return err
	}

	res, err := p.runPipeline(ctx, raw)
	if err != nil {
		p.fail(ctx, jobID, err)
		return err
	}

	text := res.Text()
	if err := p.jobs.FinishText(ctx, jobID, text, len(res.Pages), res.DirectPages(), res.OCRPages()); err != nil {
		return err
	}

	fields, rawJSON, err := p.extractor.ExtractFields(ctx, llm.ExtractRequest{
		Text:         text,
		FilenameHint: filename,
	})
	if err != nil {
		p.fail(ctx, jobID, common.WrapError(err, "field extraction"))
		return err
	}
	if err := p.jobs.FinishParse(ctx, jobID, rawJSON); err != nil {
		return err
	}

	p.log.Info("extract.job.done",
		"job_id", jobID,
		"pages", len(res.Pages),
		"pages_direct", res.DirectPages(),
		"pages_ocr", res.OCRPages(),
		"fields_empty", fields.Empty(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (p *Processor) runPipeline(ctx context.Context, raw []byte) (*pipeline.Result, error) {
	doc, err := pdf.Open(ctx, raw, p.pdfCfg, nil, p.log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			p.log.Warn("document cleanup failed", "error", err)
		}
	}()
	return p.orch.Run(ctx, doc, p.opts)
}

func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	if err := p.jobs.FinishFailure(ctx, jobID, cause.Error()); err != nil {
		p.log.Error("failed to persist job failure", "job_id", jobID, "error", err)
	}
}
