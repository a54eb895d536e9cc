package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bankdocs/contract-extractor/constants"
	"github.com/bankdocs/contract-extractor/internal/common"
	"github.com/bankdocs/contract-extractor/internal/entity"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, filename string) (*entity.ExtractJob, error)
	MarkRunning(ctx context.Context, jobID uuid.UUID) error
	FinishText(ctx context.Context, jobID uuid.UUID, text string, pagesTotal, pagesDirect, pagesOCR int) error
	FinishParse(ctx context.Context, jobID uuid.UUID, extracted json.RawMessage) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	ListCompleted(ctx context.Context) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

const jobColumns = `id, filename, status, started_at, finished_at,
	pages_total, pages_direct, pages_ocr, text, extracted_json, error_message`

func (r *extractJobRepo) Start(ctx context.Context, filename string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    string(constants.JobStatusQueued),
		StartedAt: time.Now().UTC(),
	}
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extract_jobs (id, filename, status, started_at) VALUES (?, ?, ?, ?)`),
		job.ID.String(), job.Filename, job.Status, job.StartedAt)
	if err != nil {
		r.log.Error("extract_job start failed", "filename", filename, "err", err)
		return nil, common.WrapSentinel(common.ErrDatabase, "insert extract job", err)
	}
	r.log.Info("extract_job started", "job_id", job.ID, "filename", filename)
	return job, nil
}

func (r *extractJobRepo) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	return r.update(ctx, jobID, "mark running",
		`UPDATE extract_jobs SET status = ? WHERE id = ?`,
		string(constants.JobStatusRunning), jobID.String())
}

func (r *extractJobRepo) FinishText(ctx context.Context, jobID uuid.UUID, text string, pagesTotal, pagesDirect, pagesOCR int) error {
	err := r.update(ctx, jobID, "finish text",
		`UPDATE extract_jobs
		 SET status = ?, text = ?, pages_total = ?, pages_direct = ?, pages_ocr = ?
		 WHERE id = ?`,
		string(constants.JobStatusTextOK), text, pagesTotal, pagesDirect, pagesOCR, jobID.String())
	if err != nil {
		return err
	}
	r.log.Info("extract_job finished (TEXT_OK)", "job_id", jobID,
		"pages_total", pagesTotal, "pages_direct", pagesDirect, "pages_ocr", pagesOCR)
	return nil
}

func (r *extractJobRepo) FinishParse(ctx context.Context, jobID uuid.UUID, extracted json.RawMessage) error {
	err := r.update(ctx, jobID, "finish parse",
		`UPDATE extract_jobs SET status = ?, extracted_json = ?, finished_at = ? WHERE id = ?`,
		string(constants.JobStatusLLMOK), string(extracted), time.Now().UTC(), jobID.String())
	if err != nil {
		return err
	}
	r.log.Info("extract_job finished (LLM_OK)", "job_id", jobID)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, "finish failure",
		`UPDATE extract_jobs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(constants.JobStatusFailed), message, time.Now().UTC(), jobID.String())
	if err != nil {
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) update(ctx context.Context, jobID uuid.UUID, op, query string, args ...any) error {
	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		r.log.Error("extract_job update failed", "op", op, "job_id", jobID, "err", err)
		return common.WrapSentinel(common.ErrDatabase, op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.WrapSentinel(common.ErrNotFound, "extract job not found", nil)
	}
	return nil
}

func (r *extractJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+jobColumns+` FROM extract_jobs WHERE id = ?`), jobID.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.WrapSentinel(common.ErrNotFound, "extract job not found", nil)
	}
	if err != nil {
		r.log.Error("extract_job get failed", "job_id", jobID, "err", err)
		return nil, common.WrapSentinel(common.ErrDatabase, "get extract job", err)
	}
	return job, nil
}

func (r *extractJobRepo) ListCompleted(ctx context.Context) ([]*entity.ExtractJob, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(
		`SELECT `+jobColumns+` FROM extract_jobs WHERE status = ? ORDER BY started_at`),
		string(constants.JobStatusLLMOK))
	if err != nil {
		r.log.Error("extract_job list failed", "err", err)
		return nil, common.WrapSentinel(common.ErrDatabase, "list extract jobs", err)
	}
	defer rows.Close()

	var jobs []*entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, common.WrapSentinel(common.ErrDatabase, "scan extract job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapSentinel(common.ErrDatabase, "iterate extract jobs", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.ExtractJob, error) {
	var (
		job       entity.ExtractJob
		id        string
		finished  sql.NullTime
		text      sql.NullString
		extracted sql.NullString
		errMsg    sql.NullString
	)
	err := row.Scan(&id, &job.Filename, &job.Status, &job.StartedAt, &finished,
		&job.PagesTotal, &job.PagesDirect, &job.PagesOCR, &text, &extracted, &errMsg)
	if err != nil {
		return nil, err
	}
	job.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	if text.Valid {
		s := text.String
		job.Text = &s
	}
	if extracted.Valid {
		job.ExtractedJSON = json.RawMessage(extracted.String)
	}
	if errMsg.Valid {
		s := errMsg.String
		job.ErrorMessage = &s
	}
	return &job, nil
}
