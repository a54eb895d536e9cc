// Package server exposes the extraction service over HTTP: document
// upload, job inspection and XLSX export.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bankdocs/contract-extractor/constants"
	"github.com/bankdocs/contract-extractor/internal/common"
	"github.com/bankdocs/contract-extractor/internal/export"
	"github.com/bankdocs/contract-extractor/internal/repository"
)

// Service wires the HTTP surface to the job store and worker queue.
type Service struct {
	jobs     repository.ExtractJobRepository
	queue    Queue
	exporter *export.Service
	db       *repository.DB
	log      *slog.Logger
}

func NewService(jobs repository.ExtractJobRepository, queue Queue, exporter *export.Service, db *repository.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, queue: queue, exporter: exporter, db: db, log: logger}
}

// Router builds the chi router with the service's routes mounted.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/jobs/{id}/text", s.handleGetJobText)
		r.Get("/export.xlsx", s.handleExport)
	})
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.HealthCheck(r.Context(), 2*time.Second, s.log); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExtract accepts a multipart upload, validates it is a PDF and
// queues it. The response is the freshly created job in QUEUED state.
func (s *Service) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes)
	if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing 'file' form field")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}
	if !constants.IsPDF(raw) {
		s.writeError(w, http.StatusUnsupportedMediaType, "file is not a PDF")
		return
	}
	filename := filepath.Base(header.Filename)
	if ext := constants.NormalizeExt(filepath.Ext(filename)); ext != "" && ext != "pdf" {
		s.writeError(w, http.StatusUnsupportedMediaType, "unsupported file extension")
		return
	}
	job, err := s.jobs.Start(r.Context(), filename)
	if err != nil {
		s.log.Error("job create failed", "filename", filename, "error", err)
		s.writeError(w, common.HTTPStatus(err), "could not create job")
		return
	}

	if err := s.queue.Enqueue(r.Context(), Job{
		JobID:       job.ID,
		Filename:    filename,
		Raw:         raw,
		SubmittedAt: time.Now(),
	}); err != nil {
		s.log.Error("enqueue failed", "job_id", job.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not queue job")
		return
	}
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Service) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, common.HTTPStatus(err), "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Service) handleGetJobText(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, common.HTTPStatus(err), "job not found")
		return
	}
	if job.Text == nil {
		s.writeError(w, http.StatusConflict, "job has no text yet")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, *job.Text)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	b, err := s.exporter.ExportContractsXLSX(r.Context())
	if err != nil {
		s.log.Error("export failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="contracts-%s.xlsx"`, time.Now().UTC().Format("20060102-150405")))
	_, _ = w.Write(b)
}

func (s *Service) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response encode failed", "error", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
