package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bankdocs/contract-extractor/constants"
	"github.com/bankdocs/contract-extractor/internal/common"
	"github.com/bankdocs/contract-extractor/internal/entity"
	"github.com/bankdocs/contract-extractor/internal/export"
)

type fakeJobs struct {
	byID map[uuid.UUID]*entity.ExtractJob
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{byID: make(map[uuid.UUID]*entity.ExtractJob)}
}

func (f *fakeJobs) Start(_ context.Context, filename string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    string(constants.JobStatusQueued),
		StartedAt: time.Now().UTC(),
	}
	f.byID[job.ID] = job
	return job, nil
}

func (f *fakeJobs) MarkRunning(_ context.Context, id uuid.UUID) error { return nil }

func (f *fakeJobs) FinishText(_ context.Context, id uuid.UUID, text string, total, direct, ocr int) error {
	return nil
}

func (f *fakeJobs) FinishParse(_ context.Context, id uuid.UUID, _ json.RawMessage) error {
	return nil
}

func (f *fakeJobs) FinishFailure(_ context.Context, id uuid.UUID, _ string) error { return nil }

func (f *fakeJobs) GetByID(_ context.Context, id uuid.UUID) (*entity.ExtractJob, error) {
	job, ok := f.byID[id]
	if !ok {
		return nil, common.WrapSentinel(common.ErrNotFound, "extract job not found", nil)
	}
	return job, nil
}

func (f *fakeJobs) ListCompleted(context.Context) ([]*entity.ExtractJob, error) {
	var out []*entity.ExtractJob
	for _, j := range f.byID {
		if j.Status == string(constants.JobStatusLLMOK) {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeQueue struct {
	jobs []Job
}

func (q *fakeQueue) Enqueue(_ context.Context, job Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *fakeQueue) Shutdown(context.Context) {}

func newTestService(t *testing.T) (*Service, *fakeJobs, *fakeQueue) {
	t.Helper()
	jobs := newFakeJobs()
	queue := &fakeQueue{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(jobs, queue, export.NewService(jobs, logger), nil, logger)
	return svc, jobs, queue
}

func uploadRequest(t *testing.T, body []byte, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(body); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtractAcceptsPDFAndQueues(t *testing.T) {
	svc, jobs, queue := newTestService(t)
	router := svc.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, []byte("%PDF-1.4\nfake"), "contract.pdf"))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", rec.Code, rec.Body)
	}
	var job entity.ExtractJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.Status != string(constants.JobStatusQueued) {
		t.Fatalf("status = %q, want QUEUED", job.Status)
	}
	if _, ok := jobs.byID[job.ID]; !ok {
		t.Fatalf("job not persisted")
	}
	if len(queue.jobs) != 1 || queue.jobs[0].JobID != job.ID {
		t.Fatalf("job not enqueued: %+v", queue.jobs)
	}
	if queue.jobs[0].Filename != "contract.pdf" {
		t.Fatalf("filename = %q", queue.jobs[0].Filename)
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	svc, _, queue := newTestService(t)
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, uploadRequest(t, []byte("just a text file"), "notes.txt"))

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("rejected upload must not be queued")
	}
}

func TestExtractExtensionRules(t *testing.T) {
	svc, _, queue := newTestService(t)

	// Extension check is case-insensitive.
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, uploadRequest(t, []byte("%PDF-1.4\nfake"), "SCAN.PDF"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("uppercase extension: status = %d, want 202", rec.Code)
	}

	// Right magic bytes under a wrong extension is still rejected.
	rec = httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, uploadRequest(t, []byte("%PDF-1.4\nfake"), "scan.png"))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("mismatched extension: status = %d, want 415", rec.Code)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("queued jobs = %d, want 1", len(queue.jobs))
	}
}

func TestExtractMissingFileField(t *testing.T) {
	svc, _, _ := newTestService(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetJob(t *testing.T) {
	svc, jobs, _ := newTestService(t)
	job, _ := jobs.Start(context.Background(), "a.pdf")

	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+job.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetJobTextBeforeCompletion(t *testing.T) {
	svc, jobs, _ := newTestService(t)
	job, _ := jobs.Start(context.Background(), "a.pdf")

	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+job.ID.String()+"/text", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	text := "=== PAGE 1 ===\nКОНТРАКТ № 45"
	job.Text = &text
	rec = httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/"+job.ID.String()+"/text", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != text {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestExportReturnsWorkbook(t *testing.T) {
	svc, jobs, _ := newTestService(t)
	job, _ := jobs.Start(context.Background(), "a.pdf")
	job.Status = string(constants.JobStatusLLMOK)
	job.ExtractedJSON = json.RawMessage(`{"contract_number": "45", "country": "Китай"}`)

	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/export.xlsx", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	ct := rec.Header().Get("Content-Type")
	if !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type = %q", ct)
	}
	// XLSX is a zip container.
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("body is not a zip archive")
	}
}
