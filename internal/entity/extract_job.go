package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractJob represents one document extraction for data transfer
// between layers.
type ExtractJob struct {
	ID            uuid.UUID       `json:"id"`
	Filename      string          `json:"filename"`
	Status        string          `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	PagesTotal    int             `json:"pages_total"`
	PagesDirect   int             `json:"pages_direct"`
	PagesOCR      int             `json:"pages_ocr"`
	Text          *string         `json:"text,omitempty"`
	ExtractedJSON json.RawMessage `json:"extracted_json,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
}
