package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AnalysisEngine is the core interface all analysis backends must implement.
// Never call a specific engine directly — always inject this interface.
type AnalysisEngine interface {
	// Analyze produces a report for the given document content and query.
	// Implementations must honor ctx cancellation; long calls are wrapped in a
	// caller-supplied timeout.
	Analyze(ctx context.Context, content []byte, query string) (*Report, error)
	// Name returns the engine identifier (e.g., "keyword", "openai").
	Name() string
}

// Report is the raw output of an analysis engine run.
type Report struct {
	Text   string
	Engine string
	Model  string
}

// AnalysisResult is a persisted analysis report produced by a completed job.
// Jobs reference results by id; the report body is never stored on the job row.
type AnalysisResult struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	JobID          uuid.UUID `db:"job_id"          json:"job_id"`
	OwnerID        uuid.UUID `db:"owner_id"        json:"owner_id"`
	InputRef       string    `db:"input_ref"       json:"input_ref"`
	FileSize       int64     `db:"file_size"       json:"file_size"`
	Query          string    `db:"query"           json:"query"`
	Report         string    `db:"report"          json:"report"`
	Engine         string    `db:"engine"          json:"engine"`
	ProcessingTime float64   `db:"processing_time" json:"processing_time"` // seconds
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
}
