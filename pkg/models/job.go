// Package models contains shared data models used across the FinSight codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Job tracks one unit of submitted document-analysis work. The API returns a
// job id on POST /api/v1/analyses; the client polls GET /api/v1/analyses/{id}
// until status is completed or failed. Status only ever moves forward:
// pending -> processing -> completed|failed.
type Job struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	OwnerID      uuid.UUID  `db:"owner_id"      json:"owner_id"`
	InputRef     string     `db:"input_ref"     json:"input_ref"`
	Query        string     `db:"query"         json:"query"`
	Priority     string     `db:"priority"      json:"priority"`
	Status       string     `db:"status"        json:"status"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	ResultID     *uuid.UUID `db:"result_id"     json:"result_id,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobView is the outward projection of a Job returned by the status endpoint.
type JobView struct {
	Job
	ResultAvailable bool `json:"result_available"`
}

// QueueStats aggregates job counts across the queue, optionally per owner.
type QueueStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}
