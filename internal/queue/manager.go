package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/documents"
	"github.com/finsight/finsight/internal/store"
	"github.com/finsight/finsight/internal/users"
	"github.com/finsight/finsight/pkg/models"
)

// Submission modes. Queued means the broker accepted the job for asynchronous
// pickup; immediate means it was executed synchronously in the caller's
// context and the returned job is already terminal.
const (
	ModeQueued    = "queued"
	ModeImmediate = "immediate"
)

var (
	ErrInvalidInput  = errors.New("invalid submission input")
	ErrOwnerNotFound = errors.New("owner not found")
)

// SubmitParams carries a submission request.
type SubmitParams struct {
	OwnerID  uuid.UUID
	InputRef string
	Query    string
	Priority string
}

// Submission is the handle returned to submitting callers.
type Submission struct {
	Mode string      `json:"mode"`
	Job  *models.Job `json:"job"`
}

// Manager is the public entry point to the job queue. It owns the
// dispatch-or-fallback decision: jobs go to the broker when it is reachable
// and run inline otherwise, so the service stays usable with zero operational
// dependencies beyond the database.
type Manager struct {
	store     store.Store
	broker    Broker
	worker    *Worker
	owners    users.Directory
	docs      documents.Resolver
	cache     cache.Cache
	statusTTL time.Duration
}

func NewManager(st store.Store, broker Broker, worker *Worker, owners users.Directory, docs documents.Resolver, ca cache.Cache, statusTTL time.Duration) *Manager {
	return &Manager{
		store:     st,
		broker:    broker,
		worker:    worker,
		owners:    owners,
		docs:      docs,
		cache:     ca,
		statusTTL: statusTTL,
	}
}

// Submit validates the request, persists a pending job, and either dispatches
// it to the broker or executes it synchronously. Broker trouble is recovery,
// not failure: it is never surfaced to the caller.
func (m *Manager) Submit(ctx context.Context, p SubmitParams) (*Submission, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	priority := p.Priority
	if priority == "" {
		priority = models.PriorityLow
	}
	if !models.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: priority must be one of low, medium, high; got %q", ErrInvalidInput, p.Priority)
	}

	ok, err := m.owners.Exists(ctx, p.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("checking owner: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOwnerNotFound, p.OwnerID)
	}

	ok, err = m.docs.Exists(ctx, p.InputRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: input_ref %q does not resolve to a document", ErrInvalidInput, p.InputRef)
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New(),
		OwnerID:   p.OwnerID,
		InputRef:  p.InputRef,
		Query:     query,
		Priority:  priority,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	if err := m.broker.Probe(ctx); err == nil {
		if derr := m.broker.Dispatch(ctx, job.ID, job.Priority); derr == nil {
			slog.Info("job dispatched to broker", "job_id", job.ID, "priority", job.Priority)
			return &Submission{Mode: ModeQueued, Job: job}, nil
		} else {
			slog.Warn("broker dispatch failed, executing in-process", "job_id", job.ID, "error", derr)
		}
	} else {
		slog.Info("broker unreachable, executing in-process", "job_id", job.ID, "error", err)
	}

	// Fallback: run the job in the caller's context. The outcome lands on the
	// job record either way; only storage faults propagate.
	if err := m.worker.Execute(ctx, job.ID); err != nil {
		return nil, err
	}
	final, err := m.store.GetJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("loading executed job: %w", err)
	}
	return &Submission{Mode: ModeImmediate, Job: final}, nil
}

// Status returns the outward projection of a job. Returns store.ErrNotFound
// for unknown ids. Terminal jobs never change again, so their views are served
// from the cache once seen; pending and processing jobs always hit the store.
func (m *Manager) Status(ctx context.Context, jobID uuid.UUID) (*models.JobView, error) {
	if view, found, err := m.cache.GetJobView(ctx, jobID); err != nil {
		slog.Debug("job view cache read failed", "job_id", jobID, "error", err)
	} else if found {
		return view, nil
	}

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	view := &models.JobView{
		Job:             *job,
		ResultAvailable: job.Status == models.JobStatusCompleted && job.ResultID != nil,
	}
	if job.Terminal() {
		if err := m.cache.SetJobView(ctx, jobID, view, m.statusTTL); err != nil {
			slog.Debug("job view cache write failed", "job_id", jobID, "error", err)
		}
	}
	return view, nil
}

// Stats aggregates job counts, optionally restricted to one owner.
func (m *Manager) Stats(ctx context.Context, ownerID *uuid.UUID) (models.QueueStats, error) {
	return m.store.CountJobs(ctx, ownerID)
}
