package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/store"
	"github.com/finsight/finsight/pkg/models"
)

// memStore is an in-memory store.Store. TryTransition holds the mutex across
// the read-compare-write, matching the atomicity of the conditional UPDATE in
// the Postgres implementation.
type memStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	jobs    map[uuid.UUID]*models.Job
	results map[uuid.UUID]*models.AnalysisResult

	getJobCalls int

	failTransition error // when set, TryTransition returns this error
	failCreateJob  error
	failGetJob     error
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[uuid.UUID]*models.User),
		jobs:    make(map[uuid.UUID]*models.Job),
		results: make(map[uuid.UUID]*models.AnalysisResult),
	}
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *memStore) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *memStore) CreateJob(_ context.Context, job *models.Job) error {
	if s.failCreateJob != nil {
		return s.failCreateJob
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	if s.failGetJob != nil {
		return nil, s.failGetJob
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getJobCalls++
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *memStore) ListJobs(_ context.Context, filter store.JobFilter) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, job := range s.jobs {
		if filter.OwnerID != nil && job.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) CountJobs(_ context.Context, ownerID *uuid.UUID) (models.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats models.QueueStats
	for _, job := range s.jobs {
		if ownerID != nil && job.OwnerID != *ownerID {
			continue
		}
		stats.Total++
		switch job.Status {
		case models.JobStatusPending:
			stats.Pending++
		case models.JobStatusProcessing:
			stats.Processing++
		case models.JobStatusCompleted:
			stats.Completed++
		case models.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (s *memStore) TryTransition(ctx context.Context, id uuid.UUID, from, to string, opts ...store.TransitionOption) (bool, error) {
	// A dead context fails the write, matching how a pgx query behaves.
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.failTransition != nil {
		return false, s.failTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != from {
		return false, nil
	}
	params := store.ApplyTransitionOptions(opts...)
	now := time.Now().UTC()
	job.Status = to
	job.UpdatedAt = now
	switch to {
	case models.JobStatusProcessing:
		job.StartedAt = &now
	case models.JobStatusCompleted, models.JobStatusFailed:
		job.CompletedAt = &now
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.ResultID != nil {
		job.ResultID = params.ResultID
	}
	return true, nil
}

func (s *memStore) CreateAnalysisResult(_ context.Context, result *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *result
	s.results[result.ID] = &cp
	return nil
}

func (s *memStore) GetAnalysisResult(_ context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *result
	return &cp, nil
}

func (s *memStore) ListAnalysisResults(_ context.Context, ownerID uuid.UUID, _, _ int) ([]*models.AnalysisResult, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AnalysisResult
	for _, result := range s.results {
		if result.OwnerID == ownerID {
			cp := *result
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (s *memStore) getJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getJobCalls
}

var _ store.Store = (*memStore)(nil)

// memDocs serves fixed document content by reference.
type memDocs struct {
	docs       map[string][]byte
	resolveErr error
}

func (d *memDocs) Exists(_ context.Context, ref string) (bool, error) {
	_, ok := d.docs[ref]
	return ok, nil
}

func (d *memDocs) Resolve(_ context.Context, ref string) ([]byte, error) {
	if d.resolveErr != nil {
		return nil, d.resolveErr
	}
	content, ok := d.docs[ref]
	if !ok {
		return nil, fmt.Errorf("no such document: %s", ref)
	}
	return content, nil
}

// stubEngine counts invocations and returns a canned report or error. When
// block is set, Analyze waits for the context to expire first.
type stubEngine struct {
	mu    sync.Mutex
	calls int
	err   error
	block bool
	panic bool
}

func (e *stubEngine) Analyze(ctx context.Context, _ []byte, query string) (*models.Report, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.panic {
		panic("engine exploded")
	}
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	return &models.Report{Text: "report for: " + query, Engine: "stub"}, nil
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// stubBroker flips between reachable and unreachable.
type stubBroker struct {
	mu          sync.Mutex
	probeErr    error
	dispatchErr error
	dispatched  []uuid.UUID
	queues      []string
}

func (b *stubBroker) Probe(context.Context) error { return b.probeErr }

func (b *stubBroker) Dispatch(_ context.Context, jobID uuid.UUID, priority string) error {
	if b.dispatchErr != nil {
		return b.dispatchErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dispatched = append(b.dispatched, jobID)
	b.queues = append(b.queues, priority)
	return nil
}

// memCache keeps job views in a map. TTLs are ignored.
type memCache struct {
	mu    sync.Mutex
	views map[uuid.UUID]*models.JobView
}

func newMemCache() *memCache {
	return &memCache{views: make(map[uuid.UUID]*models.JobView)}
}

func (c *memCache) Ping(context.Context) error { return nil }

func (c *memCache) SetJobView(_ context.Context, jobID uuid.UUID, view *models.JobView, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *view
	c.views[jobID] = &cp
	return nil
}

func (c *memCache) GetJobView(_ context.Context, jobID uuid.UUID) (*models.JobView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	view, ok := c.views[jobID]
	if !ok {
		return nil, false, nil
	}
	cp := *view
	return &cp, true, nil
}

func (c *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, nil
}

var _ cache.Cache = (*memCache)(nil)

var errBrokerDown = errors.New("broker down")
