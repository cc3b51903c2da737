package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/documents"
	"github.com/finsight/finsight/internal/results"
	"github.com/finsight/finsight/internal/store"
	"github.com/finsight/finsight/pkg/models"
)

// Worker runs analysis jobs to a terminal state. Both dispatch modes converge
// here: broker consumers call Execute per delivered id, and the manager calls
// it inline when the broker is down.
type Worker struct {
	store   store.Store
	docs    documents.Resolver
	engine  models.AnalysisEngine
	results results.Store
	timeout time.Duration
}

func NewWorker(st store.Store, docs documents.Resolver, engine models.AnalysisEngine, rs results.Store, timeout time.Duration) *Worker {
	return &Worker{
		store:   st,
		docs:    docs,
		engine:  engine,
		results: rs,
		timeout: timeout,
	}
}

// Execute claims and runs a single job. Safe to invoke more than once
// concurrently for the same id: only the caller that wins the
// pending->processing transition proceeds, everyone else returns immediately
// with no side effects. Analysis failures are recorded on the job record and
// are not returned; only storage faults surface as errors.
func (w *Worker) Execute(ctx context.Context, jobID uuid.UUID) error {
	claimed, err := w.store.TryTransition(ctx, jobID, models.JobStatusPending, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("claiming job: %w", err)
	}
	if !claimed {
		slog.Debug("job already claimed, skipping", "job_id", jobID)
		return nil
	}

	// A claimed job must still reach a terminal state when the submitting
	// caller disconnects or the consumer shuts down mid-run. Everything after
	// the claim runs detached from the caller's cancellation; only the
	// analysis call itself stays cancelable.
	bg := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during job execution", "error", r, "job_id", jobID)
			_, _ = w.store.TryTransition(bg, jobID, models.JobStatusProcessing, models.JobStatusFailed,
				store.WithErrorMessage(fmt.Sprintf("panic: %v", r)))
		}
	}()

	job, err := w.store.GetJob(bg, jobID)
	if err != nil {
		return fmt.Errorf("loading job %s: %w", jobID, err)
	}

	started := time.Now()

	content, err := w.docs.Resolve(bg, job.InputRef)
	if err != nil {
		return w.fail(bg, jobID, fmt.Sprintf("resolving document %s: %v", job.InputRef, err))
	}

	analysisCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	report, err := w.engine.Analyze(analysisCtx, content, job.Query)
	if err != nil {
		// Engine error text is kept verbatim for diagnosability.
		return w.fail(bg, jobID, err.Error())
	}

	result := &models.AnalysisResult{
		ID:             uuid.New(),
		JobID:          job.ID,
		OwnerID:        job.OwnerID,
		InputRef:       job.InputRef,
		FileSize:       int64(len(content)),
		Query:          job.Query,
		Report:         report.Text,
		Engine:         report.Engine,
		ProcessingTime: time.Since(started).Seconds(),
		CreatedAt:      time.Now().UTC(),
	}
	resultID, err := w.results.Save(bg, result)
	if err != nil {
		return w.fail(bg, jobID, fmt.Sprintf("storing result: %v", err))
	}

	done, err := w.store.TryTransition(bg, jobID, models.JobStatusProcessing, models.JobStatusCompleted,
		store.WithResultID(resultID))
	if err != nil {
		return fmt.Errorf("completing job %s: %w", jobID, err)
	}
	if !done {
		slog.Warn("job left processing before completion could be recorded", "job_id", jobID)
		return nil
	}

	slog.Info("job completed",
		"job_id", jobID,
		"engine", report.Engine,
		"processing_secs", result.ProcessingTime,
	)
	return nil
}

// fail records a terminal failure on the job. The failure itself is observed
// through the job record, so fail returns nil unless the store write breaks.
func (w *Worker) fail(ctx context.Context, jobID uuid.UUID, msg string) error {
	done, err := w.store.TryTransition(ctx, jobID, models.JobStatusProcessing, models.JobStatusFailed,
		store.WithErrorMessage(msg))
	if err != nil {
		return fmt.Errorf("failing job %s: %w", jobID, err)
	}
	if !done {
		slog.Warn("job left processing before failure could be recorded", "job_id", jobID)
		return nil
	}
	slog.Info("job failed", "job_id", jobID, "error", msg)
	return nil
}
