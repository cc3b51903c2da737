// Package queue implements the asynchronous job queue: submission, broker
// dispatch with synchronous fallback, the worker execution routine, and
// queue-wide statistics.
package queue

import (
	"context"

	"github.com/google/uuid"
)

// Broker abstracts the external message broker used for asynchronous
// dispatch. The broker only ever carries job ids; payloads stay in the job
// store. Any broker error is treated as "unavailable" and triggers the
// synchronous fallback path, never a caller-visible failure.
type Broker interface {
	// Probe is a cheap connectivity check, safe to call on every submission.
	// It must not block longer than a short bounded timeout.
	Probe(ctx context.Context) error
	// Dispatch hands a job id to the broker for out-of-process pickup.
	Dispatch(ctx context.Context, jobID uuid.UUID, priority string) error
}

// Handler processes one delivered job id. Returning an error requeues the
// delivery subject to the broker's retry policy, so handlers must be
// idempotent against redelivery.
type Handler func(ctx context.Context, jobID uuid.UUID) error
