package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/finsight/finsight/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
//
// TryTransition is the system's only mutation path for job status: it updates
// a job only when its stored status still equals the expected value, so
// concurrent callers racing on the same id observe exactly one winner.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error)
	CountJobs(ctx context.Context, ownerID *uuid.UUID) (models.QueueStats, error)
	TryTransition(ctx context.Context, id uuid.UUID, from, to string, opts ...TransitionOption) (bool, error)

	CreateAnalysisResult(ctx context.Context, result *models.AnalysisResult) error
	GetAnalysisResult(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error)
	ListAnalysisResults(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*models.AnalysisResult, int, error)
}

// JobFilter narrows ListJobs to an owner and/or status. Zero values match all.
type JobFilter struct {
	OwnerID *uuid.UUID
	Status  string
}

// TransitionParams carries the optional column writes of a status transition.
// Implementations fold applied options into one of these.
type TransitionParams struct {
	ErrorMessage *string
	ResultID     *uuid.UUID
}

type TransitionOption func(*TransitionParams)

// ApplyTransitionOptions folds opts into a TransitionParams value.
func ApplyTransitionOptions(opts ...TransitionOption) TransitionParams {
	var p TransitionParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func WithErrorMessage(msg string) TransitionOption {
	return func(p *TransitionParams) {
		p.ErrorMessage = &msg
	}
}

func WithResultID(id uuid.UUID) TransitionOption {
	return func(p *TransitionParams) {
		p.ResultID = &id
	}
}
