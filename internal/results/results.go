// Package results persists and retrieves the reports produced by completed
// analysis jobs. Jobs reference results by id only; the report body lives here.
package results

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/store"
	"github.com/finsight/finsight/pkg/models"
)

// Store is the narrow result-store interface consumed by the worker and the
// result endpoints.
type Store interface {
	// Save persists the report and returns its id.
	Save(ctx context.Context, result *models.AnalysisResult) (uuid.UUID, error)
	Load(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*models.AnalysisResult, int, error)
}

// DatabaseStore keeps reports in the same Postgres database as the jobs table.
type DatabaseStore struct {
	db store.Store
}

func NewDatabaseStore(db store.Store) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Save(ctx context.Context, result *models.AnalysisResult) (uuid.UUID, error) {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	if err := s.db.CreateAnalysisResult(ctx, result); err != nil {
		return uuid.Nil, err
	}
	return result.ID, nil
}

func (s *DatabaseStore) Load(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	return s.db.GetAnalysisResult(ctx, id)
}

func (s *DatabaseStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*models.AnalysisResult, int, error) {
	return s.db.ListAnalysisResults(ctx, ownerID, page, limit)
}

var _ Store = (*DatabaseStore)(nil)
