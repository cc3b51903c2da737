package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsight/finsight/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, total_analyses, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.TotalAnalyses, user.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, owner_id, input_ref, query, priority, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.OwnerID, job.InputRef, job.Query, job.Priority, job.Status,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, input_ref, query, priority, status, error_message, result_id,
		        started_at, completed_at, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.OwnerID, &j.InputRef, &j.Query, &j.Priority, &j.Status,
		&j.ErrorMessage, &j.ResultID, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, *filter.OwnerID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	query := fmt.Sprintf(
		`SELECT id, owner_id, input_ref, query, priority, status, error_message, result_id,
		        started_at, completed_at, created_at, updated_at
		 FROM jobs WHERE %s ORDER BY created_at`, strings.Join(conditions, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.OwnerID, &j.InputRef, &j.Query, &j.Priority, &j.Status,
			&j.ErrorMessage, &j.ResultID, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) CountJobs(ctx context.Context, ownerID *uuid.UUID) (models.QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	args := []any{}
	if ownerID != nil {
		query = `SELECT status, COUNT(*) FROM jobs WHERE owner_id = $1 GROUP BY status`
		args = append(args, *ownerID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	var stats models.QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return models.QueueStats{}, fmt.Errorf("scan job count: %w", err)
		}
		switch status {
		case models.JobStatusPending:
			stats.Pending = count
		case models.JobStatusProcessing:
			stats.Processing = count
		case models.JobStatusCompleted:
			stats.Completed = count
		case models.JobStatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	return stats, rows.Err()
}

var validTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing},
	models.JobStatusProcessing: {models.JobStatusCompleted, models.JobStatusFailed},
}

// TryTransition atomically moves a job from one status to another. Returns
// false without modifying anything when the stored status no longer equals
// from: the caller lost the race and must treat the job as claimed. The
// conditional UPDATE makes the check-and-set a single linearizable step per
// job id.
func (s *PostgresStore) TryTransition(ctx context.Context, id uuid.UUID, from, to string, opts ...TransitionOption) (bool, error) {
	allowed := false
	for _, a := range validTransitions[from] {
		if a == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, fmt.Errorf("invalid job status transition: %s -> %s", from, to)
	}

	params := ApplyTransitionOptions(opts...)

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $3, updated_at = $4`
	args := []any{id, from, to, now}
	argIdx := 5

	if to == models.JobStatusProcessing {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if to == models.JobStatusCompleted || to == models.JobStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.ResultID != nil {
		query += fmt.Sprintf(", result_id = $%d", argIdx)
		args = append(args, *params.ResultID)
		argIdx++
	}

	query += " WHERE id = $1 AND status = $2"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// --- Analysis Results ---

func (s *PostgresStore) CreateAnalysisResult(ctx context.Context, result *models.AnalysisResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin result tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO analysis_results (id, job_id, owner_id, input_ref, file_size, query, report, engine, processing_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.ID, result.JobID, result.OwnerID, result.InputRef, result.FileSize,
		result.Query, result.Report, result.Engine, result.ProcessingTime, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("create analysis result: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET total_analyses = total_analyses + 1 WHERE id = $1`, result.OwnerID)
	if err != nil {
		return fmt.Errorf("bump owner analysis count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit result tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysisResult(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	var r models.AnalysisResult
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_id, owner_id, input_ref, file_size, query, report, engine, processing_time, created_at
		 FROM analysis_results WHERE id = $1`, id,
	).Scan(&r.ID, &r.JobID, &r.OwnerID, &r.InputRef, &r.FileSize, &r.Query,
		&r.Report, &r.Engine, &r.ProcessingTime, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis result: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) ListAnalysisResults(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*models.AnalysisResult, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM analysis_results WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analysis results: %w", err)
	}

	// page and limit arrive normalized from the handler layer.
	offset := (page - 1) * limit

	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, owner_id, input_ref, file_size, query, report, engine, processing_time, created_at
		 FROM analysis_results WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list analysis results: %w", err)
	}
	defer rows.Close()

	var results []*models.AnalysisResult
	for rows.Next() {
		var r models.AnalysisResult
		if err := rows.Scan(&r.ID, &r.JobID, &r.OwnerID, &r.InputRef, &r.FileSize, &r.Query,
			&r.Report, &r.Engine, &r.ProcessingTime, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan analysis result: %w", err)
		}
		results = append(results, &r)
	}
	return results, total, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
