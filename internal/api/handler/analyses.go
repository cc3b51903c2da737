package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/api/response"
	"github.com/finsight/finsight/internal/queue"
	"github.com/finsight/finsight/internal/store"
	"github.com/finsight/finsight/pkg/models"
)

// QueueService defines the queue operations the handlers depend on.
type QueueService interface {
	Submit(ctx context.Context, p queue.SubmitParams) (*queue.Submission, error)
	Status(ctx context.Context, jobID uuid.UUID) (*models.JobView, error)
	Stats(ctx context.Context, ownerID *uuid.UUID) (models.QueueStats, error)
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/analyses.
// Responds 202 when the job was queued for asynchronous pickup, 200 with the
// terminal job when it was executed immediately.
func NewSubmitHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OwnerID  string `json:"owner_id"`
			InputRef string `json:"input_ref"`
			Query    string `json:"query"`
			Priority string `json:"priority"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		ownerID, err := uuid.Parse(req.OwnerID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "owner_id must be a valid UUID", nil)
			return
		}

		sub, err := svc.Submit(r.Context(), queue.SubmitParams{
			OwnerID:  ownerID,
			InputRef: req.InputRef,
			Query:    req.Query,
			Priority: req.Priority,
		})
		switch {
		case errors.Is(err, queue.ErrInvalidInput):
			response.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
			return
		case errors.Is(err, queue.ErrOwnerNotFound):
			response.Error(w, http.StatusNotFound, "OWNER_NOT_FOUND", "Owner does not exist", nil)
			return
		case err != nil:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit job", nil)
			return
		}

		if sub.Mode == queue.ModeQueued {
			response.Accepted(w, sub)
			return
		}
		response.JSON(w, sub)
	}
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/v1/analyses/{jobID}.
func NewJobStatusHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		view, err := svc.Status(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job does not exist", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
			return
		}
		response.JSON(w, view)
	}
}

// NewQueueStatsHandler returns an http.HandlerFunc for GET /api/v1/queue/stats.
// An optional owner_id query parameter restricts the counts to one owner.
func NewQueueStatsHandler(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ownerID *uuid.UUID
		if raw := r.URL.Query().Get("owner_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "owner_id must be a valid UUID", nil)
				return
			}
			ownerID = &id
		}

		stats, err := svc.Stats(r.Context(), ownerID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load queue stats", nil)
			return
		}
		response.JSON(w, stats)
	}
}
