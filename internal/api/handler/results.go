package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/api/response"
	"github.com/finsight/finsight/internal/results"
	"github.com/finsight/finsight/internal/store"
)

// NewGetResultHandler returns an http.HandlerFunc for GET /api/v1/results/{resultID}.
func NewGetResultHandler(rs results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resultID, err := uuid.Parse(chi.URLParam(r, "resultID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "resultID must be a valid UUID", nil)
			return
		}

		result, err := rs.Load(r.Context(), resultID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESULT_NOT_FOUND", "Analysis result does not exist", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load result", nil)
			return
		}
		response.JSON(w, result)
	}
}

// NewListOwnerResultsHandler returns an http.HandlerFunc for
// GET /api/v1/owners/{ownerID}/results with page/limit pagination.
func NewListOwnerResultsHandler(rs results.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := uuid.Parse(chi.URLParam(r, "ownerID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "ownerID must be a valid UUID", nil)
			return
		}

		// Normalized once here so the echoed pagination meta always matches
		// what the query actually used.
		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 20)
		if limit > maxPageSize {
			limit = maxPageSize
		}

		list, total, err := rs.ListByOwner(r.Context(), ownerID, page, limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list results", nil)
			return
		}

		response.Collection(w, list, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

const maxPageSize = 100

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}
