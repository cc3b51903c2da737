package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/finsight/finsight/internal/api/middleware"
	"github.com/finsight/finsight/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler     http.HandlerFunc
	SubmitHandler     http.HandlerFunc
	JobStatusHandler  http.HandlerFunc
	QueueStatsHandler http.HandlerFunc
	GetResultHandler  http.HandlerFunc
	ListOwnerResults  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/analyses", orNotImplemented(deps.SubmitHandler))
		r.Get("/api/v1/analyses/{jobID}", orNotImplemented(deps.JobStatusHandler))

		r.Get("/api/v1/queue/stats", orNotImplemented(deps.QueueStatsHandler))

		r.Get("/api/v1/results/{resultID}", orNotImplemented(deps.GetResultHandler))
		r.Get("/api/v1/owners/{ownerID}/results", orNotImplemented(deps.ListOwnerResults))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
