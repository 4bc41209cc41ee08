// Package handlers contains the HTTP handler implementations for the
// ShiftDesk reconciliation service.
//
// This file implements the trigger dispatcher's transport surface: the two
// externally invokable job endpoints. Each request must carry a fresh,
// request-bound signature; authentication failures are fail-closed and reach
// no reconciler. The in-process cron timer does not pass through here; it
// calls the same dispatcher directly.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shiftdesk/internal/clock"
	"shiftdesk/internal/core"
	"shiftdesk/internal/trigger"
	"shiftdesk/internal/types"
)

// JobDispatcher abstracts the reconciler routing so the handler is testable
// without real reconcilers.
type JobDispatcher interface {
	RunAt(ctx context.Context, job types.JobName, now time.Time) (types.JobResult, error)
}

// JobsHandler exposes the signed trigger endpoints.
type JobsHandler struct {
	dispatcher JobDispatcher
	auth       *trigger.Authenticator
	clk        clock.Clock
	logger     *slog.Logger
}

// NewJobsHandler creates a JobsHandler with the given dispatcher,
// authenticator, clock, and logger.
func NewJobsHandler(dispatcher JobDispatcher, auth *trigger.Authenticator, clk clock.Clock, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{
		dispatcher: dispatcher,
		auth:       auth,
		clk:        clk,
		logger:     logger,
	}
}

// RegisterRoutes mounts the job trigger endpoints under the given router.
// Both are GET per the external trigger contract.
func (h *JobsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/expire-recurrence-days", h.handleJob(types.JobExpireRecurrenceDays))
		r.Get("/invoice-reminders", h.handleJob(types.JobInvoiceReminders))
	})
}

// handleJob builds the handler for one named job: verify the signature
// against the current clock reading, dispatch, and map the JobResult to a
// transport status. 401 means no mutation occurred; 200 covers the zero-match
// case and partial notification failures; 500 is reserved for whole-job
// failures.
func (h *JobsHandler) handleJob(job types.JobName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := h.clk.Now()

		if err := h.auth.Verify(r.Header.Get(trigger.SignatureHeader), job, now); err != nil {
			h.logger.Warn("trigger authentication failed",
				"job", string(job),
				"remote_addr", r.RemoteAddr,
				"error", err,
			)
			core.Error(w, r, err, nil)
			return
		}

		result, err := h.dispatcher.RunAt(r.Context(), job, now)
		if err != nil {
			core.Error(w, r, err, result)
			return
		}

		core.JSON(w, r, http.StatusOK, core.APIResponse{
			Success:   true,
			Data:      result,
			RequestID: types.GetRequestID(r.Context()),
		})
	}
}
