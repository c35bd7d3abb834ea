package http

import (
	"net/http"
	"time"

	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/review"
	"github.com/playsquare/reviewdesk/internal/middleware"
)

// reviewStatusResponse is the review snapshot of one event.
type reviewStatusResponse struct {
	EventID     string             `json:"event_id"`
	Reviewers   review.Assignments `json:"reviewers"`
	Statuses    review.Statuses    `json:"statuses"`
	ReviewedAt  event.ReviewTimes  `json:"reviewed_at"`
	FinalStatus review.FinalStatus `json:"final_status"`
	ApprovedAt  *time.Time         `json:"approved_at,omitempty"`
	Version     int64              `json:"version"`
}

// RecordDecision handles PATCH /api/v1/events/{id}/review/status
func (h *Handlers) RecordDecision(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[event.DecisionRequest](w, r)
	if !ok {
		return
	}

	ev, err := h.Reviews.RecordDecision(r.Context(), u, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

// GetReviewStatus handles GET /api/v1/events/{id}/review/status
func (h *Handlers) GetReviewStatus(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	ev, err := h.Reviews.GetStatus(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, reviewStatusResponse{
		EventID:     ev.ID,
		Reviewers:   ev.Reviewers,
		Statuses:    ev.Statuses,
		ReviewedAt:  ev.ReviewedAt,
		FinalStatus: ev.FinalStatus,
		ApprovedAt:  ev.ApprovedAt,
		Version:     ev.Version,
	})
}

// GetReviewHistory handles GET /api/v1/events/{id}/review/history
func (h *Handlers) GetReviewHistory(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	history, err := h.Reviews.GetHistory(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}
	if history == nil {
		history = []review.Record{}
	}

	writeJSON(w, http.StatusOK, history)
}
