package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/review"
	"github.com/playsquare/reviewdesk/internal/middleware"
)

// eventListResponse pages the event listing.
type eventListResponse struct {
	Events []event.GameEvent `json:"events"`
	Total  int               `json:"total"`
	Page   int               `json:"page"`
	Limit  int               `json:"limit"`
}

// CreateEvent handles POST /api/v1/events
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[event.CreateRequest](w, r)
	if !ok {
		return
	}

	ev, err := h.Events.Create(r.Context(), u, req)
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

// ListEvents handles GET /api/v1/events
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	q, err := parseEventQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, total, err := h.Events.List(r.Context(), u, q)
	if err != nil {
		writeDomainError(w, err, "events not found")
		return
	}
	if events == nil {
		events = []event.GameEvent{}
	}

	q.Normalize()
	writeJSON(w, http.StatusOK, eventListResponse{
		Events: events,
		Total:  total,
		Page:   q.Page,
		Limit:  q.Limit,
	})
}

// GetEvent handles GET /api/v1/events/{id}
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	ev, err := h.Events.Get(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

// UpdateEvent handles PATCH /api/v1/events/{id}
func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[event.UpdateRequest](w, r)
	if !ok {
		return
	}

	ev, err := h.Events.Update(r.Context(), u, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

// DeleteEvent handles DELETE /api/v1/events/{id}
func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.Events.Delete(r.Context(), u, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "event not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReassignReviewers handles PATCH /api/v1/events/{id}/reviewers
func (h *Handlers) ReassignReviewers(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[event.ReassignRequest](w, r)
	if !ok {
		return
	}

	ev, err := h.Events.ReassignReviewers(r.Context(), u, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

// parseEventQuery builds an event.Query from the listing query string.
func parseEventQuery(r *http.Request) (event.Query, error) {
	var q event.Query
	vals := r.URL.Query()

	q.OwnerID = vals.Get("owner_id")
	if s := vals.Get("final_status"); s != "" {
		switch review.FinalStatus(s) {
		case review.FinalInProgress, review.FinalApproved, review.FinalRejected:
			q.FinalStatus = review.FinalStatus(s)
		default:
			return q, errInvalidQueryParam("final_status", s)
		}
	}
	if s := vals.Get("confidential"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, errInvalidQueryParam("confidential", s)
		}
		q.Confidential = &b
	}
	if s := vals.Get("start_from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errInvalidQueryParam("start_from", s)
		}
		q.StartFrom = &t
	}
	if s := vals.Get("end_to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errInvalidQueryParam("end_to", s)
		}
		q.EndTo = &t
	}
	if s := vals.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, errInvalidQueryParam("page", s)
		}
		q.Page = n
	}
	if s := vals.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, errInvalidQueryParam("limit", s)
		}
		q.Limit = n
	}
	return q, nil
}

type queryParamError struct {
	name  string
	value string
}

func (e queryParamError) Error() string {
	return "invalid value " + strconv.Quote(e.value) + " for query parameter " + e.name
}

func errInvalidQueryParam(name, value string) error {
	return queryParamError{name: name, value: value}
}
