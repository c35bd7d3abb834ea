package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playsquare/reviewdesk/internal/config"
	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/review"
	"github.com/playsquare/reviewdesk/internal/domain/user"
	"github.com/playsquare/reviewdesk/internal/middleware"
	"github.com/playsquare/reviewdesk/internal/service"
)

var (
	testAdmin   = &user.User{ID: "admin-1", Email: "admin@example.com", Role: user.RoleAdmin, Enabled: true}
	testPlanner = &user.User{ID: "planner-1", Email: "planner@example.com", Role: user.RolePlanner, Team: review.ChannelPM, Enabled: true}
	testPMRev   = &user.User{ID: "pm-rev-1", Email: "pm@example.com", Role: user.RoleReviewer, Team: review.ChannelPM, Enabled: true}
	testViewer  = &user.User{ID: "viewer-1", Email: "viewer@example.com", Role: user.RoleViewer, Enabled: true}
)

func newTestRouter(t *testing.T) (chi.Router, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	authSvc := service.NewAuthService(store, &config.Auth{
		JWTSecret:       "handler-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		BcryptCost:      4,
	})
	eventSvc := service.NewEventService(store, nil, nil, nil)
	reviewSvc := service.NewReviewService(store, nil, nil, nil)

	r := chi.NewRouter()
	MountRoutes(r, NewHandlers(authSvc, eventSvc, reviewSvc), middleware.NewRateLimiter(1000, 1000))
	return r, store
}

// doAs serves a request with the given user already authenticated.
func doAs(t *testing.T, router http.Handler, u *user.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if u != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), u))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func seedTestEvent(t *testing.T, store *fakeStore) *event.GameEvent {
	t.Helper()
	now := time.Now().UTC()
	reviewers := review.Assignments{PM: testPMRev.ID}
	ev := &event.GameEvent{
		ID:          "ev-1",
		Name:        "Summer Drop",
		Description: "Limited-time summer cosmetics",
		OwnerID:     testPlanner.ID,
		StartAt:     now.Add(24 * time.Hour),
		EndAt:       now.Add(48 * time.Hour),
		Reviewers:   reviewers,
		Statuses:    review.InitStatuses(reviewers),
		FinalStatus: review.FinalInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.CreateEvent(t.Context(), ev); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

func TestCreateEventEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	now := time.Now().UTC()
	rec := doAs(t, router, testPlanner, http.MethodPost, "/api/v1/events", event.CreateRequest{
		Name:        "Winter Fest",
		Description: "Snow-themed limited event",
		StartAt:     now.Add(time.Hour),
		EndAt:       now.Add(72 * time.Hour),
		Reviewers:   review.Assignments{PM: testPMRev.ID},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	ev := decodeBody[event.GameEvent](t, rec)
	if ev.Statuses.PM != review.StatusPending {
		t.Errorf("PM status = %s, want PENDING", ev.Statuses.PM)
	}
	if ev.Statuses.Dev != review.StatusNotRequired {
		t.Errorf("DEV status = %s, want NOT_REQUIRED", ev.Statuses.Dev)
	}
	if ev.FinalStatus != review.FinalInProgress {
		t.Errorf("final status = %s, want IN_PROGRESS", ev.FinalStatus)
	}
}

func TestCreateEventRoleRequired(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doAs(t, router, testViewer, http.MethodPost, "/api/v1/events", event.CreateRequest{})
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer create: expected 403, got %d", rec.Code)
	}

	rec = doAs(t, router, nil, http.MethodPost, "/api/v1/events", event.CreateRequest{})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create: expected 401, got %d", rec.Code)
	}
}

func TestCreateEventValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	now := time.Now().UTC()
	rec := doAs(t, router, testPlanner, http.MethodPost, "/api/v1/events", event.CreateRequest{
		Name:        "Backwards",
		Description: "Dates reversed",
		StartAt:     now.Add(48 * time.Hour),
		EndAt:       now.Add(time.Hour),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetEventEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	rec := doAs(t, router, testViewer, http.MethodGet, "/api/v1/events/"+ev.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeBody[event.GameEvent](t, rec)
	if got.ID != ev.ID {
		t.Errorf("event ID = %s, want %s", got.ID, ev.ID)
	}

	rec = doAs(t, router, testViewer, http.MethodGet, "/api/v1/events/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing event: expected 404, got %d", rec.Code)
	}
}

func TestListEventsEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	seedTestEvent(t, store)

	rec := doAs(t, router, testViewer, http.MethodGet, "/api/v1/events?page=1&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[eventListResponse](t, rec)
	if resp.Total != 1 || len(resp.Events) != 1 {
		t.Errorf("total = %d, events = %d, want 1 each", resp.Total, len(resp.Events))
	}
	if resp.Limit != 10 {
		t.Errorf("limit = %d, want 10", resp.Limit)
	}
}

func TestListEventsBadQuery(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doAs(t, router, testViewer, http.MethodGet, "/api/v1/events?final_status=BOGUS", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRecordDecisionEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	rec := doAs(t, router, testPMRev, http.MethodPatch, "/api/v1/events/"+ev.ID+"/review/status", event.DecisionRequest{
		Status:  review.StatusApproved,
		Comment: "schedule looks good",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[event.GameEvent](t, rec)
	if got.Statuses.PM != review.StatusApproved {
		t.Errorf("PM status = %s, want APPROVED", got.Statuses.PM)
	}
	if got.FinalStatus != review.FinalApproved {
		t.Errorf("final status = %s, want APPROVED", got.FinalStatus)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
	if len(got.History) != 1 {
		t.Errorf("history length = %d, want 1", len(got.History))
	}
}

func TestRecordDecisionVersionConflict(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	stale := int64(5)
	rec := doAs(t, router, testPMRev, http.MethodPatch, "/api/v1/events/"+ev.ID+"/review/status", event.DecisionRequest{
		Status:          review.StatusApproved,
		ExpectedVersion: &stale,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestRecordDecisionForbidden(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	// Viewers never reach the service: the role gate rejects them.
	rec := doAs(t, router, testViewer, http.MethodPatch, "/api/v1/events/"+ev.ID+"/review/status", event.DecisionRequest{
		Status: review.StatusApproved,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer decision: expected 403, got %d", rec.Code)
	}

	// Admins must name a channel.
	rec = doAs(t, router, testAdmin, http.MethodPatch, "/api/v1/events/"+ev.ID+"/review/status", event.DecisionRequest{
		Status: review.StatusApproved,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("admin without channel: expected 400, got %d", rec.Code)
	}
}

func TestRecordDecisionInvalidStatus(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	rec := doAs(t, router, testPMRev, http.MethodPatch, "/api/v1/events/"+ev.ID+"/review/status", map[string]string{
		"status": "MAYBE",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestReviewStatusEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	rec := doAs(t, router, testViewer, http.MethodGet, "/api/v1/events/"+ev.ID+"/review/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[reviewStatusResponse](t, rec)
	if resp.EventID != ev.ID {
		t.Errorf("event ID = %s, want %s", resp.EventID, ev.ID)
	}
	if resp.Statuses.PM != review.StatusPending {
		t.Errorf("PM status = %s, want PENDING", resp.Statuses.PM)
	}
}

func TestReviewHistoryVisibility(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	// History is restricted to admins, the owner, and assigned reviewers.
	rec := doAs(t, router, testViewer, http.MethodGet, "/api/v1/events/"+ev.ID+"/review/history", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer history: expected 403, got %d", rec.Code)
	}

	rec = doAs(t, router, testPlanner, http.MethodGet, "/api/v1/events/"+ev.ID+"/review/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner history: expected 200, got %d", rec.Code)
	}
	history := decodeBody[[]review.Record](t, rec)
	if len(history) != 0 {
		t.Errorf("history length = %d, want 0", len(history))
	}
}

func TestReassignReviewersEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	next := "pm-rev-2"
	rec := doAs(t, router, testPlanner, http.MethodPatch, "/api/v1/events/"+ev.ID+"/reviewers", event.ReassignRequest{
		Reviewers: event.ReviewerPatch{PM: &next},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[event.GameEvent](t, rec)
	if got.Reviewers.PM != next {
		t.Errorf("PM reviewer = %s, want %s", got.Reviewers.PM, next)
	}
	if got.Statuses.PM != review.StatusPending {
		t.Errorf("PM status = %s, want PENDING", got.Statuses.PM)
	}

	rec = doAs(t, router, testPMRev, http.MethodPatch, "/api/v1/events/"+ev.ID+"/reviewers", event.ReassignRequest{
		Reviewers: event.ReviewerPatch{PM: &next},
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("reviewer reassign: expected 403, got %d", rec.Code)
	}
}

func TestUpdateEventEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	name := "Summer Drop v2"
	rec := doAs(t, router, testPlanner, http.MethodPatch, "/api/v1/events/"+ev.ID, event.UpdateRequest{
		Name: &name,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[event.GameEvent](t, rec)
	if got.Name != name {
		t.Errorf("name = %q, want %q", got.Name, name)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
}

func TestDeleteEventEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ev := seedTestEvent(t, store)

	rec := doAs(t, router, testPlanner, http.MethodDelete, "/api/v1/events/"+ev.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doAs(t, router, testPlanner, http.MethodGet, "/api/v1/events/"+ev.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted event: expected 404, got %d", rec.Code)
	}
}

func TestAuthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doAs(t, router, nil, http.MethodPost, "/api/v1/auth/register", user.CreateRequest{
		Email:    "qa@example.com",
		Name:     "QA Reviewer",
		Password: "correct-horse",
		Role:     user.RoleReviewer,
		Team:     review.ChannelQA,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doAs(t, router, nil, http.MethodPost, "/api/v1/auth/login", user.LoginRequest{
		Email:    "qa@example.com",
		Password: "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[user.LoginResponse](t, rec)
	if resp.AccessToken == "" {
		t.Error("expected a non-empty access token")
	}
	var refreshCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			refreshCookie = c
		}
	}
	if refreshCookie == nil || refreshCookie.Value == "" {
		t.Fatal("expected a refresh cookie")
	}
	if !refreshCookie.HttpOnly {
		t.Error("refresh cookie must be httpOnly")
	}

	// Rotate via the cookie.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", http.NoBody)
	req.AddCookie(refreshCookie)
	rotated := httptest.NewRecorder()
	router.ServeHTTP(rotated, req)
	if rotated.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rotated.Code, rotated.Body.String())
	}

	// The spent token is rejected on replay.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", http.NoBody)
	req.AddCookie(refreshCookie)
	replay := httptest.NewRecorder()
	router.ServeHTTP(replay, req)
	if replay.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh: expected 401, got %d", replay.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doAs(t, router, nil, http.MethodPost, "/api/v1/auth/login", user.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
