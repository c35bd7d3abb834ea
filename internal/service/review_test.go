package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/embedded"

	otelx "github.com/playsquare/reviewdesk/internal/adapter/otel"
	"github.com/playsquare/reviewdesk/internal/domain"
	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/review"
	"github.com/playsquare/reviewdesk/internal/domain/user"
)

var (
	admin    = &user.User{ID: "adm", Role: user.RoleAdmin}
	planner  = &user.User{ID: "owner", Role: user.RolePlanner}
	pmRev    = &user.User{ID: "u1", Role: user.RoleReviewer, Team: review.ChannelPM}
	qaRev    = &user.User{ID: "u2", Role: user.RoleReviewer, Team: review.ChannelQA}
	stranger = &user.User{ID: "nobody", Role: user.RoleReviewer, Team: review.ChannelDev}
)

// seedEvent stores an event with PM and QA reviewers assigned, both PENDING.
func seedEvent(t *testing.T, store *mockStore) *event.GameEvent {
	t.Helper()
	now := time.Now().UTC()
	ev := &event.GameEvent{
		ID:          "ev1",
		Name:        "summer-drop",
		Description: "seasonal login event",
		OwnerID:     "owner",
		StartAt:     now,
		EndAt:       now.Add(48 * time.Hour),
		Reviewers:   review.Assignments{PM: "u1", QA: "u2"},
		Statuses: review.Statuses{
			PM: review.StatusPending, Dev: review.StatusNotRequired,
			QA: review.StatusPending, CS: review.StatusNotRequired,
		},
		FinalStatus: review.FinalInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.CreateEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestRecordDecisionApprove(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	svc := NewReviewService(store, nil, nil, nil)

	got, err := svc.RecordDecision(context.Background(), pmRev, "ev1", event.DecisionRequest{
		Status: review.StatusApproved, Comment: "looks good",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Statuses.PM != review.StatusApproved {
		t.Errorf("PM status = %s, want APPROVED", got.Statuses.PM)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
	if len(got.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(got.History))
	}
	rec := got.History[0]
	if rec.Channel != review.ChannelPM || rec.ReviewerID != "u1" ||
		rec.PrevStatus != review.StatusPending || rec.NextStatus != review.StatusApproved {
		t.Errorf("unexpected audit record: %+v", rec)
	}
	if got.FinalStatus != review.FinalInProgress {
		t.Errorf("final = %s, want IN_PROGRESS while QA pending", got.FinalStatus)
	}
	if got.ReviewedAt.PM == nil {
		t.Error("pm reviewed_at not set")
	}
}

func TestRecordDecisionNoOp(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	svc := NewReviewService(store, nil, nil, nil)

	got, err := svc.RecordDecision(context.Background(), pmRev, "ev1", event.DecisionRequest{
		Status: review.StatusPending,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 0 {
		t.Errorf("no-op bumped version to %d", got.Version)
	}
	if len(got.History) != 0 {
		t.Errorf("no-op appended %d history entries", len(got.History))
	}
}

func TestRecordDecisionAuthorization(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	svc := NewReviewService(store, nil, nil, nil)
	ctx := context.Background()

	// Unassigned reviewer.
	_, err := svc.RecordDecision(ctx, stranger, "ev1", event.DecisionRequest{Status: review.StatusApproved})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("unassigned reviewer: got %v, want ErrForbidden", err)
	}

	// Assigned reviewer naming someone else's channel.
	_, err = svc.RecordDecision(ctx, pmRev, "ev1", event.DecisionRequest{
		Channel: "QA", Status: review.StatusApproved,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("cross-channel request: got %v, want ErrForbidden", err)
	}

	// Planner may not record decisions.
	_, err = svc.RecordDecision(ctx, planner, "ev1", event.DecisionRequest{Status: review.StatusApproved})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("planner decision: got %v, want ErrForbidden", err)
	}

	// Admin must name the channel.
	_, err = svc.RecordDecision(ctx, admin, "ev1", event.DecisionRequest{Status: review.StatusApproved})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("admin without channel: got %v, want ErrValidation", err)
	}

	// Admin targeting a channel with no assigned reviewer.
	_, err = svc.RecordDecision(ctx, admin, "ev1", event.DecisionRequest{
		Channel: "DEV", Status: review.StatusApproved,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unassigned channel: got %v, want ErrValidation", err)
	}
}

// Authorization is checked before no-op detection: a reviewer re-submitting
// another channel's current status still fails.
func TestRecordDecisionAuthBeforeNoOp(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	svc := NewReviewService(store, nil, nil, nil)

	_, err := svc.RecordDecision(context.Background(), pmRev, "ev1", event.DecisionRequest{
		Channel: "QA", Status: review.StatusPending,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden before no-op shortcut", err)
	}
}

func TestRecordDecisionStateMachine(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	svc := NewReviewService(store, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.RecordDecision(ctx, qaRev, "ev1", event.DecisionRequest{Status: review.StatusRejected}); err != nil {
		t.Fatal(err)
	}

	// Reviewer may not change a confirmed decision.
	_, err := svc.RecordDecision(ctx, qaRev, "ev1", event.DecisionRequest{Status: review.StatusApproved})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("reviewer flip of confirmed decision: got %v, want ErrConflict", err)
	}

	// Admin may not revert to PENDING.
	_, err = svc.RecordDecision(ctx, admin, "ev1", event.DecisionRequest{
		Channel: "QA", Status: review.StatusPending,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("revert to PENDING: got %v, want ErrConflict", err)
	}

	// Admin may flip REJECTED -> APPROVED.
	got, err := svc.RecordDecision(ctx, admin, "ev1", event.DecisionRequest{
		Channel: "QA", Status: review.StatusApproved,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Statuses.QA != review.StatusApproved {
		t.Errorf("QA = %s, want APPROVED after admin flip", got.Statuses.QA)
	}
}

func TestRecordDecisionVersionConflict(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	svc := NewReviewService(store, nil, nil, nil)
	ctx := context.Background()

	// Two callers both observed version 0.
	v0 := int64(0)
	if _, err := svc.RecordDecision(ctx, pmRev, "ev1", event.DecisionRequest{
		Status: review.StatusApproved, ExpectedVersion: &v0,
	}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.RecordDecision(ctx, admin, "ev1", event.DecisionRequest{
		Channel: "PM", Status: review.StatusRejected, ExpectedVersion: &v0,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("stale version: got %v, want ErrConflict", err)
	}

	stored, _ := store.GetEvent(ctx, "ev1")
	if stored.Version != 1 {
		t.Errorf("loser mutated the item: version = %d, want 1", stored.Version)
	}
	if len(stored.History) != 1 {
		t.Errorf("loser appended history: length = %d, want 1", len(stored.History))
	}
}

// Full walk of the end-to-end scenario: approve PM, reject QA, fail a revert,
// then an admin flip that approves the whole event.
func TestReviewLifecycle(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	svc := NewReviewService(store, nil, nil, nil)
	ctx := context.Background()

	ev, err := svc.RecordDecision(ctx, pmRev, "ev1", event.DecisionRequest{Status: review.StatusApproved})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Version != 1 || ev.FinalStatus != review.FinalInProgress {
		t.Fatalf("after PM approve: version=%d final=%s", ev.Version, ev.FinalStatus)
	}

	ev, err = svc.RecordDecision(ctx, qaRev, "ev1", event.DecisionRequest{Status: review.StatusRejected})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Version != 2 || ev.FinalStatus != review.FinalRejected {
		t.Fatalf("after QA reject: version=%d final=%s", ev.Version, ev.FinalStatus)
	}
	if ev.ApprovedAt != nil {
		t.Error("approved_at set while rejected")
	}

	_, err = svc.RecordDecision(ctx, qaRev, "ev1", event.DecisionRequest{Status: review.StatusPending})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("revert attempt: got %v, want ErrConflict", err)
	}

	ev, err = svc.RecordDecision(ctx, admin, "ev1", event.DecisionRequest{
		Channel: "QA", Status: review.StatusApproved,
	})
	if err != nil {
		t.Fatal(err)
	}
	if ev.FinalStatus != review.FinalApproved {
		t.Fatalf("final = %s, want APPROVED", ev.FinalStatus)
	}
	if ev.ApprovedAt == nil {
		t.Fatal("approved_at not set on transition to APPROVED")
	}
	if ev.Version != 3 || len(ev.History) != 3 {
		t.Fatalf("version=%d history=%d, want 3 and 3", ev.Version, len(ev.History))
	}
}

// countingCounter records increments so metric gating can be asserted.
type countingCounter struct {
	embedded.Int64Counter
	n int64
}

func (c *countingCounter) Add(_ context.Context, incr int64, _ ...metric.AddOption) {
	c.n += incr
}

func (c *countingCounter) Enabled(context.Context) bool { return true }

// Only a lost guarded write counts as a conflict; an event deleted between
// read and write does not.
func TestWriteConflictCounter(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	conflicts := &countingCounter{}
	svc := NewReviewService(store, nil, nil, &otelx.Metrics{WriteConflicts: conflicts})
	ctx := context.Background()

	store.updateErr = domain.ErrNotFound
	_, err := svc.RecordDecision(ctx, pmRev, "ev1", event.DecisionRequest{Status: review.StatusApproved})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if conflicts.n != 0 {
		t.Errorf("conflicts = %d after vanished event, want 0", conflicts.n)
	}

	store.updateErr = domain.ErrConflict
	_, err = svc.RecordDecision(ctx, pmRev, "ev1", event.DecisionRequest{Status: review.StatusApproved})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if conflicts.n != 1 {
		t.Errorf("conflicts = %d after lost write, want 1", conflicts.n)
	}
}

func TestGetHistoryForbidden(t *testing.T) {
	store := newMockStore()
	seedEvent(t, store)
	svc := NewReviewService(store, nil, nil, nil)

	viewer := &user.User{ID: "v", Role: user.RoleViewer}
	_, err := svc.GetHistory(context.Background(), viewer, "ev1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("viewer history read: got %v, want ErrForbidden", err)
	}

	recs, err := svc.GetHistory(context.Background(), planner, "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("fresh event history length = %d, want 0", len(recs))
	}
}

func TestRecordDecisionNotFound(t *testing.T) {
	svc := NewReviewService(newMockStore(), nil, nil, nil)
	_, err := svc.RecordDecision(context.Background(), admin, "missing", event.DecisionRequest{
		Channel: "PM", Status: review.StatusApproved,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
