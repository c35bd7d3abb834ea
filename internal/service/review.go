package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	otelx "github.com/playsquare/reviewdesk/internal/adapter/otel"
	"github.com/playsquare/reviewdesk/internal/domain"
	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/review"
	"github.com/playsquare/reviewdesk/internal/domain/user"
	"github.com/playsquare/reviewdesk/internal/port/database"
	"github.com/playsquare/reviewdesk/internal/port/messagequeue"
)

// ReviewService implements the review use cases: recording a reviewer's
// decision on one channel and exposing status/history snapshots. All writes
// go through the store's guarded conditional update; the service never
// retries a conflict.
type ReviewService struct {
	store   database.Store
	queue   messagequeue.Queue
	cache   *eventCache
	metrics *otelx.Metrics
	now     func() time.Time
}

// NewReviewService creates a ReviewService. queue, cache, and metrics may be
// nil (publishing, caching, and instrumentation are then skipped).
func NewReviewService(store database.Store, queue messagequeue.Queue, cache *eventCache, metrics *otelx.Metrics) *ReviewService {
	return &ReviewService{
		store:   store,
		queue:   queue,
		cache:   cache,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetStatus returns the review snapshot of an event the user may see.
func (s *ReviewService) GetStatus(ctx context.Context, u *user.User, id string) (*event.GameEvent, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.CanRead(u, ev) {
		return nil, fmt.Errorf("read event %s: %w", id, domain.ErrForbidden)
	}
	return ev, nil
}

// GetHistory returns the append-only review history of an event.
func (s *ReviewService) GetHistory(ctx context.Context, u *user.User, id string) ([]review.Record, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.CanReadHistory(u, ev) {
		return nil, fmt.Errorf("read history of event %s: %w", id, domain.ErrForbidden)
	}
	return ev.History, nil
}

// RecordDecision applies one reviewer's (or admin's) decision to a channel.
//
// The write is guarded by the channel status observed here and by the
// caller's expected version when supplied; a loser of a concurrent race gets
// domain.ErrConflict and must re-read before retrying. A request whose
// desired status equals the current one is a no-op: it succeeds without a
// version bump or audit entry.
func (s *ReviewService) RecordDecision(ctx context.Context, actor *user.User, id string, req event.DecisionRequest) (*event.GameEvent, error) {
	desired, err := review.ParseStatus(string(req.Status))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	ch, err := s.decideChannel(actor, req.Channel, ev)
	if err != nil {
		return nil, err
	}
	if ev.Reviewers.Reviewer(ch) == "" {
		return nil, fmt.Errorf("%w: channel %s has no assigned reviewer", domain.ErrValidation, ch)
	}

	prev := ev.Statuses.Status(ch)
	if prev == desired {
		return ev, nil
	}
	if err := review.CheckTransition(prev, desired, actor.IsAdmin()); err != nil {
		if s.metrics != nil {
			s.metrics.TransitionsRejected.Add(ctx, 1)
		}
		return nil, err
	}

	next := ev.Statuses
	next.SetStatus(ch, desired)
	final := review.AggregateFinal(next)

	now := s.now()
	record := review.NewRecord(ch, actor.ID, prev, desired, req.Comment, now)

	change := event.Change{
		Statuses:      []event.StatusChange{{Channel: ch, Status: desired}},
		ReviewedAt:    []event.ReviewedAtChange{{Channel: ch, At: &now}},
		FinalStatus:   &final,
		SetApprovedAt: true,
		ApprovedAt:    resolveApprovedAt(ev, final, now),
		Append:        &record,
	}
	guard := event.Guard{
		ExpectedVersion: req.ExpectedVersion,
		Statuses:        []event.StatusGuard{{Channel: ch, Status: prev}},
	}

	updated, err := s.store.UpdateEventGuarded(ctx, id, guard, change)
	if err != nil {
		if s.metrics != nil && errors.Is(err, domain.ErrConflict) {
			s.metrics.WriteConflicts.Add(ctx, 1)
		}
		return nil, fmt.Errorf("record decision on event %s: %w", id, err)
	}
	if s.metrics != nil {
		s.metrics.DecisionsRecorded.Add(ctx, 1)
	}

	s.cache.invalidate(ctx, id)
	s.publishDecision(ctx, updated, record)
	return updated, nil
}

// decideChannel resolves which channel the actor acts on. Admins must name
// the channel explicitly; reviewers act only on their assigned channel.
func (s *ReviewService) decideChannel(actor *user.User, requested string, ev *event.GameEvent) (review.Channel, error) {
	if actor.IsAdmin() {
		if requested == "" {
			return "", fmt.Errorf("%w: admin must specify a channel", domain.ErrValidation)
		}
		ch, err := review.ParseChannel(requested)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return ch, nil
	}

	if actor.Role != user.RoleReviewer {
		return "", fmt.Errorf("%w: only reviewers or admins may record decisions", domain.ErrForbidden)
	}

	assigned, ok := ev.Reviewers.ChannelFor(actor.ID)
	if !ok {
		return "", fmt.Errorf("%w: not an assigned reviewer on this event", domain.ErrForbidden)
	}
	if requested != "" && requested != string(assigned) {
		return "", fmt.Errorf("%w: may only act on assigned channel %s", domain.ErrForbidden, assigned)
	}
	return assigned, nil
}

// resolveApprovedAt keeps the original approval time while the event stays
// approved, stamps now on the transition into APPROVED, and clears the
// timestamp otherwise.
func resolveApprovedAt(prev *event.GameEvent, next review.FinalStatus, now time.Time) *time.Time {
	if next != review.FinalApproved {
		return nil
	}
	if prev.FinalStatus == review.FinalApproved && prev.ApprovedAt != nil {
		return prev.ApprovedAt
	}
	return &now
}

func (s *ReviewService) publishDecision(ctx context.Context, ev *event.GameEvent, rec review.Record) {
	if s.queue == nil {
		return
	}
	payload, err := json.Marshal(messagequeue.ReviewDecidedPayload{
		EventID:     ev.ID,
		Channel:     string(rec.Channel),
		ReviewerID:  rec.ReviewerID,
		PrevStatus:  string(rec.PrevStatus),
		NextStatus:  string(rec.NextStatus),
		FinalStatus: string(ev.FinalStatus),
		DecidedAt:   rec.ChangedAt,
	})
	if err != nil {
		slog.Error("marshal review decided payload", "event_id", ev.ID, "error", err)
		return
	}
	// The decision is committed; a publish failure is logged, not surfaced.
	if err := s.queue.Publish(ctx, messagequeue.SubjectReviewDecided, payload); err != nil {
		slog.Error("publish review decided", "event_id", ev.ID, "error", err)
	}
}
