package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	otelx "github.com/playsquare/reviewdesk/internal/adapter/otel"
	"github.com/playsquare/reviewdesk/internal/domain"
	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/review"
	"github.com/playsquare/reviewdesk/internal/domain/user"
	"github.com/playsquare/reviewdesk/internal/port/database"
	"github.com/playsquare/reviewdesk/internal/port/messagequeue"
)

// EventService handles game-event lifecycle: creation with derived channel
// statuses, visibility-checked reads, metadata updates, and reviewer
// reassignment with status recomputation.
type EventService struct {
	store   database.Store
	queue   messagequeue.Queue
	cache   *eventCache
	metrics *otelx.Metrics
	now     func() time.Time
}

// NewEventService creates an EventService. queue, cache, and metrics may be nil.
func NewEventService(store database.Store, queue messagequeue.Queue, cache *eventCache, metrics *otelx.Metrics) *EventService {
	return &EventService{
		store:   store,
		queue:   queue,
		cache:   cache,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create builds a new game event owned by the acting planner (or admin).
// Channel statuses derive from the reviewer slots; the final status derives
// from the channel statuses.
func (s *EventService) Create(ctx context.Context, actor *user.User, req event.CreateRequest) (*event.GameEvent, error) {
	if actor.Role != user.RolePlanner && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only planners or admins may create events", domain.ErrForbidden)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	statuses := review.InitStatuses(req.Reviewers)
	final := review.AggregateFinal(statuses)
	now := s.now()

	ev := &event.GameEvent{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		OwnerID:      actor.ID,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		Confidential: req.Confidential,
		Reviewers:    req.Reviewers,
		Statuses:     statuses,
		FinalStatus:  final,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// An event with no required channels is approved from the start.
	if final == review.FinalApproved {
		ev.ApprovedAt = &now
	}

	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	if s.metrics != nil {
		s.metrics.EventsCreated.Add(ctx, 1)
	}

	s.publish(ctx, messagequeue.SubjectEventCreated, messagequeue.EventCreatedPayload{
		EventID:     ev.ID,
		OwnerID:     ev.OwnerID,
		FinalStatus: string(ev.FinalStatus),
	})
	return ev, nil
}

// Get returns one event the user may see. Reads go through the snapshot
// cache; write paths always read the store directly.
func (s *EventService) Get(ctx context.Context, u *user.User, id string) (*event.GameEvent, error) {
	if ev, ok := s.cache.get(ctx, id); ok {
		if !event.CanRead(u, ev) {
			return nil, fmt.Errorf("read event %s: %w", id, domain.ErrForbidden)
		}
		return ev, nil
	}

	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.CanRead(u, ev) {
		return nil, fmt.Errorf("read event %s: %w", id, domain.ErrForbidden)
	}
	s.cache.set(ctx, ev)
	return ev, nil
}

// List returns the events visible to the user matching the query, plus the
// total match count for paging.
func (s *EventService) List(ctx context.Context, u *user.User, q event.Query) ([]event.GameEvent, int, error) {
	q.Normalize()
	return s.store.ListEvents(ctx, q, u)
}

// Update applies metadata changes and reviewer slot changes in one guarded
// write. Reviewer changes recompute channel statuses, the final status, and
// the approval timestamp exactly as ReassignReviewers does.
func (s *EventService) Update(ctx context.Context, actor *user.User, id string, req event.UpdateRequest) (*event.GameEvent, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.CanModify(actor, ev) {
		return nil, fmt.Errorf("update event %s: %w", id, domain.ErrForbidden)
	}

	change := event.Change{
		Name:         req.Name,
		Description:  req.Description,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		Confidential: req.Confidential,
	}

	startAt, endAt := ev.StartAt, ev.EndAt
	if req.StartAt != nil {
		startAt = *req.StartAt
	}
	if req.EndAt != nil {
		endAt = *req.EndAt
	}
	if endAt.Before(startAt) {
		return nil, fmt.Errorf("%w: end_at must be after start_at", domain.ErrValidation)
	}

	if !req.Reviewers.Empty() {
		applyReassignment(&change, ev, req.Reviewers.Apply(ev.Reviewers), s.now())
	}

	updated, err := s.store.UpdateEventGuarded(ctx, id, event.Guard{ExpectedVersion: req.ExpectedVersion}, change)
	if err != nil {
		return nil, fmt.Errorf("update event %s: %w", id, err)
	}

	s.cache.invalidate(ctx, id)
	if !req.Reviewers.Empty() {
		s.publishReassigned(ctx, updated, actor.ID)
	}
	return updated, nil
}

// ReassignReviewers changes reviewer slots and recomputes channel statuses,
// final status, and approval timestamp in one atomic write guarded by the
// expected version only (a reassignment may touch several channels).
func (s *EventService) ReassignReviewers(ctx context.Context, actor *user.User, id string, req event.ReassignRequest) (*event.GameEvent, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.CanModify(actor, ev) {
		return nil, fmt.Errorf("reassign reviewers on event %s: %w", id, domain.ErrForbidden)
	}

	var change event.Change
	applyReassignment(&change, ev, req.Reviewers.Apply(ev.Reviewers), s.now())

	updated, err := s.store.UpdateEventGuarded(ctx, id, event.Guard{ExpectedVersion: req.ExpectedVersion}, change)
	if err != nil {
		if s.metrics != nil && errors.Is(err, domain.ErrConflict) {
			s.metrics.WriteConflicts.Add(ctx, 1)
		}
		return nil, fmt.Errorf("reassign reviewers on event %s: %w", id, err)
	}
	if s.metrics != nil {
		s.metrics.ReviewersReassigned.Add(ctx, 1)
	}

	s.cache.invalidate(ctx, id)
	s.publishReassigned(ctx, updated, actor.ID)
	return updated, nil
}

// Delete removes an event. Deletion invalidates the item for all future
// guarded writes (they report not found).
func (s *EventService) Delete(ctx context.Context, actor *user.User, id string) error {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if !event.CanModify(actor, ev) {
		return fmt.Errorf("delete event %s: %w", id, domain.ErrForbidden)
	}

	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	s.cache.invalidate(ctx, id)
	s.publish(ctx, messagequeue.SubjectEventDeleted, messagequeue.EventDeletedPayload{
		EventID: id,
		ActorID: actor.ID,
	})
	return nil
}

// applyReassignment fills change with the full reassignment derivation:
// next reviewer slots, recomputed channel statuses, reviewed-at resets for
// channels falling back to PENDING or NOT_REQUIRED, next final status, and
// the preserved-or-cleared approval timestamp.
func applyReassignment(change *event.Change, ev *event.GameEvent, nextReviewers review.Assignments, now time.Time) {
	nextStatuses := review.RecalcOnReassignment(ev.Statuses, ev.Reviewers, nextReviewers)
	final := review.AggregateFinal(nextStatuses)

	change.Reviewers = &nextReviewers
	for _, ch := range review.Channels {
		change.Statuses = append(change.Statuses, event.StatusChange{Channel: ch, Status: nextStatuses.Status(ch)})
		prev, next := ev.Statuses.Status(ch), nextStatuses.Status(ch)
		if next != prev && (next == review.StatusPending || next == review.StatusNotRequired) {
			change.ReviewedAt = append(change.ReviewedAt, event.ReviewedAtChange{Channel: ch, At: nil})
		}
	}
	change.FinalStatus = &final
	change.SetApprovedAt = true
	change.ApprovedAt = resolveApprovedAt(ev, final, now)
}

func (s *EventService) publishReassigned(ctx context.Context, ev *event.GameEvent, actorID string) {
	s.publish(ctx, messagequeue.SubjectReviewersChanged, messagequeue.ReviewersChangedPayload{
		EventID:     ev.ID,
		ActorID:     actorID,
		FinalStatus: string(ev.FinalStatus),
	})
}

// publish sends a message best-effort: the write is already committed, so a
// queue failure is logged and not surfaced to the caller.
func (s *EventService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish failed", "subject", subject, "error", err)
	}
}
