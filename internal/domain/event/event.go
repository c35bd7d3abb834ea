// Package event defines the game-event domain model: a reviewable work item
// with four reviewer slots, per-channel statuses, an aggregate final status,
// and an append-only review history guarded by an optimistic version counter.
package event

import (
	"errors"
	"time"

	"github.com/playsquare/reviewdesk/internal/domain/review"
)

// ReviewTimes records when each channel's current decision was made. A nil
// entry means the channel has no standing decision.
type ReviewTimes struct {
	PM  *time.Time `json:"pm_reviewed_at,omitempty"`
	Dev *time.Time `json:"dev_reviewed_at,omitempty"`
	QA  *time.Time `json:"qa_reviewed_at,omitempty"`
	CS  *time.Time `json:"cs_reviewed_at,omitempty"`
}

// At returns the reviewed-at time for the given channel.
func (r ReviewTimes) At(ch review.Channel) *time.Time {
	switch ch {
	case review.ChannelPM:
		return r.PM
	case review.ChannelDev:
		return r.Dev
	case review.ChannelQA:
		return r.QA
	case review.ChannelCS:
		return r.CS
	}
	return nil
}

// SetAt sets the reviewed-at time for the given channel.
func (r *ReviewTimes) SetAt(ch review.Channel, t *time.Time) {
	switch ch {
	case review.ChannelPM:
		r.PM = t
	case review.ChannelDev:
		r.Dev = t
	case review.ChannelQA:
		r.QA = t
	case review.ChannelCS:
		r.CS = t
	}
}

// GameEvent is one reviewable work item.
type GameEvent struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	OwnerID      string             `json:"owner_id"`
	StartAt      time.Time          `json:"start_at"`
	EndAt        time.Time          `json:"end_at"`
	Confidential bool               `json:"confidential"`
	Reviewers    review.Assignments `json:"reviewers"`
	Statuses     review.Statuses    `json:"statuses"`
	ReviewedAt   ReviewTimes        `json:"reviewed_at"`
	FinalStatus  review.FinalStatus `json:"final_status"`
	ApprovedAt   *time.Time         `json:"approved_at,omitempty"`
	Version      int64              `json:"version"`
	History      []review.Record    `json:"review_history"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// CreateRequest holds the fields for creating a new game event.
type CreateRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	StartAt      time.Time          `json:"start_at"`
	EndAt        time.Time          `json:"end_at"`
	Confidential bool               `json:"confidential"`
	Reviewers    review.Assignments `json:"reviewers"`
}

// Validate checks the create request for correctness.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Description == "" {
		return errors.New("description is required")
	}
	if r.StartAt.IsZero() || r.EndAt.IsZero() {
		return errors.New("start_at and end_at are required")
	}
	if r.EndAt.Before(r.StartAt) {
		return errors.New("end_at must be after start_at")
	}
	return nil
}

// ReviewerPatch updates reviewer slots. A nil pointer keeps the current
// reviewer; an empty string clears the slot.
type ReviewerPatch struct {
	PM  *string `json:"pm_reviewer_id,omitempty"`
	Dev *string `json:"dev_reviewer_id,omitempty"`
	QA  *string `json:"qa_reviewer_id,omitempty"`
	CS  *string `json:"cs_reviewer_id,omitempty"`
}

// Apply resolves the patch against the current assignments.
func (p ReviewerPatch) Apply(cur review.Assignments) review.Assignments {
	next := cur
	if p.PM != nil {
		next.PM = *p.PM
	}
	if p.Dev != nil {
		next.Dev = *p.Dev
	}
	if p.QA != nil {
		next.QA = *p.QA
	}
	if p.CS != nil {
		next.CS = *p.CS
	}
	return next
}

// Empty reports whether the patch touches no slot.
func (p ReviewerPatch) Empty() bool {
	return p.PM == nil && p.Dev == nil && p.QA == nil && p.CS == nil
}

// UpdateRequest holds the fields for updating event metadata and reviewer
// slots. ExpectedVersion, when set, guards the write.
type UpdateRequest struct {
	Name            *string       `json:"name,omitempty"`
	Description     *string       `json:"description,omitempty"`
	StartAt         *time.Time    `json:"start_at,omitempty"`
	EndAt           *time.Time    `json:"end_at,omitempty"`
	Confidential    *bool         `json:"confidential,omitempty"`
	Reviewers       ReviewerPatch `json:"reviewers"`
	ExpectedVersion *int64        `json:"expected_version,omitempty"`
}

// ReassignRequest holds the reviewer slot changes for the reassignment use case.
type ReassignRequest struct {
	Reviewers       ReviewerPatch `json:"reviewers"`
	ExpectedVersion *int64        `json:"expected_version,omitempty"`
}

// DecisionRequest records one reviewer's decision on a channel. Channel is
// required for admins and optional (but verified) for reviewers.
type DecisionRequest struct {
	Channel         string        `json:"channel,omitempty"`
	Status          review.Status `json:"status"`
	Comment         string        `json:"comment,omitempty"`
	ExpectedVersion *int64        `json:"expected_version,omitempty"`
}
