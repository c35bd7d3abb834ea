package event

import (
	"time"

	"github.com/playsquare/reviewdesk/internal/domain/review"
)

// StatusGuard requires a channel to still hold the caller-observed status
// for a conditional write to apply.
type StatusGuard struct {
	Channel review.Channel
	Status  review.Status
}

// Guard is the precondition set for a conditional update. A write applies
// only when every listed channel status and the expected version (when set)
// still match the stored row.
type Guard struct {
	ExpectedVersion *int64
	Statuses        []StatusGuard
}

// StatusChange sets one channel's status.
type StatusChange struct {
	Channel review.Channel
	Status  review.Status
}

// ReviewedAtChange sets or clears one channel's reviewed-at timestamp.
type ReviewedAtChange struct {
	Channel review.Channel
	At      *time.Time // nil clears
}

// Change is the field set applied by one atomic guarded update. Nil pointers
// leave the stored value untouched. The store always increments the version
// and refreshes updated_at alongside these fields.
type Change struct {
	Name         *string
	Description  *string
	StartAt      *time.Time
	EndAt        *time.Time
	Confidential *bool

	Reviewers  *review.Assignments
	Statuses   []StatusChange
	ReviewedAt []ReviewedAtChange

	FinalStatus *review.FinalStatus

	// ApprovedAt is applied only when SetApprovedAt is true; a nil value
	// then clears the timestamp.
	SetApprovedAt bool
	ApprovedAt    *time.Time

	// Append adds one audit record to the review history.
	Append *review.Record
}
