package review

import (
	"fmt"

	"github.com/playsquare/reviewdesk/internal/domain"
)

// CanTransition reports whether a channel may move from prev to next.
// NOT_REQUIRED is terminal. PENDING may move to APPROVED or REJECTED.
// A confirmed decision (APPROVED/REJECTED) may only be flipped between the
// two by an admin; reverting to PENDING is never legal.
func CanTransition(prev, next Status, admin bool) bool {
	switch prev {
	case StatusNotRequired:
		return false
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved, StatusRejected:
		if !admin {
			return false
		}
		return next == StatusApproved || next == StatusRejected
	}
	return false
}

// CheckTransition returns a domain.ErrConflict-wrapped error when the
// transition from prev to next is illegal for the actor.
func CheckTransition(prev, next Status, admin bool) error {
	if CanTransition(prev, next, admin) {
		return nil
	}
	switch prev {
	case StatusNotRequired:
		return fmt.Errorf("%w: channel is not required and cannot change", domain.ErrConflict)
	case StatusPending:
		return fmt.Errorf("%w: pending channel may only move to APPROVED or REJECTED", domain.ErrConflict)
	default:
		return fmt.Errorf("%w: only an admin may change a confirmed decision", domain.ErrConflict)
	}
}
