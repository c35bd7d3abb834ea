package event

import (
	"time"

	"github.com/playsquare/reviewdesk/internal/domain/review"
)

// Query filters and pages the event listing. Visibility restrictions for the
// requesting user are applied by the store on top of these filters.
type Query struct {
	OwnerID      string
	FinalStatus  review.FinalStatus
	Confidential *bool
	StartFrom    *time.Time
	EndTo        *time.Time
	Page         int
	Limit        int
}

// Normalize clamps paging values to sane defaults.
func (q *Query) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
}
