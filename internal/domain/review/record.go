package review

import "time"

// Record is one immutable audit entry for an accepted status change.
type Record struct {
	Channel    Channel   `json:"channel"`
	ReviewerID string    `json:"reviewer_id"`
	PrevStatus Status    `json:"prev_status"`
	NextStatus Status    `json:"next_status"`
	Comment    string    `json:"comment"`
	ChangedAt  time.Time `json:"changed_at"`
}

// NewRecord builds the audit entry for a validated transition. It is never
// called for no-op requests.
func NewRecord(ch Channel, reviewerID string, prev, next Status, comment string, at time.Time) Record {
	return Record{
		Channel:    ch,
		ReviewerID: reviewerID,
		PrevStatus: prev,
		NextStatus: next,
		Comment:    comment,
		ChangedAt:  at,
	}
}
