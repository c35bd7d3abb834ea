package messagequeue

import "time"

// EventCreatedPayload is the schema for events.created messages.
type EventCreatedPayload struct {
	EventID     string `json:"event_id"`
	OwnerID     string `json:"owner_id"`
	FinalStatus string `json:"final_status"`
}

// ReviewDecidedPayload is the schema for events.review.decided messages.
type ReviewDecidedPayload struct {
	EventID     string    `json:"event_id"`
	Channel     string    `json:"channel"`
	ReviewerID  string    `json:"reviewer_id"`
	PrevStatus  string    `json:"prev_status"`
	NextStatus  string    `json:"next_status"`
	FinalStatus string    `json:"final_status"`
	DecidedAt   time.Time `json:"decided_at"`
}

// ReviewersChangedPayload is the schema for events.reviewers.changed messages.
type ReviewersChangedPayload struct {
	EventID     string `json:"event_id"`
	ActorID     string `json:"actor_id"`
	FinalStatus string `json:"final_status"`
}

// EventDeletedPayload is the schema for events.deleted messages.
type EventDeletedPayload struct {
	EventID string `json:"event_id"`
	ActorID string `json:"actor_id"`
}
