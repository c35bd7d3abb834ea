// Package review implements the per-channel review model for game events:
// the four review channels, their status lifecycle, and the pure derivations
// that keep channel statuses and the aggregate final status consistent.
package review

import "fmt"

// Channel identifies one of the four independent review tracks.
type Channel string

const (
	ChannelPM  Channel = "PM"
	ChannelDev Channel = "DEV"
	ChannelQA  Channel = "QA"
	ChannelCS  Channel = "CS"
)

// Channels lists all review channels in canonical order.
var Channels = [4]Channel{ChannelPM, ChannelDev, ChannelQA, ChannelCS}

// ParseChannel converts a wire value into a Channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelPM, ChannelDev, ChannelQA, ChannelCS:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown review channel %q", s)
}

// Status is the lifecycle state of a single channel's decision.
type Status string

const (
	StatusNotRequired Status = "NOT_REQUIRED"
	StatusPending     Status = "PENDING"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
)

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNotRequired, StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown review status %q", s)
}

// FinalStatus is the aggregate decision over all required channels.
type FinalStatus string

const (
	FinalInProgress FinalStatus = "IN_PROGRESS"
	FinalApproved   FinalStatus = "APPROVED"
	FinalRejected   FinalStatus = "REJECTED"
)

// Assignments holds the reviewer slot for each channel. An empty string
// means the channel has no reviewer and is not required.
type Assignments struct {
	PM  string `json:"pm_reviewer_id"`
	Dev string `json:"dev_reviewer_id"`
	QA  string `json:"qa_reviewer_id"`
	CS  string `json:"cs_reviewer_id"`
}

// Reviewer returns the reviewer slot for the given channel.
func (a Assignments) Reviewer(ch Channel) string {
	switch ch {
	case ChannelPM:
		return a.PM
	case ChannelDev:
		return a.Dev
	case ChannelQA:
		return a.QA
	case ChannelCS:
		return a.CS
	}
	return ""
}

// SetReviewer sets the reviewer slot for the given channel.
func (a *Assignments) SetReviewer(ch Channel, id string) {
	switch ch {
	case ChannelPM:
		a.PM = id
	case ChannelDev:
		a.Dev = id
	case ChannelQA:
		a.QA = id
	case ChannelCS:
		a.CS = id
	}
}

// ChannelFor returns the channel the given reviewer is assigned to, in
// canonical order. ok is false when the reviewer holds no slot.
func (a Assignments) ChannelFor(reviewerID string) (Channel, bool) {
	if reviewerID == "" {
		return "", false
	}
	for _, ch := range Channels {
		if a.Reviewer(ch) == reviewerID {
			return ch, true
		}
	}
	return "", false
}

// Statuses holds the status of each channel.
type Statuses struct {
	PM  Status `json:"pm_status"`
	Dev Status `json:"dev_status"`
	QA  Status `json:"qa_status"`
	CS  Status `json:"cs_status"`
}

// Status returns the status of the given channel.
func (s Statuses) Status(ch Channel) Status {
	switch ch {
	case ChannelPM:
		return s.PM
	case ChannelDev:
		return s.Dev
	case ChannelQA:
		return s.QA
	case ChannelCS:
		return s.CS
	}
	return StatusNotRequired
}

// SetStatus sets the status of the given channel.
func (s *Statuses) SetStatus(ch Channel, st Status) {
	switch ch {
	case ChannelPM:
		s.PM = st
	case ChannelDev:
		s.Dev = st
	case ChannelQA:
		s.QA = st
	case ChannelCS:
		s.CS = st
	}
}
