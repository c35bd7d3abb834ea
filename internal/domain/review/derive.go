package review

// InitStatuses derives the initial channel statuses from the reviewer slots:
// PENDING when a slot is filled, NOT_REQUIRED otherwise.
func InitStatuses(reviewers Assignments) Statuses {
	var out Statuses
	for _, ch := range Channels {
		if reviewers.Reviewer(ch) != "" {
			out.SetStatus(ch, StatusPending)
		} else {
			out.SetStatus(ch, StatusNotRequired)
		}
	}
	return out
}

// RecalcOnReassignment recomputes channel statuses after reviewer slots
// change. Per channel, in order of precedence:
//
//  1. slot cleared            -> NOT_REQUIRED
//  2. reviewer changed        -> PENDING (a new reviewer starts fresh)
//  3. same reviewer but the channel was NOT_REQUIRED -> PENDING
//  4. otherwise               -> unchanged
func RecalcOnReassignment(prev Statuses, prevReviewers, nextReviewers Assignments) Statuses {
	next := prev
	for _, ch := range Channels {
		prevID := prevReviewers.Reviewer(ch)
		nextID := nextReviewers.Reviewer(ch)

		if nextID == "" {
			next.SetStatus(ch, StatusNotRequired)
			continue
		}
		if prevID == "" || prevID != nextID {
			next.SetStatus(ch, StatusPending)
			continue
		}
		if prev.Status(ch) == StatusNotRequired {
			next.SetStatus(ch, StatusPending)
		}
	}
	return next
}

// AggregateFinal derives the overall status from the four channel statuses.
// Channels at NOT_REQUIRED are ignored: any rejection rejects the event, any
// pending channel keeps it in progress, and an event with nothing left to
// review counts as approved.
func AggregateFinal(s Statuses) FinalStatus {
	anyPending := false
	for _, ch := range Channels {
		switch s.Status(ch) {
		case StatusRejected:
			return FinalRejected
		case StatusPending:
			anyPending = true
		}
	}
	if anyPending {
		return FinalInProgress
	}
	return FinalApproved
}
