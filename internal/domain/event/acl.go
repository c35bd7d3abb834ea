package event

import "github.com/playsquare/reviewdesk/internal/domain/user"

// CanRead reports whether u may see the event at all. Public events are
// visible to everyone; confidential events only to admins, the owner, and
// assigned reviewers.
func CanRead(u *user.User, ev *GameEvent) bool {
	if !ev.Confidential || u.IsAdmin() {
		return true
	}
	if u.Role == user.RolePlanner && ev.OwnerID == u.ID {
		return true
	}
	if u.Role == user.RoleReviewer {
		_, assigned := ev.Reviewers.ChannelFor(u.ID)
		return assigned
	}
	return false
}

// CanModify reports whether u may change event metadata, reviewer slots, or
// delete the event: admins and the owning planner only.
func CanModify(u *user.User, ev *GameEvent) bool {
	if u.IsAdmin() {
		return true
	}
	return u.Role == user.RolePlanner && ev.OwnerID == u.ID
}

// CanReadHistory reports whether u may read the review audit trail: admins,
// the owner, and assigned reviewers.
func CanReadHistory(u *user.User, ev *GameEvent) bool {
	if u.IsAdmin() {
		return true
	}
	if u.Role == user.RolePlanner && ev.OwnerID == u.ID {
		return true
	}
	if u.Role == user.RoleReviewer {
		_, assigned := ev.Reviewers.ChannelFor(u.ID)
		return assigned
	}
	return false
}
