// Package user defines the user domain model for authentication and authorization.
package user

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/playsquare/reviewdesk/internal/domain"
	"github.com/playsquare/reviewdesk/internal/domain/review"
)

// Role represents the authorization level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RolePlanner  Role = "planner"
	RoleReviewer Role = "reviewer"
	RoleViewer   Role = "viewer"
)

// ValidRoles is the set of all valid user roles.
var ValidRoles = map[Role]bool{
	RoleAdmin:    true,
	RolePlanner:  true,
	RoleReviewer: true,
	RoleViewer:   true,
}

// User represents a registered user.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	PasswordHash string         `json:"-"` // never serialized
	Role         Role           `json:"role"`
	Team         review.Channel `json:"team,omitempty"` // reviewers only
	Enabled      bool           `json:"enabled"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// NormalizeTeam enforces the role/team rule: admins and viewers carry no
// team, planners are implicitly PM, and reviewers must name one of the four
// channels.
func NormalizeTeam(role Role, team review.Channel) (review.Channel, error) {
	switch role {
	case RoleAdmin, RoleViewer:
		return "", nil
	case RolePlanner:
		return review.ChannelPM, nil
	case RoleReviewer:
		if team == "" {
			return "", fmt.Errorf("%w: reviewer requires a team (PM/DEV/QA/CS)", domain.ErrValidation)
		}
		if _, err := review.ParseChannel(string(team)); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return team, nil
	}
	return "", fmt.Errorf("%w: invalid role %q", domain.ErrValidation, role)
}

// CreateRequest is the input for registering a new user.
type CreateRequest struct {
	Email    string         `json:"email"`
	Name     string         `json:"name"`
	Password string         `json:"password"`
	Role     Role           `json:"role"`
	Team     review.Channel `json:"team,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if !ValidRoles[r.Role] {
		return errors.New("invalid role: must be admin, planner, reviewer, or viewer")
	}
	return nil
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenClaims holds the verified claims of an access token.
type TokenClaims struct {
	UserID string
	Email  string
	Role   Role
	Team   review.Channel
	JTI    string
	Expiry time.Time
}

// RefreshToken is a stored, hashed refresh credential.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// LoginResponse is returned from login and refresh.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}
