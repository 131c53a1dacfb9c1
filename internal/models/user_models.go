package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Staff roles. Admins may force request transitions outside the state machine.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Authenticator assurance levels carried in the session token. AAL1 means
// password only; AAL2 means the email code factor was also verified.
const (
	AAL1 = "aal1"
	AAL2 = "aal2"
)

// User is a staff account that can sign in to the console.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	MFAEnrolled  bool      `json:"mfa_enrolled"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session identifies the actor behind a core operation. It is built from the
// verified token claims and passed explicitly to every service method; there
// is no ambient authentication state.
type Session struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	AAL      string `json:"aal"`
}

// FullyAuthenticated reports whether the session satisfies the user's
// enrolled factors: AAL2, or AAL1 for users with no second factor.
func (s Session) FullyAuthenticated(mfaEnrolled bool) bool {
	return !mfaEnrolled || s.AAL == AAL2
}

// SessionClaims is the JWT payload for console sessions.
type SessionClaims struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	AAL      string `json:"aal"`
	jwt.RegisteredClaims
}

// Session converts verified claims into the Session passed to services.
func (c *SessionClaims) Session() Session {
	return Session{
		UserID:   c.Subject,
		Email:    c.Email,
		FullName: c.FullName,
		Role:     c.Role,
		AAL:      c.AAL,
	}
}

// LoginRequest represents the credentials posted to the sign-in endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned from sign-in. When MFARequired is set the token
// is absent and the client must verify the emailed code for the challenge.
type LoginResponse struct {
	Token       string `json:"token,omitempty"`
	MFARequired bool   `json:"mfa_required,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// VerifyChallengeRequest carries the emailed six-digit code back to us.
type VerifyChallengeRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}
