// Package session keeps server-side session state keyed by an opaque id.
//
// The id travels to the client inside a signed cookie token. Values live in
// a Store (Redis in production, memory for development and tests) and
// expire with the store's TTL.
package session

import "decepticon/internal/model"

// Values is the attribute bag persisted for a session.
type Values struct {
	UserID    uint       `json:"user_id,omitempty"`
	UserRole  model.Role `json:"user_role,omitempty"`
	UserEmail string     `json:"user_email,omitempty"`
	Success   string     `json:"success,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Flash holds the one-time messages surfaced by a single response.
type Flash struct {
	Success string
	Error   string
}

// Empty reports whether there is nothing to show.
func (f Flash) Empty() bool {
	return f.Success == "" && f.Error == ""
}

// Session is the request-scoped handle on a session.
type Session struct {
	ID string
	Values

	// persisted is true once the record exists in the store.
	persisted bool
}

// Authenticated reports whether a user is signed in on this session.
func (s *Session) Authenticated() bool {
	return s.UserID != 0
}

// SetUser records the signed-in user.
func (s *Session) SetUser(u *model.User) {
	s.UserID = u.ID
	s.UserRole = u.Role
	s.UserEmail = u.Email
}

// TakeFlash returns the pending messages and clears them.
func (s *Session) TakeFlash() Flash {
	f := Flash{Success: s.Success, Error: s.Error}
	s.Success = ""
	s.Error = ""
	return f
}

// Persisted reports whether the session has a stored record.
func (s *Session) Persisted() bool {
	return s.persisted
}
