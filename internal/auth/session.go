// Package auth tracks whether the user is signed in and drives the
// redirect-based OAuth sign-in flow.
//
// The Manager is a three-state machine:
//
//	Unauthenticated --SignIn--> Authenticating --callback--> Authenticated
//	      ^                          |                            |
//	      +---- cancel/timeout/fail -+                            |
//	      +------------------------ SignOut ----------------------+
//
// The callback arrives out of band: the browser redirects to a deep link,
// the OS hands it to `denttrack auth callback`, which drops it in the
// Inbox directory watched by the running process.
package auth

import (
	"errors"
	"fmt"
	"time"
)

// Session is an authenticated user session.
type Session struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email,omitempty"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the access token expires within skew of now.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return true
	}
	return !now.Add(skew).Before(s.ExpiresAt)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// State is the session state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// EventType identifies a session transition.
type EventType int

const (
	EventSignedIn EventType = iota + 1
	EventSignedOut
	EventSignInFailed
)

func (t EventType) String() string {
	switch t {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventSignInFailed:
		return "sign_in_failed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after every transition.
type Event struct {
	Type EventType
	// Session is set for EventSignedIn.
	Session *Session
	// Restored is true when the session was restored at start-up rather
	// than established by an interactive sign-in.
	Restored bool
	// Err is set for EventSignInFailed.
	Err error
}

var (
	// ErrSignInCancelled is reported when a pending sign-in is cancelled.
	ErrSignInCancelled = errors.New("sign-in cancelled")
	// ErrSignInTimeout is reported when no callback arrives in time.
	ErrSignInTimeout = errors.New("sign-in timed out")
	// ErrSignInDenied is reported when the provider redirects back with an
	// error instead of tokens.
	ErrSignInDenied = errors.New("sign-in denied by provider")
	// ErrSessionExpired is returned by a Provider when a refresh token is
	// no longer accepted.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotConfigured is returned when no authentication provider is set up.
	ErrNotConfigured = errors.New("authentication not configured")
)

// TransitionError reports an operation attempted from the wrong state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// Is lets errors.Is(err, ErrInvalidTransition) match any TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ErrInvalidTransition matches every *TransitionError.
var ErrInvalidTransition = errors.New("invalid session transition")
