// Package domain defines the core domain models for TradeGuard.
package domain

import (
	"crypto/rand"
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionState is the Session Guard's lifecycle state.
type SessionState int

// Session Guard states.
const (
	StateLoggedOut SessionState = iota
	StateAuthenticating
	StateEstablishing
	StateHealthy
	StateDegraded
	StateRecovering
	StateFailed
)

var sessionStateNames = [...]string{
	StateLoggedOut:      "logged_out",
	StateAuthenticating: "authenticating",
	StateEstablishing:   "establishing",
	StateHealthy:        "healthy",
	StateDegraded:       "degraded",
	StateRecovering:     "recovering",
	StateFailed:         "failed",
}

// String returns the snake_case state name.
func (s SessionState) String() string {
	if s >= 0 && int(s) < len(sessionStateNames) {
		return sessionStateNames[s]
	}
	return "unknown"
}

// MarshalJSON encodes the state by name.
func (s SessionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name.
func (s *SessionState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range sessionStateNames {
		if n == name {
			*s = SessionState(i)
			return nil
		}
	}
	return ErrInvalidArgument.WithDetails("unknown session state " + name)
}

// HasSession reports whether a Session exists in this state.
func (s SessionState) HasSession() bool {
	return s == StateHealthy || s == StateDegraded || s == StateRecovering
}

// IsLoggingIn reports whether a login attempt is in flight.
func (s SessionState) IsLoggingIn() bool {
	return s == StateAuthenticating || s == StateEstablishing
}

// SessionIDPrefix is the prefix for session IDs.
const SessionIDPrefix = "tgss-"

// Session is the single logical authenticated connection.
//
// A Session only exists once the web session handshake has completed;
// it is owned by the Session Guard and handed out as a copy.
type Session struct {
	// ID identifies this session instance (tgss-{ulid}).
	ID string `json:"id"`

	// Identity is the account name used to log in.
	Identity string `json:"identity"`

	// SteamID is the 64-bit id reported by the remote on logon.
	SteamID string `json:"steam_id,omitempty"`

	// State is the guard state at the time the copy was taken.
	State SessionState `json:"state"`

	// EstablishedAt is when the handshake completed.
	EstablishedAt time.Time `json:"established_at"`

	// LastOfferObservedAt is when the last push notification about an
	// offer arrived. Zero until the first one.
	LastOfferObservedAt time.Time `json:"last_offer_observed_at,omitempty"`

	// LastProbeOKAt is when a health probe last succeeded.
	LastProbeOKAt time.Time `json:"last_probe_ok_at,omitempty"`

	// AutoAcceptGifts enables automatic acceptance of gift offers.
	AutoAcceptGifts bool `json:"auto_accept_gifts"`

	// Recoveries counts successful recoveries during this session.
	Recoveries int `json:"recoveries"`
}

// NewSession creates a session for identity with a generated ID.
func NewSession(identity, steamID string, autoAcceptGifts bool, now time.Time) (*Session, error) {
	if identity == "" {
		return nil, ErrMissingArgument.WithDetails("identity is required")
	}

	id, err := GenerateSessionID(now)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:              id,
		Identity:        identity,
		SteamID:         steamID,
		State:           StateHealthy,
		EstablishedAt:   now,
		AutoAcceptGifts: autoAcceptGifts,
	}, nil
}

// GenerateSessionID generates a new session ID using ULID.
func GenerateSessionID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// ObserveOffer records offer activity at t. Older timestamps are ignored so
// the value never moves backwards.
func (s *Session) ObserveOffer(t time.Time) {
	if t.After(s.LastOfferObservedAt) {
		s.LastOfferObservedAt = t
	}
}

// IdleFor returns how long no offer has been observed. It reports false
// when no offer was observed during this session.
func (s *Session) IdleFor(now time.Time) (time.Duration, bool) {
	if s.LastOfferObservedAt.IsZero() {
		return 0, false
	}
	return now.Sub(s.LastOfferObservedAt), true
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Credentials are the inputs of a login attempt.
type Credentials struct {
	Identity string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"two_factor_code,omitempty"`
}

// Validate checks that the required fields are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Identity) == "" {
		return ErrMissingArgument.WithDetails("username is required")
	}
	if c.Password == "" {
		return ErrMissingArgument.WithDetails("password is required")
	}
	return nil
}
