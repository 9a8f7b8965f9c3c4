package domain

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind names a UI notification.
type EventKind string

// Notification kinds delivered to the UI collaborator.
const (
	EventLoginSuccess       EventKind = "login-success"
	EventSessionReady       EventKind = "session-ready"
	EventLoggedOut          EventKind = "logged-out"
	EventNeedsTwoFactor     EventKind = "needs-two-factor"
	EventNewGiftOffer       EventKind = "new-gift-offer"
	EventNewTradeOffer      EventKind = "new-trade-offer"
	EventOfferStateChanged  EventKind = "offer-state-changed"
	EventOfferAccepted      EventKind = "offer-accepted"
	EventOfferDeclined      EventKind = "offer-declined"
	EventAutoAcceptFailed   EventKind = "auto-accept-failed"
	EventSessionExpired     EventKind = "session-expired"
	EventConnectionLost     EventKind = "connection-lost"
	EventSteamError         EventKind = "steam-error"
	EventDisconnected       EventKind = "disconnected"
	EventReconnectionFailed EventKind = "reconnection-failed"
	EventRateLimited        EventKind = "rate-limited"
)

// EventKinds lists every notification kind.
var EventKinds = []EventKind{
	EventLoginSuccess, EventSessionReady, EventLoggedOut, EventNeedsTwoFactor,
	EventNewGiftOffer, EventNewTradeOffer, EventOfferStateChanged,
	EventOfferAccepted, EventOfferDeclined, EventAutoAcceptFailed,
	EventSessionExpired, EventConnectionLost, EventSteamError,
	EventDisconnected, EventReconnectionFailed, EventRateLimited,
}

// EventIDPrefix is the prefix for event IDs.
const EventIDPrefix = "tgev-"

// Event is one UI notification.
//
// Only the fields relevant to Kind are set.
type Event struct {
	ID   string    `json:"id"`
	Kind EventKind `json:"kind"`
	Time time.Time `json:"time"`

	Identity  string      `json:"identity,omitempty"`
	SteamID   string      `json:"steam_id,omitempty"`
	Offer     *OfferView  `json:"offer,omitempty"`
	OfferID   string      `json:"offer_id,omitempty"`
	PrevState *OfferState `json:"prev_state,omitempty"`
	Code      int         `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
	Attempt   int         `json:"attempt,omitempty"`
	Recovered bool        `json:"recovered,omitempty"`
	RetryIn   string      `json:"retry_in,omitempty"`
}

// NewEvent creates an event of kind stamped with now and a fresh ID.
func NewEvent(kind EventKind, now time.Time) Event {
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		// crypto/rand failure; fall back to the zero-entropy form.
		id = ulid.MustNew(ulid.Timestamp(now), nil)
	}
	return Event{
		ID:   EventIDPrefix + id.String(),
		Kind: kind,
		Time: now,
	}
}
