package remote

import (
	"context"

	"github.com/yndnr/tradeguard/internal/core/domain"
)

// LogOnResult is what the remote reports when it accepts credentials.
type LogOnResult struct {
	SteamID string
}

// Client is the authenticated connection to the trading service.
//
// LogOn returns nil error when credentials are accepted; the web session
// handshake is still pending and completes through WebLogOn. A refusal is
// reported as an *Error whose EResult classifies it (see Classify).
type Client interface {
	LogOn(ctx context.Context, creds domain.Credentials) (LogOnResult, error)

	// WebLogOn performs the web session handshake. It is also the renewal
	// call used during recovery.
	WebLogOn(ctx context.Context) error

	// LogOff ends the remote session. Best effort.
	LogOff(ctx context.Context) error

	// Connected reports the transport-level connection flag.
	Connected() bool

	// Events returns the push event stream. The channel stays open for the
	// lifetime of the client.
	Events() <-chan Event
}

// OfferManager lists and resolves trade offers on behalf of the logged-in
// account. Every call requires a completed web session.
type OfferManager interface {
	// GetOffers returns received offers matching filter.
	GetOffers(ctx context.Context, filter domain.OfferFilter) ([]*domain.TradeOffer, error)
	GetOffer(ctx context.Context, id string) (*domain.TradeOffer, error)
	Accept(ctx context.Context, id string) error
	Decline(ctx context.Context, id string) error
}

// Driver bundles the two halves a daemon needs.
type Driver interface {
	Client
	OfferManager
}

// EventKind classifies a remote push event.
type EventKind int

const (
	// EventDisconnected reports a transport drop with a code and message.
	EventDisconnected EventKind = iota + 1
	// EventError reports a remote error outside any request.
	EventError
	// EventNewOffer reports a newly received offer.
	EventNewOffer
	// EventOfferChanged reports a state change of a known offer.
	EventOfferChanged
	// EventSessionExpired reports that the web session is no longer valid.
	EventSessionExpired
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	case EventNewOffer:
		return "new_offer"
	case EventOfferChanged:
		return "offer_changed"
	case EventSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// Event is one push notification from the remote service.
type Event struct {
	Kind EventKind

	// Disconnected
	Code    int
	Message string

	// Error
	Err error

	// NewOffer, OfferChanged
	Offer     *domain.TradeOffer
	PrevState domain.OfferState
}
