package loopback

import (
	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/remote"
)

// FailNext makes the next n calls of op fail with err. A negative n fails
// every call until Clear.
func (s *Server) FailNext(op Op, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{remaining: n, err: err}
}

// Clear removes any fault armed for op.
func (s *Server) Clear(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, op)
}

// Hold makes calls of op block until the returned release func is called
// or their context ends.
func (s *Server) Hold(op Op) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[op] = gate
	s.mu.Unlock()

	var once bool
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if once {
			return
		}
		once = true
		if s.gates[op] == gate {
			delete(s.gates, op)
		}
		close(gate)
	}
}

// Calls returns how many times op was invoked.
func (s *Server) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// PushOffer adds an offer to the book and announces it.
func (s *Server) PushOffer(o *domain.TradeOffer) {
	c := o.Clone()
	if c.State == 0 {
		c.State = domain.OfferStateActive
	}
	s.mu.Lock()
	s.offers[c.ID] = c
	s.mu.Unlock()

	s.emit(remote.Event{Kind: remote.EventNewOffer, Offer: c.Clone()})
}

// ChangeOffer moves an offer to a new state and announces the change.
func (s *Server) ChangeOffer(id string, to domain.OfferState) bool {
	s.mu.Lock()
	o, ok := s.offers[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	prev := o.State
	o.State = to
	c := o.Clone()
	s.mu.Unlock()

	s.emit(remote.Event{Kind: remote.EventOfferChanged, Offer: c, PrevState: prev})
	return true
}

// Offer returns a copy of the offer as the remote sees it.
func (s *Server) Offer(id string) (*domain.TradeOffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	return o.Clone(), ok
}

// Disconnect drops the transport and the web session and announces it.
func (s *Server) Disconnect(code int, msg string) {
	s.mu.Lock()
	s.connected = false
	s.webSession = false
	s.mu.Unlock()

	s.emit(remote.Event{Kind: remote.EventDisconnected, Code: code, Message: msg})
}

// SetConnected flips the transport flag without announcing anything,
// which is how a silent drop looks from the outside.
func (s *Server) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// ExpireSession invalidates the web session and announces it.
func (s *Server) ExpireSession() {
	s.mu.Lock()
	s.webSession = false
	s.mu.Unlock()

	s.emit(remote.Event{Kind: remote.EventSessionExpired})
}

// RaiseError announces a remote error outside any request.
func (s *Server) RaiseError(err error) {
	s.emit(remote.Event{Kind: remote.EventError, Err: err})
}
