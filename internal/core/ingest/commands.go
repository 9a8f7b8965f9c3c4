package ingest

import (
	"context"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/remote"
)

// Accept accepts a pending offer. An id outside the working set fails with
// ErrOfferNotFound without contacting the remote.
func (i *Ingest) Accept(ctx context.Context, id string) error {
	return i.resolve(ctx, id, "accept", i.offers.Accept, domain.EventOfferAccepted)
}

// Decline declines a pending offer. An id outside the working set fails
// with ErrOfferNotFound without contacting the remote.
func (i *Ingest) Decline(ctx context.Context, id string) error {
	return i.resolve(ctx, id, "decline", i.offers.Decline, domain.EventOfferDeclined)
}

func (i *Ingest) resolve(ctx context.Context, id, action string, call func(context.Context, string) error, kind domain.EventKind) error {
	if id == "" {
		return domain.ErrMissingArgument.WithDetails("offer id is required")
	}
	if _, ok := i.get(id); !ok {
		i.metrics.RecordOfferAction(action, "not_found")
		return domain.ErrOfferNotFound.WithDetails("offer " + id + " is not pending")
	}
	var c *claim
	if action == "accept" {
		var owner bool
		if c, owner = i.claimManual(id); !owner {
			return i.join(ctx, id, c)
		}
	}

	err := call(ctx, id)
	if c != nil {
		i.finish(c, err)
	}
	if err != nil {
		i.metrics.RecordOfferAction(action, "error")
		i.logger.Warn("offer action failed", "action", action, "offer_id", id, "error", err)
		return remote.Classify(err)
	}

	i.remove(id)
	i.metrics.RecordOfferAction(action, "ok")
	i.logger.Info("offer resolved", "action", action, "offer_id", id)
	i.publish(kind, func(ev *domain.Event) { ev.OfferID = id })
	return nil
}

// join waits for the accept already claimed on id and reports its outcome
// instead of calling the remote a second time.
func (i *Ingest) join(ctx context.Context, id string, c *claim) error {
	i.logger.Info("accept already in progress, waiting", "offer_id", id)
	select {
	case <-c.done:
	case <-ctx.Done():
		return remote.Classify(ctx.Err())
	}
	if c.err != nil {
		i.metrics.RecordOfferAction("accept", "error")
		return remote.Classify(c.err)
	}
	i.metrics.RecordOfferAction("accept", "ok")
	return nil
}

// ListPending fetches received offers from the remote, ordered by id. For
// FilterActiveOnly the working set is replaced with the result, keeping
// changes made to it while the remote call was running.
func (i *Ingest) ListPending(ctx context.Context, filter domain.OfferFilter) ([]*domain.TradeOffer, error) {
	start := i.mark()
	defer i.unmark()
	offers, err := i.offers.GetOffers(ctx, filter)
	if err != nil {
		return nil, remote.Classify(err)
	}
	domain.SortOffers(offers)

	if filter == domain.FilterActiveOnly {
		i.swap(start, offers)
	}

	out := make([]*domain.TradeOffer, len(offers))
	for n, o := range offers {
		out[n] = o.Clone()
	}
	return out, nil
}

// Probe lists active offers; it is the Session Guard's health probe.
func (i *Ingest) Probe(ctx context.Context) error {
	_, err := i.ListPending(ctx, domain.FilterActiveOnly)
	return err
}

// Pending returns a snapshot of the working set ordered by id.
func (i *Ingest) Pending() []*domain.TradeOffer {
	i.mu.RLock()
	out := make([]*domain.TradeOffer, 0, len(i.pending))
	for _, o := range i.pending {
		out = append(out, o.Clone())
	}
	i.mu.RUnlock()
	domain.SortOffers(out)
	return out
}

// Reset empties the working set. Claims are kept.
func (i *Ingest) Reset() {
	i.mu.Lock()
	i.pending = make(map[string]*domain.TradeOffer)
	i.touched = make(map[string]uint64)
	i.seq++
	i.resetSeq = i.seq
	i.mu.Unlock()
}

// mark returns the working set version a remote snapshot starts from.
// Changes are tracked until the matching unmark.
func (i *Ingest) mark() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listing++
	return i.seq
}

func (i *Ingest) unmark() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listing--
	if i.listing == 0 {
		i.touched = make(map[string]uint64)
	}
}

// swap replaces the working set with a snapshot taken from version start.
// Offers put or removed after start keep their current presence. A
// snapshot older than a reset or an applied swap is discarded.
func (i *Ingest) swap(start uint64, offers []*domain.TradeOffer) {
	next := make(map[string]*domain.TradeOffer, len(offers))
	for _, o := range offers {
		next[o.ID] = o.Clone()
	}

	i.mu.Lock()
	if i.resetSeq > start || i.swapSeq > start {
		i.mu.Unlock()
		return
	}
	touched := make(map[string]uint64)
	for id, v := range i.touched {
		if v <= start {
			continue
		}
		touched[id] = v
		if o, ok := i.pending[id]; ok {
			next[id] = o
		} else {
			delete(next, id)
		}
	}
	i.pending = next
	i.touched = touched
	i.swapSeq = start
	i.mu.Unlock()

	i.releaseAbsent(next)
}

func (i *Ingest) get(id string) (*domain.TradeOffer, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	o, ok := i.pending[id]
	return o, ok
}

func (i *Ingest) put(o *domain.TradeOffer) {
	i.mu.Lock()
	i.pending[o.ID] = o.Clone()
	i.seq++
	if i.listing > 0 {
		i.touched[o.ID] = i.seq
	}
	i.mu.Unlock()
}

func (i *Ingest) remove(id string) {
	i.mu.Lock()
	delete(i.pending, id)
	i.seq++
	if i.listing > 0 {
		i.touched[id] = i.seq
	}
	i.mu.Unlock()
}
