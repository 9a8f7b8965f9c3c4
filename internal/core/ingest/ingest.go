// Package ingest implements Offer Ingest: it classifies offers delivered by
// the Session Guard, applies the auto-accept policy, keeps the working set
// of pending offers, and runs user accept/decline/list commands.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/core/guard"
	"github.com/yndnr/tradeguard/internal/core/notify"
	"github.com/yndnr/tradeguard/internal/remote"
	"github.com/yndnr/tradeguard/internal/telemetry/metric"
)

// DefaultAcceptTimeout bounds one remote accept call.
const DefaultAcceptTimeout = 30 * time.Second

// Ingest is the Offer Ingest component.
type Ingest struct {
	offers  remote.OfferManager
	pub     notify.Publisher
	logger  *slog.Logger
	metrics *metric.Registry
	now     func() time.Time
	timeout time.Duration

	queue chan func()
	done  chan struct{}
	once  sync.Once
	ctx   context.Context
	stop  context.CancelFunc
	wg    sync.WaitGroup

	// gen counts ended sessions; queued notifications of an older
	// session are dropped.
	gen atomic.Uint64

	mu       sync.RWMutex
	pending  map[string]*domain.TradeOffer
	seq      uint64
	listing  int
	touched  map[string]uint64
	resetSeq uint64
	swapSeq  uint64

	claimMu sync.Mutex
	claimed map[string]*claim
}

// claim is one acceptance of an offer id. done closes when the remote
// call returns; err is its outcome.
type claim struct {
	done chan struct{}
	err  error
}

func (c *claim) finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

var (
	_ guard.Observer = (*Ingest)(nil)
	_ guard.Prober   = (*Ingest)(nil)
)

// Option configures an Ingest.
type Option func(*Ingest)

// WithPublisher sets the notification sink.
func WithPublisher(p notify.Publisher) Option { return func(i *Ingest) { i.pub = p } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(i *Ingest) { i.logger = l } }

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option { return func(i *Ingest) { i.metrics = m } }

// WithAcceptTimeout bounds each automatic accept call.
func WithAcceptTimeout(d time.Duration) Option { return func(i *Ingest) { i.timeout = d } }

// New creates an Ingest over offers. Call Start before wiring it to a Guard.
func New(offers remote.OfferManager, opts ...Option) *Ingest {
	i := &Ingest{
		offers:  offers,
		logger:  slog.Default(),
		now:     time.Now,
		timeout: DefaultAcceptTimeout,
		queue:   make(chan func(), 1024),
		done:    make(chan struct{}),
		pending: make(map[string]*domain.TradeOffer),
		touched: make(map[string]uint64),
		claimed: make(map[string]*claim),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.pub == nil {
		i.pub = notify.NewRecorder()
	}
	i.logger = i.logger.With("component", "offer_ingest")
	i.ctx, i.stop = context.WithCancel(context.Background())
	return i
}

// Start launches the notification worker.
func (i *Ingest) Start() {
	go func() {
		for {
			select {
			case fn := <-i.queue:
				fn()
			case <-i.done:
				return
			}
		}
	}()
}

// Stop cancels in-flight automatic accepts and waits for them.
func (i *Ingest) Stop(ctx context.Context) error {
	i.once.Do(func() {
		i.stop()
		close(i.done)
	})
	finished := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Ingest) enqueue(fn func()) {
	select {
	case i.queue <- fn:
	case <-i.done:
	}
}

// OnNewOffer implements guard.Observer.
func (i *Ingest) OnNewOffer(sess domain.Session, offer *domain.TradeOffer) {
	gen := i.gen.Load()
	i.enqueue(func() {
		if gen == i.gen.Load() {
			i.handleNew(sess, offer)
		}
	})
}

// OnOfferStateChanged implements guard.Observer.
func (i *Ingest) OnOfferStateChanged(sess domain.Session, offer *domain.TradeOffer, prev domain.OfferState) {
	gen := i.gen.Load()
	i.enqueue(func() {
		if gen == i.gen.Load() {
			i.handleChanged(offer, prev)
		}
	})
}

// OnSessionEnded implements guard.Observer. The working set belongs to the
// ended session and is emptied.
func (i *Ingest) OnSessionEnded(sess domain.Session) {
	i.gen.Add(1)
	i.Reset()
	i.logger.Debug("working set cleared", "identity", sess.Identity)
}

func (i *Ingest) handleNew(sess domain.Session, offer *domain.TradeOffer) {
	if err := offer.Validate(); err != nil {
		i.logger.Warn("ignoring malformed offer", "error", err)
		return
	}
	if offer.State.IsOpen() {
		i.put(offer)
	}

	view := offer.View()
	if !offer.IsGift() {
		i.metrics.RecordOffer("trade")
		i.logger.Info("new trade offer", "offer_id", offer.ID, "partner", offer.Partner)
		i.publish(domain.EventNewTradeOffer, func(ev *domain.Event) {
			ev.Identity = sess.Identity
			ev.OfferID = offer.ID
			ev.Offer = &view
		})
		return
	}

	i.metrics.RecordOffer("gift")
	i.logger.Info("new gift offer", "offer_id", offer.ID, "partner", offer.Partner, "auto_accept", sess.AutoAcceptGifts)
	i.publish(domain.EventNewGiftOffer, func(ev *domain.Event) {
		ev.Identity = sess.Identity
		ev.OfferID = offer.ID
		ev.Offer = &view
	})

	if !sess.AutoAcceptGifts || !offer.State.IsOpen() {
		return
	}
	c, ok := i.claimAuto(offer.ID)
	if !ok {
		i.logger.Debug("gift already claimed for acceptance", "offer_id", offer.ID)
		return
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.autoAccept(sess.Identity, offer.ID, c)
	}()
}

func (i *Ingest) autoAccept(identity, id string, c *claim) {
	ctx, cancel := context.WithTimeout(i.ctx, i.timeout)
	defer cancel()

	err := i.offers.Accept(ctx, id)
	i.finish(c, err)
	if err != nil {
		reason := domain.Describe(remote.Classify(err))
		i.metrics.RecordAutoAccept("failed")
		i.logger.Error("failed to auto-accept gift", "offer_id", id, "error", err)
		i.publish(domain.EventAutoAcceptFailed, func(ev *domain.Event) {
			ev.Identity = identity
			ev.OfferID = id
			ev.Error = reason
		})
		return
	}

	i.remove(id)
	i.metrics.RecordAutoAccept("accepted")
	i.logger.Info("gift auto-accepted", "offer_id", id)
	i.publish(domain.EventOfferAccepted, func(ev *domain.Event) {
		ev.Identity = identity
		ev.OfferID = id
	})
}

func (i *Ingest) handleChanged(offer *domain.TradeOffer, prev domain.OfferState) {
	if offer.State.IsOpen() {
		i.put(offer)
	} else {
		i.remove(offer.ID)
		i.release(offer.ID)
	}

	view := offer.View()
	i.logger.Info("offer state changed", "offer_id", offer.ID, "from", prev.String(), "to", offer.State.String())
	i.publish(domain.EventOfferStateChanged, func(ev *domain.Event) {
		ev.OfferID = offer.ID
		ev.Offer = &view
		ev.PrevState = &prev
	})
}

// claimAuto claims id for automatic acceptance. It reports false if id
// holds a claim of any outcome, so a gift is auto-accepted at most once.
func (i *Ingest) claimAuto(id string) (*claim, bool) {
	i.claimMu.Lock()
	defer i.claimMu.Unlock()
	if _, ok := i.claimed[id]; ok {
		return nil, false
	}
	c := &claim{done: make(chan struct{})}
	i.claimed[id] = c
	return c, true
}

// claimManual claims id for a user accept. An accept in flight or already
// successful is returned with false for the caller to wait on; a failed
// one is replaced.
func (i *Ingest) claimManual(id string) (*claim, bool) {
	i.claimMu.Lock()
	defer i.claimMu.Unlock()
	if c, ok := i.claimed[id]; ok && (!c.finished() || c.err == nil) {
		return c, false
	}
	c := &claim{done: make(chan struct{})}
	i.claimed[id] = c
	return c, true
}

func (i *Ingest) finish(c *claim, err error) {
	i.claimMu.Lock()
	c.err = err
	close(c.done)
	i.claimMu.Unlock()
}

// release forgets the finished claim on id. Claims in flight are kept.
func (i *Ingest) release(id string) {
	i.claimMu.Lock()
	defer i.claimMu.Unlock()
	if c, ok := i.claimed[id]; ok && c.finished() {
		delete(i.claimed, id)
	}
}

// releaseAbsent forgets finished claims for offers outside active.
func (i *Ingest) releaseAbsent(active map[string]*domain.TradeOffer) {
	i.claimMu.Lock()
	defer i.claimMu.Unlock()
	for id, c := range i.claimed {
		if _, ok := active[id]; !ok && c.finished() {
			delete(i.claimed, id)
		}
	}
}

// Claimed reports whether id was claimed for acceptance.
func (i *Ingest) Claimed(id string) bool {
	i.claimMu.Lock()
	defer i.claimMu.Unlock()
	_, ok := i.claimed[id]
	return ok
}

func (i *Ingest) publish(kind domain.EventKind, fill func(*domain.Event)) {
	ev := domain.NewEvent(kind, i.now())
	fill(&ev)
	i.pub.Publish(ev)
}
