package guard

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/core/notify"
	"github.com/yndnr/tradeguard/internal/remote"
	"github.com/yndnr/tradeguard/internal/remote/loopback"
	"github.com/yndnr/tradeguard/pkg/guardcode"
)

const bobSecret = "c2VjcmV0c2VjcmV0c2VjcmV0"

var epoch0 = time.Unix(1700000010, 0)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c    *fakeClock
	at   time.Time
	d    time.Duration
	f    func()
	done bool
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward and runs every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && !t.at.After(c.now) {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending(d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.timers {
		if !t.done && t.d == d {
			return true
		}
	}
	return false
}

// waitTimer blocks until a timer of duration d is pending.
func (c *fakeClock) waitTimer(t *testing.T, d time.Duration) {
	t.Helper()
	eventually(t, "timer "+d.String(), func() bool { return c.pending(d) })
}

type fakeProber struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
}

func (p *fakeProber) Probe(ctx context.Context) error {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

type codeSource map[string]string

func (c codeSource) GenerateCode(account string) (string, bool) {
	code, ok := c[account]
	return code, ok
}

type seenOffer struct {
	sess  domain.Session
	offer *domain.TradeOffer
}

type recordingObserver struct {
	mu      sync.Mutex
	offers  []seenOffer
	changes int
	ended   []string
}

func (o *recordingObserver) OnNewOffer(sess domain.Session, offer *domain.TradeOffer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.offers = append(o.offers, seenOffer{sess, offer})
}

func (o *recordingObserver) OnOfferStateChanged(domain.Session, *domain.TradeOffer, domain.OfferState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes++
}

func (o *recordingObserver) OnSessionEnded(sess domain.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = append(o.ended, sess.Identity)
}

func (o *recordingObserver) endedSessions() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.ended...)
}

func (o *recordingObserver) seen() []seenOffer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]seenOffer(nil), o.offers...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ProbeTimeout = time.Second
	cfg.LoginTimeout = 2 * time.Second
	return cfg
}

type harness struct {
	g        *Guard
	remote   *loopback.Server
	clock    *fakeClock
	prober   *fakeProber
	events   *notify.Recorder
	observer *recordingObserver
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock:    newFakeClock(),
		prober:   &fakeProber{},
		events:   notify.NewRecorder(),
		observer: &recordingObserver{},
	}
	h.remote = loopback.New(loopback.Options{
		Accounts: []loopback.Account{
			{Name: "alice", Password: "pw", SteamID: "76561198000000001"},
			{Name: "bob", Password: "pw", SharedSecret: bobSecret},
		},
		Now:    func() time.Time { return epoch0 },
		Logger: quietLogger(),
	})

	all := append([]Option{
		WithClock(h.clock),
		WithProber(h.prober),
		WithPublisher(h.events),
		WithObserver(h.observer),
		WithLogger(quietLogger()),
	}, opts...)
	h.g = New(h.remote, testConfig(), all...)
	h.g.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.g.Stop(ctx)
	})
	return h
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	if err := h.g.Login(testCtx(t), domain.Credentials{Identity: "alice", Password: "pw"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func (h *harness) waitState(t *testing.T, want domain.SessionState) {
	t.Helper()
	eventually(t, "state "+want.String(), func() bool { return h.g.Status().State == want })
}

// sync waits until the loop has processed everything posted so far.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	if err := h.g.ask(testCtx(t), func() {}); err != nil {
		t.Fatalf("ask: %v", err)
	}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bobCode(t *testing.T) string {
	t.Helper()
	code, err := guardcode.Generate(bobSecret, epoch0)
	if err != nil {
		t.Fatal(err)
	}
	return code
}

func giftOffer(id string) *domain.TradeOffer {
	return &domain.TradeOffer{
		ID:             id,
		Partner:        "76561198000000099",
		ItemsToReceive: []domain.ItemRef{{AppID: 730, ContextID: "2", AssetID: "a" + id}},
		State:          domain.OfferStateActive,
	}
}

var errRateLimit = remote.NewError(remote.EResultRateLimitExceeded, "RateLimitExceeded")
var errNoConn = remote.NewError(remote.EResultNoConnection, "NoConnection")
