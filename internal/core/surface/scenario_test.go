package surface

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/core/guard"
	"github.com/yndnr/tradeguard/internal/core/ingest"
	"github.com/yndnr/tradeguard/internal/core/notify"
	"github.com/yndnr/tradeguard/internal/remote/loopback"
	"github.com/yndnr/tradeguard/internal/storage/mafile"
)

const bobSecret = "c2VjcmV0c2VjcmV0c2VjcmV0"

type stack struct {
	surface *Surface
	remote  *loopback.Server
	events  *notify.Recorder
}

func newStack(t *testing.T) *stack {
	t.Helper()
	now := func() time.Time { return time.Unix(1700000010, 0) }

	dir := t.TempDir()
	doc := `{"account_name":"bob","shared_secret":"` + bobSecret + `","device_id":"android:1","Session":{"SteamID":76561198000000002}}`
	if err := os.WriteFile(filepath.Join(dir, "76561198000000002.maFile"), []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	store := mafile.New(dir, mafile.WithLogger(quietLogger()), mafile.WithClock(now))

	srv := loopback.New(loopback.Options{
		Accounts: []loopback.Account{
			{Name: "bob", Password: "pw", SteamID: "76561198000000002", SharedSecret: bobSecret},
			{Name: "carol", Password: "pw", SteamID: "76561198000000003"},
		},
		Now:      now,
		Logger:   quietLogger(),
	})
	events := notify.NewRecorder()

	ing := ingest.New(srv, ingest.WithPublisher(events), ingest.WithLogger(quietLogger()))
	g := guard.New(srv, guard.DefaultConfig(),
		guard.WithSecrets(store),
		guard.WithProber(ing),
		guard.WithObserver(ing),
		guard.WithPublisher(events),
		guard.WithLogger(quietLogger()),
	)
	ing.Start()
	g.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = g.Stop(ctx)
		_ = ing.Stop(ctx)
	})

	return &stack{surface: New(g, ing, store, quietLogger()), remote: srv, events: events}
}

func TestScenario_GiftAutoAcceptedAndTradeDeclined(t *testing.T) {
	st := newStack(t)
	s := st.surface
	ctx := testCtx(t)

	if res := s.ScanSecrets(); !res.Success || len(res.Secrets) != 1 {
		t.Fatalf("ScanSecrets() = %+v", res)
	}
	if res := s.ListSecrets(); res.Secrets[0].SharedSecret != "" {
		t.Fatal("shared secret leaked through the surface")
	}

	prep := s.LoginWithSecret("bob")
	if !prep.Success || prep.GuardCode == "" {
		t.Fatalf("LoginWithSecret() = %+v", prep)
	}
	res := s.Login(ctx, domain.Credentials{Identity: "bob", Password: "pw", Code: prep.GuardCode})
	if !res.Success {
		t.Fatalf("Login() = %+v", res)
	}
	if res.Status.State != domain.StateHealthy {
		t.Fatalf("state = %v, want healthy", res.Status.State)
	}

	if res := s.ToggleAutoAccept(ctx); !*res.AutoAcceptGifts {
		t.Fatal("auto-accept still off after toggle")
	}

	st.remote.PushOffer(&domain.TradeOffer{
		ID:             "501",
		Partner:        "76561198000000099",
		ItemsToReceive: []domain.ItemRef{{AppID: 730, ContextID: "2", AssetID: "9001"}},
	})
	ev, ok := st.events.WaitFor(ctx, domain.EventOfferAccepted)
	if !ok {
		t.Fatalf("no offer-accepted event; saw %v", st.events.Kinds())
	}
	if ev.OfferID != "501" {
		t.Errorf("accepted offer = %q, want 501", ev.OfferID)
	}
	if o, _ := st.remote.Offer("501"); o.State != domain.OfferStateAccepted {
		t.Errorf("remote state = %v, want accepted", o.State)
	}

	st.remote.PushOffer(&domain.TradeOffer{
		ID:             "502",
		Partner:        "76561198000000099",
		ItemsToGive:    []domain.ItemRef{{AppID: 730, ContextID: "2", AssetID: "7"}},
		ItemsToReceive: []domain.ItemRef{{AppID: 730, ContextID: "2", AssetID: "8"}},
	})
	if _, ok := st.events.WaitFor(ctx, domain.EventNewTradeOffer); !ok {
		t.Fatalf("no new-trade-offer event; saw %v", st.events.Kinds())
	}

	list := s.ListPending(ctx, "")
	if !list.Success || len(list.Offers) != 1 || list.Offers[0].ID != "502" {
		t.Fatalf("ListPending() = %+v", list)
	}

	if res := s.Decline(ctx, "502"); !res.Success {
		t.Fatalf("Decline(502) = %+v", res)
	}
	if o, _ := st.remote.Offer("502"); o.State != domain.OfferStateDeclined {
		t.Errorf("remote state = %v, want declined", o.State)
	}
	if res := s.Decline(ctx, "502"); res.Success || res.Code != domain.ErrOfferNotFound.Code {
		t.Errorf("second Decline(502) = %+v", res)
	}

	conn := s.CheckConnection(ctx)
	if !conn.Success || conn.Connection.ConnectionStatus != guard.ConnFullyConnected {
		t.Fatalf("CheckConnection() = %+v", conn)
	}

	if res := s.Logout(ctx); !res.Success {
		t.Fatalf("Logout() = %+v", res)
	}
	if res := s.ListPending(ctx, ""); res.Code != domain.ErrNotLoggedIn.Code {
		t.Errorf("ListPending() after logout = %+v", res)
	}
	if res := s.AutoAcceptSetting(); !*res.AutoAcceptGifts {
		t.Error("auto-accept preference lost on logout")
	}
}

func TestScenario_WrongCodeNeedsTwoFactor(t *testing.T) {
	st := newStack(t)
	res := st.surface.Login(testCtx(t), domain.Credentials{Identity: "bob", Password: "pw", Code: "AAAAA"})
	if res.Success || !res.NeedsTwoFactor {
		t.Fatalf("Login() = %+v, want two-factor failure", res)
	}
	if st.events.Count(domain.EventNeedsTwoFactor) != 1 {
		t.Errorf("needs-two-factor events = %d, want 1", st.events.Count(domain.EventNeedsTwoFactor))
	}
}

func TestScenario_NextSessionCannotResolvePreviousOffers(t *testing.T) {
	st := newStack(t)
	s := st.surface
	ctx := testCtx(t)

	code := s.LoginWithSecret("bob")
	if res := s.Login(ctx, domain.Credentials{Identity: "bob", Password: "pw", Code: code.GuardCode}); !res.Success {
		t.Fatalf("Login(bob) = %+v", res)
	}
	st.remote.PushOffer(&domain.TradeOffer{
		ID:             "700",
		Partner:        "76561198000000099",
		ItemsToGive:    []domain.ItemRef{{AppID: 730, ContextID: "2", AssetID: "1"}},
		ItemsToReceive: []domain.ItemRef{{AppID: 730, ContextID: "2", AssetID: "2"}},
	})
	if _, ok := st.events.WaitFor(ctx, domain.EventNewTradeOffer); !ok {
		t.Fatalf("no new-trade-offer event; saw %v", st.events.Kinds())
	}

	if res := s.Logout(ctx); !res.Success {
		t.Fatalf("Logout() = %+v", res)
	}
	if res := s.Login(ctx, domain.Credentials{Identity: "carol", Password: "pw"}); !res.Success {
		t.Fatalf("Login(carol) = %+v", res)
	}

	if res := s.Accept(ctx, "700"); res.Success || res.Code != domain.ErrOfferNotFound.Code {
		t.Errorf("Accept(700) as carol = %+v, want %s", res, domain.ErrOfferNotFound.Code)
	}
	if res := s.Decline(ctx, "700"); res.Success || res.Code != domain.ErrOfferNotFound.Code {
		t.Errorf("Decline(700) as carol = %+v, want %s", res, domain.ErrOfferNotFound.Code)
	}
	if n := st.remote.Calls(loopback.OpAccept) + st.remote.Calls(loopback.OpDecline); n != 0 {
		t.Errorf("remote resolve calls = %d, want 0", n)
	}
}

func TestScenario_ManualAcceptWhileAutoAcceptRuns(t *testing.T) {
	st := newStack(t)
	s := st.surface
	ctx := testCtx(t)

	code := s.LoginWithSecret("bob")
	if res := s.Login(ctx, domain.Credentials{Identity: "bob", Password: "pw", Code: code.GuardCode}); !res.Success {
		t.Fatalf("Login(bob) = %+v", res)
	}
	if res := s.ToggleAutoAccept(ctx); !*res.AutoAcceptGifts {
		t.Fatal("auto-accept still off after toggle")
	}

	release := st.remote.Hold(loopback.OpAccept)
	defer release()
	st.remote.PushOffer(&domain.TradeOffer{
		ID:             "800",
		Partner:        "76561198000000099",
		ItemsToReceive: []domain.ItemRef{{AppID: 730, ContextID: "2", AssetID: "9002"}},
	})
	deadline := time.Now().Add(2 * time.Second)
	for st.remote.Calls(loopback.OpAccept) == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	manual := make(chan Result, 1)
	go func() { manual <- s.Accept(ctx, "800") }()
	time.Sleep(30 * time.Millisecond)
	release()

	res := <-manual
	if !res.Success {
		t.Errorf("manual Accept(800) = %+v, want success", res)
	}
	if n := st.remote.Calls(loopback.OpAccept); n != 1 {
		t.Errorf("remote accept calls = %d, want 1", n)
	}
	if _, ok := st.events.WaitFor(ctx, domain.EventOfferAccepted); !ok {
		t.Fatalf("no offer-accepted event; saw %v", st.events.Kinds())
	}
	if n := st.events.Count(domain.EventOfferAccepted); n != 1 {
		t.Errorf("offer-accepted events = %d, want 1", n)
	}
	if n := st.events.Count(domain.EventAutoAcceptFailed); n != 0 {
		t.Errorf("auto-accept-failed events = %d, want 0", n)
	}
}
