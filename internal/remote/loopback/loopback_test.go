package loopback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/remote"
	"github.com/yndnr/tradeguard/pkg/guardcode"
)

const testSecret = "c2VjcmV0c2VjcmV0c2VjcmV0" // base64("secretsecretsecret")

var testNow = time.Unix(1700000010, 0)

func newTestServer(offers ...*domain.TradeOffer) *Server {
	return New(Options{
		Accounts: []Account{
			{Name: "alice", Password: "pw", SteamID: "76561198000000001"},
			{Name: "bob", Password: "pw", SharedSecret: testSecret},
		},
		Offers: offers,
		Now:    func() time.Time { return testNow },
	})
}

func gift(id string) *domain.TradeOffer {
	return &domain.TradeOffer{
		ID:             id,
		Partner:        "76561198000000099",
		ItemsToReceive: []domain.ItemRef{{AppID: 730, ContextID: "2", AssetID: "a" + id}},
		State:          domain.OfferStateActive,
	}
}

func TestLogOn(t *testing.T) {
	ctx := context.Background()
	code, err := guardcode.Generate(testSecret, testNow)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tests := []struct {
		name    string
		creds   domain.Credentials
		wantErr *domain.DomainError
	}{
		{"accepted", domain.Credentials{Identity: "alice", Password: "pw"}, nil},
		{"case insensitive name", domain.Credentials{Identity: "ALICE", Password: "pw"}, nil},
		{"wrong password", domain.Credentials{Identity: "alice", Password: "nope"}, domain.ErrAuthRejected},
		{"unknown account", domain.Credentials{Identity: "carol", Password: "pw"}, domain.ErrAuthRejected},
		{"code missing", domain.Credentials{Identity: "bob", Password: "pw"}, domain.ErrTwoFactorRequired},
		{"code wrong", domain.Credentials{Identity: "bob", Password: "pw", Code: "22222"}, domain.ErrTwoFactorRequired},
		{"code valid", domain.Credentials{Identity: "bob", Password: "pw", Code: code}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			res, err := s.LogOn(ctx, tt.creds)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("LogOn() error = %v", err)
				}
				if !s.Connected() {
					t.Error("Connected() = false after logon")
				}
				if tt.creds.Identity == "alice" && res.SteamID != "76561198000000001" {
					t.Errorf("SteamID = %q", res.SteamID)
				}
				return
			}
			if !errors.Is(remote.Classify(err), tt.wantErr) {
				t.Errorf("LogOn() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOffersRequireWebSession(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(gift("1"))

	if _, err := s.GetOffers(ctx, domain.FilterActiveOnly); err == nil {
		t.Fatal("GetOffers() before logon should fail")
	}
	if _, err := s.LogOn(ctx, domain.Credentials{Identity: "alice", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetOffers(ctx, domain.FilterActiveOnly); err == nil {
		t.Fatal("GetOffers() before web logon should fail")
	}
	if err := s.WebLogOn(ctx); err != nil {
		t.Fatal(err)
	}

	offers, err := s.GetOffers(ctx, domain.FilterActiveOnly)
	if err != nil {
		t.Fatalf("GetOffers() error = %v", err)
	}
	if len(offers) != 1 || offers[0].ID != "1" {
		t.Errorf("GetOffers() = %v", offers)
	}

	select {
	case ev := <-s.Events():
		if ev.Kind != remote.EventNewOffer || ev.Offer.ID != "1" {
			t.Errorf("first event = %+v", ev)
		}
	default:
		t.Error("seeded offer was not announced on first web logon")
	}
}

func TestAcceptDecline(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(gift("1"), gift("2"))
	mustLogin(t, s)

	if err := s.Accept(ctx, "1"); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if err := s.Accept(ctx, "1"); err == nil {
		t.Error("second Accept() should fail, offer no longer open")
	}
	if err := s.Decline(ctx, "2"); err != nil {
		t.Fatalf("Decline() error = %v", err)
	}
	if err := s.Accept(ctx, "404"); err == nil {
		t.Error("Accept() of unknown offer should fail")
	}

	o, _ := s.Offer("1")
	if o.State != domain.OfferStateAccepted {
		t.Errorf("offer 1 state = %v", o.State)
	}

	active, _ := s.GetOffers(ctx, domain.FilterActiveOnly)
	historical, _ := s.GetOffers(ctx, domain.FilterHistoricalOnly)
	all, _ := s.GetOffers(ctx, domain.FilterAll)
	if len(active) != 0 || len(historical) != 2 || len(all) != 2 {
		t.Errorf("active=%d historical=%d all=%d", len(active), len(historical), len(all))
	}
}

func TestDisconnectAndRecover(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()
	mustLogin(t, s)

	s.Disconnect(remote.EResultNoConnection, "NoConnection")
	if s.Connected() {
		t.Error("Connected() = true after Disconnect")
	}
	if _, err := s.GetOffers(ctx, domain.FilterActiveOnly); err == nil {
		t.Error("GetOffers() should fail while disconnected")
	}
	if err := s.WebLogOn(ctx); err != nil {
		t.Fatalf("WebLogOn() error = %v", err)
	}
	if !s.Connected() {
		t.Error("WebLogOn() should restore the transport")
	}
}

func TestFaultInjection(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()
	mustLogin(t, s)

	boom := remote.NewError(remote.EResultRateLimitExceeded, "RateLimitExceeded")
	s.FailNext(OpWebLogOn, 2, boom)

	for i := 0; i < 2; i++ {
		if err := s.WebLogOn(ctx); !remote.IsRateLimited(err) {
			t.Fatalf("call %d error = %v", i, err)
		}
	}
	if err := s.WebLogOn(ctx); err != nil {
		t.Fatalf("third call error = %v", err)
	}
	if got := s.Calls(OpWebLogOn); got != 4 {
		t.Errorf("Calls(weblogon) = %d, want 4", got)
	}
}

func TestHold(t *testing.T) {
	s := newTestServer()
	mustLogin(t, s)
	release := s.Hold(OpGetOffers)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.GetOffers(ctx, domain.FilterAll); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("held GetOffers() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.GetOffers(context.Background(), domain.FilterAll)
		done <- err
	}()
	release()
	release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("released GetOffers() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("GetOffers() still blocked after release")
	}
}

func mustLogin(t *testing.T, s *Server) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.LogOn(ctx, domain.Credentials{Identity: "alice", Password: "pw"}); err != nil {
		t.Fatalf("LogOn: %v", err)
	}
	if err := s.WebLogOn(ctx); err != nil {
		t.Fatalf("WebLogOn: %v", err)
	}
}
