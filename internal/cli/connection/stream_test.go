package connection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestReadEvents(t *testing.T) {
	raw := "retry: 3000\n\n" +
		"id: 01A\nevent: offer-accepted\ndata: {\"offer_id\":\"7\"}\n\n" +
		": keep-alive\n\n" +
		"id: 01B\r\nevent: logged-out\r\ndata: line1\r\ndata: line2\r\n\r\n" +
		"id: 01C\nevent: partial\n"

	var got []StreamEvent
	err := ReadEvents(bufio.NewReader(strings.NewReader(raw)), func(ev StreamEvent) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []StreamEvent{
		{ID: "01A", Event: "offer-accepted", Data: `{"offer_id":"7"}`},
		{ID: "01B", Event: "logged-out", Data: "line1\nline2"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events: %+v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadEvents_CallbackStops(t *testing.T) {
	stop := errors.New("stop")
	raw := "event: a\ndata: 1\n\nevent: b\ndata: 2\n\n"
	n := 0
	err := ReadEvents(bufio.NewReader(strings.NewReader(raw)), func(StreamEvent) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err = %v, n = %d", err, n)
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("kinds"); got != "offer-accepted,logged-out" {
			t.Errorf("kinds = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "id: %d\nevent: offer-accepted\ndata: {}\n\n", i)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var ids []string
	err := NewHTTPClient(srv.URL, "", time.Second).Stream(ctx, []string{"offer-accepted", "logged-out"}, func(ev StreamEvent) error {
		ids = append(ids, ev.ID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(ids, ",") != "0,1,2" {
		t.Errorf("ids = %v", ids)
	}
}

func TestStream_RejectedKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusBadRequest, "TG-ARG-1001", "unknown event kind", nil)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, "", time.Second).Stream(context.Background(), []string{"nope"}, func(StreamEvent) error { return nil })
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "TG-ARG-1001" {
		t.Fatalf("err = %v", err)
	}
}
