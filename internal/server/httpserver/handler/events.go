package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
)

// StreamConfig configures the event stream.
type StreamConfig struct {
	// Heartbeat is the interval of keep-alive comments.
	Heartbeat time.Duration
	// Retry is the reconnect delay advertised to clients.
	Retry time.Duration
}

// DefaultStreamConfig returns the default event stream settings.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{Heartbeat: 15 * time.Second, Retry: 3 * time.Second}
}

// handleEvents streams notifications as server-sent events. The optional
// kinds query parameter is a comma-separated allow list.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	kinds, ok := parseKinds(r.URL.Query().Get("kinds"))
	if !ok {
		h.writeError(w, r, domain.ErrInvalidArgument.Code, "unknown event kind in kinds", nil)
		return
	}

	rc := http.NewResponseController(w)
	ctx := r.Context()
	events := h.events.Subscribe(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", h.stream.Retry.Milliseconds())
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream not flushable", "error", err)
		return
	}

	heartbeat := time.NewTicker(h.stream.Heartbeat)
	defer heartbeat.Stop()

	h.logger.Debug("event stream opened", "remote", r.RemoteAddr)
	defer h.logger.Debug("event stream closed", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, open := <-events:
			if !open {
				return
			}
			if kinds != nil && !kinds[ev.Kind] {
				continue
			}
			if err := writeEvent(w, ev); err != nil {
				h.logger.Debug("event stream write failed", "error", err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Kind, data)
	return err
}

func parseKinds(raw string) (map[domain.EventKind]bool, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	known := make(map[domain.EventKind]bool, len(domain.EventKinds))
	for _, k := range domain.EventKinds {
		known[k] = true
	}

	out := make(map[domain.EventKind]bool)
	for _, part := range strings.Split(raw, ",") {
		k := domain.EventKind(strings.TrimSpace(part))
		if !known[k] {
			return nil, false
		}
		out[k] = true
	}
	return out, true
}
