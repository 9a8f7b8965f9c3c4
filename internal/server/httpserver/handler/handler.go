package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/internal/core/surface"
	"github.com/yndnr/tradeguard/internal/telemetry/logger"
)

// maxBodyBytes bounds request bodies; every body here is a few fields.
const maxBodyBytes = 64 << 10

// Commands is the Command Surface as the API sees it.
type Commands interface {
	Login(ctx context.Context, creds domain.Credentials) surface.Result
	LoginWithSecret(account string) surface.Result
	Logout(ctx context.Context) surface.Result
	Status() surface.Result
	Accept(ctx context.Context, id string) surface.Result
	Decline(ctx context.Context, id string) surface.Result
	ListPending(ctx context.Context, filter string) surface.Result
	ToggleAutoAccept(ctx context.Context) surface.Result
	AutoAcceptSetting() surface.Result
	CheckConnection(ctx context.Context) surface.Result
	ForceReconnect(ctx context.Context) surface.Result
	ScanSecrets() surface.Result
	ListSecrets() surface.Result
	CheckSecret(account string) surface.Result
	GenerateCode(account string) surface.Result
}

// Events is the notification source behind GET /v1/events.
type Events interface {
	Subscribe(ctx context.Context) <-chan domain.Event
}

// Handler serves the local API.
type Handler struct {
	cmds    Commands
	events  Events
	version string
	logger  *slog.Logger
	mux     *http.ServeMux
	stream  StreamConfig
}

// Option configures a Handler.
type Option func(*Handler)

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option { return func(h *Handler) { h.version = v } }

// WithStreamConfig overrides the event stream settings.
func WithStreamConfig(c StreamConfig) Option { return func(h *Handler) { h.stream = c } }

// New creates a Handler.
func New(cmds Commands, events Events, log *slog.Logger, opts ...Option) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		cmds:    cmds,
		events:  events,
		version: "",
		logger:  log.With("component", "api"),
		mux:     http.NewServeMux(),
		stream:  DefaultStreamConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Routes lists every pattern the handler serves, for the router.
var Routes = []string{
	"GET /health",
	"POST /v1/session/login",
	"POST /v1/session/login-with-secret",
	"POST /v1/session/logout",
	"GET /v1/session/status",
	"GET /v1/session/connection",
	"POST /v1/session/reconnect",
	"GET /v1/offers",
	"POST /v1/offers/{id}/accept",
	"POST /v1/offers/{id}/decline",
	"GET /v1/settings/auto-accept-gifts",
	"POST /v1/settings/auto-accept-gifts/toggle",
	"GET /v1/secrets",
	"POST /v1/secrets/scan",
	"GET /v1/secrets/{account}",
	"POST /v1/secrets/{account}/code",
	"GET /v1/events",
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)

	h.mux.HandleFunc("POST /v1/session/login", h.handleLogin)
	h.mux.HandleFunc("POST /v1/session/login-with-secret", h.handleLoginWithSecret)
	h.mux.HandleFunc("POST /v1/session/logout", h.handleLogout)
	h.mux.HandleFunc("GET /v1/session/status", h.handleStatus)
	h.mux.HandleFunc("GET /v1/session/connection", h.handleConnection)
	h.mux.HandleFunc("POST /v1/session/reconnect", h.handleReconnect)

	h.mux.HandleFunc("GET /v1/offers", h.handleListOffers)
	h.mux.HandleFunc("POST /v1/offers/{id}/accept", h.handleAcceptOffer)
	h.mux.HandleFunc("POST /v1/offers/{id}/decline", h.handleDeclineOffer)

	h.mux.HandleFunc("GET /v1/settings/auto-accept-gifts", h.handleAutoAcceptSetting)
	h.mux.HandleFunc("POST /v1/settings/auto-accept-gifts/toggle", h.handleToggleAutoAccept)

	h.mux.HandleFunc("GET /v1/secrets", h.handleListSecrets)
	h.mux.HandleFunc("POST /v1/secrets/scan", h.handleScanSecrets)
	h.mux.HandleFunc("GET /v1/secrets/{account}", h.handleCheckSecret)
	h.mux.HandleFunc("POST /v1/secrets/{account}/code", h.handleGenerateCode)

	h.mux.HandleFunc("GET /v1/events", h.handleEvents)
}

// writeJSON writes a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	h.write(w, status, requestID, NewResponse(requestID, data))
}

// writeError writes an error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, code, message string, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("X-Error-Code", code)
	h.write(w, StatusForCode(code), requestID, NewErrorResponse(requestID, code, message, data))
}

func (h *Handler) write(w http.ResponseWriter, status int, requestID string, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeResult maps a command Result onto the envelope.
func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, res surface.Result) {
	if res.Success {
		h.writeJSON(w, r, http.StatusOK, res)
		return
	}
	h.writeError(w, r, res.Code, res.Error, res)
}

// decode reads a JSON body into v, answering 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := "invalid request body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is required"
		case errors.As(err, &maxErr):
			msg = "request body too large"
		}
		h.writeError(w, r, domain.ErrInvalidArgument.Code, msg, nil)
		return false
	}
	return true
}

// StatusForCode maps an error code to an HTTP status.
func StatusForCode(code string) int {
	switch {
	case strings.HasPrefix(code, "TG-ARG-"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.Contains(code, "-404"):
		return http.StatusNotFound
	case strings.Contains(code, "-401"):
		return http.StatusUnauthorized
	case strings.Contains(code, "-409"):
		return http.StatusConflict
	case strings.Contains(code, "-503"):
		return http.StatusServiceUnavailable
	case strings.Contains(code, "-502"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
