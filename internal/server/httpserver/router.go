package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/tradeguard/internal/server/httpserver/handler"
	"github.com/yndnr/tradeguard/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Handler *handler.Handler
	Metrics *metric.Registry
	Logger  *slog.Logger

	// Verifier checks bearer tokens; nil disables authentication.
	Verifier *TokenVerifier

	// Limiter throttles /v1 per client; nil disables limiting.
	Limiter *RateLimiter

	CORSAllowedOrigins []string
	EnableAudit        bool
}

// NewRouter creates the top-level mux with every route and its middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := cfg.Handler

	mux := http.NewServeMux()

	mux.Handle("GET /health", Chain(h,
		Recover(log),
		RequestID(),
		Instrument(cfg.Metrics),
	))

	var metrics http.Handler = http.NotFoundHandler()
	if cfg.Metrics != nil {
		metrics = cfg.Metrics.Handler()
	}
	mux.Handle("GET /metrics", Chain(metrics,
		Recover(log),
		RequestID(),
		Auth(cfg.Verifier, log, cfg.Metrics),
	))

	// Order: Recover -> RequestID -> CORS -> RateLimit -> Instrument -> Auth -> Audit -> Handler
	api := []Middleware{
		Recover(log),
		RequestID(),
		CORS(cfg.CORSAllowedOrigins),
	}
	if cfg.Limiter != nil {
		api = append(api, RateLimit(cfg.Limiter))
	}
	api = append(api, Instrument(cfg.Metrics), Auth(cfg.Verifier, log, cfg.Metrics))
	if cfg.EnableAudit {
		api = append(api, Audit(log))
	}
	business := Chain(h, api...)

	for _, pattern := range handler.Routes {
		if pattern == "GET /health" {
			continue
		}
		mux.Handle(pattern, business)
	}

	// Preflight requests never carry credentials.
	mux.Handle("OPTIONS /v1/", Chain(http.NotFoundHandler(),
		RequestID(),
		CORS(cfg.CORSAllowedOrigins),
	))

	return mux
}
