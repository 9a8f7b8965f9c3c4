package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	mu  sync.Mutex
	ln  net.Listener
	tls *tls.Config
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	// Long-lived event streams watch their request context; cancelling the
	// base context on shutdown ends them.
	base, cancel := context.WithCancel(context.Background())
	hs := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	hs.RegisterOnShutdown(cancel)

	return &Server{
		httpServer: hs,
		logger:     logger.With("component", "httpserver"),
	}
}

// UseTLS makes Listen wrap the listener in TLS. Call before Listen.
func (s *Server) UseTLS(cfg *tls.Config) {
	s.mu.Lock()
	s.tls = cfg
	s.mu.Unlock()
}

// Listen binds the listen address. An address of the form unix:/path
// binds an owner-only Unix socket, replacing a stale one.
func (s *Server) Listen() error {
	network, addr := "tcp", s.httpServer.Addr
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		network, addr = "unix", path
		if err := removeStaleSocket(path); err != nil {
			return err
		}
	}

	ln, err := net.Listen(network, addr)
	if err != nil {
		return err
	}
	if network == "unix" {
		if err := os.Chmod(addr, 0o600); err != nil {
			ln.Close()
			return err
		}
	}
	s.mu.Lock()
	if s.tls != nil {
		ln = tls.NewListener(ln, s.tls)
	}
	s.ln = ln
	secure := s.tls != nil
	s.mu.Unlock()
	s.logger.Info("local API listening", "network", network, "addr", ln.Addr().String(), "tls", secure)
	return nil
}

func removeStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	return os.Remove(path)
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.httpServer.Addr
}

// Serve serves on the bound listener until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("httpserver: Serve called before Listen")
	}
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server, closing remaining
// connections when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return s.httpServer.Close()
	}
	return err
}
