package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yndnr/tradeguard/internal/infra/confloader"
)

// Keypair serves the current certificate for a cert/key file pair.
type Keypair struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher *confloader.Watcher
}

// LoadKeypair loads certFile and keyFile.
func LoadKeypair(certFile, keyFile string, logger *slog.Logger) (*Keypair, error) {
	if logger == nil {
		logger = slog.Default()
	}
	k := &Keypair{certFile: certFile, keyFile: keyFile, logger: logger}
	if err := k.Reload(); err != nil {
		return nil, err
	}
	return k, nil
}

// Reload reads the files again. On failure the previous certificate
// stays in use.
func (k *Keypair) Reload() error {
	cert, err := tls.LoadX509KeyPair(k.certFile, k.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	k.mu.Lock()
	k.cert = &cert
	k.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (k *Keypair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.cert, nil
}

// ServerConfig returns a server TLS config backed by the key pair.
func (k *Keypair) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: k.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// Watch reloads the key pair whenever either file changes, until Close.
func (k *Keypair) Watch(opts ...confloader.WatcherOption) error {
	w, err := confloader.NewWatcher(append([]confloader.WatcherOption{confloader.WithWatcherLogger(k.logger)}, opts...)...)
	if err != nil {
		return err
	}
	for _, f := range []string{k.certFile, k.keyFile} {
		if err := w.Watch(f); err != nil {
			_ = w.Stop()
			return err
		}
	}
	w.OnChange(func(path string) {
		if err := k.Reload(); err != nil {
			k.logger.Error("certificate reload failed", "file", path, "error", err)
			return
		}
		k.logger.Info("certificate reloaded", "cert_file", k.certFile)
	})
	w.StartAsync()

	k.mu.Lock()
	k.watcher = w
	k.mu.Unlock()
	return nil
}

// Close stops watching.
func (k *Keypair) Close() error {
	k.mu.Lock()
	w := k.watcher
	k.watcher = nil
	k.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}
