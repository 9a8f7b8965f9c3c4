// Package mafile is the Secret Store: a read-only index of Steam Guard
// authenticator records kept as JSON "*.maFile" documents in one directory.
//
// The index is rebuilt only by an explicit Scan. Lookups and code
// generation work on the last scan and never touch the filesystem.
package mafile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/tradeguard/internal/core/domain"
	"github.com/yndnr/tradeguard/pkg/guardcode"
)

// Extension is the record file suffix, matched case-insensitively.
const Extension = ".mafile"

// document is the on-disk layout. Only the fields TradeGuard needs are
// decoded; everything else in the file is ignored.
type document struct {
	AccountName  string          `json:"account_name"`
	SharedSecret string          `json:"shared_secret"`
	DeviceID     string          `json:"device_id"`
	SteamID      json.RawMessage `json:"SteamID"`
	SteamIDLower json.RawMessage `json:"steamid"`
	Session      struct {
		SteamID json.RawMessage `json:"SteamID"`
	} `json:"Session"`
}

// Store indexes authenticator records found in a directory.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	records []domain.AuthenticatorRecord
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the clock used for code generation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store over dir. Nothing is read until Scan.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "secret_store")
	return s
}

// Dir returns the scanned directory.
func (s *Store) Dir() string {
	return s.dir
}

// Scan enumerates the directory and replaces the index with every
// complete record found. A missing directory yields an empty index.
// Unreadable, malformed or incomplete files are skipped with a warning.
func (s *Store) Scan() ([]domain.AuthenticatorRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("secret directory does not exist", "dir", s.dir)
			s.swap(nil)
			return nil, nil
		}
		return nil, domain.ErrInternal.WithDetails("scan " + s.dir).WithCause(err)
	}

	var found []domain.AuthenticatorRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), Extension) {
			continue
		}
		rec, err := s.load(e.Name())
		if err != nil {
			s.logger.Warn("skipping authenticator file", "file", e.Name(), "error", err)
			continue
		}
		found = append(found, rec)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Filename < found[j].Filename })

	s.swap(found)
	s.logger.Info("secret directory scanned", "dir", s.dir, "records", len(found))
	return publicCopy(found), nil
}

func (s *Store) load(name string) (domain.AuthenticatorRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return domain.AuthenticatorRecord{}, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.AuthenticatorRecord{}, err
	}
	if doc.AccountName == "" || doc.SharedSecret == "" {
		return domain.AuthenticatorRecord{}, errors.New("account_name or shared_secret missing")
	}

	steamID := firstID(doc.SteamID, doc.SteamIDLower, doc.Session.SteamID)
	return domain.AuthenticatorRecord{
		Filename:     name,
		AccountName:  doc.AccountName,
		SteamID:      steamID,
		DeviceID:     doc.DeviceID,
		SharedSecret: doc.SharedSecret,
	}, nil
}

// firstID returns the first non-empty id, accepting JSON strings and numbers.
func firstID(raws ...json.RawMessage) string {
	for _, raw := range raws {
		if len(raw) == 0 {
			continue
		}
		var str string
		if err := json.Unmarshal(raw, &str); err == nil && str != "" {
			return str
		}
		var num json.Number
		if err := json.Unmarshal(raw, &num); err == nil {
			if _, err := strconv.ParseUint(num.String(), 10, 64); err == nil && num.String() != "0" {
				return num.String()
			}
		}
	}
	return ""
}

func (s *Store) swap(records []domain.AuthenticatorRecord) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
}

// Records returns the last scan result. Shared secrets are not included.
func (s *Store) Records() []domain.AuthenticatorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return publicCopy(s.records)
}

// FindByAccount returns the record whose account name equals name,
// ignoring case. The shared secret is not included.
func (s *Store) FindByAccount(name string) (domain.AuthenticatorRecord, bool) {
	rec, ok := s.find(name)
	rec.SharedSecret = ""
	return rec, ok
}

func (s *Store) find(name string) (domain.AuthenticatorRecord, bool) {
	if name == "" {
		return domain.AuthenticatorRecord{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if strings.EqualFold(r.AccountName, name) {
			return r, true
		}
	}
	return domain.AuthenticatorRecord{}, false
}

// GenerateCode returns the current guard code for name. It reports false
// when no record exists or the stored secret is malformed.
func (s *Store) GenerateCode(name string) (string, bool) {
	rec, ok := s.find(name)
	if !ok {
		return "", false
	}
	code, err := guardcode.Generate(rec.SharedSecret, s.now())
	if err != nil {
		s.logger.Warn("stored shared secret is malformed", "file", rec.Filename, "error", err)
		return "", false
	}
	return code, true
}

func publicCopy(records []domain.AuthenticatorRecord) []domain.AuthenticatorRecord {
	out := make([]domain.AuthenticatorRecord, len(records))
	copy(out, records)
	for i := range out {
		out[i].SharedSecret = ""
	}
	return out
}
