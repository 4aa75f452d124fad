// Package session persists login proof (cookies plus metadata) across
// process restarts.
//
// A stored session is a pair of co-located artifacts in one directory:
// cookies.json and session_info.json. The metadata file is the sole
// oracle for "does a usable session exist" — a cookie blob without
// valid metadata is treated as absent. Expiry is a fixed window set at
// save time and never extended by activity.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	cookiesFile = "cookies.json"
	infoFile    = "session_info.json"
)

// ErrNoSession is returned by Load when no usable session exists.
// Absent and expired records are deliberately not distinguished; both
// mean "perform a fresh login".
var ErrNoSession = errors.New("session absent or expired")

// Cookie is an opaque pass-through of a browser cookie. The store does
// not interpret cookie values.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
}

// Info is the metadata artifact stored next to the cookie blob.
type Info struct {
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	LastActivity time.Time         `json:"last_activity"`
	UserInfo     map[string]string `json:"user_info"`
}

// Record is a loaded session: cookies plus metadata.
type Record struct {
	Cookies []Cookie
	Info    Info
}

// Status is a read-only projection of the stored session.
type Status struct {
	IsValid          bool
	RemainingSeconds float64
	CreatedAt        time.Time
	ExpiresAt        time.Time
	LastActivity     time.Time
	UserInfo         map[string]string
}

// Store reads and writes the session artifact pair. It assumes a
// single writer; concurrent processes sharing one directory race with
// last-write-wins semantics.
type Store struct {
	dir     string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore creates a store rooted at dir with the given fixed session
// window.
func NewStore(dir string, timeout time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, timeout: timeout, logger: logger, now: time.Now}
}

func (s *Store) cookiesPath() string { return filepath.Join(s.dir, cookiesFile) }
func (s *Store) infoPath() string    { return filepath.Join(s.dir, infoFile) }

// Save writes the cookie and metadata artifacts together, replacing
// any previous pair. The stale pair is removed first so a crash
// mid-save can never leave old cookies paired with new metadata.
func (s *Store) Save(cookies []Cookie, userInfo map[string]string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// Drop the old pair before writing. Metadata goes first so a
	// partial replacement is seen as "no session", never as valid.
	if err := os.Remove(s.infoPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale metadata: %w", err)
	}
	if err := os.Remove(s.cookiesPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale cookies: %w", err)
	}

	if err := writeJSON(s.cookiesPath(), cookies); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}

	now := s.now()
	info := Info{
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.timeout),
		LastActivity: now,
		UserInfo:     userInfo,
	}
	if info.UserInfo == nil {
		info.UserInfo = map[string]string{}
	}
	if err := writeJSON(s.infoPath(), info); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	s.logger.Info("session saved",
		zap.Int("cookies", len(cookies)),
		zap.Time("expires_at", info.ExpiresAt))
	return nil
}

// Load returns the stored record, or ErrNoSession when the metadata is
// missing, unparsable, or past its expiry. Read failures degrade to
// "no session"; they never surface as distinct errors to the caller.
func (s *Store) Load() (*Record, error) {
	info, err := s.readInfo()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("session metadata unreadable, treating as absent", zap.Error(err))
		}
		return nil, ErrNoSession
	}

	if s.now().After(info.ExpiresAt) {
		s.logger.Info("session expired", zap.Time("expires_at", info.ExpiresAt))
		return nil, ErrNoSession
	}

	var cookies []Cookie
	data, err := os.ReadFile(s.cookiesPath())
	if err != nil {
		s.logger.Warn("cookie blob unreadable, treating session as absent", zap.Error(err))
		return nil, ErrNoSession
	}
	if err := json.Unmarshal(data, &cookies); err != nil {
		s.logger.Warn("cookie blob unparsable, treating session as absent", zap.Error(err))
		return nil, ErrNoSession
	}

	s.logger.Info("session loaded",
		zap.Int("cookies", len(cookies)),
		zap.Time("expires_at", info.ExpiresAt))
	return &Record{Cookies: cookies, Info: *info}, nil
}

// Touch rewrites last_activity only. The expiry window is fixed at
// save time; only Save resets it. Touching a missing session is a
// no-op.
func (s *Store) Touch() error {
	info, err := s.readInfo()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read metadata: %w", err)
	}

	info.LastActivity = s.now()
	if err := writeJSON(s.infoPath(), info); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Clear removes both artifacts. Clearing an empty store is not an
// error.
func (s *Store) Clear() error {
	for _, path := range []string{s.cookiesPath(), s.infoPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
		}
	}
	s.logger.Info("session cleared", zap.String("dir", s.dir))
	return nil
}

// Status reports on the stored session without mutating it.
func (s *Store) Status() Status {
	info, err := s.readInfo()
	if err != nil {
		return Status{}
	}

	now := s.now()
	st := Status{
		CreatedAt:    info.CreatedAt,
		ExpiresAt:    info.ExpiresAt,
		LastActivity: info.LastActivity,
		UserInfo:     info.UserInfo,
	}
	if !now.After(info.ExpiresAt) {
		st.IsValid = true
		st.RemainingSeconds = info.ExpiresAt.Sub(now).Seconds()
	}
	return st
}

func (s *Store) readInfo() (*Info, error) {
	data, err := os.ReadFile(s.infoPath())
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if info.ExpiresAt.IsZero() {
		return nil, errors.New("metadata missing expires_at")
	}
	return &info, nil
}

// writeJSON writes v to path via a temp file and rename so readers in
// other processes never observe a half-written artifact.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
