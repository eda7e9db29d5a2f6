// Package tokenstore owns the durable session: the token and the cached user profile.
// It is the single source of truth for whether a session is active.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/logger"
	"go.uber.org/zap"
)

var (
	// ErrNoSession is returned by writes that need an active session.
	ErrNoSession = errors.New("tokenstore: no active session")

	// ErrStaleToken is returned when a profile arrives for a token that is no longer current.
	ErrStaleToken = errors.New("tokenstore: token is no longer current")
)

// Store holds the current session and profile. Every write is applied to the
// backend as a whole before the in-memory view changes.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	session models.Session
	profile *models.UserProfile
}

// New returns an empty store; call Load to hydrate it from the backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load reads the persisted entries. Missing entries mean "no session".
// A corrupt payload also means "no session"; the next write replaces it.
// A profile that cannot be decoded, or one without a token, is dropped.
func (s *Store) Load() error {
	entries, err := s.backend.Load()
	if errors.Is(err, ErrCorrupt) {
		logger.Warn("Ignoring unreadable stored session", zap.Error(err))
		entries = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = models.Session{}
	s.profile = nil

	token := entries[constants.TokenKey]
	if token == "" {
		return nil
	}
	s.session = models.SessionFromToken(token)

	raw, ok := entries[constants.ProfileKey]
	if !ok || raw == "" {
		return nil
	}
	var p models.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil || !p.Valid() {
		logger.Warn("Discarding unreadable stored profile", zap.Error(err))
		return nil
	}
	s.profile = &p
	return nil
}

// Token returns the current token or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Session returns the current session and whether one is active.
func (s *Store) Session() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.session.Valid()
}

// Profile returns a copy of the cached profile, or nil.
func (s *Store) Profile() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfile(s.profile)
}

// ProfileFor returns the cached profile only if it belongs to token.
func (s *Store) ProfileFor(token string) (*models.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token == "" || token != s.session.Token || s.profile == nil {
		return nil, false
	}
	return cloneProfile(s.profile), true
}

// SetSession stores a new session. A different token discards the cached profile.
func (s *Store) SetSession(sess models.Session) error {
	if !sess.Valid() {
		return fmt.Errorf("tokenstore: refusing to store an empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.profile
	if sess.Token != s.session.Token {
		profile = nil
	}
	if err := s.persistLocked(sess.Token, profile); err != nil {
		return err
	}
	s.session = sess
	s.profile = profile

	logger.Info("Session stored", logger.Fingerprint(sess.Token))
	return nil
}

// SetProfile replaces the cached profile wholesale. The write is rejected with
// ErrStaleToken when token is not the current session token.
func (s *Store) SetProfile(token string, p *models.UserProfile) error {
	if !p.Valid() {
		return fmt.Errorf("tokenstore: profile is missing id or handle")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Token == "" {
		return ErrNoSession
	}
	if token != s.session.Token {
		return ErrStaleToken
	}

	p = cloneProfile(p)
	if err := s.persistLocked(s.session.Token, p); err != nil {
		return err
	}
	s.profile = p
	return nil
}

// Clear removes token and profile. The in-memory session is always cleared,
// even when the backend write fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// ClearIf clears the session only when token is still the current one.
// It reports whether anything was cleared.
func (s *Store) ClearIf(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || token != s.session.Token {
		return false, nil
	}
	return true, s.clearLocked()
}

func (s *Store) clearLocked() error {
	had := s.session.Token
	s.session = models.Session{}
	s.profile = nil

	if err := s.backend.Save(map[string]string{}); err != nil {
		logger.Error("Failed to clear persisted session", zap.Error(err))
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if had != "" {
		logger.Info("Session cleared", logger.Fingerprint(had))
	}
	return nil
}

func (s *Store) persistLocked(token string, p *models.UserProfile) error {
	entries := map[string]string{constants.TokenKey: token}
	if p != nil {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode profile: %w", err)
		}
		entries[constants.ProfileKey] = string(raw)
	}
	if err := s.backend.Save(entries); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func cloneProfile(p *models.UserProfile) *models.UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
