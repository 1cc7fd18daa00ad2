// Package auth persists the admin bearer token between runs.
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("no stored token")

// TokenStore keeps a single bearer token in a private file
type TokenStore struct {
	path string
	now  func() time.Time

	mu     sync.Mutex
	cached string
	loaded bool
}

// NewTokenStore creates a store backed by path
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path, now: time.Now}
}

// Path returns the backing file
func (s *TokenStore) Path() string {
	return s.path
}

// Token returns the stored token, or ErrNoToken when none is saved
func (s *TokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		if s.cached == "" {
			return "", ErrNoToken
		}
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.loaded = true
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}

	s.cached = strings.TrimSpace(string(data))
	s.loaded = true
	if s.cached == "" {
		return "", ErrNoToken
	}
	return s.cached, nil
}

// Valid returns the stored token if it exists and has not expired. An
// expired token is cleared. Tokens that are not JWTs carry no expiry and
// are returned as-is.
func (s *TokenStore) Valid() (string, error) {
	tok, err := s.Token()
	if err != nil {
		return "", err
	}

	exp, ok := Expiry(tok)
	if ok && !exp.After(s.now()) {
		if err := s.Clear(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("token expired at %s: %w", exp.Format(time.RFC3339), ErrNoToken)
	}
	return tok, nil
}

// Save writes the token with owner-only permissions
func (s *TokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}

	s.cached = token
	s.loaded = true
	return nil
}

// Clear forgets the token in memory and on disk
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = ""
	s.loaded = true

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Expiry reads the exp claim without verifying the signature. The signing
// secret lives on the server; the client only needs to know when to stop
// presenting the token.
func Expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Subject returns the username claim of a JWT, if any
func Subject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	if u, ok := claims["username"].(string); ok {
		return u
	}
	if sub, err := claims.GetSubject(); err == nil {
		return sub
	}
	return ""
}
