// Package auth persists the member credentials between invocations.
package auth

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// FileName is the credentials file inside the data directory
const FileName = "credentials.toml"

var ErrNotLoggedIn = errors.New("not logged in, run `morningstar login` first")

type credentials struct {
	Token string        `toml:"token"`
	User  models.Member `toml:"user"`
}

// Store holds the token and profile of the logged-in member
type Store struct {
	path string
	now  func() time.Time

	mu    sync.RWMutex
	creds credentials
}

// NewStore creates a store backed by dir/credentials.toml
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName), now: time.Now}
}

// Path returns the credentials file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the credentials file. A missing file means logged out; an
// expired token is dropped.
func (s *Store) Load() error {
	var creds credentials
	if _, err := toml.DecodeFile(s.path, &creds); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "failed to decode %s", s.path)
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	if s.Expired() {
		log.Info().Msg("stored token expired, logging out")
		return s.Clear()
	}
	return nil
}

// Save persists a freshly issued token and its member
func (s *Store) Save(token string, user models.Member) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create data directory")
	}

	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrap(err, "failed to create credentials file")
	}
	defer file.Close()

	creds := credentials{Token: token, User: user}
	if err := toml.NewEncoder(file).Encode(creds); err != nil {
		return errors.Wrap(err, "failed to encode credentials")
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

// Clear forgets the credentials, in memory and on disk
func (s *Store) Clear() error {
	s.mu.Lock()
	s.creds = credentials{}
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "failed to remove credentials file")
	}
	return nil
}

// Token returns the bearer token, empty when logged out or expired
func (s *Store) Token() string {
	if s.Expired() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Token
}

// User returns the stored member profile
func (s *Store) User() (models.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.User, s.creds.Token != ""
}

// Require returns the token or ErrNotLoggedIn
func (s *Store) Require() (string, error) {
	token := s.Token()
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

// Expired reads the exp claim without verifying the signature. Tokens that are
// not JWTs, or carry no exp, never expire client-side.
func (s *Store) Expired() bool {
	s.mu.RLock()
	token := s.creds.Token
	s.mu.RUnlock()
	if token == "" {
		return false
	}

	exp, ok := ExpiresAt(token)
	return ok && !s.now().Before(exp)
}

// ExpiresAt returns the exp claim of a JWT
func ExpiresAt(token string) (time.Time, bool) {
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
