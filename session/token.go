// ABOUTME: Bearer token storage at XDG paths and JWT claim inspection
// ABOUTME: Lets sessions reuse a cached token until it expires
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is the cached login result.
type Token struct {
	AccessToken string    `json:"access_token"`
	Email       string    `json:"email"`
	BaseURL     string    `json:"base_url"`
	SavedAt     time.Time `json:"saved_at"`
}

// TokenStore persists a single Token as JSON.
type TokenStore struct {
	path string
}

// NewTokenStore stores the token at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the token file location.
func (s *TokenStore) Path() string {
	return s.path
}

// Save writes the token with owner-only permissions.
func (s *TokenStore) Save(tok Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// Load returns the cached token, or nil if none has been saved.
func (s *TokenStore) Load() (*Token, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var tok Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &tok, nil
}

// Clear removes the cached token.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// Claims are the registered claims of an access token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// expirySkew treats tokens about to expire as already expired.
const expirySkew = time.Minute

// Inspect decodes a JWT without verifying its signature. The server verifies; the client only reads expiry.
func Inspect(token string) (Claims, error) {
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims := Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}

// Expired reports whether the token is expired or within a minute of expiring.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(expirySkew).Before(c.ExpiresAt)
}
