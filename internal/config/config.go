// Package config stores the Spotify application credentials: a JSON file
// written by the setup endpoint, with environment variables as fallback.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/pquerna/otp/totp"
)

const fileName = "spotify_config.json"

type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Store reads and writes the credential file. When a TOTP secret is
// configured, credential mutation requires a valid one-time code.
type Store struct {
	path       string
	totpSecret string
}

// NewStore places the credential file in dir. totpSecret may be empty to
// leave the setup endpoint ungated.
func NewStore(dir, totpSecret string) *Store {
	return &Store{
		path:       filepath.Join(dir, fileName),
		totpSecret: totpSecret,
	}
}

// Load returns the stored credentials, or nil when no file exists yet.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the credential file with owner-only permissions.
func (s *Store) Save(c Credentials) error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("both client id and client secret are required")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Credentials resolves the active credentials: file first, then the
// SPOTIFY_ID / SPOTIFY_SECRET environment variables.
func (s *Store) Credentials() (string, string, bool) {
	if c, err := s.Load(); err == nil && c != nil {
		return c.ClientID, c.ClientSecret, true
	}

	id := os.Getenv("SPOTIFY_ID")
	secret := os.Getenv("SPOTIFY_SECRET")
	if id != "" && secret != "" {
		return id, secret, true
	}
	return "", "", false
}

// VerifySetupCode gates credential mutation. With no TOTP secret configured
// every code passes; otherwise the code must validate against the secret.
func (s *Store) VerifySetupCode(code string) bool {
	if s.totpSecret == "" {
		return true
	}
	return totp.Validate(code, s.totpSecret)
}
