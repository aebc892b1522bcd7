package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"authkeeper/internal/common"
)

// TokenStore persists the current token pair between authctl invocations.
// Tokens are kept in a user-readable-only JSON file.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// DefaultTokenPath returns the default location of the token file,
// ~/.authkeeper/tokens.json.
func DefaultTokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".authkeeper", "tokens.json"), nil
}

func (s *TokenStore) Save(pair *TokenPair) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}

// Load reads the stored token pair. A missing file yields
// common.ErrorNotFound so callers can suggest logging in.
func (s *TokenStore) Load() (*TokenPair, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	return &pair, nil
}

// Clear removes the token file. A file that is already gone is not an error.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
