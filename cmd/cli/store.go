package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/formsync/internal/model"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// stateFile keeps the pull watermark between runs.
type stateFile struct {
	LastSync string `json:"last_sync"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "formsync")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "formsync")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }
func statePath() string { return filepath.Join(cfgDir(), "state.json") }
func usersPath() string { return filepath.Join(cfgDir(), "users.json") }

func writeFile(path string, v any) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o600)
}

func readFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func saveToken(tok string, exp time.Time) error {
	return writeFile(tokenPath(), tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	var tf tokenFile
	if err := readFile(tokenPath(), &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

func saveLastSync(ts string) error {
	return writeFile(statePath(), stateFile{LastSync: strings.TrimSpace(ts)})
}

// loadLastSync returns the stored watermark, or "" before the first pull.
func loadLastSync() (string, error) {
	var sf stateFile
	err := readFile(statePath(), &sf)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	return sf.LastSync, err
}

// saveUsers caches users with their offline digests for on-device login.
func saveUsers(users []model.User) error {
	return writeFile(usersPath(), users)
}

func loadUsers() ([]model.User, error) {
	var users []model.User
	if err := readFile(usersPath(), &users); err != nil {
		return nil, err
	}
	return users, nil
}
