package profile

import (
	"encoding/json"
	"errors"
	"os"
)

// Credentials is the persisted session state: the bearer token plus the
// authenticated user record, read at startup so a daemon restart resumes
// without re-login.
type Credentials struct {
	Token      string `json:"token"`
	GatewayURL string `json:"gateway_url"`
	User       User   `json:"user"`
}

// User mirrors the aggregator's user record.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// SaveCredentials persists credentials for a profile with 0600 permissions.
func SaveCredentials(name string, creds *Credentials) error {
	if err := EnsureDir(name); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(CredentialsPath(name), data, 0600)
}

// LoadCredentials reads persisted credentials. Returns (nil, nil) when no
// credentials have been saved yet.
func LoadCredentials(name string) (*Credentials, error) {
	data, err := os.ReadFile(CredentialsPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// ClearCredentials removes persisted credentials. Missing file is not an
// error: clearing an already-clean profile is a no-op.
func ClearCredentials(name string) error {
	err := os.Remove(CredentialsPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
