package profile

import (
	"os"
	"testing"
)

// credentialsRoundTrip exercises save/load/clear against a temp HOME so the
// test never touches the real profile tree.
func TestCredentialsRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	creds := &Credentials{
		Token:      "tok-123",
		GatewayURL: "http://localhost:3002",
		User:       User{ID: 1, Username: "admin", Role: "admin"},
	}
	if err := SaveCredentials("test", creds); err != nil {
		t.Fatalf("SaveCredentials() error = %v", err)
	}

	info, err := os.Stat(CredentialsPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credentials permission = %o, want 0600", perm)
	}

	loaded, err := LoadCredentials("test")
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if loaded == nil || loaded.Token != "tok-123" || loaded.User.Username != "admin" {
		t.Errorf("loaded = %+v, want round-tripped credentials", loaded)
	}

	if err := ClearCredentials("test"); err != nil {
		t.Fatalf("ClearCredentials() error = %v", err)
	}
	loaded, err = LoadCredentials("test")
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Errorf("credentials still present after clear: %+v", loaded)
	}

	// Clearing twice must stay a no-op.
	if err := ClearCredentials("test"); err != nil {
		t.Errorf("second ClearCredentials() error = %v", err)
	}
}
