package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/laserhockey/competition-server/internal/model"
)

func writeUsersFile(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create users file: %v", err)
	}
	defer f.Close()

	for username, password := range entries {
		hash, err := HashPassword(password)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		if _, err := f.WriteString(username + ":" + hash + "\n"); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	return path
}

func TestAuthenticateAcceptsMatchingPassword(t *testing.T) {
	path := writeUsersFile(t, map[string]string{"alice": "correct horse"})
	pf, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := pf.Authenticate("alice", "correct horse"); err != nil {
		t.Fatalf("expected authentication to succeed, got %v", err)
	}
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	path := writeUsersFile(t, map[string]string{"alice": "correct horse"})
	pf, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := pf.Authenticate("alice", "wrong"); err != model.ErrAuthenticationFailure {
		t.Fatalf("expected ErrAuthenticationFailure, got %v", err)
	}
}

func TestAuthenticateIsCaseSensitiveOnUsername(t *testing.T) {
	path := writeUsersFile(t, map[string]string{"Alice": "secret"})
	pf, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := pf.Authenticate("alice", "secret"); err != model.ErrAuthenticationFailure {
		t.Fatalf("expected a differently-cased username to be rejected, got %v", err)
	}
	if err := pf.Authenticate("Alice", "secret"); err != nil {
		t.Fatalf("expected the exact-case username to authenticate, got %v", err)
	}
}

func TestLoadMissingFileYieldsEmptyRejectingChecker(t *testing.T) {
	pf, err := Load(filepath.Join(t.TempDir(), "does-not-exist.db"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := pf.Authenticate("anyone", "anything"); err != model.ErrAuthenticationFailure {
		t.Fatalf("expected authentication against an empty checker to fail, got %v", err)
	}
}
