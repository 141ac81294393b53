// Package auth checks client credentials against a flat password file,
// the Go-native replacement for the original's twisted.cred
// FilePasswordDB("./users.db"). Usernames are matched case-sensitively,
// since they also key the Avatar store (spec.md §9).
package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/laserhockey/competition-server/internal/model"
)

// PasswordFile is an in-memory view of a users.db file, read once by Load:
// one "username:bcrypt-hash" entry per line.
type PasswordFile struct {
	mu     sync.RWMutex
	path   string
	hashes map[string][]byte
}

// Load reads path into a PasswordFile. A missing file is not an error: it
// yields an empty checker that rejects every login, matching a freshly
// bootstrapped server with no users.db yet.
func Load(path string) (*PasswordFile, error) {
	pf := &PasswordFile{path: path, hashes: make(map[string][]byte)}
	if err := pf.reload(); err != nil {
		return nil, err
	}
	return pf, nil
}

func (pf *PasswordFile) reload() error {
	f, err := os.Open(pf.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth: open %s: %w", pf.path, err)
	}
	defer f.Close()

	hashes := make(map[string][]byte)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		username, hash, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		hashes[username] = []byte(hash)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("auth: scan %s: %w", pf.path, err)
	}

	pf.mu.Lock()
	pf.hashes = hashes
	pf.mu.Unlock()
	return nil
}

// Authenticate checks username/password against the loaded hashes.
// Returns model.ErrAuthenticationFailure on any mismatch, never
// distinguishing "unknown user" from "wrong password" to the caller.
func (pf *PasswordFile) Authenticate(username, password string) error {
	pf.mu.RLock()
	hash, ok := pf.hashes[username]
	pf.mu.RUnlock()
	if !ok {
		return model.ErrAuthenticationFailure
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return model.ErrAuthenticationFailure
	}
	return nil
}

// HashPassword produces the bcrypt hash stored in a users.db entry, the
// form Authenticate checks passwords against.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}
