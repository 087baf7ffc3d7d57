package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	accessTokenKey = "access_token"
	tokenTypeKey   = "token_type"
)

// Session is the authenticated state identifying the operator to the remote API.
type Session struct {
	Token     string
	TokenType string
}

// Store holds the single active session. Presence of a token is a valid
// session; no expiry is tracked.
type Store interface {
	Get() (Session, bool, error)
	Set(Session) error
	Clear() error
}

// FileStore persists the session as a small YAML document so it survives
// process restarts.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Get() (Session, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("failed to read session file: %w", err)
	}

	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return Session{}, false, fmt.Errorf("failed to parse session file: %w", err)
	}

	token := entries[accessTokenKey]
	if token == "" {
		return Session{}, false, nil
	}
	return Session{Token: token, TokenType: entries[tokenTypeKey]}, true, nil
}

func (fs *FileStore) Set(s Session) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := yaml.Marshal(map[string]string{
		accessTokenKey: s.Token,
		tokenTypeKey:   s.TokenType,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	slog.Debug("Session stored", "path", fs.path, "token_type", s.TokenType)
	return nil
}

func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	slog.Debug("Session cleared", "path", fs.path)
	return nil
}

// MemoryStore keeps the session for the lifetime of the process only.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) Get() (Session, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.session == nil || ms.session.Token == "" {
		return Session{}, false, nil
	}
	return *ms.session, true, nil
}

func (ms *MemoryStore) Set(s Session) error {
	ms.mu.Lock()
	ms.session = &s
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	ms.session = nil
	ms.mu.Unlock()
	return nil
}
