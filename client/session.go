package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	auth "github.com/goliatone/go-auth-starter"
)

// Session is what a client keeps between runs after login
type Session struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         *auth.UserView `json:"user,omitempty"`
}

// Authenticated reports whether the session carries a token and a user
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != "" && s.User != nil
}

// IsAdmin reports whether the cached user is an admin
func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.User.Role.IsAdmin()
}

// SessionFromResult builds a session from a login or register result
func SessionFromResult(res *auth.AuthResult) *Session {
	if res == nil {
		return nil
	}
	user := res.User
	return &Session{
		Token:        res.Token,
		RefreshToken: res.RefreshToken,
		User:         &user,
	}
}

// SessionStore persists the client session. Get returns nil, nil when
// nothing is stored.
type SessionStore interface {
	Get() (*Session, error)
	Set(session *Session) error
	Clear() error
}

// MemoryStore keeps the session in process
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

func (m *MemoryStore) Set(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session == nil {
		m.session = nil
		return nil
	}
	cp := *session
	m.session = &cp
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Set(nil)
}

// FileStore keeps the session as a JSON file readable only by its owner
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSessionPath is ~/.config/go-auth-starter/session.json
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "go-auth-starter", "session.json"), nil
}

// Path returns the file location
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get() (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (f *FileStore) Set(session *Session) error {
	if session == nil {
		return f.Clear()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
