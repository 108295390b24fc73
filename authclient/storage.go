package authclient

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// User mirrors the server's user payload.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is the client-held token pair plus the user it belongs to.
// It is mutated only by login, refresh and logout, and torn down on
// logout.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Storage persists the session across client restarts. Clear must be
// safe to call when nothing is stored.
type Storage interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// MemoryStorage keeps the session for the life of the process only.
type MemoryStorage struct {
	mu      sync.Mutex
	session *Session
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	copied := *m.session
	return &copied, nil
}

func (m *MemoryStorage) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	m.session = &copied
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// FileStorage persists the session as JSON at the given path.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Load() (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt session file is equivalent to being logged out.
		return nil, nil
	}
	return &s, nil
}

func (f *FileStorage) Save(s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
