package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// ErrNoSession is returned by Store.Load when no session has been persisted.
var ErrNoSession = errors.New("no persisted session")

// Store provides persistent storage for the user session.
// Implementations can use the filesystem, a keychain, or memory (for tests).
type Store interface {
	// Load retrieves the persisted session, or ErrNoSession if none exists.
	Load() (*Session, error)

	// Save persists the session, replacing any previous record.
	Save(s *Session) error

	// Clear removes the persisted session. Clearing an empty store is not an error.
	Clear() error
}

// FileStore persists the session as a single JSON file in the user's cache
// directory, readable only by the owning user.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore rooted at the default cache location.
func NewFileStore() *FileStore {
	return &FileStore{
		path: filepath.Join(userCacheDir(), "taskdeck", "session.json"),
	}
}

// NewFileStoreAt creates a FileStore using an explicit file path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the persisted session.
func (fs *FileStore) Load() (*Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	if s.AccessToken == "" {
		return nil, ErrNoSession
	}

	return &s, nil
}

// Save writes the session to disk with owner-only permissions.
func (fs *FileStore) Save(s *Session) error {
	if s == nil || s.AccessToken == "" {
		return fmt.Errorf("refusing to persist a session without an access token")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.WriteFile(fs.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Clear removes the session file.
func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	current *Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored session.
func (ms *MemoryStore) Load() (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.current == nil {
		return nil, ErrNoSession
	}
	copy := *ms.current
	return &copy, nil
}

// Save stores a copy of the session.
func (ms *MemoryStore) Save(s *Session) error {
	if s == nil || s.AccessToken == "" {
		return fmt.Errorf("refusing to persist a session without an access token")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	copy := *s
	ms.current = &copy
	return nil
}

// Clear drops the stored session.
func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.current = nil
	return nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
