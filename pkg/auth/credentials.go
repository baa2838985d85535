// Package auth stores site cookies outside the config file: in the system
// keychain when available, falling back to an encrypted file or environment
// variables. Cookies written directly in the config always take precedence.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ErrNotFound is returned when no cookie set exists for a target.
var ErrNotFound = errors.New("no stored cookies for target")

// ErrInvalidCookieSet is returned for incomplete cookie sets.
var ErrInvalidCookieSet = errors.New("invalid cookie set")

// CookieSet holds the cookies for one target profile.
type CookieSet struct {
	TargetUID    string            `json:"target_uid"`
	Cookies      map[string]string `json:"cookies"`
	UserAgent    string            `json:"user_agent,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is the interface for persisting cookie sets.
type Store interface {
	// Store saves cookies for a target.
	Store(set *CookieSet) error

	// Retrieve gets cookies for a specific target UID.
	Retrieve(targetUID string) (*CookieSet, error)

	// Delete removes cookies for a specific target UID.
	Delete(targetUID string) error

	// Exists checks if cookies exist for a target UID.
	Exists(targetUID string) bool
}

// Manager tries multiple storage backends in order.
type Manager struct {
	stores []Store
}

// NewManager creates a manager with the keyring first, an encrypted file as
// fallback and environment variables as last resort.
func NewManager() (*Manager, error) {
	var stores []Store

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	es, err := NewEncryptedFileStore(filepath.Join(configDir, "cookies.enc"))
	if err == nil {
		stores = append(stores, es)
	}

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over explicit backends.
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves the cookie set using the first backend that accepts it.
func (m *Manager) Store(set *CookieSet) error {
	if set == nil || set.TargetUID == "" {
		return ErrInvalidCookieSet
	}
	if len(set.Cookies) == 0 {
		return fmt.Errorf("%w: at least one cookie is required", ErrInvalidCookieSet)
	}
	set.LastModified = time.Now()

	var lastErr error
	for _, s := range m.stores {
		if err := s.Store(set); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no storage backend available")
	}
	return fmt.Errorf("failed to store cookies: %w", lastErr)
}

// Retrieve returns the first cookie set found across backends.
func (m *Manager) Retrieve(targetUID string) (*CookieSet, error) {
	for _, s := range m.stores {
		if set, err := s.Retrieve(targetUID); err == nil && set != nil {
			return set, nil
		}
	}
	return nil, ErrNotFound
}

// Delete removes the cookie set from every backend that has it.
func (m *Manager) Delete(targetUID string) error {
	deleted := false
	for _, s := range m.stores {
		if s.Exists(targetUID) {
			if err := s.Delete(targetUID); err != nil {
				return err
			}
			deleted = true
		}
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether any backend has cookies for the target.
func (m *Manager) Exists(targetUID string) bool {
	for _, s := range m.stores {
		if s.Exists(targetUID) {
			return true
		}
	}
	return false
}

func getConfigDir() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		dir = filepath.Join(appData, "articlegrab")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "articlegrab")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "articlegrab")
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
