package auth

import (
	"errors"
	"os"
	"strings"
	"time"
)

// ErrStoreUnavailable is returned when a backend cannot accept writes.
var ErrStoreUnavailable = errors.New("store does not support this operation")

// EnvironmentStore reads cookies from ARTICLEGRAB_COOKIES. Read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-variable backed store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(set *CookieSet) error {
	return ErrStoreUnavailable
}

// Retrieve parses cookies from the environment. The target UID is taken
// from the caller since the environment carries a single cookie set.
func (e *EnvironmentStore) Retrieve(targetUID string) (*CookieSet, error) {
	raw := os.Getenv("ARTICLEGRAB_COOKIES")
	if raw == "" {
		return nil, ErrNotFound
	}

	cookies := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, value, ok := strings.Cut(part, "="); ok && name != "" {
			cookies[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}
	if len(cookies) == 0 {
		return nil, ErrNotFound
	}

	return &CookieSet{
		TargetUID:    targetUID,
		Cookies:      cookies,
		UserAgent:    os.Getenv("ARTICLEGRAB_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(targetUID string) error {
	return ErrStoreUnavailable
}

// Exists checks whether the environment carries cookies.
func (e *EnvironmentStore) Exists(targetUID string) bool {
	return os.Getenv("ARTICLEGRAB_COOKIES") != ""
}
