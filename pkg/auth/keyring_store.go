package auth

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "articlegrab"
	keyringPrefix  = "cookies_"
)

// KeyringStore persists cookie sets in the system keychain.
type KeyringStore struct{}

// NewKeyringStore creates a keyring-backed store, probing availability first.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)
	return &KeyringStore{}, nil
}

// Store saves the cookie set to the system keychain.
func (k *KeyringStore) Store(set *CookieSet) error {
	if set == nil || set.TargetUID == "" {
		return ErrInvalidCookieSet
	}

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal cookie set: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+set.TargetUID, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets the cookie set from the system keychain.
func (k *KeyringStore) Retrieve(targetUID string) (*CookieSet, error) {
	if targetUID == "" {
		return nil, ErrInvalidCookieSet
	}

	data, err := keyring.Get(keyringService, keyringPrefix+targetUID)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var set CookieSet
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cookie set: %w", err)
	}
	return &set, nil
}

// Delete removes the cookie set from the system keychain.
func (k *KeyringStore) Delete(targetUID string) error {
	if targetUID == "" {
		return ErrInvalidCookieSet
	}
	if err := keyring.Delete(keyringService, keyringPrefix+targetUID); err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks if a cookie set exists in the keychain.
func (k *KeyringStore) Exists(targetUID string) bool {
	if targetUID == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+targetUID)
	return err == nil
}
