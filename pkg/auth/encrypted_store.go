package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// ErrNoPassphrase is returned when the encrypted store cannot derive a key.
var ErrNoPassphrase = errors.New("ARTICLEGRAB_PASSPHRASE is not set")

// EncryptedFileStore persists cookie sets in an AES-GCM encrypted file,
// keyed from a passphrase with PBKDF2.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

type encryptedFile struct {
	Salt      string `json:"salt"`
	Encrypted string `json:"encrypted"`
}

// NewEncryptedFileStore creates the store. The passphrase comes from the
// ARTICLEGRAB_PASSPHRASE environment variable.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	passphrase := os.Getenv("ARTICLEGRAB_PASSPHRASE")
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store saves the cookie set to the encrypted file.
func (e *EncryptedFileStore) Store(set *CookieSet) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if set == nil || set.TargetUID == "" {
		return ErrInvalidCookieSet
	}

	sets, err := e.loadAll()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load existing data: %w", err)
	}
	if sets == nil {
		sets = make(map[string]CookieSet)
	}
	sets[set.TargetUID] = *set

	return e.saveAll(sets)
}

// Retrieve gets the cookie set from the encrypted file.
func (e *EncryptedFileStore) Retrieve(targetUID string) (*CookieSet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if targetUID == "" {
		return nil, ErrInvalidCookieSet
	}

	sets, err := e.loadAll()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	set, ok := sets[targetUID]
	if !ok {
		return nil, ErrNotFound
	}
	return &set, nil
}

// Delete removes the cookie set from the encrypted file.
func (e *EncryptedFileStore) Delete(targetUID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sets, err := e.loadAll()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if _, ok := sets[targetUID]; !ok {
		return ErrNotFound
	}
	delete(sets, targetUID)
	return e.saveAll(sets)
}

// Exists checks if a cookie set exists in the encrypted file.
func (e *EncryptedFileStore) Exists(targetUID string) bool {
	set, err := e.Retrieve(targetUID)
	return err == nil && set != nil
}

func (e *EncryptedFileStore) loadAll() (map[string]CookieSet, error) {
	raw, err := os.ReadFile(e.path)
	if err != nil {
		return nil, err
	}

	var file encryptedFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse encrypted store: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	plaintext, err := decrypt(ciphertext, e.passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt store: %w", err)
	}

	var sets map[string]CookieSet
	if err := json.Unmarshal(plaintext, &sets); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted data: %w", err)
	}
	return sets, nil
}

func (e *EncryptedFileStore) saveAll(sets map[string]CookieSet) error {
	plaintext, err := json.Marshal(sets)
	if err != nil {
		return fmt.Errorf("failed to marshal cookie sets: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	ciphertext, err := encrypt(plaintext, e.passphrase, salt)
	if err != nil {
		return fmt.Errorf("failed to encrypt store: %w", err)
	}

	raw, err := json.Marshal(encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return err
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write encrypted store: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace encrypted store: %w", err)
	}
	return nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
}

func encrypt(plaintext []byte, passphrase string, salt []byte) ([]byte, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte, passphrase string, salt []byte) ([]byte, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, payload := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, payload, nil)
}
