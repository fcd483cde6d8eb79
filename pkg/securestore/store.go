// Package securestore keeps small secrets (the signed-in session) encrypted on
// disk. Every accessor swallows its failures: a value that cannot be read is
// simply not there.
package securestore

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
)

const (
	itemsFile = "secure.json"
	keyFile   = "secure.key"
	hkdfInfo  = "visitdesk secure storage v1"
)

type Store struct {
	Items map[string]string `json:"items"`
	Path  string            `json:"-"`

	aead  cipher.AEAD
	log   logr.Logger
	mu    sync.RWMutex
	dirty bool
}

// New opens (or creates) the store in dir. The master key lives next to the
// items file and is created on first use. Failures are apperr.StorageAccess
// errors; callers are expected to carry on without storage.
func New(dir string, log logr.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, apperr.New(apperr.StorageAccess, fmt.Errorf("failed to create secure storage directory: %w", err))
	}
	master, err := loadOrCreateKey(filepath.Join(dir, keyFile))
	if err != nil {
		return nil, apperr.New(apperr.StorageAccess, err)
	}
	aead, err := deriveAEAD(master)
	if err != nil {
		return nil, apperr.New(apperr.StorageAccess, err)
	}

	s := &Store{
		Items: make(map[string]string),
		Path:  filepath.Join(dir, itemsFile),
		aead:  aead,
		log:   log.WithName("storage"),
	}
	if _, err := os.Stat(s.Path); err == nil {
		if err := s.Load(); err != nil {
			// A corrupt file is treated as empty; it is rewritten on next Save.
			s.log.V(1).Info("ignoring unreadable secure storage", "path", s.Path, "error", err.Error())
			s.Items = make(map[string]string)
		}
	}
	return s, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("secure storage key decode error: %w", err)
		}
		if len(key) != 32 {
			return nil, errors.New("secure storage key must be 32 bytes")
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read secure storage key: %w", err)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate secure storage key: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write secure storage key: %w", err)
	}
	return key, nil
}

func deriveAEAD(master []byte) (cipher.AEAD, error) {
	h := hkdf.New(sha256.New, master, nil, []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return chacha20poly1305.NewX(key)
}

func (s *Store) Load() error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var items map[string]string
	if err := json.NewDecoder(f).Decode(&items); err != nil {
		return err
	}
	if items == nil {
		items = make(map[string]string)
	}
	s.mu.Lock()
	s.Items = items
	s.mu.Unlock()
	return nil
}

func (s *Store) Save() error {
	s.mu.RLock()
	if !s.dirty {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(s.Items); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// GetItem returns the decrypted value for key.
func (s *Store) GetItem(key string) (string, bool) {
	s.mu.RLock()
	sealed, ok := s.Items[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	plain, err := s.open(key, sealed)
	if err != nil {
		s.log.V(1).Info("secure storage read failed", "key", key, "error", err.Error())
		return "", false
	}
	return plain, true
}

// SetItem encrypts and persists value under key.
func (s *Store) SetItem(key, value string) {
	sealed, err := s.seal(key, value)
	if err != nil {
		s.log.V(1).Info("secure storage write failed", "key", key, "error", err.Error())
		return
	}
	s.mu.Lock()
	if s.Items[key] != sealed {
		s.Items[key] = sealed
		s.dirty = true
	}
	s.mu.Unlock()
	if err := s.Save(); err != nil {
		s.log.V(1).Info("secure storage save failed", "path", s.Path, "error", err.Error())
	}
}

// RemoveItem deletes key.
func (s *Store) RemoveItem(key string) {
	s.mu.Lock()
	if _, exists := s.Items[key]; exists {
		delete(s.Items, key)
		s.dirty = true
	}
	s.mu.Unlock()
	if err := s.Save(); err != nil {
		s.log.V(1).Info("secure storage save failed", "path", s.Path, "error", err.Error())
	}
}

func (s *Store) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *Store) open(key, sealed string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	ns := s.aead.NonceSize()
	if len(blob) < ns {
		return "", errors.New("ciphertext too short")
	}
	plain, err := s.aead.Open(nil, blob[:ns], blob[ns:], []byte(key))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
