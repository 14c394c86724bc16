// Package storage keeps small named documents in one directory, optionally
// encrypted at rest with an age passphrase.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// ageHeader is the prefix of Age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates encryption is enabled
	markerFile = ".encrypted"

	// verifyFile is used to validate the passphrase
	verifyFile = ".encryption-verify"

	verifyMagic = `{"magic":"loanpredictor-drafts-verify","version":1}`

	documentExt = ".json"

	minPassphraseLen = 8
)

var (
	ErrLocked              = errors.New("storage is encrypted and locked")
	ErrIncorrectPassphrase = errors.New("incorrect passphrase")
	ErrInvalidName         = errors.New("invalid document name")
)

// Storage provides transparent encrypted/unencrypted document access
type Storage struct {
	baseDir   string
	encrypted bool
	key       *key // nil while locked
	mu        sync.RWMutex
}

// New opens (creating when needed) the document directory
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", baseDir, err)
	}

	s := &Storage{baseDir: baseDir}
	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}
	return s, nil
}

func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsEncrypted returns true if the directory is encrypted
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked returns true unless the directory is encrypted and no passphrase was given
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.key != nil
}

// Unlock verifies the passphrase and keeps the key in memory
func (s *Storage) Unlock(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	k, err := s.verify(passphrase)
	if err != nil {
		return err
	}
	s.key = k
	return nil
}

// Lock clears the encryption key from memory
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.key = nil
}

// verify checks passphrase against the verification file. Caller holds mu.
func (s *Storage) verify(passphrase string) (*key, error) {
	k, err := deriveKey(passphrase)
	if err != nil {
		return nil, err
	}

	encrypted, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read verification file: %w", err)
	}

	decrypted, err := k.open(encrypted)
	if err != nil || string(decrypted) != verifyMagic {
		return nil, ErrIncorrectPassphrase
	}
	return k, nil
}

// Read returns the decrypted contents of a document. A missing document
// yields an error matching fs.ErrNotExist.
func (s *Storage) Read(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isAgeEncrypted(data) {
		if s.key == nil {
			return nil, ErrLocked
		}
		return s.key.open(data)
	}
	return data, nil
}

// Write stores a document, encrypting it when encryption is enabled
func (s *Storage) Write(name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.encrypted {
		if s.key == nil {
			return ErrLocked
		}
		encrypted, err := s.key.seal(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt: %w", err)
		}
		data = encrypted
	}

	return atomicWrite(path, data)
}

// Delete removes a document; a missing document is not an error
func (s *Storage) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ModTime returns when a document was last written
func (s *Storage) ModTime(name string) (time.Time, error) {
	path, err := s.path(name)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// List returns the names of all stored documents, sorted
func (s *Storage) List() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.baseDir, "*"+documentExt))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, strings.TrimSuffix(filepath.Base(p), documentExt))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.baseDir, name+documentExt), nil
}

// atomicWrite replaces path through a temp file unique to this call, so
// concurrent writers of one document never share a temp file.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

