package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnableEncryption encrypts every stored document with the passphrase and
// encrypts all later writes.
func (s *Storage) EnableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return fmt.Errorf("encryption is already enabled")
	}
	if len(passphrase) < minPassphraseLen {
		return fmt.Errorf("passphrase must be at least %d characters", minPassphraseLen)
	}

	k, err := deriveKey(passphrase)
	if err != nil {
		return err
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	encrypted, err := k.seal([]byte(verifyMagic))
	if err != nil {
		return fmt.Errorf("failed to encrypt verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, encrypted, 0600); err != nil {
		return fmt.Errorf("failed to write verification file: %w", err)
	}

	paths, err := s.documentPaths()
	if err != nil {
		os.Remove(verifyPath)
		return fmt.Errorf("failed to scan documents: %w", err)
	}

	for _, path := range paths {
		if err := rewriteFile(path, func(data []byte) ([]byte, error) {
			if isAgeEncrypted(data) {
				return nil, nil
			}
			return k.seal(data)
		}); err != nil {
			rollbackEncryption(paths, k)
			os.Remove(verifyPath)
			return fmt.Errorf("failed to encrypt %s: %w", filepath.Base(path), err)
		}
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0600); err != nil {
		return fmt.Errorf("failed to create marker file: %w", err)
	}

	s.encrypted = true
	s.key = k
	return nil
}

// DisableEncryption decrypts every stored document (requires the current passphrase)
func (s *Storage) DisableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return fmt.Errorf("encryption is not enabled")
	}

	k, err := s.verify(passphrase)
	if err != nil {
		return err
	}

	paths, err := s.documentPaths()
	if err != nil {
		return fmt.Errorf("failed to scan documents: %w", err)
	}

	for _, path := range paths {
		if err := rewriteFile(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			return k.open(data)
		}); err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.key = nil
	return nil
}

func (s *Storage) documentPaths() ([]string, error) {
	return filepath.Glob(filepath.Join(s.baseDir, "*"+documentExt))
}

// rewriteFile replaces a file's contents with transform's output. A nil
// result leaves the file untouched.
func rewriteFile(path string, transform func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := transform(data)
	if err != nil || out == nil {
		return err
	}
	return atomicWrite(path, out)
}

// rollbackEncryption decrypts files encrypted during a failed migration (best effort)
func rollbackEncryption(paths []string, k *key) {
	for _, path := range paths {
		_ = rewriteFile(path, func(data []byte) ([]byte, error) {
			if !isAgeEncrypted(data) {
				return nil, nil
			}
			return k.open(data)
		})
	}
}
