package storage

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// workFactor is the scrypt log2 work factor for new ciphertexts; 0 keeps age's default
var workFactor = 0

// key seals and opens documents with one passphrase
type key struct {
	recipient *age.ScryptRecipient
	identity  *age.ScryptIdentity
}

func deriveKey(passphrase string) (*key, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create recipient: %w", err)
	}
	if workFactor > 0 {
		recipient.SetWorkFactor(workFactor)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	return &key{recipient: recipient, identity: identity}, nil
}

func (k *key) seal(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, k.recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (k *key) open(sealed []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(sealed), k.identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// isAgeEncrypted reports whether data starts with the age header
func isAgeEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}
