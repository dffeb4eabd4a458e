package registry

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// TokenGenerator produces unguessable identifiers and private keys.
type TokenGenerator interface {
	NewID() (string, error)
	NewKey() (string, error)
}

// Tokens is the default generator: random UUIDv4 identifiers and 128-bit hex keys.
type Tokens struct{}

// NewID returns a random UUID string.
func (Tokens) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NewKey returns 16 random bytes encoded as hex.
func (Tokens) NewKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
