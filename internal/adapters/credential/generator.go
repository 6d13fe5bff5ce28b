package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"biglietto/internal/domain"
)

// TokenBytes is the entropy per token. 16 bytes (128 bits) encode to a
// 32-character hex string.
const TokenBytes = 16

type generator struct{}

// NewGenerator returns a CredentialGenerator backed by crypto/rand.
func NewGenerator() domain.CredentialGenerator {
	return &generator{}
}

// Generate returns a fresh 32-character hex token. An unavailable secure
// random source is an error, never a fallback to a weaker one.
func (g *generator) Generate() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read secure random source: %w", err)
	}
	return hex.EncodeToString(b), nil
}
