package randomness

import (
	"crypto/rand"
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/ports"
	"golang.org/x/crypto/blake2b"
)

type cryptoRandomness struct{}

// NewCryptoRandomness returns a source that binds fresh system entropy to the subject.
func NewCryptoRandomness() ports.Randomness {
	return cryptoRandomness{}
}

func (cryptoRandomness) Random(subject []byte) ([]byte, error) {
	entropy := make([]byte, 32)
	if _, err := rand.Read(entropy); err != nil {
		return nil, fmt.Errorf("failed to read system entropy: %w", err)
	}
	hasher, err := blake2b.New256(entropy)
	if err != nil {
		return nil, err
	}
	hasher.Write(subject)
	return hasher.Sum(nil), nil
}
