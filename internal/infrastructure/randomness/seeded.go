package randomness

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/arkade-os/kittyd/internal/core/ports"
	"golang.org/x/crypto/blake2b"
)

// seededRandomness derives every output from a fixed seed, the subject and a call counter,
// so that replaying the same calls yields the same kitties.
type seededRandomness struct {
	lock  sync.Mutex
	seed  []byte
	nonce uint64
}

func NewSeededRandomness(seed []byte) (ports.Randomness, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("missing randomness seed")
	}
	if len(seed) > blake2b.Size {
		return nil, fmt.Errorf("randomness seed must be at most %d bytes", blake2b.Size)
	}
	return &seededRandomness{seed: append([]byte(nil), seed...)}, nil
}

func (r *seededRandomness) Random(subject []byte) ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	hasher, err := blake2b.New256(r.seed)
	if err != nil {
		return nil, err
	}
	hasher.Write(subject)
	hasher.Write(binary.LittleEndian.AppendUint64(nil, r.nonce))
	r.nonce++

	return hasher.Sum(nil), nil
}
