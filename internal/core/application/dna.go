package application

import (
	"encoding/binary"
	"fmt"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"golang.org/x/crypto/blake2b"
)

var (
	genderSubject = []byte("gender")
	dnaSubject    = []byte("dna")
)

func generateGender(randomness ports.Randomness) (domain.Gender, error) {
	random, err := randomness.Random(genderSubject)
	if err != nil {
		return 0, fmt.Errorf("failed to get randomness for gender: %w", err)
	}
	if len(random) == 0 {
		return 0, fmt.Errorf("randomness source returned no bytes")
	}
	return domain.GenderFromByte(random[0]), nil
}

// generateDna hashes the random value for the dna subject together with the current
// sequence number into a 128-bit genome.
func generateDna(
	randomness ports.Randomness, sequence ports.SequenceSource,
) (domain.Dna, error) {
	var dna domain.Dna

	random, err := randomness.Random(dnaSubject)
	if err != nil {
		return dna, fmt.Errorf("failed to get randomness for dna: %w", err)
	}

	hasher, err := blake2b.New(domain.DnaSize, nil)
	if err != nil {
		return dna, err
	}
	hasher.Write(random)
	hasher.Write(binary.LittleEndian.AppendUint64(nil, sequence.CurrentSequence()))

	copy(dna[:], hasher.Sum(nil))
	return dna, nil
}

// combineDna takes each bit from a where the mask is set and from b where it is not.
func combineDna(mask, a, b domain.Dna) domain.Dna {
	var child domain.Dna
	for i := range child {
		child[i] = (mask[i] & a[i]) | (^mask[i] & b[i])
	}
	return child
}
