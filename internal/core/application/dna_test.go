package application

import (
	"fmt"
	"testing"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

type fixedRandomness struct {
	values map[string][]byte
	err    error
}

func (r fixedRandomness) Random(subject []byte) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.values[string(subject)], nil
}

type fixedSequence uint64

func (s fixedSequence) CurrentSequence() uint64 { return uint64(s) }

func TestCombineDna(t *testing.T) {
	a := domain.Dna{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa,
		0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}
	b := domain.Dna{0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55,
		0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55}

	var ones, zeros, half domain.Dna
	for i := range ones {
		ones[i] = 0xff
		half[i] = 0xf0
	}

	tests := []struct {
		name     string
		mask     domain.Dna
		expected domain.Dna
	}{
		{"full mask takes first parent", ones, a},
		{"empty mask takes second parent", zeros, b},
		{"half mask mixes nibbles", half, func() domain.Dna {
			var d domain.Dna
			for i := range d {
				d[i] = 0xa5
			}
			return d
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, combineDna(tt.mask, a, b))
		})
	}
}

func TestGenerateGender(t *testing.T) {
	tests := []struct {
		random   []byte
		expected domain.Gender
	}{
		{[]byte{0}, domain.Male},
		{[]byte{1, 0}, domain.Female},
		{[]byte{200}, domain.Male},
	}
	for _, tt := range tests {
		randomness := fixedRandomness{values: map[string][]byte{"gender": tt.random}}
		gender, err := generateGender(randomness)
		require.NoError(t, err)
		require.Equal(t, tt.expected, gender)
	}

	_, err := generateGender(fixedRandomness{values: map[string][]byte{}})
	require.Error(t, err)

	_, err = generateGender(fixedRandomness{err: fmt.Errorf("no entropy")})
	require.Error(t, err)
}

func TestGenerateDna(t *testing.T) {
	randomness := fixedRandomness{values: map[string][]byte{"dna": []byte("seed")}}

	dna1, err := generateDna(randomness, fixedSequence(1))
	require.NoError(t, err)
	dna1Again, err := generateDna(randomness, fixedSequence(1))
	require.NoError(t, err)
	dna2, err := generateDna(randomness, fixedSequence(2))
	require.NoError(t, err)

	require.Equal(t, dna1, dna1Again)
	require.NotEqual(t, dna1, dna2)
	require.NotEqual(t, domain.Dna{}, dna1)
}
