package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	DnaSize     = 16
	KittyIDSize = blake2b.Size256
)

// Account is the opaque identifier of an authenticated caller.
type Account string

type Amount = uint64

type Gender uint8

const (
	Male Gender = iota
	Female
)

func (g Gender) String() string {
	switch g {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(g))
	}
}

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return Male, nil
	case "female", "f":
		return Female, nil
	default:
		return 0, fmt.Errorf("invalid gender %q, must be one of male, female", s)
	}
}

// GenderFromByte maps a random byte to a gender: even is male, odd is female.
func GenderFromByte(b byte) Gender {
	if b%2 == 0 {
		return Male
	}
	return Female
}

type Dna [DnaSize]byte

func (d Dna) String() string {
	return hex.EncodeToString(d[:])
}

func (d Dna) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dna) UnmarshalText(text []byte) error {
	dna, err := ParseDna(string(text))
	if err != nil {
		return err
	}
	*d = dna
	return nil
}

func ParseDna(s string) (Dna, error) {
	var dna Dna
	buf, err := hex.DecodeString(s)
	if err != nil {
		return dna, fmt.Errorf("invalid dna format, must be hex: %s", err)
	}
	if len(buf) != DnaSize {
		return dna, fmt.Errorf("invalid dna length, got %d bytes, expected %d", len(buf), DnaSize)
	}
	copy(dna[:], buf)
	return dna, nil
}

// KittyID is the content hash of a kitty at mint time.
type KittyID [KittyIDSize]byte

func (id KittyID) String() string {
	return hex.EncodeToString(id[:])
}

func (id KittyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *KittyID) UnmarshalText(text []byte) error {
	parsed, err := ParseKittyID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func ParseKittyID(s string) (KittyID, error) {
	var id KittyID
	buf, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid kitty id format, must be hex: %s", err)
	}
	if len(buf) != KittyIDSize {
		return id, fmt.Errorf(
			"invalid kitty id length, got %d bytes, expected %d", len(buf), KittyIDSize,
		)
	}
	copy(id[:], buf)
	return id, nil
}

type Kitty struct {
	Dna    Dna
	Price  *Amount
	Gender Gender
	Owner  Account
}

func NewKitty(owner Account, dna Dna, gender Gender) Kitty {
	return Kitty{
		Dna:    dna,
		Gender: gender,
		Owner:  owner,
	}
}

func (k Kitty) IsForSale() bool {
	return k.Price != nil
}

// Hash returns the identity of the kitty, a blake2b-256 digest of its encoded content.
func (k Kitty) Hash() KittyID {
	return KittyID(blake2b.Sum256(k.encode()))
}

// WithOwner returns a copy owned by the given account, delisted.
func (k Kitty) WithOwner(owner Account) Kitty {
	k.Owner = owner
	k.Price = nil
	return k
}

// WithPrice returns a copy listed at the given price, or delisted when price is nil.
func (k Kitty) WithPrice(price *Amount) Kitty {
	if price == nil {
		k.Price = nil
		return k
	}
	p := *price
	k.Price = &p
	return k
}

// encode serializes the kitty as dna | price option | gender | len-prefixed owner.
func (k Kitty) encode() []byte {
	buf := make([]byte, 0, DnaSize+1+8+1+4+len(k.Owner))
	buf = append(buf, k.Dna[:]...)
	if k.Price == nil {
		buf = append(buf, 0)
	} else {
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint64(buf, *k.Price)
	}
	buf = append(buf, byte(k.Gender))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(k.Owner)))
	buf = append(buf, k.Owner...)
	return buf
}
