package ports

// Randomness returns random bytes bound to the given subject.
type Randomness interface {
	Random(subject []byte) ([]byte, error)
}

// SequenceSource exposes a monotonic sequence number mixed into genome generation.
type SequenceSource interface {
	CurrentSequence() uint64
}
