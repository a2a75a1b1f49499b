package sequence

import (
	"time"

	"github.com/arkade-os/kittyd/internal/core/ports"
)

// blockClock numbers blocks of fixed duration elapsed since genesis.
type blockClock struct {
	genesis   time.Time
	blockTime time.Duration
	now       func() time.Time
}

func NewBlockClock(genesis time.Time, blockTime time.Duration) ports.SequenceSource {
	return newBlockClock(genesis, blockTime, time.Now)
}

func newBlockClock(
	genesis time.Time, blockTime time.Duration, now func() time.Time,
) *blockClock {
	if blockTime <= 0 {
		blockTime = time.Second
	}
	return &blockClock{genesis, blockTime, now}
}

func (c *blockClock) CurrentSequence() uint64 {
	elapsed := c.now().Sub(c.genesis)
	if elapsed <= 0 {
		return 0
	}
	return uint64(elapsed / c.blockTime)
}
