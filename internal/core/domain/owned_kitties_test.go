package domain_test

import (
	"testing"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func makeID(b byte) domain.KittyID {
	var id domain.KittyID
	id[0] = b
	return id
}

func TestOwnedKitties(t *testing.T) {
	t.Run("try append", func(t *testing.T) {
		owned := domain.NewOwnedKitties(2)
		require.Zero(t, owned.Len())

		owned, err := owned.TryAppend(makeID(1))
		require.NoError(t, err)
		owned, err = owned.TryAppend(makeID(2))
		require.NoError(t, err)
		require.True(t, owned.IsFull())

		full, err := owned.TryAppend(makeID(3))
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)
		require.Equal(t, []domain.KittyID{makeID(1), makeID(2)}, full.IDs())
	})

	t.Run("remove by value keeps order", func(t *testing.T) {
		owned := domain.NewOwnedKitties(5, makeID(1), makeID(2), makeID(3))

		next, err := owned.RemoveByValue(makeID(2))
		require.NoError(t, err)
		require.Equal(t, []domain.KittyID{makeID(1), makeID(3)}, next.IDs())

		// receiver is not mutated
		require.Equal(t, 3, owned.Len())
		require.True(t, owned.Contains(makeID(2)))
	})

	t.Run("remove missing", func(t *testing.T) {
		owned := domain.NewOwnedKitties(5, makeID(1))
		_, err := owned.RemoveByValue(makeID(9))
		require.ErrorIs(t, err, domain.ErrKittyNotOwned)
	})

	t.Run("zero capacity", func(t *testing.T) {
		owned := domain.NewOwnedKitties(0)
		require.True(t, owned.IsFull())
		_, err := owned.TryAppend(makeID(1))
		require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	})

	t.Run("constructor copies input", func(t *testing.T) {
		ids := []domain.KittyID{makeID(1)}
		owned := domain.NewOwnedKitties(3, ids...)
		ids[0] = makeID(7)
		require.True(t, owned.Contains(makeID(1)))

		out := owned.IDs()
		out[0] = makeID(8)
		require.True(t, owned.Contains(makeID(1)))
	})
}

func TestChangeSetAccounts(t *testing.T) {
	changes := domain.NewChangeSet()
	require.True(t, changes.IsEmpty())

	changes.Owned["carol"] = nil
	changes.Owned["alice"] = []domain.KittyID{makeID(1)}
	changes.Owned["bob"] = nil
	require.False(t, changes.IsEmpty())
	require.Equal(t, []domain.Account{"alice", "bob", "carol"}, changes.Accounts())
}
