package domain

import (
	"context"
	"slices"
)

// ChangeSet groups every write produced by one transition. Repositories must apply it
// atomically: either all entries are persisted or none is.
type ChangeSet struct {
	// Kitties holds the upserted kitty records.
	Kitties map[KittyID]Kitty
	// Owned holds the complete, replaced owned list of every touched account.
	Owned map[Account][]KittyID
	// Count is the new kitty counter, nil when unchanged.
	Count *uint64
}

func NewChangeSet() ChangeSet {
	return ChangeSet{
		Kitties: make(map[KittyID]Kitty),
		Owned:   make(map[Account][]KittyID),
	}
}

func (c ChangeSet) IsEmpty() bool {
	return len(c.Kitties) == 0 && len(c.Owned) == 0 && c.Count == nil
}

// Accounts returns the touched accounts in a stable order.
func (c ChangeSet) Accounts() []Account {
	accounts := make([]Account, 0, len(c.Owned))
	for account := range c.Owned {
		accounts = append(accounts, account)
	}
	slices.Sort(accounts)
	return accounts
}

type KittyRepository interface {
	// GetKitty returns nil without error if the kitty does not exist.
	GetKitty(ctx context.Context, id KittyID) (*Kitty, error)
	GetOwnedKitties(ctx context.Context, owner Account) ([]KittyID, error)
	GetKittyCount(ctx context.Context) (uint64, error)
	ListKitties(ctx context.Context) (map[KittyID]Kitty, error)
	Apply(ctx context.Context, changes ChangeSet) error
	Close()
}
