package application

import (
	"context"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

// stagedState overlays pending writes on top of the repository. Reads see staged values
// first, and nothing reaches the repository until commit.
type stagedState struct {
	repo     domain.KittyRepository
	maxOwned uint32

	kitties map[domain.KittyID]domain.Kitty
	owned   map[domain.Account]domain.OwnedKitties
	count   *uint64
}

func newStagedState(repo domain.KittyRepository, maxOwned uint32) *stagedState {
	return &stagedState{
		repo:     repo,
		maxOwned: maxOwned,
		kitties:  make(map[domain.KittyID]domain.Kitty),
		owned:    make(map[domain.Account]domain.OwnedKitties),
	}
}

func (s *stagedState) getKitty(ctx context.Context, id domain.KittyID) (*domain.Kitty, error) {
	if kitty, ok := s.kitties[id]; ok {
		return &kitty, nil
	}
	return s.repo.GetKitty(ctx, id)
}

func (s *stagedState) putKitty(id domain.KittyID, kitty domain.Kitty) {
	s.kitties[id] = kitty
}

func (s *stagedState) ownedKitties(
	ctx context.Context, account domain.Account,
) (domain.OwnedKitties, error) {
	if owned, ok := s.owned[account]; ok {
		return owned, nil
	}
	ids, err := s.repo.GetOwnedKitties(ctx, account)
	if err != nil {
		return domain.OwnedKitties{}, err
	}
	return domain.NewOwnedKitties(s.maxOwned, ids...), nil
}

func (s *stagedState) setOwnedKitties(account domain.Account, owned domain.OwnedKitties) {
	s.owned[account] = owned
}

func (s *stagedState) kittyCount(ctx context.Context) (uint64, error) {
	if s.count != nil {
		return *s.count, nil
	}
	return s.repo.GetKittyCount(ctx)
}

func (s *stagedState) setKittyCount(count uint64) {
	s.count = &count
}

func (s *stagedState) changeSet() domain.ChangeSet {
	changes := domain.NewChangeSet()
	for id, kitty := range s.kitties {
		changes.Kitties[id] = kitty
	}
	for account, owned := range s.owned {
		changes.Owned[account] = owned.IDs()
	}
	if s.count != nil {
		count := *s.count
		changes.Count = &count
	}
	return changes
}

func (s *stagedState) commit(ctx context.Context) error {
	changes := s.changeSet()
	if changes.IsEmpty() {
		return nil
	}
	return s.repo.Apply(ctx, changes)
}
