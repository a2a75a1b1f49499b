package inmemorydb

import (
	"context"
	"slices"
	"sync"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

type kittyRepository struct {
	lock    sync.RWMutex
	kitties map[domain.KittyID]domain.Kitty
	owned   map[domain.Account][]domain.KittyID
	count   uint64
}

func NewKittyRepository(_ ...interface{}) (domain.KittyRepository, error) {
	return &kittyRepository{
		kitties: make(map[domain.KittyID]domain.Kitty),
		owned:   make(map[domain.Account][]domain.KittyID),
	}, nil
}

func (r *kittyRepository) GetKitty(_ context.Context, id domain.KittyID) (*domain.Kitty, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	kitty, ok := r.kitties[id]
	if !ok {
		return nil, nil
	}
	kitty = kitty.WithPrice(kitty.Price)
	return &kitty, nil
}

func (r *kittyRepository) GetOwnedKitties(
	_ context.Context, owner domain.Account,
) ([]domain.KittyID, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return slices.Clone(r.owned[owner]), nil
}

func (r *kittyRepository) GetKittyCount(_ context.Context) (uint64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.count, nil
}

func (r *kittyRepository) ListKitties(_ context.Context) (map[domain.KittyID]domain.Kitty, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	kitties := make(map[domain.KittyID]domain.Kitty, len(r.kitties))
	for id, kitty := range r.kitties {
		kitties[id] = kitty.WithPrice(kitty.Price)
	}
	return kitties, nil
}

func (r *kittyRepository) Apply(_ context.Context, changes domain.ChangeSet) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for id, kitty := range changes.Kitties {
		r.kitties[id] = kitty.WithPrice(kitty.Price)
	}
	for account, ids := range changes.Owned {
		if len(ids) == 0 {
			delete(r.owned, account)
			continue
		}
		r.owned[account] = slices.Clone(ids)
	}
	if changes.Count != nil {
		r.count = *changes.Count
	}
	return nil
}

func (r *kittyRepository) Close() {}
