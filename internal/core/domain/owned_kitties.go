package domain

import (
	"errors"
	"slices"
)

var (
	ErrCapacityExceeded = errors.New("owned kitties capacity exceeded")
	ErrKittyNotOwned    = errors.New("kitty not in owned kitties")
	ErrKittyNotFound    = errors.New("kitty not found")
)

// OwnedKitties is the bounded, ordered list of kitties held by one account.
// Mutations return a new value and leave the receiver untouched.
type OwnedKitties struct {
	ids      []KittyID
	capacity uint32
}

func NewOwnedKitties(capacity uint32, ids ...KittyID) OwnedKitties {
	return OwnedKitties{
		ids:      slices.Clone(ids),
		capacity: capacity,
	}
}

func (o OwnedKitties) Len() int {
	return len(o.ids)
}

func (o OwnedKitties) Capacity() uint32 {
	return o.capacity
}

func (o OwnedKitties) IsFull() bool {
	return uint64(len(o.ids)) >= uint64(o.capacity)
}

func (o OwnedKitties) Contains(id KittyID) bool {
	return slices.Contains(o.ids, id)
}

func (o OwnedKitties) IDs() []KittyID {
	return slices.Clone(o.ids)
}

func (o OwnedKitties) TryAppend(id KittyID) (OwnedKitties, error) {
	if o.IsFull() {
		return o, ErrCapacityExceeded
	}
	ids := make([]KittyID, 0, len(o.ids)+1)
	ids = append(ids, o.ids...)
	ids = append(ids, id)
	return OwnedKitties{ids: ids, capacity: o.capacity}, nil
}

// RemoveByValue drops the first occurrence of id, keeping the order of the rest.
func (o OwnedKitties) RemoveByValue(id KittyID) (OwnedKitties, error) {
	idx := slices.Index(o.ids, id)
	if idx < 0 {
		return o, ErrKittyNotOwned
	}
	ids := make([]KittyID, 0, len(o.ids)-1)
	ids = append(ids, o.ids[:idx]...)
	ids = append(ids, o.ids[idx+1:]...)
	return OwnedKitties{ids: ids, capacity: o.capacity}, nil
}
