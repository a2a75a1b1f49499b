package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	kittyStoreDir = "kitties"
	kittyCountKey = "kitty_count"
)

type kittyRecord struct {
	Id     string `badgerhold:"key"`
	Dna    string
	Price  *uint64
	Gender uint8
	Owner  string
}

type ownedKittiesRecord struct {
	Owner    string `badgerhold:"key"`
	KittyIds []string
}

type counterRecord struct {
	Name  string `badgerhold:"key"`
	Value uint64
}

type kittyRepository struct {
	store *badgerhold.Store
}

func NewKittyRepository(config ...interface{}) (domain.KittyRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, kittyStoreDir)
	}
	store, err := CreateDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open kitty store: %s", err)
	}

	return &kittyRepository{store}, nil
}

func (r *kittyRepository) GetKitty(_ context.Context, id domain.KittyID) (*domain.Kitty, error) {
	var record kittyRecord
	if err := r.store.Get(id.String(), &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	kitty, err := record.toKitty()
	if err != nil {
		return nil, err
	}
	return &kitty, nil
}

func (r *kittyRepository) GetOwnedKitties(
	_ context.Context, owner domain.Account,
) ([]domain.KittyID, error) {
	var record ownedKittiesRecord
	if err := r.store.Get(string(owner), &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ids := make([]domain.KittyID, 0, len(record.KittyIds))
	for _, idStr := range record.KittyIds {
		id, err := domain.ParseKittyID(idStr)
		if err != nil {
			return nil, fmt.Errorf("malformed kitty id in owned kitties of %s: %w", owner, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *kittyRepository) GetKittyCount(_ context.Context) (uint64, error) {
	var record counterRecord
	if err := r.store.Get(kittyCountKey, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Value, nil
}

func (r *kittyRepository) ListKitties(
	_ context.Context,
) (map[domain.KittyID]domain.Kitty, error) {
	var records []kittyRecord
	if err := r.store.Find(&records, nil); err != nil {
		return nil, err
	}

	kitties := make(map[domain.KittyID]domain.Kitty, len(records))
	for _, record := range records {
		id, err := domain.ParseKittyID(record.Id)
		if err != nil {
			return nil, fmt.Errorf("malformed kitty id in storage: %w", err)
		}
		kitty, err := record.toKitty()
		if err != nil {
			return nil, err
		}
		kitties[id] = kitty
	}
	return kitties, nil
}

// Apply writes the change set in a single badger transaction, retrying on conflicts.
func (r *kittyRepository) Apply(_ context.Context, changes domain.ChangeSet) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			if err := r.applyTx(tx, changes); err != nil {
				return err
			}
			return tx.Commit()
		}()
		if err == nil {
			return nil
		}

		if errors.Is(err, badger.ErrConflict) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return err
	}

	return err
}

func (r *kittyRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *kittyRepository) applyTx(tx *badger.Txn, changes domain.ChangeSet) error {
	for id, kitty := range changes.Kitties {
		record := toKittyRecord(id, kitty)
		if err := r.store.TxUpsert(tx, record.Id, record); err != nil {
			return fmt.Errorf("failed to upsert kitty %s: %w", id, err)
		}
	}

	for _, owner := range changes.Accounts() {
		ids := changes.Owned[owner]
		if len(ids) == 0 {
			err := r.store.TxDelete(tx, string(owner), ownedKittiesRecord{})
			if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("failed to delete owned kitties of %s: %w", owner, err)
			}
			continue
		}

		record := ownedKittiesRecord{
			Owner:    string(owner),
			KittyIds: make([]string, 0, len(ids)),
		}
		for _, id := range ids {
			record.KittyIds = append(record.KittyIds, id.String())
		}
		if err := r.store.TxUpsert(tx, record.Owner, record); err != nil {
			return fmt.Errorf("failed to upsert owned kitties of %s: %w", owner, err)
		}
	}

	if changes.Count != nil {
		record := counterRecord{Name: kittyCountKey, Value: *changes.Count}
		if err := r.store.TxUpsert(tx, record.Name, record); err != nil {
			return fmt.Errorf("failed to upsert kitty count: %w", err)
		}
	}
	return nil
}

func toKittyRecord(id domain.KittyID, kitty domain.Kitty) kittyRecord {
	var price *uint64
	if kitty.Price != nil {
		p := *kitty.Price
		price = &p
	}
	return kittyRecord{
		Id:     id.String(),
		Dna:    kitty.Dna.String(),
		Price:  price,
		Gender: uint8(kitty.Gender),
		Owner:  string(kitty.Owner),
	}
}

func (r kittyRecord) toKitty() (domain.Kitty, error) {
	dna, err := domain.ParseDna(r.Dna)
	if err != nil {
		return domain.Kitty{}, fmt.Errorf("malformed dna of kitty %s: %w", r.Id, err)
	}
	kitty := domain.NewKitty(domain.Account(r.Owner), dna, domain.Gender(r.Gender))
	return kitty.WithPrice(r.Price), nil
}
