package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/redis/go-redis/v9"
)

const (
	kittiesHashKey = "kittyStore:kitties"
	ownedHashKey   = "kittyStore:owned"
	kittyCountKey  = "kittyStore:count"
)

type kittyRecord struct {
	Dna    domain.Dna     `json:"dna"`
	Price  *domain.Amount `json:"price,omitempty"`
	Gender domain.Gender  `json:"gender"`
	Owner  domain.Account `json:"owner"`
}

type kittyRepository struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewKittyRepository(config ...interface{}) (domain.KittyRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config: expected 2 arguments, got %d", len(config))
	}
	rdb, ok := config[0].(*redis.Client)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open kitty repository: expected *redis.Client but got %T", config[0],
		)
	}
	numOfRetries, ok := config[1].(int)
	if !ok {
		return nil, fmt.Errorf("invalid number of retries: expected int but got %T", config[1])
	}
	if numOfRetries <= 0 {
		numOfRetries = 1
	}

	return &kittyRepository{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}, nil
}

func (r *kittyRepository) GetKitty(ctx context.Context, id domain.KittyID) (*domain.Kitty, error) {
	val, err := r.rdb.HGet(ctx, kittiesHashKey, id.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get kitty %s: %v", id, err)
	}
	kitty, err := decodeKitty(val)
	if err != nil {
		return nil, fmt.Errorf("malformed kitty %s in storage: %v", id, err)
	}
	return &kitty, nil
}

func (r *kittyRepository) GetOwnedKitties(
	ctx context.Context, owner domain.Account,
) ([]domain.KittyID, error) {
	val, err := r.rdb.HGet(ctx, ownedHashKey, string(owner)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get owned kitties of %s: %v", owner, err)
	}
	var ids []domain.KittyID
	if err := json.Unmarshal([]byte(val), &ids); err != nil {
		return nil, fmt.Errorf("malformed owned kitties of %s in storage: %v", owner, err)
	}
	return ids, nil
}

func (r *kittyRepository) GetKittyCount(ctx context.Context) (uint64, error) {
	val, err := r.rdb.Get(ctx, kittyCountKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get kitty count: %v", err)
	}
	count, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed kitty count %q in storage: %v", val, err)
	}
	return count, nil
}

func (r *kittyRepository) ListKitties(
	ctx context.Context,
) (map[domain.KittyID]domain.Kitty, error) {
	vals, err := r.rdb.HGetAll(ctx, kittiesHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list kitties: %v", err)
	}
	kitties := make(map[domain.KittyID]domain.Kitty, len(vals))
	for idStr, val := range vals {
		id, err := domain.ParseKittyID(idStr)
		if err != nil {
			return nil, fmt.Errorf("malformed kitty id %s in storage: %v", idStr, err)
		}
		kitty, err := decodeKitty(val)
		if err != nil {
			return nil, fmt.Errorf("malformed kitty %s in storage: %v", idStr, err)
		}
		kitties[id] = kitty
	}
	return kitties, nil
}

// Apply writes the change set in a single MULTI/EXEC block, retrying if a watched key
// changes in the meantime.
func (r *kittyRepository) Apply(ctx context.Context, changes domain.ChangeSet) error {
	kitties := make(map[string]interface{}, len(changes.Kitties))
	for id, kitty := range changes.Kitties {
		val, err := json.Marshal(kittyRecord{
			Dna:    kitty.Dna,
			Price:  kitty.Price,
			Gender: kitty.Gender,
			Owner:  kitty.Owner,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal kitty %s: %v", id, err)
		}
		kitties[id.String()] = val
	}

	owned := make(map[string]interface{}, len(changes.Owned))
	emptied := make([]string, 0)
	for _, owner := range changes.Accounts() {
		ids := changes.Owned[owner]
		if len(ids) == 0 {
			emptied = append(emptied, string(owner))
			continue
		}
		val, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to marshal owned kitties of %s: %v", owner, err)
		}
		owned[string(owner)] = val
	}

	var err error
	for i := 0; i < r.numOfRetries; i++ {
		if err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(kitties) > 0 {
					pipe.HSet(ctx, kittiesHashKey, kitties)
				}
				if len(owned) > 0 {
					pipe.HSet(ctx, ownedHashKey, owned)
				}
				if len(emptied) > 0 {
					pipe.HDel(ctx, ownedHashKey, emptied...)
				}
				if changes.Count != nil {
					pipe.Set(ctx, kittyCountKey, strconv.FormatUint(*changes.Count, 10), 0)
				}
				return nil
			})
			return err
		}, kittiesHashKey, ownedHashKey, kittyCountKey); err == nil {
			return nil
		}
		time.Sleep(r.retryDelay)
	}
	return fmt.Errorf("failed to apply kitty changes after max number of retries: %v", err)
}

func (r *kittyRepository) Close() {
	// nolint:errcheck
	r.rdb.Close()
}

func decodeKitty(val string) (domain.Kitty, error) {
	var record kittyRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return domain.Kitty{}, err
	}
	kitty := domain.NewKitty(record.Owner, record.Dna, record.Gender)
	return kitty.WithPrice(record.Price), nil
}
