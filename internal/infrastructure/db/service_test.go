package db_test

import (
	"crypto/rand"
	"os"
	"testing"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/arkade-os/kittyd/internal/infrastructure/db"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const redisUrlEnv = "KITTYD_TEST_REDIS_URL"

func TestService(t *testing.T) {
	dbDir := t.TempDir()
	tests := []struct {
		name   string
		config db.ServiceConfig
	}{
		{
			name: "repo_manager_with_inmemory_store",
			config: db.ServiceConfig{
				DataStoreType: "inmemory",
			},
		},
		{
			name: "repo_manager_with_badger_store",
			config: db.ServiceConfig{
				DataStoreType:   "badger",
				DataStoreConfig: []interface{}{"", nil},
			},
		},
		{
			name: "repo_manager_with_sqlite_store",
			config: db.ServiceConfig{
				DataStoreType:   "sqlite",
				DataStoreConfig: []interface{}{dbDir},
			},
		},
	}
	if redisUrl := os.Getenv(redisUrlEnv); redisUrl != "" {
		flushRedis(t, redisUrl)
		tests = append(tests, struct {
			name   string
			config db.ServiceConfig
		}{
			name: "repo_manager_with_redis_store",
			config: db.ServiceConfig{
				DataStoreType:   "redis",
				DataStoreConfig: []interface{}{redisUrl, 5},
			},
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config)
			require.NoError(t, err)
			require.NotNil(t, svc)

			testKittyRepository(t, svc)

			svc.Close()
		})
	}
}

func TestServiceInvalidConfig(t *testing.T) {
	_, err := db.NewService(db.ServiceConfig{DataStoreType: "postgres"})
	require.Error(t, err)

	_, err = db.NewService(db.ServiceConfig{DataStoreType: "sqlite"})
	require.Error(t, err)

	_, err = db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{42, nil},
	})
	require.Error(t, err)
}

func TestSqliteStorePersists(t *testing.T) {
	ctx := testContext(t)
	dbDir := t.TempDir()
	config := db.ServiceConfig{
		DataStoreType:   "sqlite",
		DataStoreConfig: []interface{}{dbDir},
	}

	svc, err := db.NewService(config)
	require.NoError(t, err)

	kitty := domain.NewKitty("alice", randomDna(t), domain.Female)
	id := kitty.Hash()
	count := uint64(1)
	changes := domain.NewChangeSet()
	changes.Kitties[id] = kitty
	changes.Owned["alice"] = []domain.KittyID{id}
	changes.Count = &count
	require.NoError(t, svc.Kitties().Apply(ctx, changes))
	svc.Close()

	// reopening runs migrations again without error and finds the data
	svc, err = db.NewService(config)
	require.NoError(t, err)
	defer svc.Close()

	got, err := svc.Kitties().GetKitty(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, kitty, *got)
}

func testKittyRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_kitty_repository", func(t *testing.T) {
		ctx := testContext(t)
		repo := svc.Kitties()

		count, err := repo.GetKittyCount(ctx)
		require.NoError(t, err)
		require.Zero(t, count)

		price := domain.Amount(150)
		kitty1 := domain.NewKitty("alice", randomDna(t), domain.Male)
		kitty2 := domain.NewKitty("alice", randomDna(t), domain.Female).WithPrice(&price)
		kitty3 := domain.NewKitty("bob", randomDna(t), domain.Female)
		id1, id2, id3 := kitty1.Hash(), kitty2.Hash(), kitty3.Hash()

		kitty, err := repo.GetKitty(ctx, id1)
		require.NoError(t, err)
		require.Nil(t, kitty)

		owned, err := repo.GetOwnedKitties(ctx, "alice")
		require.NoError(t, err)
		require.Empty(t, owned)

		count = 3
		changes := domain.NewChangeSet()
		changes.Kitties[id1] = kitty1
		changes.Kitties[id2] = kitty2
		changes.Kitties[id3] = kitty3
		changes.Owned["alice"] = []domain.KittyID{id1, id2}
		changes.Owned["bob"] = []domain.KittyID{id3}
		changes.Count = &count
		require.NoError(t, repo.Apply(ctx, changes))

		kitty, err = repo.GetKitty(ctx, id2)
		require.NoError(t, err)
		require.NotNil(t, kitty)
		require.Equal(t, kitty2, *kitty)
		require.NotNil(t, kitty.Price)
		require.Equal(t, price, *kitty.Price)

		kitty, err = repo.GetKitty(ctx, id1)
		require.NoError(t, err)
		require.NotNil(t, kitty)
		require.Nil(t, kitty.Price)

		owned, err = repo.GetOwnedKitties(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, []domain.KittyID{id1, id2}, owned)

		count, err = repo.GetKittyCount(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(3), count)

		all, err := repo.ListKitties(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, kitty3, all[id3])

		// move kitty2 from alice to bob, delisting it, counter untouched
		changes = domain.NewChangeSet()
		changes.Kitties[id2] = kitty2.WithOwner("bob")
		changes.Owned["alice"] = []domain.KittyID{id1}
		changes.Owned["bob"] = []domain.KittyID{id3, id2}
		require.NoError(t, repo.Apply(ctx, changes))

		kitty, err = repo.GetKitty(ctx, id2)
		require.NoError(t, err)
		require.NotNil(t, kitty)
		require.Equal(t, domain.Account("bob"), kitty.Owner)
		require.Nil(t, kitty.Price)

		owned, err = repo.GetOwnedKitties(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, []domain.KittyID{id3, id2}, owned)

		count, err = repo.GetKittyCount(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(3), count)

		// emptying an owner list
		changes = domain.NewChangeSet()
		changes.Kitties[id1] = kitty1.WithOwner("bob")
		changes.Owned["alice"] = nil
		changes.Owned["bob"] = []domain.KittyID{id3, id2, id1}
		require.NoError(t, repo.Apply(ctx, changes))

		owned, err = repo.GetOwnedKitties(ctx, "alice")
		require.NoError(t, err)
		require.Empty(t, owned)

		owned, err = repo.GetOwnedKitties(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, []domain.KittyID{id3, id2, id1}, owned)

		// empty change set is a no-op
		require.NoError(t, repo.Apply(ctx, domain.NewChangeSet()))
	})
}

func flushRedis(t *testing.T, redisUrl string) {
	opts, err := redis.ParseURL(redisUrl)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	// nolint:errcheck
	defer rdb.Close()
	require.NoError(t, rdb.FlushDB(testContext(t)).Err())
}

func randomDna(t *testing.T) domain.Dna {
	var dna domain.Dna
	_, err := rand.Read(dna[:])
	require.NoError(t, err)
	return dna
}
