package db

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	badgerdb "github.com/arkade-os/kittyd/internal/infrastructure/db/badger"
	inmemorydb "github.com/arkade-os/kittyd/internal/infrastructure/db/inmemory"
	redisdb "github.com/arkade-os/kittyd/internal/infrastructure/db/redis"
	sqlitedb "github.com/arkade-os/kittyd/internal/infrastructure/db/sqlite"
	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

//go:embed sqlite/migration/*
var migrations embed.FS

var (
	kittyStoreTypes = map[string]func(...interface{}) (domain.KittyRepository, error){
		"inmemory": inmemorydb.NewKittyRepository,
		"badger":   badgerdb.NewKittyRepository,
		"sqlite":   sqlitedb.NewKittyRepository,
		"redis":    redisdb.NewKittyRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	kittyStore domain.KittyRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	kittyStoreFactory, ok := kittyStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	var kittyStore domain.KittyRepository
	var err error

	switch config.DataStoreType {
	case "inmemory", "badger":
		kittyStore, err = kittyStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open kitty store: %s", err)
		}
	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			return nil, fmt.Errorf("invalid data store config")
		}

		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}

		dbFile := ":memory:"
		if len(baseDir) > 0 {
			dbFile = filepath.Join(baseDir, sqliteDbFile)
		}
		db, err := sqlitedb.OpenDb(dbFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %s", err)
		}

		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}

		source, err := iofs.New(migrations, "sqlite/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "kittyd", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run migrations: %s", err)
		}

		kittyStore, err = kittyStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open kitty store: %s", err)
		}
	case "redis":
		if len(config.DataStoreConfig) != 2 {
			return nil, fmt.Errorf("invalid data store config for redis")
		}

		redisUrl, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid redis url")
		}
		numOfRetries, ok := config.DataStoreConfig[1].(int)
		if !ok {
			return nil, fmt.Errorf("invalid redis number of retries")
		}

		redisOpts, err := redis.ParseURL(redisUrl)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(redisOpts)

		kittyStore, err = kittyStoreFactory(rdb, numOfRetries)
		if err != nil {
			return nil, fmt.Errorf("failed to open kitty store: %s", err)
		}
	}

	log.Debugf("opened %s kitty store", config.DataStoreType)

	return &service{
		kittyStore: kittyStore,
	}, nil
}

func (s *service) Kitties() domain.KittyRepository {
	return s.kittyStore
}

func (s *service) Close() {
	s.kittyStore.Close()
}
