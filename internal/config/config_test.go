package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arkade-os/kittyd/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// loadConfig runs a throwaway cli app so that flags and env vars are resolved the same way
// the kittyd binary does.
func loadConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var cfg *config.Config
	var loadErr error
	app := cli.NewApp()
	app.Name = "kittyd-test"
	app.Flags = config.NewFlags()
	app.Action = func(c *cli.Context) error {
		cfg, loadErr = config.LoadConfig(c)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"kittyd-test"}, args...)))
	return cfg, loadErr
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		datadir := t.TempDir()
		cfg, err := loadConfig(t, "--datadir", datadir)
		require.NoError(t, err)

		require.Equal(t, datadir, cfg.Datadir)
		require.Equal(t, filepath.Join(datadir, "db"), cfg.DbDir)
		require.Equal(t, "badger", cfg.DbType)
		require.Equal(t, "badger", cfg.LedgerType)
		require.Equal(t, uint64(9999), cfg.MaxOwned)
		require.Equal(t, 6*time.Second, cfg.BlockTime)
		require.Equal(t, filepath.Join(datadir, "genesis.yaml"), cfg.GenesisFile)
		require.Empty(t, cfg.RandomnessSeed)
	})

	t.Run("env vars", func(t *testing.T) {
		t.Setenv("KITTYD_MAX_OWNED", "3")
		t.Setenv("KITTYD_DB_TYPE", "sqlite")

		cfg, err := loadConfig(t, "--datadir", t.TempDir())
		require.NoError(t, err)
		require.Equal(t, uint64(3), cfg.MaxOwned)
		require.Equal(t, "sqlite", cfg.DbType)
	})

	// runs after "env vars" so that values resolved from the environment in a previous app
	// run must not shadow the config file
	t.Run("config file", func(t *testing.T) {
		datadir := t.TempDir()
		file := "max-owned: 7\nledger-type: inmemory\nblock-time: 12s\ndb-type: inmemory\n"
		require.NoError(
			t, os.WriteFile(filepath.Join(datadir, "kittyd.yaml"), []byte(file), 0o600),
		)

		// flags win over the config file
		cfg, err := loadConfig(t, "--datadir", datadir, "--db-type", "sqlite")
		require.NoError(t, err)
		require.Equal(t, uint64(7), cfg.MaxOwned)
		require.Equal(t, "inmemory", cfg.LedgerType)
		require.Equal(t, 12*time.Second, cfg.BlockTime)
		require.Equal(t, "sqlite", cfg.DbType)
	})

	t.Run("redis without url", func(t *testing.T) {
		_, err := loadConfig(t, "--datadir", t.TempDir(), "--db-type", "redis")
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg, err := loadConfig(
			t,
			"--datadir", t.TempDir(),
			"--db-type", "inmemory",
			"--ledger-type", "inmemory",
			"--randomness-seed", "0xdeadbeef",
			"--max-owned", "2",
		)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())

		svc := cfg.AppService()
		require.NotNil(t, svc)
		require.NotNil(t, cfg.EventPublisher())
		defer svc.Close()

		ctx := testContext(t)
		id, svcErr := svc.CreateKitty(ctx, "alice")
		require.NoError(t, svcErr)
		kitty, svcErr := svc.GetKitty(ctx, id)
		require.NoError(t, svcErr)
		require.Equal(t, "alice", string(kitty.Owner))

		require.NotContains(t, cfg.String(), "deadbeef")
	})

	t.Run("persistent stores", func(t *testing.T) {
		for _, dbType := range []string{"badger", "sqlite"} {
			t.Run(dbType, func(t *testing.T) {
				cfg, err := loadConfig(
					t, "--datadir", t.TempDir(), "--db-type", dbType, "--ledger-type", "badger",
				)
				require.NoError(t, err)
				require.NoError(t, cfg.Validate())
				cfg.AppService().Close()
			})
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
		}{
			{"unknown db type", []string{"--db-type", "postgres"}},
			{"unknown ledger type", []string{"--db-type", "inmemory", "--ledger-type", "postgres"}},
			{"zero max owned", []string{"--db-type", "inmemory", "--max-owned", "0"}},
			{"max owned overflow", []string{"--db-type", "inmemory", "--max-owned", "4294967301"}},
			{"invalid log level", []string{"--db-type", "inmemory", "--log-level", "9"}},
			{"invalid block time", []string{"--db-type", "inmemory", "--block-time", "0s"}},
			{"invalid seed", []string{
				"--db-type", "inmemory", "--ledger-type", "inmemory", "--randomness-seed", "zz",
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				args := append([]string{"--datadir", t.TempDir()}, tt.args...)
				cfg, err := loadConfig(t, args...)
				require.NoError(t, err)
				require.Error(t, cfg.Validate())
			})
		}
	})
}
