package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arkade-os/kittyd/internal/core/application"
	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/arkade-os/kittyd/internal/infrastructure/db"
	badgerledger "github.com/arkade-os/kittyd/internal/infrastructure/ledger/badger"
	inmemoryledger "github.com/arkade-os/kittyd/internal/infrastructure/ledger/inmemory"
	watermillpublisher "github.com/arkade-os/kittyd/internal/infrastructure/publisher/watermill"
	"github.com/arkade-os/kittyd/internal/infrastructure/randomness"
	"github.com/arkade-os/kittyd/internal/infrastructure/sequence"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const configFileName = "kittyd.yaml"

var (
	supportedDbs = supportedType{
		"inmemory": {},
		"badger":   {},
		"sqlite":   {},
		"redis":    {},
	}
	supportedLedgers = supportedType{
		"inmemory": {},
		"badger":   {},
	}
)

type Config struct {
	Datadir             string
	DbType              string
	DbDir               string
	RedisUrl            string
	RedisTxNumOfRetries int
	LedgerType          string
	LogLevel            int
	MaxOwned            uint64
	ExistentialDeposit  uint64
	RandomnessSeed      string
	GenesisTime         int64
	BlockTime           time.Duration
	GenesisFile         string

	repo       ports.RepoManager
	ledger     ports.Ledger
	randomness ports.Randomness
	sequence   ports.SequenceSource
	publisher  *watermillpublisher.Publisher
	svc        application.Service
}

func (c *Config) String() string {
	clone := *c
	if clone.RandomnessSeed != "" {
		clone.RandomnessSeed = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = appDataDir("kittyd")
	defaultDbType              = "badger"
	defaultLedgerType          = "badger"
	defaultRedisTxNumOfRetries = 10
	defaultLogLevel            = 4
	defaultMaxOwned            = uint64(9999)
	defaultExistentialDeposit  = uint64(0)
	defaultGenesisTime         = int64(1704067200) // 2024-01-01T00:00:00Z
	defaultBlockTime           = 6 * time.Second
)

// env returns a list of strings prefixed with `KITTYD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("KITTYD_%s", value)
	}

	return envs
}

const (
	DatadirFlag             = "datadir"
	LogLevelFlag            = "log-level"
	DbTypeFlag              = "db-type"
	RedisUrlFlag            = "redis-url"
	RedisTxNumOfRetriesFlag = "redis-num-of-retries"
	LedgerTypeFlag          = "ledger-type"
	MaxOwnedFlag            = "max-owned"
	ExistentialDepositFlag  = "existential-deposit"
	RandomnessSeedFlag      = "randomness-seed"
	GenesisTimeFlag         = "genesis-time"
	BlockTimeFlag           = "block-time"
	GenesisFileFlag         = "genesis-file"
)

// NewFlags returns a fresh set of global flags. urfave/cli stores parsed values in the flag
// structs themselves, so every app run needs its own set.
func NewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Usage: "Directory to store data",
			Name:  DatadirFlag, EnvVars: env("DATADIR"),
			Value: defaultDatadir,
		},
		&cli.IntFlag{
			Usage: "Logging level (0-6, where 6 is trace)",
			Name:  LogLevelFlag, EnvVars: env("LOG_LEVEL"),
			Value: defaultLogLevel,
		},
		&cli.StringFlag{
			Usage: "Kitty registry database type (inmemory, badger, sqlite, redis)",
			Name:  DbTypeFlag, EnvVars: env("DB_TYPE"),
			Value: defaultDbType,
		},
		&cli.StringFlag{
			Usage: "Redis db connection url if KITTYD_DB_TYPE is set to redis",
			Name:  RedisUrlFlag, EnvVars: env("REDIS_URL"),
		},
		&cli.IntFlag{
			Usage: "Maximum number of retries for Redis write operations in case of conflicts",
			Name:  RedisTxNumOfRetriesFlag, EnvVars: env("REDIS_NUM_OF_RETRIES"),
			Value: defaultRedisTxNumOfRetries,
		},
		&cli.StringFlag{
			Usage: "Balance ledger type (inmemory, badger)",
			Name:  LedgerTypeFlag, EnvVars: env("LEDGER_TYPE"),
			Value: defaultLedgerType,
		},
		&cli.Uint64Flag{
			Usage: "Maximum number of kitties a single account can own",
			Name:  MaxOwnedFlag, EnvVars: env("MAX_OWNED"),
			Value: defaultMaxOwned,
		},
		&cli.Uint64Flag{
			Usage: "Minimum balance a buyer must keep after paying for a kitty",
			Name:  ExistentialDepositFlag, EnvVars: env("EXISTENTIAL_DEPOSIT"),
			Value: defaultExistentialDeposit,
		},
		&cli.StringFlag{
			Usage: "Hex seed for reproducible randomness, system entropy is used if empty",
			Name:  RandomnessSeedFlag, EnvVars: env("RANDOMNESS_SEED"),
		},
		// TODO: Make this a cli.TimestampFlag.
		&cli.Int64Flag{
			Usage: "Unix timestamp of the first block, used to derive the block sequence",
			Name:  GenesisTimeFlag, EnvVars: env("GENESIS_TIME"),
			Value: defaultGenesisTime,
		},
		&cli.DurationFlag{
			Usage: "Duration of a block",
			Name:  BlockTimeFlag, EnvVars: env("BLOCK_TIME"),
			Value: defaultBlockTime,
		},
		&cli.StringFlag{
			Usage: "Path to the genesis file",
			Name:  GenesisFileFlag, EnvVars: env("GENESIS_FILE"),
			DefaultText: "<datadir>/genesis.yaml",
		},
	}
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}
	datadir := c.String(DatadirFlag)

	if err := applyConfigFile(c, filepath.Join(datadir, configFileName)); err != nil {
		return nil, fmt.Errorf("failed to load config file: %s", err)
	}

	var redisUrl string
	if c.String(DbTypeFlag) == "redis" {
		redisUrl = c.String(RedisUrlFlag)
		if redisUrl == "" {
			return nil, fmt.Errorf("db type set to 'redis' but redis url is missing")
		}
	}

	genesisFile := c.String(GenesisFileFlag)
	if genesisFile == "" {
		genesisFile = filepath.Join(datadir, "genesis.yaml")
	}

	return &Config{
		Datadir:             datadir,
		DbType:              c.String(DbTypeFlag),
		DbDir:               filepath.Join(datadir, "db"),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetriesFlag),
		LedgerType:          c.String(LedgerTypeFlag),
		LogLevel:            c.Int(LogLevelFlag),
		MaxOwned:            c.Uint64(MaxOwnedFlag),
		ExistentialDeposit:  c.Uint64(ExistentialDepositFlag),
		RandomnessSeed:      c.String(RandomnessSeedFlag),
		GenesisTime:         c.Int64(GenesisTimeFlag),
		BlockTime:           c.Duration(BlockTimeFlag),
		GenesisFile:         genesisFile,
	}, nil
}

// applyConfigFile fills every flag not set on the command line or through env vars with the
// value found in the optional config file.
func applyConfigFile(c *cli.Context, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for _, flag := range NewFlags() {
		name := flag.Names()[0]
		if c.IsSet(name) || !v.IsSet(name) {
			continue
		}
		if err := c.Set(name, v.GetString(name)); err != nil {
			return fmt.Errorf("invalid value for %s: %s", name, err)
		}
	}
	return nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(DatadirFlag)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedLedgers.supports(c.LedgerType) {
		return fmt.Errorf(
			"ledger type not supported, please select one of: %s", supportedLedgers,
		)
	}
	if c.MaxOwned == 0 {
		return fmt.Errorf("max owned kitties must be greater than 0")
	}
	if c.MaxOwned > math.MaxUint32 {
		return fmt.Errorf("max owned kitties must not exceed %d", uint32(math.MaxUint32))
	}
	if c.LogLevel < int(log.PanicLevel) || c.LogLevel > int(log.TraceLevel) {
		return fmt.Errorf("invalid log level %d, must be between 0 and 6", c.LogLevel)
	}
	if c.BlockTime <= 0 {
		return fmt.Errorf("block time must be greater than 0")
	}
	if c.RedisTxNumOfRetries <= 0 {
		c.RedisTxNumOfRetries = defaultRedisTxNumOfRetries
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.randomnessService(); err != nil {
		return err
	}
	c.sequenceService()
	c.publisherService()
	if err := c.appService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() application.Service {
	return c.svc
}

func (c *Config) EventPublisher() *watermillpublisher.Publisher {
	return c.publisher
}

// Genesis reads the configured genesis file.
func (c *Config) Genesis() (*domain.Genesis, error) {
	return LoadGenesisFile(c.GenesisFile)
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()
	logger.SetLevel(log.WarnLevel)

	switch c.DbType {
	case "inmemory":
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	case "redis":
		dataStoreConfig = []interface{}{c.RedisUrl, c.RedisTxNumOfRetries}
	default:
		return fmt.Errorf("unknown db type")
	}

	if c.DbType == "badger" || c.DbType == "sqlite" {
		if err := makeDirectoryIfNotExists(c.DbDir); err != nil {
			return fmt.Errorf("failed to create db dir: %s", err)
		}
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) ledgerService() error {
	switch c.LedgerType {
	case "inmemory":
		c.ledger = inmemoryledger.NewLedger(c.ExistentialDeposit)
	case "badger":
		logger := log.New()
		logger.SetLevel(log.WarnLevel)
		svc, err := badgerledger.NewLedger(c.DbDir, logger, c.ExistentialDeposit)
		if err != nil {
			return err
		}
		c.ledger = svc
	default:
		return fmt.Errorf("unknown ledger type")
	}
	return nil
}

func (c *Config) randomnessService() error {
	if c.RandomnessSeed == "" {
		c.randomness = randomness.NewCryptoRandomness()
		return nil
	}

	seed, err := hex.DecodeString(strings.TrimPrefix(c.RandomnessSeed, "0x"))
	if err != nil {
		return fmt.Errorf("invalid randomness seed: %s", err)
	}
	svc, err := randomness.NewSeededRandomness(seed)
	if err != nil {
		return err
	}
	c.randomness = svc
	return nil
}

func (c *Config) sequenceService() {
	c.sequence = sequence.NewBlockClock(time.Unix(c.GenesisTime, 0), c.BlockTime)
}

func (c *Config) publisherService() {
	c.publisher = watermillpublisher.NewPublisher()
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.repo, c.ledger, c.randomness, c.sequence, c.publisher, uint32(c.MaxOwned),
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
