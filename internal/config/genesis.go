package config

import (
	"fmt"
	"os"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"gopkg.in/yaml.v3"
)

type genesisBalance struct {
	Account string `yaml:"account"`
	Amount  uint64 `yaml:"amount"`
}

type genesisKitty struct {
	Owner  string `yaml:"owner"`
	Dna    string `yaml:"dna"`
	Gender string `yaml:"gender"`
}

type genesisFile struct {
	Balances []genesisBalance `yaml:"balances"`
	Kitties  []genesisKitty   `yaml:"kitties"`
}

func LoadGenesisFile(path string) (*domain.Genesis, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file: %w", err)
	}
	return ParseGenesis(buf)
}

// ParseGenesis decodes a yaml genesis document. Every entry is validated up front so that a
// malformed file is rejected before anything is loaded.
func ParseGenesis(buf []byte) (*domain.Genesis, error) {
	var file genesisFile
	if err := yaml.Unmarshal(buf, &file); err != nil {
		return nil, fmt.Errorf("failed to parse genesis file: %w", err)
	}

	genesis := &domain.Genesis{
		Balances: make([]domain.GenesisBalance, 0, len(file.Balances)),
		Kitties:  make([]domain.GenesisKitty, 0, len(file.Kitties)),
	}

	for i, b := range file.Balances {
		if b.Account == "" {
			return nil, fmt.Errorf("balance %d: missing account", i)
		}
		genesis.Balances = append(genesis.Balances, domain.GenesisBalance{
			Account: domain.Account(b.Account),
			Amount:  b.Amount,
		})
	}

	for i, k := range file.Kitties {
		if k.Owner == "" {
			return nil, fmt.Errorf("kitty %d: missing owner", i)
		}
		dna, err := domain.ParseDna(k.Dna)
		if err != nil {
			return nil, fmt.Errorf("kitty %d: %w", i, err)
		}
		gender, err := domain.ParseGender(k.Gender)
		if err != nil {
			return nil, fmt.Errorf("kitty %d: %w", i, err)
		}
		genesis.Kitties = append(genesis.Kitties, domain.GenesisKitty{
			Owner:  domain.Account(k.Owner),
			Dna:    dna,
			Gender: gender,
		})
	}

	return genesis, nil
}
