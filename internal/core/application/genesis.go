package application

import (
	"context"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LoadGenesis endows the genesis balances and mints the genesis kitties with their explicit
// genome and gender. A kitty that cannot be minted is logged and skipped, the others are
// still loaded. No KittyCreated event is published for genesis kitties.
//
// Genesis is refused once the registry holds kitties or any genesis account is already
// funded, so the endowment is never applied twice.
func (s *service) LoadGenesis(
	ctx context.Context, genesis domain.Genesis,
) (*GenesisReport, errors.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	count, err := s.repoManager.Kitties().GetKittyCount(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.New("failed to get kitty count: %w", err)
	}
	if count > 0 {
		return nil, errors.REGISTRY_NOT_EMPTY.New(
			"cannot load genesis, registry already holds %d kitties", count,
		).WithMetadata(errors.GenesisMetadata{Count: count})
	}

	for _, balance := range genesis.Balances {
		free, err := s.ledger.FreeBalance(ctx, balance.Account)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.New(
				"failed to get balance of %s: %w", balance.Account, err,
			)
		}
		if free > 0 {
			return nil, errors.REGISTRY_NOT_EMPTY.New(
				"cannot load genesis, account %s already holds %d", balance.Account, free,
			).WithMetadata(errors.GenesisMetadata{Account: string(balance.Account)})
		}
	}

	report := &GenesisReport{
		Minted: make([]domain.KittyID, 0, len(genesis.Kitties)),
	}

	for _, balance := range genesis.Balances {
		if err := s.ledger.Deposit(ctx, balance.Account, balance.Amount); err != nil {
			return nil, errors.INTERNAL_ERROR.New(
				"failed to endow genesis balance of %s: %w", balance.Account, err,
			)
		}
		report.Balances++
	}

	for i, entry := range genesis.Kitties {
		state := s.newState()
		id, mintErr := s.mint(ctx, state, entry.Owner, entry.Dna, entry.Gender)
		if mintErr != nil {
			mintErr.Log().WithError(mintErr).WithField("index", i).
				Warn("skipping genesis kitty")
			report.Skipped++
			continue
		}
		if err := state.commit(ctx); err != nil {
			log.WithError(err).WithField("index", i).Warn("skipping genesis kitty")
			report.Skipped++
			continue
		}
		report.Minted = append(report.Minted, id)
	}

	log.WithFields(log.Fields{
		"minted":   len(report.Minted),
		"skipped":  report.Skipped,
		"balances": report.Balances,
	}).Info("genesis loaded")

	return report, nil
}
