package application

import (
	"context"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/pkg/errors"
)

// Service is the transition engine of the kitty registry. Every mutating method either
// applies all of its writes or none of them.
type Service interface {
	CreateKitty(ctx context.Context, caller domain.Account) (domain.KittyID, errors.Error)
	SetPrice(
		ctx context.Context, caller domain.Account, id domain.KittyID, price domain.Amount,
	) errors.Error
	Unlist(ctx context.Context, caller domain.Account, id domain.KittyID) errors.Error
	Transfer(
		ctx context.Context, caller, to domain.Account, id domain.KittyID,
	) errors.Error
	BuyKitty(
		ctx context.Context, buyer domain.Account, id domain.KittyID, bidPrice domain.Amount,
	) errors.Error
	BreedKitty(
		ctx context.Context, caller domain.Account, parent1, parent2 domain.KittyID,
	) (domain.KittyID, errors.Error)
	LoadGenesis(ctx context.Context, genesis domain.Genesis) (*GenesisReport, errors.Error)

	GetKitty(ctx context.Context, id domain.KittyID) (*domain.Kitty, errors.Error)
	GetKittiesByOwner(ctx context.Context, owner domain.Account) ([]KittyInfo, errors.Error)
	GetKittyCount(ctx context.Context) (uint64, errors.Error)
	GetBalance(ctx context.Context, account domain.Account) (domain.Amount, errors.Error)
	Deposit(ctx context.Context, account domain.Account, amount domain.Amount) errors.Error
	Close()
}

type KittyInfo struct {
	Id domain.KittyID
	domain.Kitty
}

type GenesisReport struct {
	Minted   []domain.KittyID
	Skipped  int
	Balances int
}
