package ports

import (
	"context"
	"errors"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the currency ledger that settles marketplace purchases.
type Ledger interface {
	FreeBalance(ctx context.Context, account domain.Account) (domain.Amount, error)
	// Transfer moves amount from one account to another. With keepAlive set the payer must
	// retain at least the existential deposit after the transfer, otherwise
	// ErrInsufficientFunds is returned and no balance changes.
	Transfer(
		ctx context.Context, from, to domain.Account, amount domain.Amount, keepAlive bool,
	) error
	Deposit(ctx context.Context, account domain.Account, amount domain.Amount) error
	Close()
}
