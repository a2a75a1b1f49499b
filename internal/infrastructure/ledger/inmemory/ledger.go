package inmemoryledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
)

type ledger struct {
	lock               sync.RWMutex
	balances           map[domain.Account]domain.Amount
	existentialDeposit domain.Amount
}

func NewLedger(existentialDeposit domain.Amount) ports.Ledger {
	return &ledger{
		balances:           make(map[domain.Account]domain.Amount),
		existentialDeposit: existentialDeposit,
	}
}

func (l *ledger) FreeBalance(_ context.Context, account domain.Account) (domain.Amount, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.balances[account], nil
}

func (l *ledger) Transfer(
	_ context.Context, from, to domain.Account, amount domain.Amount, keepAlive bool,
) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if from == to || amount == 0 {
		return nil
	}

	fromBalance := l.balances[from]
	if fromBalance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ports.ErrInsufficientFunds, from, fromBalance, amount)
	}
	remaining := fromBalance - amount
	if keepAlive && remaining < l.existentialDeposit {
		return fmt.Errorf(
			"%w: transfer would leave %s below existential deposit %d",
			ports.ErrInsufficientFunds, from, l.existentialDeposit,
		)
	}
	toBalance := l.balances[to]
	if toBalance > math.MaxUint64-amount {
		return fmt.Errorf("balance overflow for %s", to)
	}

	l.balances[from] = remaining
	l.balances[to] = toBalance + amount
	return nil
}

func (l *ledger) Deposit(_ context.Context, account domain.Account, amount domain.Amount) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	balance := l.balances[account]
	if balance > math.MaxUint64-amount {
		return fmt.Errorf("balance overflow for %s", account)
	}
	l.balances[account] = balance + amount
	return nil
}

func (l *ledger) Close() {}
