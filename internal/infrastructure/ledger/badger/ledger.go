package badgerledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	badgerdb "github.com/arkade-os/kittyd/internal/infrastructure/db/badger"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	ledgerStoreDir = "ledger"
	maxRetries     = 5
)

type balanceRecord struct {
	Account string `badgerhold:"key"`
	Amount  uint64
}

type ledger struct {
	store              *badgerhold.Store
	existentialDeposit domain.Amount
}

func NewLedger(
	baseDir string, logger badger.Logger, existentialDeposit domain.Amount,
) (ports.Ledger, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, ledgerStoreDir)
	}
	store, err := badgerdb.CreateDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %s", err)
	}
	return &ledger{store, existentialDeposit}, nil
}

func (l *ledger) FreeBalance(_ context.Context, account domain.Account) (domain.Amount, error) {
	var record balanceRecord
	if err := l.store.Get(string(account), &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Amount, nil
}

func (l *ledger) Transfer(
	_ context.Context, from, to domain.Account, amount domain.Amount, keepAlive bool,
) error {
	if from == to || amount == 0 {
		return nil
	}

	return l.update(func(tx *badger.Txn) error {
		fromBalance, err := l.getBalance(tx, from)
		if err != nil {
			return err
		}
		if fromBalance < amount {
			return fmt.Errorf(
				"%w: %s has %d, needs %d", ports.ErrInsufficientFunds, from, fromBalance, amount,
			)
		}
		remaining := fromBalance - amount
		if keepAlive && remaining < l.existentialDeposit {
			return fmt.Errorf(
				"%w: transfer would leave %s below existential deposit %d",
				ports.ErrInsufficientFunds, from, l.existentialDeposit,
			)
		}

		toBalance, err := l.getBalance(tx, to)
		if err != nil {
			return err
		}
		if toBalance > math.MaxUint64-amount {
			return fmt.Errorf("balance overflow for %s", to)
		}

		if err := l.setBalance(tx, from, remaining); err != nil {
			return err
		}
		return l.setBalance(tx, to, toBalance+amount)
	})
}

func (l *ledger) Deposit(_ context.Context, account domain.Account, amount domain.Amount) error {
	return l.update(func(tx *badger.Txn) error {
		balance, err := l.getBalance(tx, account)
		if err != nil {
			return err
		}
		if balance > math.MaxUint64-amount {
			return fmt.Errorf("balance overflow for %s", account)
		}
		return l.setBalance(tx, account, balance+amount)
	})
}

func (l *ledger) Close() {
	// nolint:all
	l.store.Close()
}

func (l *ledger) update(fn func(tx *badger.Txn) error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = func() error {
			tx := l.store.Badger().NewTransaction(true)
			defer tx.Discard()

			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit()
		}()
		if err == nil {
			return nil
		}

		if errors.Is(err, badger.ErrConflict) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return err
	}
	return err
}

func (l *ledger) getBalance(tx *badger.Txn, account domain.Account) (domain.Amount, error) {
	var record balanceRecord
	if err := l.store.TxGet(tx, string(account), &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Amount, nil
}

func (l *ledger) setBalance(tx *badger.Txn, account domain.Account, amount domain.Amount) error {
	record := balanceRecord{Account: string(account), Amount: amount}
	return l.store.TxUpsert(tx, record.Account, record)
}
