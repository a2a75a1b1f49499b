package application

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/arkade-os/kittyd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type service struct {
	repoManager ports.RepoManager
	ledger      ports.Ledger
	randomness  ports.Randomness
	sequence    ports.SequenceSource
	publisher   ports.EventPublisher
	maxOwned    uint32

	// transitions are applied one at a time against a consistent view of the registry
	lock *sync.Mutex
}

func NewService(
	repoManager ports.RepoManager,
	ledger ports.Ledger,
	randomness ports.Randomness,
	sequence ports.SequenceSource,
	publisher ports.EventPublisher,
	maxOwned uint32,
) (Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if ledger == nil {
		return nil, fmt.Errorf("missing ledger")
	}
	if randomness == nil {
		return nil, fmt.Errorf("missing randomness source")
	}
	if sequence == nil {
		return nil, fmt.Errorf("missing sequence source")
	}
	if maxOwned == 0 {
		return nil, fmt.Errorf("max owned kitties must be greater than 0")
	}

	return &service{
		repoManager: repoManager,
		ledger:      ledger,
		randomness:  randomness,
		sequence:    sequence,
		publisher:   publisher,
		maxOwned:    maxOwned,
		lock:        &sync.Mutex{},
	}, nil
}

func (s *service) Close() {
	if s.publisher != nil {
		s.publisher.Close()
	}
	s.ledger.Close()
	log.Debug("closed ledger")
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *service) CreateKitty(
	ctx context.Context, caller domain.Account,
) (domain.KittyID, errors.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	dna, err := generateDna(s.randomness, s.sequence)
	if err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New("failed to generate dna: %w", err)
	}
	gender, err := generateGender(s.randomness)
	if err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New(
			"failed to generate gender: %w", err,
		)
	}

	state := s.newState()
	id, mintErr := s.mint(ctx, state, caller, dna, gender)
	if mintErr != nil {
		return domain.KittyID{}, mintErr
	}
	if err := state.commit(ctx); err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New(
			"failed to persist new kitty: %w", err,
		)
	}

	log.WithFields(log.Fields{
		"owner":    caller,
		"kitty_id": id.String(),
		"gender":   gender.String(),
	}).Info("kitty created")

	s.publish(ctx, domain.NewKittyCreated(id, caller))
	return id, nil
}

func (s *service) SetPrice(
	ctx context.Context, caller domain.Account, id domain.KittyID, price domain.Amount,
) errors.Error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.updatePrice(ctx, caller, id, &price); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"owner":    caller,
		"kitty_id": id.String(),
		"price":    price,
	}).Info("kitty listed for sale")

	s.publish(ctx, domain.NewPriceSet(id, caller, &price))
	return nil
}

func (s *service) Unlist(
	ctx context.Context, caller domain.Account, id domain.KittyID,
) errors.Error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.updatePrice(ctx, caller, id, nil); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"owner":    caller,
		"kitty_id": id.String(),
	}).Info("kitty removed from sale")

	s.publish(ctx, domain.NewPriceSet(id, caller, nil))
	return nil
}

func (s *service) Transfer(
	ctx context.Context, caller, to domain.Account, id domain.KittyID,
) errors.Error {
	s.lock.Lock()
	defer s.lock.Unlock()

	state := s.newState()
	kitty, err := state.getKitty(ctx, id)
	if err != nil {
		return errors.INTERNAL_ERROR.New("failed to get kitty %s: %w", id, err)
	}
	if kitty == nil {
		return errors.KITTY_NOT_FOUND.New("kitty %s not found", id).
			WithMetadata(errors.KittyMetadata{KittyID: id.String()})
	}
	if kitty.Owner != caller {
		return errors.NOT_KITTY_OWNER.New("%s does not own kitty %s", caller, id).
			WithMetadata(errors.OwnershipMetadata{
				KittyID: id.String(),
				Caller:  string(caller),
				Owner:   string(kitty.Owner),
			})
	}
	if to == caller {
		return errors.TRANSFER_TO_SELF.New("cannot transfer kitty %s to self", id).
			WithMetadata(errors.AccountMetadata{Account: string(caller)})
	}

	if err := s.moveOwnership(ctx, state, id, to); err != nil {
		return err
	}
	if err := state.commit(ctx); err != nil {
		return errors.INTERNAL_ERROR.New("failed to persist kitty transfer: %w", err)
	}

	log.WithFields(log.Fields{
		"from":     caller,
		"to":       to,
		"kitty_id": id.String(),
	}).Info("kitty transferred")

	s.publish(ctx, domain.NewKittyTransferred(id, caller, to))
	return nil
}

func (s *service) BuyKitty(
	ctx context.Context, buyer domain.Account, id domain.KittyID, bidPrice domain.Amount,
) errors.Error {
	s.lock.Lock()
	defer s.lock.Unlock()

	state := s.newState()
	kitty, err := state.getKitty(ctx, id)
	if err != nil {
		return errors.INTERNAL_ERROR.New("failed to get kitty %s: %w", id, err)
	}
	if kitty == nil {
		return errors.KITTY_NOT_FOUND.New("kitty %s not found", id).
			WithMetadata(errors.KittyMetadata{KittyID: id.String()})
	}
	if kitty.Price == nil {
		return errors.KITTY_NOT_FOR_SALE.New("kitty %s is not for sale", id).
			WithMetadata(errors.KittyMetadata{KittyID: id.String()})
	}
	askPrice := *kitty.Price
	if bidPrice < askPrice {
		return errors.KITTY_BID_PRICE_TOO_LOW.New(
			"bid price %d is lower than ask price %d", bidPrice, askPrice,
		).WithMetadata(errors.BidMetadata{
			KittyID:  id.String(),
			BidPrice: bidPrice,
			AskPrice: askPrice,
		})
	}

	balance, err := s.ledger.FreeBalance(ctx, buyer)
	if err != nil {
		return errors.INTERNAL_ERROR.New("failed to get balance of %s: %w", buyer, err)
	}
	if balance < bidPrice {
		return errors.NOT_ENOUGH_BALANCE.New(
			"free balance %d is lower than bid price %d", balance, bidPrice,
		).WithMetadata(errors.BalanceMetadata{
			Account:  string(buyer),
			Required: bidPrice,
			Free:     balance,
		})
	}

	buyerKitties, err := state.ownedKitties(ctx, buyer)
	if err != nil {
		return errors.INTERNAL_ERROR.New("failed to get kitties of %s: %w", buyer, err)
	}
	if buyerKitties.IsFull() {
		return exceedMaxOwnedError(buyer, buyerKitties)
	}

	seller := kitty.Owner
	if seller == buyer {
		return errors.BUYER_IS_KITTY_OWNER.New("%s already owns kitty %s", buyer, id).
			WithMetadata(errors.OwnershipMetadata{
				KittyID: id.String(),
				Caller:  string(buyer),
				Owner:   string(seller),
			})
	}

	if err := s.ledger.Transfer(ctx, buyer, seller, bidPrice, true); err != nil {
		return errors.NOT_ENOUGH_BALANCE.New("failed to pay for kitty %s: %w", id, err).
			WithMetadata(errors.BalanceMetadata{
				Account:  string(buyer),
				Required: bidPrice,
				Free:     balance,
			})
	}

	// From here on the payment is settled: any failure leaves the registry and the ledger
	// out of sync unless the refund goes through.
	if moveErr := s.moveOwnership(ctx, state, id, buyer); moveErr != nil {
		return s.refundBuyer(ctx, buyer, seller, id, bidPrice, moveErr)
	}
	if err := state.commit(ctx); err != nil {
		return s.refundBuyer(ctx, buyer, seller, id, bidPrice, err)
	}

	log.WithFields(log.Fields{
		"buyer":    buyer,
		"seller":   seller,
		"kitty_id": id.String(),
		"price":    bidPrice,
	}).Info("kitty bought")

	s.publish(ctx, domain.NewKittyBought(id, buyer, seller, bidPrice))
	return nil
}

func (s *service) BreedKitty(
	ctx context.Context, caller domain.Account, parent1, parent2 domain.KittyID,
) (domain.KittyID, errors.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	state := s.newState()
	parents := make([]domain.Kitty, 0, 2)
	for _, parentId := range []domain.KittyID{parent1, parent2} {
		parent, err := state.getKitty(ctx, parentId)
		if err != nil {
			return domain.KittyID{}, errors.INTERNAL_ERROR.New(
				"failed to get kitty %s: %w", parentId, err,
			)
		}
		if parent == nil {
			return domain.KittyID{}, errors.KITTY_NOT_FOUND.New(
				"kitty %s not found", parentId,
			).WithMetadata(errors.KittyMetadata{KittyID: parentId.String()})
		}
		if parent.Owner != caller {
			return domain.KittyID{}, errors.NOT_KITTY_OWNER.New(
				"%s does not own kitty %s", caller, parentId,
			).WithMetadata(errors.OwnershipMetadata{
				KittyID: parentId.String(),
				Caller:  string(caller),
				Owner:   string(parent.Owner),
			})
		}
		parents = append(parents, *parent)
	}

	mask, err := generateDna(s.randomness, s.sequence)
	if err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New(
			"failed to generate breeding mask: %w", err,
		)
	}
	childDna := combineDna(mask, parents[0].Dna, parents[1].Dna)

	gender, err := generateGender(s.randomness)
	if err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New(
			"failed to generate gender: %w", err,
		)
	}

	id, mintErr := s.mint(ctx, state, caller, childDna, gender)
	if mintErr != nil {
		return domain.KittyID{}, mintErr
	}
	if err := state.commit(ctx); err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New(
			"failed to persist bred kitty: %w", err,
		)
	}

	log.WithFields(log.Fields{
		"owner":    caller,
		"kitty_id": id.String(),
		"parent1":  parent1.String(),
		"parent2":  parent2.String(),
	}).Info("kitty bred")

	s.publish(ctx, domain.NewKittyCreated(id, caller))
	return id, nil
}

func (s *service) GetKitty(ctx context.Context, id domain.KittyID) (*domain.Kitty, errors.Error) {
	kitty, err := s.repoManager.Kitties().GetKitty(ctx, id)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.New("failed to get kitty %s: %w", id, err)
	}
	if kitty == nil {
		return nil, errors.KITTY_NOT_FOUND.New("kitty %s not found", id).
			WithMetadata(errors.KittyMetadata{KittyID: id.String()})
	}
	return kitty, nil
}

func (s *service) GetKittiesByOwner(
	ctx context.Context, owner domain.Account,
) ([]KittyInfo, errors.Error) {
	repo := s.repoManager.Kitties()
	ids, err := repo.GetOwnedKitties(ctx, owner)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.New("failed to get kitties of %s: %w", owner, err)
	}

	kitties := make([]KittyInfo, 0, len(ids))
	for _, id := range ids {
		kitty, err := repo.GetKitty(ctx, id)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.New("failed to get kitty %s: %w", id, err)
		}
		if kitty == nil {
			return nil, errors.REGISTRY_INCONSISTENT.New(
				"kitty %s is listed for %s but does not exist", id, owner,
			).WithMetadata(errors.InconsistencyMetadata{
				KittyID: id.String(),
				Account: string(owner),
			})
		}
		kitties = append(kitties, KittyInfo{Id: id, Kitty: *kitty})
	}
	return kitties, nil
}

func (s *service) GetKittyCount(ctx context.Context) (uint64, errors.Error) {
	count, err := s.repoManager.Kitties().GetKittyCount(ctx)
	if err != nil {
		return 0, errors.INTERNAL_ERROR.New("failed to get kitty count: %w", err)
	}
	return count, nil
}

func (s *service) GetBalance(
	ctx context.Context, account domain.Account,
) (domain.Amount, errors.Error) {
	balance, err := s.ledger.FreeBalance(ctx, account)
	if err != nil {
		return 0, errors.INTERNAL_ERROR.New("failed to get balance of %s: %w", account, err)
	}
	return balance, nil
}

func (s *service) Deposit(
	ctx context.Context, account domain.Account, amount domain.Amount,
) errors.Error {
	if err := s.ledger.Deposit(ctx, account, amount); err != nil {
		return errors.INTERNAL_ERROR.New("failed to deposit to %s: %w", account, err)
	}
	log.WithFields(log.Fields{
		"account": account,
		"amount":  amount,
	}).Debug("deposit")
	return nil
}

func (s *service) newState() *stagedState {
	return newStagedState(s.repoManager.Kitties(), s.maxOwned)
}

func (s *service) updatePrice(
	ctx context.Context, caller domain.Account, id domain.KittyID, price *domain.Amount,
) errors.Error {
	state := s.newState()
	kitty, err := state.getKitty(ctx, id)
	if err != nil {
		return errors.INTERNAL_ERROR.New("failed to get kitty %s: %w", id, err)
	}
	if kitty == nil {
		return errors.KITTY_NOT_FOUND.New("kitty %s not found", id).
			WithMetadata(errors.KittyMetadata{KittyID: id.String()})
	}
	if kitty.Owner != caller {
		return errors.NOT_KITTY_OWNER.New("%s does not own kitty %s", caller, id).
			WithMetadata(errors.OwnershipMetadata{
				KittyID: id.String(),
				Caller:  string(caller),
				Owner:   string(kitty.Owner),
			})
	}

	state.putKitty(id, kitty.WithPrice(price))
	if err := state.commit(ctx); err != nil {
		return errors.INTERNAL_ERROR.New("failed to persist kitty price: %w", err)
	}
	return nil
}

// mint stages a new kitty for owner. Nothing is written until the state is committed.
func (s *service) mint(
	ctx context.Context, state *stagedState,
	owner domain.Account, dna domain.Dna, gender domain.Gender,
) (domain.KittyID, errors.Error) {
	kitty := domain.NewKitty(owner, dna, gender)
	id := kitty.Hash()

	existing, err := state.getKitty(ctx, id)
	if err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New("failed to get kitty %s: %w", id, err)
	}
	if existing != nil {
		return domain.KittyID{}, errors.KITTY_ALREADY_EXISTS.New("kitty %s already exists", id).
			WithMetadata(errors.KittyMetadata{KittyID: id.String()})
	}

	count, err := state.kittyCount(ctx)
	if err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New("failed to get kitty count: %w", err)
	}
	if count == math.MaxUint64 {
		return domain.KittyID{}, errors.KITTY_COUNT_OVERFLOW.New("kitty count overflow").
			WithMetadata(errors.CountMetadata{Count: count})
	}

	owned, err := state.ownedKitties(ctx, owner)
	if err != nil {
		return domain.KittyID{}, errors.INTERNAL_ERROR.New(
			"failed to get kitties of %s: %w", owner, err,
		)
	}
	owned, err = owned.TryAppend(id)
	if err != nil {
		return domain.KittyID{}, exceedMaxOwnedError(owner, owned)
	}

	state.putKitty(id, kitty)
	state.setOwnedKitties(owner, owned)
	state.setKittyCount(count + 1)
	return id, nil
}

// moveOwnership stages the move of a kitty to a new owner, clearing its price.
// The caller guarantees the new owner differs from the current one.
func (s *service) moveOwnership(
	ctx context.Context, state *stagedState, id domain.KittyID, to domain.Account,
) errors.Error {
	kitty, err := state.getKitty(ctx, id)
	if err != nil {
		return errors.INTERNAL_ERROR.New("failed to get kitty %s: %w", id, err)
	}
	if kitty == nil {
		return errors.KITTY_NOT_FOUND.New("kitty %s not found", id).
			WithMetadata(errors.KittyMetadata{KittyID: id.String()})
	}
	from := kitty.Owner

	fromKitties, err := state.ownedKitties(ctx, from)
	if err != nil {
		return errors.INTERNAL_ERROR.New("failed to get kitties of %s: %w", from, err)
	}
	fromKitties, err = fromKitties.RemoveByValue(id)
	if err != nil {
		return errors.REGISTRY_INCONSISTENT.New(
			"kitty %s is not listed among the kitties of its owner %s", id, from,
		).WithMetadata(errors.InconsistencyMetadata{
			KittyID: id.String(),
			Account: string(from),
		})
	}

	toKitties, err := state.ownedKitties(ctx, to)
	if err != nil {
		return errors.INTERNAL_ERROR.New("failed to get kitties of %s: %w", to, err)
	}
	toKitties, err = toKitties.TryAppend(id)
	if err != nil {
		return exceedMaxOwnedError(to, toKitties)
	}

	state.setOwnedKitties(from, fromKitties)
	state.setOwnedKitties(to, toKitties)
	state.putKitty(id, kitty.WithOwner(to))
	return nil
}

func (s *service) refundBuyer(
	ctx context.Context, buyer, seller domain.Account,
	id domain.KittyID, amount domain.Amount, cause error,
) errors.Error {
	logger := log.WithFields(log.Fields{
		"buyer":    buyer,
		"seller":   seller,
		"kitty_id": id.String(),
		"amount":   amount,
	})
	logger.WithError(cause).Error("failed to move kitty ownership after payment")

	if err := s.ledger.Transfer(ctx, seller, buyer, amount, false); err != nil {
		logger.WithError(err).Error("failed to refund buyer")
	} else {
		logger.Warn("buyer refunded")
	}

	return errors.REGISTRY_INCONSISTENT.New(
		"failed to move kitty %s to %s after payment: %w", id, buyer, cause,
	).WithMetadata(errors.InconsistencyMetadata{
		KittyID: id.String(),
		Account: string(buyer),
	})
}

func (s *service) publish(ctx context.Context, events ...domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		log.WithError(err).Warn("failed to publish kitty events")
	}
}

func exceedMaxOwnedError(owner domain.Account, owned domain.OwnedKitties) errors.Error {
	return errors.EXCEED_MAX_KITTY_OWNED.New(
		"%s already owns the maximum number of kitties (%d)", owner, owned.Capacity(),
	).WithMetadata(errors.CapacityMetadata{
		Account:  string(owner),
		Owned:    owned.Len(),
		MaxOwned: owned.Capacity(),
	})
}
