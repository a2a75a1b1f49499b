package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/arkade-os/kittyd/internal/core/domain"
)

const kittyCountName = "kitty_count"

type kittyRepository struct {
	db *sql.DB
}

func NewKittyRepository(config ...interface{}) (domain.KittyRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open kitty repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &kittyRepository{db}, nil
}

func (r *kittyRepository) GetKitty(ctx context.Context, id domain.KittyID) (*domain.Kitty, error) {
	row := r.db.QueryRowContext(
		ctx, "SELECT id, dna, price, gender, owner FROM kitty WHERE id = ?", id.String(),
	)
	_, kitty, err := scanKitty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kitty %s: %w", id, err)
	}
	return &kitty, nil
}

func (r *kittyRepository) GetOwnedKitties(
	ctx context.Context, owner domain.Account,
) ([]domain.KittyID, error) {
	rows, err := r.db.QueryContext(
		ctx, "SELECT kitty_id FROM owned_kitty WHERE owner = ? ORDER BY position ASC",
		string(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get owned kitties of %s: %w", owner, err)
	}
	// nolint:errcheck
	defer rows.Close()

	ids := make([]domain.KittyID, 0)
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("failed to scan owned kitty: %w", err)
		}
		id, err := domain.ParseKittyID(idStr)
		if err != nil {
			return nil, fmt.Errorf("malformed kitty id in owned kitties of %s: %w", owner, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *kittyRepository) GetKittyCount(ctx context.Context) (uint64, error) {
	var value string
	err := r.db.QueryRowContext(
		ctx, "SELECT value FROM registry_counter WHERE name = ?", kittyCountName,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get kitty count: %w", err)
	}
	count, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed kitty count %q: %w", value, err)
	}
	return count, nil
}

func (r *kittyRepository) ListKitties(
	ctx context.Context,
) (map[domain.KittyID]domain.Kitty, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, dna, price, gender, owner FROM kitty")
	if err != nil {
		return nil, fmt.Errorf("failed to list kitties: %w", err)
	}
	// nolint:errcheck
	defer rows.Close()

	kitties := make(map[domain.KittyID]domain.Kitty)
	for rows.Next() {
		id, kitty, err := scanKitty(rows)
		if err != nil {
			return nil, err
		}
		kitties[id] = kitty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return kitties, nil
}

// Apply writes the change set in a single sql transaction.
func (r *kittyRepository) Apply(ctx context.Context, changes domain.ChangeSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// nolint:errcheck
	defer tx.Rollback()

	for id, kitty := range changes.Kitties {
		var price sql.NullString
		if kitty.Price != nil {
			price = sql.NullString{String: strconv.FormatUint(*kitty.Price, 10), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kitty (id, dna, price, gender, owner) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				dna = excluded.dna,
				price = excluded.price,
				gender = excluded.gender,
				owner = excluded.owner`,
			id.String(), kitty.Dna.String(), price, int64(kitty.Gender), string(kitty.Owner),
		); err != nil {
			return fmt.Errorf("failed to upsert kitty %s: %w", id, err)
		}
	}

	for _, owner := range changes.Accounts() {
		if _, err := tx.ExecContext(
			ctx, "DELETE FROM owned_kitty WHERE owner = ?", string(owner),
		); err != nil {
			return fmt.Errorf("failed to clear owned kitties of %s: %w", owner, err)
		}
		for position, id := range changes.Owned[owner] {
			if _, err := tx.ExecContext(
				ctx, "INSERT INTO owned_kitty (owner, position, kitty_id) VALUES (?, ?, ?)",
				string(owner), position, id.String(),
			); err != nil {
				return fmt.Errorf("failed to insert owned kitty of %s: %w", owner, err)
			}
		}
	}

	if changes.Count != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registry_counter (name, value) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
			kittyCountName, strconv.FormatUint(*changes.Count, 10),
		); err != nil {
			return fmt.Errorf("failed to upsert kitty count: %w", err)
		}
	}

	return tx.Commit()
}

func (r *kittyRepository) Close() {
	_ = r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKitty(row scanner) (domain.KittyID, domain.Kitty, error) {
	var (
		idStr, dnaStr, owner string
		price                sql.NullString
		gender               int64
	)
	if err := row.Scan(&idStr, &dnaStr, &price, &gender, &owner); err != nil {
		return domain.KittyID{}, domain.Kitty{}, err
	}

	id, err := domain.ParseKittyID(idStr)
	if err != nil {
		return domain.KittyID{}, domain.Kitty{}, fmt.Errorf("malformed kitty id: %w", err)
	}
	dna, err := domain.ParseDna(dnaStr)
	if err != nil {
		return domain.KittyID{}, domain.Kitty{}, fmt.Errorf(
			"malformed dna of kitty %s: %w", idStr, err,
		)
	}

	kitty := domain.NewKitty(domain.Account(owner), dna, domain.Gender(gender))
	if price.Valid {
		amount, err := strconv.ParseUint(price.String, 10, 64)
		if err != nil {
			return domain.KittyID{}, domain.Kitty{}, fmt.Errorf(
				"malformed price of kitty %s: %w", idStr, err,
			)
		}
		kitty = kitty.WithPrice(&amount)
	}
	return id, kitty, nil
}
