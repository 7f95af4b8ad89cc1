package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const getAccountSQL = `SELECT id, username FROM auth_user WHERE id = $1 AND is_active`

// AccountDirectory reads accounts from the web application's user table.
type AccountDirectory struct {
	pool *pgxpool.Pool
}

var _ domain.AccountDirectory = (*AccountDirectory)(nil)

func NewAccountDirectory(pool *pgxpool.Pool) *AccountDirectory {
	return &AccountDirectory{pool: pool}
}

func (d *AccountDirectory) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	var account domain.Account
	err := d.pool.QueryRow(ctx, getAccountSQL, id).Scan(&account.ID, &account.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return &account, nil
}
