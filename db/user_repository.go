package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/numengames/numinia-conversations-api/db/models"
)

// GetUserByWallet fetches the user owning the given wallet. Returns
// (nil, nil) when no user matches so callers can fall back to an ownerless
// conversation.
func GetUserByWallet(ctx context.Context, pool *pgxpool.Pool, wallet string) (*models.User, error) {
	if pool == nil {
		return nil, errors.New("postgres pool is nil")
	}

	var user models.User
	const query = `SELECT id, wallet, name, created_at FROM users WHERE wallet = $1`
	if err := pool.QueryRow(ctx, query, wallet).Scan(
		&user.ID,
		&user.Wallet,
		&user.Name,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by wallet: %w", err)
	}

	return &user, nil
}
