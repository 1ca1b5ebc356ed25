package services

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/numengames/numinia-conversations-api/db"
	"github.com/numengames/numinia-conversations-api/db/models"
)

// UserService resolves wallet identifiers to user records.
type UserService struct {
	pool   *pgxpool.Pool
	logger *zap.SugaredLogger
}

func NewUserService(pool *pgxpool.Pool, logger *zap.SugaredLogger) *UserService {
	return &UserService{pool: pool, logger: logger}
}

// GetUserByWalletID returns the user owning the wallet, or nil when the
// wallet is unknown.
func (s *UserService) GetUserByWalletID(ctx context.Context, walletID string) (*models.User, error) {
	s.logger.Infow("getUserByWalletId - trying to get an user by the walletId",
		"walletId", walletID)

	return db.GetUserByWallet(ctx, s.pool, walletID)
}
