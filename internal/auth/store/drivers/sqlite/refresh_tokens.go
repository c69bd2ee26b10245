package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, createRefreshToken,
		t.TokenHash,
		t.UserID,
		toMillis(t.ExpiresAt),
		toMillis(t.CreatedAt),
	)
	return mapConstraint(err)
}

// ConsumeRefreshToken is a single DELETE, so the affected row count is the
// compare-and-delete result even across processes sharing the file.
func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, consumeRefreshToken, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredTokens, toMillis(time.Now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
