package sqlite

import (
	"context"
	"database/sql"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every repo can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	userColumns = `id, email, name, role, password_hash, created_at, updated_at`

	getUserByID    = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	listUsers      = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	countUsers     = `SELECT COUNT(*) FROM users`
	createUser     = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	updateUser     = `UPDATE users SET email = ?, name = ?, role = ?, updated_at = ? WHERE id = ?`
	deleteUser     = `DELETE FROM users WHERE id = ?`

	createRefreshToken  = `INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`
	consumeRefreshToken = `DELETE FROM refresh_tokens WHERE token_hash = ?`
	deleteExpiredTokens = `DELETE FROM refresh_tokens WHERE expires_at <= ?`
)
