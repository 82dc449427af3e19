package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
)

// ==================== Admin Methods ====================

// GetAdminByEmail looks up an admin account (case-insensitive email)
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var a models.AdminUser
	err := r.q.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM admin_users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAdmin creates an admin or replaces its password hash
func (r *Repository) UpsertAdmin(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.inTransaction(ctx, func(txRepo *Repository) error {
		result, err := txRepo.q.ExecContext(ctx,
			`UPDATE admin_users SET password_hash = ? WHERE email = ?`, passwordHash, email)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err != nil || n == 1 {
			return err
		}
		_, err = txRepo.q.ExecContext(ctx,
			`INSERT INTO admin_users (email, password_hash, created_at) VALUES (?, ?, ?)`,
			email, passwordHash, time.Now().UTC())
		if isUniqueViolation(err) {
			// MySQL reports zero affected rows when the hash is unchanged
			return nil
		}
		return err
	})
}
