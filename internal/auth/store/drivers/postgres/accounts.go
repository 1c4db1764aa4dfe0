package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

type accountsRepo struct {
	db  dbtx
	now func() time.Time
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, password_hash, password_created, password_expired, password_attempt, created_at, updated_at
		FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.PasswordHash, &a.PasswordCreated, &a.PasswordExpired, &a.PasswordAttempt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.PasswordCreated = a.PasswordCreated.UTC()
	a.PasswordExpired = a.PasswordExpired.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := r.now().UTC()
	return mapInsert(r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, password_hash, password_created, password_expired, password_attempt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT DO NOTHING`,
		a.ID, a.PasswordHash, a.PasswordCreated.UTC(), a.PasswordExpired.UTC(), a.PasswordAttempt, now,
	))
}

func (r *accountsRepo) UpdateCredential(ctx context.Context, id string, rec domain.CredentialRecord) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = $1, password_created = $2, password_expired = $3, password_attempt = 0, updated_at = $4
		WHERE id = $5`,
		rec.PasswordHash, rec.PasswordCreated.UTC(), rec.PasswordExpired.UTC(), r.now().UTC(), id,
	))
}

func (r *accountsRepo) IncrementPasswordAttempt(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET password_attempt = password_attempt + 1, updated_at = $1
		WHERE id = $2
		RETURNING password_attempt`,
		r.now().UTC(), id,
	).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *accountsRepo) ResetPasswordAttempt(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE accounts SET password_attempt = 0, updated_at = $1 WHERE id = $2`,
		r.now().UTC(), id,
	))
}
