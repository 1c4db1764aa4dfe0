package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

type accountsRepo struct {
	db  dbtx
	now func() time.Time
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	var (
		a                                  domain.Account
		pwCreated, pwExpired, created, upd int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, password_hash, password_created, password_expired, password_attempt, created_at, updated_at
		FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.PasswordHash, &pwCreated, &pwExpired, &a.PasswordAttempt, &created, &upd)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.PasswordCreated = fromMillis(pwCreated)
	a.PasswordExpired = fromMillis(pwExpired)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(upd)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := toMillis(r.now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, password_hash, password_created, password_expired, password_attempt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		a.ID, a.PasswordHash, toMillis(a.PasswordCreated), toMillis(a.PasswordExpired), a.PasswordAttempt, now, now,
	)
	if err := requireRow(res, err); err != nil {
		if err == store.ErrNotFound {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *accountsRepo) UpdateCredential(ctx context.Context, id string, rec domain.CredentialRecord) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = ?, password_created = ?, password_expired = ?, password_attempt = 0, updated_at = ?
		WHERE id = ?`,
		rec.PasswordHash, toMillis(rec.PasswordCreated), toMillis(rec.PasswordExpired), toMillis(r.now()), id,
	))
}

func (r *accountsRepo) IncrementPasswordAttempt(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET password_attempt = password_attempt + 1, updated_at = ?
		WHERE id = ?
		RETURNING password_attempt`,
		toMillis(r.now()), id,
	).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *accountsRepo) ResetPasswordAttempt(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE accounts SET password_attempt = 0, updated_at = ? WHERE id = ?`,
		toMillis(r.now()), id,
	))
}
