package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

type settingsRepo struct {
	db  dbtx
	now func() time.Time
}

const settingColumns = `id, name, description, type, value, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(row rowScanner) (domain.Setting, error) {
	var (
		s   domain.Setting
		typ string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &typ, &s.Value, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.Setting{}, err
	}
	s.Type = domain.SettingType(typ)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *settingsRepo) FindOneByName(ctx context.Context, name string) (domain.Setting, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+settingColumns+` FROM settings WHERE name = $1`, name)
	s, err := scanSetting(row)
	if err != nil {
		return domain.Setting{}, mapNotFound(err)
	}
	return s, nil
}

func (r *settingsRepo) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+settingColumns+` FROM settings ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Setting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *settingsRepo) CreateSetting(ctx context.Context, s domain.Setting) error {
	now := r.now().UTC()
	return mapInsert(r.db.ExecContext(ctx, `
		INSERT INTO settings (id, name, description, type, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT DO NOTHING`,
		s.ID, s.Name, s.Description, string(s.Type), s.Value, now,
	))
}

func (r *settingsRepo) UpdateSettingValue(
	ctx context.Context,
	name string,
	typ domain.SettingType,
	value string,
) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE settings SET type = $1, value = $2, updated_at = $3 WHERE name = $4`,
		string(typ), value, r.now().UTC(), name,
	))
}

func (r *settingsRepo) DeleteSetting(ctx context.Context, name string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM settings WHERE name = $1`, name))
}
