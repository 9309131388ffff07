package db

import (
	"context"
	"database/sql"
)

// SettingsRepo is the relational store for per-account key-value settings
// (§6 GET/PUT /connections/:account_id/settings).
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (r *SettingsRepo) GetAll(ctx context.Context, accountID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM account_settings WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// PutAll upserts every key in settings for accountID.
func (r *SettingsRepo) PutAll(ctx context.Context, accountID string, settings map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for k, v := range settings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO account_settings (account_id, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (account_id, key) DO UPDATE SET value = EXCLUDED.value`,
			accountID, k, v,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SettingsRepo) DeleteAll(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM account_settings WHERE account_id = $1`, accountID)
	return err
}
