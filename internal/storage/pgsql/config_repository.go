package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type configDAO struct {
	d *DAO
}

func (r *configDAO) SetPreference(ctx context.Context, key, value string) error {
	if value == "" {
		if _, err := r.d.pool.Exec(ctx, `DELETE FROM preferences WHERE key = $1`, key); err != nil {
			return fmt.Errorf("deleting preference %q: %w", key, err)
		}
		return nil
	}
	_, err := r.d.pool.Exec(ctx, `
		INSERT INTO preferences (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("storing preference %q: %w", key, err)
	}
	return nil
}

func (r *configDAO) Preference(ctx context.Context, key string) (string, error) {
	var value string
	err := r.d.pool.QueryRow(ctx, `SELECT value FROM preferences WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading preference %q: %w", key, err)
	}
	return value, nil
}
