package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Overrides returns the admin edits for one bundle as key -> value.
func (s *Store) Overrides(ctx context.Context, locale, namespace string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM translation_overrides WHERE locale = $1 AND namespace = $2`,
		locale, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SaveOverrides upserts values in one transaction; an empty value removes the override.
func (s *Store) SaveOverrides(ctx context.Context, locale, namespace string, values map[string]string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for k, v := range values {
			var err error
			if v == "" {
				_, err = tx.Exec(ctx,
					`DELETE FROM translation_overrides WHERE locale=$1 AND namespace=$2 AND key=$3`,
					locale, namespace, k)
			} else {
				_, err = tx.Exec(ctx,
					`INSERT INTO translation_overrides (locale, namespace, key, value)
					 VALUES ($1,$2,$3,$4)
					 ON CONFLICT (locale, namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
					locale, namespace, k, v)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// OverrideCounts is keyed by "locale/namespace".
func (s *Store) OverrideCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT locale, namespace, COUNT(*) FROM translation_overrides GROUP BY locale, namespace`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var l, ns string
		var n int
		if err := rows.Scan(&l, &ns, &n); err != nil {
			return nil, err
		}
		out[l+"/"+ns] = n
	}
	return out, rows.Err()
}
