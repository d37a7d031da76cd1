package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"leasing-site-api/internal/model"
)

// OpsStats runs the dashboard counters concurrently on the pool.
func (s *Store) OpsStats(ctx context.Context) (*model.OpsStats, error) {
	st := &model.OpsStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.pool.QueryRow(ctx,
			`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_admin) FROM profiles`,
		).Scan(&st.Profiles, &st.Admins)
	})
	g.Go(func() error {
		return s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM analytics_events WHERE occurred_at > NOW() - INTERVAL '24 hours'`,
		).Scan(&st.EventsLast24h)
	})
	byStatus := map[string]int64{}
	g.Go(func() error {
		rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			var n int64
			if err := rows.Scan(&k, &n); err != nil {
				return err
			}
			byStatus[k] = n
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	st.BookingsStatus = byStatus
	return st, nil
}

// PersonaGaps lists persona/locale pairs with no published landing page.
func (s *Store) PersonaGaps(ctx context.Context, personas, locales []string) ([][2]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.persona, l.locale
		 FROM unnest($1::text[]) AS p(persona)
		 CROSS JOIN unnest($2::text[]) AS l(locale)
		 WHERE NOT EXISTS (
		   SELECT 1 FROM landing_pages lp
		   WHERE lp.persona = p.persona AND lp.locale = l.locale AND lp.published)
		 ORDER BY 1, 2`, personas, locales)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var pair [2]string
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}
