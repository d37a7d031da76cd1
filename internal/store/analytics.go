package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"leasing-site-api/internal/model"
)

// AnalyticsBatchSize caps the rows sent per round trip and per request.
const AnalyticsBatchSize = 50

// InsertEvents writes events in batches of AnalyticsBatchSize.
func (s *Store) InsertEvents(ctx context.Context, events []model.AnalyticsEvent) error {
	for start := 0; start < len(events); start += AnalyticsBatchSize {
		end := min(start+AnalyticsBatchSize, len(events))
		if err := s.insertEventChunk(ctx, events[start:end]); err != nil {
			return fmt.Errorf("insert events %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *Store) insertEventChunk(ctx context.Context, events []model.AnalyticsEvent) error {
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(
			`INSERT INTO analytics_events (id, event_type, session_id, visitor_id, path, referrer,
			                               locale, properties, occurred_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			 ON CONFLICT (id) DO NOTHING`,
			e.ID, e.EventType, e.SessionID, e.VisitorID, e.Path, e.Referrer,
			e.Locale, jsonOrEmpty(e.Properties), e.OccurredAt,
		)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// UpsertSession starts a session or records a heartbeat on an existing one.
func (s *Store) UpsertSession(ctx context.Context, sess *model.AnalyticsSession) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO analytics_sessions (id, visitor_id, landing_path, referrer, user_agent, locale, event_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE SET
		   last_seen_at = NOW(),
		   event_count  = analytics_sessions.event_count + EXCLUDED.event_count
		 RETURNING visitor_id, landing_path, started_at, last_seen_at, event_count`,
		sess.ID, sess.VisitorID, sess.LandingPath, sess.Referrer, sess.UserAgent, sess.Locale, sess.EventCount,
	).Scan(&sess.VisitorID, &sess.LandingPath, &sess.StartedAt, &sess.LastSeenAt, &sess.EventCount)
	return mapErr(err)
}

func (s *Store) AnalyticsSummary(ctx context.Context, from, to time.Time) (*model.AnalyticsSummary, error) {
	sum := &model.AnalyticsSummary{From: from, To: to}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT NULLIF(visitor_id, ''))
		 FROM analytics_events WHERE occurred_at >= $1 AND occurred_at < $2`, from, to,
	).Scan(&sum.TotalEvents, &sum.UniqueVisitors)
	if err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM analytics_sessions WHERE started_at >= $1 AND started_at < $2`, from, to,
	).Scan(&sum.Sessions)
	if err != nil {
		return nil, err
	}

	if sum.ByType, err = s.countBy(ctx,
		`SELECT event_type, COUNT(*) FROM analytics_events
		 WHERE occurred_at >= $1 AND occurred_at < $2
		 GROUP BY event_type ORDER BY 2 DESC`, from, to); err != nil {
		return nil, err
	}
	if sum.TopPaths, err = s.countBy(ctx,
		`SELECT path, COUNT(*) FROM analytics_events
		 WHERE occurred_at >= $1 AND occurred_at < $2 AND event_type = 'page_view'
		 GROUP BY path ORDER BY 2 DESC LIMIT 10`, from, to); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) countBy(ctx context.Context, q string, args ...any) ([]model.CountByKey, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.CountByKey, error) {
		var c model.CountByKey
		err := r.Scan(&c.Key, &c.Count)
		return c, err
	})
	if out == nil {
		out = []model.CountByKey{}
	}
	return out, err
}
