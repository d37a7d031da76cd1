package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"leasing-site-api/internal/model"
)

const dataSourceCols = `id, kind, shop_domain, access_token, scopes, status, last_synced_at, item_count, created_at, updated_at`

func scanDataSource(r rowScanner) (*model.DataSource, error) {
	d := &model.DataSource{}
	err := r.Scan(&d.ID, &d.Kind, &d.ShopDomain, &d.AccessToken, &d.Scopes, &d.Status,
		&d.LastSyncedAt, &d.ItemCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return d, nil
}

// UpsertDataSource connects a shop, replacing the token if it was connected before.
func (s *Store) UpsertDataSource(ctx context.Context, d *model.DataSource) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO data_sources (id, kind, shop_domain, access_token, scopes, status)
		 VALUES ($1,$2,$3,$4,$5,'connected')
		 ON CONFLICT (kind, shop_domain) DO UPDATE SET
		   access_token = EXCLUDED.access_token,
		   scopes       = EXCLUDED.scopes,
		   status       = 'connected',
		   updated_at   = NOW()
		 RETURNING id, status, last_synced_at, item_count, created_at, updated_at`,
		d.ID, d.Kind, d.ShopDomain, d.AccessToken, d.Scopes,
	).Scan(&d.ID, &d.Status, &d.LastSyncedAt, &d.ItemCount, &d.CreatedAt, &d.UpdatedAt)
	return mapErr(err)
}

func (s *Store) ListDataSources(ctx context.Context) ([]model.DataSource, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+dataSourceCols+` FROM data_sources ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DataSource
	for rows.Next() {
		d, err := scanDataSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *Store) GetDataSource(ctx context.Context, id string) (*model.DataSource, error) {
	return scanDataSource(s.pool.QueryRow(ctx, `SELECT `+dataSourceCols+` FROM data_sources WHERE id = $1`, id))
}

func (s *Store) DeleteDataSource(ctx context.Context, id string) error {
	return notFoundIfNone(s.pool.Exec(ctx, `DELETE FROM data_sources WHERE id = $1`, id))
}

// UpsertShopProducts writes one sync page. Prices go over the wire as text so
// NUMERIC keeps full precision.
func (s *Store) UpsertShopProducts(ctx context.Context, products []model.ShopProduct) error {
	if len(products) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(
			`INSERT INTO shop_products (data_source_id, external_id, title, handle, price, status, synced_at)
			 VALUES ($1,$2,$3,$4,$5::numeric,$6,$7)
			 ON CONFLICT (data_source_id, external_id) DO UPDATE SET
			   title = EXCLUDED.title, handle = EXCLUDED.handle, price = EXCLUDED.price,
			   status = EXCLUDED.status, synced_at = EXCLUDED.synced_at`,
			p.DataSourceID, p.ExternalID, p.Title, p.Handle, p.Price.String(), p.Status, p.SyncedAt,
		)
	}
	return mapErr(s.pool.SendBatch(ctx, batch).Close())
}

func (s *Store) ListShopProducts(ctx context.Context, dataSourceID string) ([]model.ShopProduct, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data_source_id, external_id, title, handle, price::text, status, synced_at
		 FROM shop_products WHERE data_source_id = $1 ORDER BY title`, dataSourceID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []model.ShopProduct
	for rows.Next() {
		var (
			p     model.ShopProduct
			price string
		)
		if err := rows.Scan(&p.DataSourceID, &p.ExternalID, &p.Title, &p.Handle, &price, &p.Status, &p.SyncedAt); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records the outcome of a sync run.
func (s *Store) MarkSynced(ctx context.Context, id string, itemCount int, at time.Time) error {
	return notFoundIfNone(s.pool.Exec(ctx,
		`UPDATE data_sources SET item_count = $2, last_synced_at = $3, updated_at = NOW() WHERE id = $1`,
		id, itemCount, at))
}
