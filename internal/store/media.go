package store

import (
	"context"

	"leasing-site-api/internal/model"
)

func (s *Store) CreateMedia(ctx context.Context, m *model.MediaAsset) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO media_assets (id, storage_key, file_name, content_type, size_bytes, alt_text, uploaded_by)
		 VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7, '')::uuid)
		 RETURNING created_at`,
		m.ID, m.StorageKey, m.FileName, m.ContentType, m.SizeBytes, m.AltText, m.UploadedBy,
	).Scan(&m.CreatedAt)
	return mapErr(err)
}

func (s *Store) ListMedia(ctx context.Context) ([]model.MediaAsset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, storage_key, file_name, content_type, size_bytes, alt_text,
		        COALESCE(uploaded_by::text, ''), created_at
		 FROM media_assets ORDER BY created_at DESC LIMIT 500`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MediaAsset
	for rows.Next() {
		var m model.MediaAsset
		if err := rows.Scan(&m.ID, &m.StorageKey, &m.FileName, &m.ContentType, &m.SizeBytes,
			&m.AltText, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMedia(ctx context.Context, id string) (*model.MediaAsset, error) {
	m := &model.MediaAsset{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, storage_key, file_name, content_type, size_bytes, alt_text,
		        COALESCE(uploaded_by::text, ''), created_at
		 FROM media_assets WHERE id = $1`, id,
	).Scan(&m.ID, &m.StorageKey, &m.FileName, &m.ContentType, &m.SizeBytes,
		&m.AltText, &m.UploadedBy, &m.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	return notFoundIfNone(s.pool.Exec(ctx, `DELETE FROM media_assets WHERE id = $1`, id))
}
