package store

import (
	"context"
	"time"

	"leasing-site-api/internal/model"
)

const pageCols = `id, locale, slug, persona, title, meta_title, meta_description, body, published, created_at, updated_at`

func scanPage(r rowScanner) (*model.LandingPage, error) {
	p := &model.LandingPage{}
	err := r.Scan(&p.ID, &p.Locale, &p.Slug, &p.Persona, &p.Title, &p.MetaTitle,
		&p.MetaDescription, &p.Body, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (s *Store) PublishedPage(ctx context.Context, locale, slug string) (*model.LandingPage, error) {
	return scanPage(s.pool.QueryRow(ctx,
		`SELECT `+pageCols+` FROM landing_pages WHERE locale = $1 AND slug = $2 AND published`,
		locale, slug))
}

func (s *Store) GetPage(ctx context.Context, id string) (*model.LandingPage, error) {
	return scanPage(s.pool.QueryRow(ctx, `SELECT `+pageCols+` FROM landing_pages WHERE id = $1`, id))
}

// ListPages returns every page for admins, or only published ones.
func (s *Store) ListPages(ctx context.Context, publishedOnly bool) ([]model.LandingPage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pageCols+` FROM landing_pages
		 WHERE published OR NOT $1
		 ORDER BY locale, slug`, publishedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LandingPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePage(ctx context.Context, p *model.LandingPage) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO landing_pages (id, locale, slug, persona, title, meta_title, meta_description, body, published)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING created_at, updated_at`,
		p.ID, p.Locale, p.Slug, p.Persona, p.Title, p.MetaTitle, p.MetaDescription,
		jsonOrEmpty(p.Body), p.Published,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdatePage(ctx context.Context, p *model.LandingPage) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE landing_pages
		 SET locale=$2, slug=$3, persona=$4, title=$5, meta_title=$6, meta_description=$7,
		     body=$8, published=$9, updated_at=NOW()
		 WHERE id=$1
		 RETURNING created_at, updated_at`,
		p.ID, p.Locale, p.Slug, p.Persona, p.Title, p.MetaTitle, p.MetaDescription,
		jsonOrEmpty(p.Body), p.Published,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeletePage(ctx context.Context, id string) error {
	return notFoundIfNone(s.pool.Exec(ctx, `DELETE FROM landing_pages WHERE id = $1`, id))
}

const postCols = `id, locale, slug, title, excerpt, body, cover_url, published, published_at, created_at, updated_at`

func scanPost(r rowScanner) (*model.BlogPost, error) {
	p := &model.BlogPost{}
	err := r.Scan(&p.ID, &p.Locale, &p.Slug, &p.Title, &p.Excerpt, &p.Body, &p.CoverURL,
		&p.Published, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (s *Store) PublishedPost(ctx context.Context, locale, slug string) (*model.BlogPost, error) {
	return scanPost(s.pool.QueryRow(ctx,
		`SELECT `+postCols+` FROM blog_posts WHERE locale = $1 AND slug = $2 AND published`,
		locale, slug))
}

func (s *Store) GetPost(ctx context.Context, id string) (*model.BlogPost, error) {
	return scanPost(s.pool.QueryRow(ctx, `SELECT `+postCols+` FROM blog_posts WHERE id = $1`, id))
}

// ListPosts filters by locale when non-empty; newest first.
func (s *Store) ListPosts(ctx context.Context, locale string, publishedOnly bool) ([]model.BlogPost, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postCols+` FROM blog_posts
		 WHERE ($1 = '' OR locale = $1) AND (published OR NOT $2)
		 ORDER BY COALESCE(published_at, created_at) DESC`, locale, publishedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePost(ctx context.Context, p *model.BlogPost) error {
	stampPublished(p)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO blog_posts (id, locale, slug, title, excerpt, body, cover_url, published, published_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING created_at, updated_at`,
		p.ID, p.Locale, p.Slug, p.Title, p.Excerpt, p.Body, p.CoverURL, p.Published, p.PublishedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdatePost(ctx context.Context, p *model.BlogPost) error {
	stampPublished(p)
	// keep the first publish date across edits
	err := s.pool.QueryRow(ctx,
		`UPDATE blog_posts
		 SET locale=$2, slug=$3, title=$4, excerpt=$5, body=$6, cover_url=$7, published=$8,
		     published_at = CASE WHEN $8 THEN COALESCE(published_at, $9) ELSE NULL END,
		     updated_at=NOW()
		 WHERE id=$1
		 RETURNING published_at, created_at, updated_at`,
		p.ID, p.Locale, p.Slug, p.Title, p.Excerpt, p.Body, p.CoverURL, p.Published, p.PublishedAt,
	).Scan(&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return notFoundIfNone(s.pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id))
}

func stampPublished(p *model.BlogPost) {
	if !p.Published {
		p.PublishedAt = nil
		return
	}
	if p.PublishedAt == nil {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}
}
