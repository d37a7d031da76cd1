package store

import (
	"context"
	"strings"

	"leasing-site-api/internal/model"
)

const profileCols = `id, email, password_hash, full_name, locale, persona, is_admin, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(r rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Locale, &p.Persona,
		&p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *model.Profile) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, email, password_hash, full_name, locale, persona, is_admin)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at, updated_at`,
		p.ID, strings.ToLower(p.Email), p.PasswordHash, p.FullName, p.Locale, p.Persona, p.IsAdmin,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (s *Store) ProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE email = $1`, strings.ToLower(email)))
}

func (s *Store) ProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
}

// ListProfiles searches by email or name; an empty query lists everyone.
func (s *Store) ListProfiles(ctx context.Context, q string, limit int) ([]model.Profile, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileCols+` FROM profiles
		 WHERE $1 = '' OR email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%'
		 ORDER BY created_at DESC
		 LIMIT $2`, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ProfileUpdate carries the admin-editable fields; nil leaves a column unchanged.
type ProfileUpdate struct {
	FullName *string
	Persona  *string
	IsAdmin  *bool
}

func (s *Store) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*model.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx,
		`UPDATE profiles SET
		   full_name = COALESCE($2, full_name),
		   persona   = COALESCE($3, persona),
		   is_admin  = COALESCE($4, is_admin),
		   updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+profileCols, id, u.FullName, u.Persona, u.IsAdmin))
}

func (s *Store) SetAdminByEmail(ctx context.Context, email string, admin bool) (*model.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx,
		`UPDATE profiles SET is_admin = $2, updated_at = NOW()
		 WHERE email = $1
		 RETURNING `+profileCols, strings.ToLower(email), admin))
}

// IsAdmin is the lookup behind every admin route.
func (s *Store) IsAdmin(ctx context.Context, id string) (bool, error) {
	var admin bool
	err := s.pool.QueryRow(ctx, `SELECT is_admin FROM profiles WHERE id = $1`, id).Scan(&admin)
	return admin, mapErr(err)
}
