package store

import (
	"context"

	"leasing-site-api/internal/model"
)

const typeCols = `id, slug, name, description, duration_minutes, active, sort_order, created_at, updated_at`

func scanType(r rowScanner) (*model.AppointmentType, error) {
	t := &model.AppointmentType{}
	err := r.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.DurationMinutes,
		&t.Active, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *Store) ListAppointmentTypes(ctx context.Context, activeOnly bool) ([]model.AppointmentType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+typeCols+` FROM appointment_types
		 WHERE active OR NOT $1
		 ORDER BY sort_order, name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AppointmentType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) GetAppointmentType(ctx context.Context, id string) (*model.AppointmentType, error) {
	return scanType(s.pool.QueryRow(ctx, `SELECT `+typeCols+` FROM appointment_types WHERE id = $1`, id))
}

func (s *Store) CreateAppointmentType(ctx context.Context, t *model.AppointmentType) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointment_types (id, slug, name, description, duration_minutes, active, sort_order)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at, updated_at`,
		t.ID, t.Slug, t.Name, t.Description, t.DurationMinutes, t.Active, t.SortOrder,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateAppointmentType(ctx context.Context, t *model.AppointmentType) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE appointment_types
		 SET slug=$2, name=$3, description=$4, duration_minutes=$5, active=$6, sort_order=$7, updated_at=NOW()
		 WHERE id=$1
		 RETURNING created_at, updated_at`,
		t.ID, t.Slug, t.Name, t.Description, t.DurationMinutes, t.Active, t.SortOrder,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

// DeactivateAppointmentType hides a type from booking; existing bookings keep their reference.
func (s *Store) DeactivateAppointmentType(ctx context.Context, id string) error {
	return notFoundIfNone(s.pool.Exec(ctx,
		`UPDATE appointment_types SET active = false, updated_at = NOW() WHERE id = $1`, id))
}
