package store

import (
	"context"
	"time"

	"leasing-site-api/internal/model"
)

const bookingCols = `id, appointment_type_id, name, email, phone, company, notes, locale,
	start_time, end_time, status, created_at, updated_at`

func scanBooking(r rowScanner) (*model.Booking, error) {
	b := &model.Booking{}
	err := r.Scan(&b.ID, &b.AppointmentTypeID, &b.Name, &b.Email, &b.Phone, &b.Company,
		&b.Notes, &b.Locale, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

// CreateBooking inserts a booking. The bookings_no_overlap constraint turns a lost
// race into ErrConflict.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO bookings (id, appointment_type_id, name, email, phone, company, notes,
		                       locale, start_time, end_time, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING created_at, updated_at`,
		b.ID, b.AppointmentTypeID, b.Name, b.Email, b.Phone, b.Company, b.Notes,
		b.Locale, b.StartTime, b.EndTime, b.Status,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return mapErr(err)
}

// HasOverlap checks [start, end) against live bookings of the same type.
func (s *Store) HasOverlap(ctx context.Context, typeID string, start, end time.Time, excludeID string) (bool, error) {
	q := `SELECT EXISTS(
		SELECT 1 FROM bookings
		WHERE appointment_type_id = $1
		  AND status <> 'cancelled'
		  AND start_time < $3
		  AND end_time > $2`

	args := []any{typeID, start, end}

	if excludeID != "" {
		q += ` AND id <> $4`
		args = append(args, excludeID)
	}
	q += `)`

	var exists bool
	err := s.pool.QueryRow(ctx, q, args...).Scan(&exists)
	return exists, mapErr(err)
}

// BookingsBetween returns live bookings of a type intersecting [from, to).
func (s *Store) BookingsBetween(ctx context.Context, typeID string, from, to time.Time) ([]model.Booking, error) {
	return s.queryBookings(ctx,
		`SELECT `+bookingCols+` FROM bookings
		 WHERE appointment_type_id = $1
		   AND status <> 'cancelled'
		   AND start_time < $3 AND end_time > $2
		 ORDER BY start_time`, typeID, from, to)
}

type BookingFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

func (s *Store) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	return s.queryBookings(ctx,
		`SELECT `+bookingCols+` FROM bookings
		 WHERE ($1 = '' OR status = $1)
		   AND ($2::timestamptz IS NULL OR start_time >= $2)
		   AND ($3::timestamptz IS NULL OR start_time < $3)
		 ORDER BY start_time DESC
		 LIMIT 500`, f.Status, f.From, f.To)
}

func (s *Store) queryBookings(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return scanBooking(s.pool.QueryRow(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id))
}

// UpdateBookingStatus moves a booking to status only if it is still in from.
func (s *Store) UpdateBookingStatus(ctx context.Context, id, from, to string) (*model.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx,
		`UPDATE bookings SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+bookingCols, id, from, to))
	if err != nil {
		// lost a concurrent transition
		return nil, err
	}
	return b, nil
}
