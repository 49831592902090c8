package record

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// CreateBooking inserts a booking row. Bookings are created outside the chat
// view; this exists for the backfill path and test fixtures.
func (db *DB) CreateBooking(ctx context.Context, b *Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt == 0 {
		b.CreatedAt = time.Now().UnixMilli()
	}
	if b.Status == "" {
		b.Status = BookingPending
	}
	b.UpdatedAt = b.CreatedAt
	_, err := db.ExecContext(ctx, `
		INSERT INTO bookings (id, client_id, provider_id, service_ref, status, scheduled_date, scheduled_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ClientID, b.ProviderID, b.ServiceRef, b.Status, b.ScheduledDate, b.ScheduledTime, b.CreatedAt, b.UpdatedAt)
	return err
}

// GetBooking returns a booking by id, or (nil, nil) if absent.
func (db *DB) GetBooking(ctx context.Context, bookingID string) (*Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, client_id, provider_id, service_ref, status, scheduled_date, scheduled_time, created_at, updated_at
		FROM bookings WHERE id = ?`, bookingID)
	return scanBooking(row)
}

// LatestPendingBooking returns the most recently created pending booking for
// the ordered client/provider pair, or (nil, nil) if none exists.
func (db *DB) LatestPendingBooking(ctx context.Context, clientID, providerID string) (*Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, client_id, provider_id, service_ref, status, scheduled_date, scheduled_time, created_at, updated_at
		FROM bookings
		WHERE client_id = ? AND provider_id = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`,
		clientID, providerID, BookingPending)
	return scanBooking(row)
}

// SetBookingStatus updates a booking's status and updated_at.
func (db *DB) SetBookingStatus(ctx context.Context, bookingID string, status BookingStatus) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, bookingID)
	return err
}

func scanBooking(row *sql.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.ClientID, &b.ProviderID, &b.ServiceRef, &b.Status,
		&b.ScheduledDate, &b.ScheduledTime, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
