package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"integrations-api/internal/model"
)

// UnpaidBookingIDsWithPayments selects the user's unpaid bookings that have at
// least one payment row. Bookings without payments are left alone.
func (s *Store) UnpaidBookingIDsWithPayments(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT b.id FROM bookings b
		 WHERE b.user_id = $1
		   AND b.paid = false
		   AND EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = b.id)
		 ORDER BY b.id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// AcceptedBookingIDs selects ACCEPTED bookings. An empty userID selects them
// across all users.
func (s *Store) AcceptedBookingIDs(ctx context.Context, userID string) ([]string, error) {
	q := `SELECT id FROM bookings WHERE status = $1`
	args := []any{string(model.BookingAccepted)}
	if userID != "" {
		q += ` AND user_id = $2`
		args = append(args, userID)
	}
	q += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func DeleteFailedPayments(bookingIDs []string) Stmt {
	return Stmt{
		Name: "delete payments",
		SQL:  `DELETE FROM payments WHERE booking_id = ANY($1) AND success = false`,
		Args: []any{bookingIDs},
	}
}

func CancelBookings(bookingIDs []string, reason string) Stmt {
	return Stmt{
		Name: "cancel bookings",
		SQL: `UPDATE bookings SET status = $2, rejection_reason = $3, updated_at = NOW()
		      WHERE id = ANY($1)`,
		Args: []any{bookingIDs, string(model.BookingCancelled), reason},
	}
}

func MarkBookingsPaid(bookingIDs []string) Stmt {
	return Stmt{
		Name: "mark bookings paid",
		SQL:  `UPDATE bookings SET paid = true, updated_at = NOW() WHERE id = ANY($1)`,
		Args: []any{bookingIDs},
	}
}

func DeleteBookingReferences(bookingIDs []string) Stmt {
	return Stmt{
		Name: "delete booking references",
		SQL:  `DELETE FROM booking_references WHERE booking_id = ANY($1)`,
		Args: []any{bookingIDs},
	}
}

func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	status := b.Status
	if status == "" {
		status = model.BookingAccepted
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bookings (id, user_id, title, start_time, end_time, paid, status, rejection_reason)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.UserID, b.Title, b.StartTime, b.EndTime, b.Paid, string(status), b.RejectionReason,
	)
	return err
}

func (s *Store) Booking(ctx context.Context, id string) (*model.Booking, error) {
	b := &model.Booking{}
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, start_time, end_time, paid, status, rejection_reason, created_at, updated_at
		 FROM bookings WHERE id = $1`, id,
	).Scan(&b.ID, &b.UserID, &b.Title, &b.StartTime, &b.EndTime, &b.Paid, &status,
		&b.RejectionReason, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *model.Payment) error {
	currency := p.Currency
	if currency == "" {
		currency = "usd"
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payments (id, booking_id, amount, currency, success) VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.BookingID, p.Amount, currency, p.Success,
	)
	return err
}

func (s *Store) PaymentIDs(ctx context.Context, bookingID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM payments WHERE booking_id = $1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) CreateBookingReference(ctx context.Context, ref *model.BookingReference) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO booking_references (id, booking_id, type, uid) VALUES ($1,$2,$3,$4)`,
		ref.ID, ref.BookingID, ref.Type, ref.UID,
	)
	return err
}

func (s *Store) BookingReferenceIDs(ctx context.Context, bookingID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM booking_references WHERE booking_id = $1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
