package storage

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	BusinessID      string
	IdempotencyKey  string
	BookingID       string
	StatusCode      int
	ResponsePayload []byte
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockIdempotencyKey row-locks the key for the rest of tx, creating it when absent.
// exists reports whether the key was already there before this call.
func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, businessID, key string) (rec IdempotencyRecord, exists bool, err error) {
	rec, err = r.selectIdempotencyForUpdate(ctx, tx, businessID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	query, args, err := psql.
		Insert("booking_idempotency_keys").
		Columns("business_id", "idempotency_key").
		Values(businessID, key).
		Suffix("ON CONFLICT (business_id, idempotency_key) DO NOTHING").
		ToSql()
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, businessID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, businessID, key, bookingID string, statusCode int, response []byte) error {
	var booking any
	if bookingID != "" {
		booking = bookingID
	}
	query, args, err := psql.
		Update("booking_idempotency_keys").
		Set("booking_id", booking).
		Set("status_code", statusCode).
		Set("response_payload", string(response)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"business_id": businessID, "idempotency_key": key}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

// Create inserts b inside tx. An overlapping active booking for the same staff member fails
// with an exclusion violation; check it with IsConflict.
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	query, args, err := psql.
		Insert("bookings").
		Columns("business_id", "service_id", "staff_id", "customer_name", "customer_email", "customer_phone", "start_at", "end_at", "status").
		Values(b.BusinessID, b.ServiceID, b.StaffID, b.CustomerName, b.CustomerEmail, b.CustomerPhone, b.StartAt, b.EndAt, string(b.Status)).
		Suffix("RETURNING id::text").
		ToSql()
	if err != nil {
		return "", err
	}
	var id string
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, businessID, key string) (IdempotencyRecord, error) {
	query, args, err := psql.
		Select(
			"business_id::text",
			"idempotency_key",
			"COALESCE(booking_id::text, '')",
			"COALESCE(status_code, 0)",
			"COALESCE(response_payload::text, '')",
		).
		From("booking_idempotency_keys").
		Where(sq.Eq{"business_id": businessID, "idempotency_key": key}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return IdempotencyRecord{}, err
	}

	var rec IdempotencyRecord
	var responseText string
	err = tx.QueryRow(ctx, query, args...).Scan(
		&rec.BusinessID,
		&rec.IdempotencyKey,
		&rec.BookingID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
