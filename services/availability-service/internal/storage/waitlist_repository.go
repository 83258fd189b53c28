package storage

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

type WaitlistRepository struct {
	pool *db.Pool
}

func NewWaitlistRepository(pool *db.Pool) *WaitlistRepository {
	return &WaitlistRepository{pool: pool}
}

// Add inserts e and fills in its id and creation time. The row is only written when the
// service is active in e.BusinessID and, if set, the staff member is active there and offers
// it; otherwise the result is model.ErrNotFound. A second waiting entry for the same customer
// and service fails with a unique violation; check it with IsUniqueViolation.
func (r *WaitlistRepository) Add(ctx context.Context, e *model.WaitlistEntry) error {
	query, args, err := waitlistInsert(*e).ToSql()
	if err != nil {
		return err
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt); err != nil {
		return mapErr(err)
	}
	e.Status = model.WaitlistWaiting
	return nil
}

func waitlistInsert(e model.WaitlistEntry) sq.InsertBuilder {
	var staff any
	if e.StaffID != "" {
		staff = e.StaffID
	}
	src := sq.
		Select("s.business_id", "s.id").
		Column(sq.Expr("?::uuid", staff)).
		Column(sq.Expr("?::text", e.CustomerName)).
		Column(sq.Expr("?::text", e.CustomerEmail)).
		Column(sq.Expr("?::text", e.CustomerPhone)).
		Column(sq.Expr("?::timestamptz", e.PreferredStartAt)).
		Column(sq.Expr("?::timestamptz", e.PreferredEndAt)).
		Column(sq.Expr("?::int", e.Priority)).
		Column(sq.Expr("?::timestamptz", e.ExpiresAt)).
		From("services s").
		Where(sq.Eq{"s.id": e.ServiceID, "s.business_id": e.BusinessID, "s.active": true})
	if staff != nil {
		src = src.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM staff_services ss JOIN staff st ON st.id = ss.staff_id"+
				" WHERE ss.service_id = s.id AND st.id = ? AND st.business_id = s.business_id AND st.active)",
			staff,
		))
	}
	return psql.
		Insert("waitlist_entries").
		Columns("business_id", "service_id", "staff_id", "customer_name", "customer_email", "customer_phone",
			"preferred_start_at", "preferred_end_at", "priority", "expires_at").
		Select(src).
		Suffix("RETURNING id::text, created_at")
}
