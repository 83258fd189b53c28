package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository reads the availability snapshot: settings, catalog, rules, blackouts and bookings.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetSettings(ctx context.Context, businessID string) (model.BusinessSettings, error) {
	query, args, err := psql.
		Select("business_id::text", "timezone", "min_lead_time_minutes", "max_advance_days", "slot_granularity_minutes").
		From("business_settings").
		Where(sq.Eq{"business_id": businessID}).
		ToSql()
	if err != nil {
		return model.BusinessSettings{}, err
	}
	var s model.BusinessSettings
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&s.BusinessID,
		&s.Timezone,
		&s.MinLeadTimeMinutes,
		&s.MaxAdvanceDays,
		&s.SlotGranularityMinutes,
	)
	if err != nil {
		return model.BusinessSettings{}, mapErr(err)
	}
	return s, nil
}

func (r *Repository) GetService(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	query, args, err := psql.
		Select("id::text", "business_id::text", "name", "duration_minutes", "active").
		From("services").
		Where(sq.Eq{"id": serviceID, "business_id": businessID}).
		ToSql()
	if err != nil {
		return model.Service{}, err
	}
	var s model.Service
	err = r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Active)
	if err != nil {
		return model.Service{}, mapErr(err)
	}
	return s, nil
}

func (r *Repository) GetStaff(ctx context.Context, businessID, staffID string) (model.Staff, error) {
	query, args, err := psql.
		Select("id::text", "business_id::text", "name", "active").
		From("staff").
		Where(sq.Eq{"id": staffID, "business_id": businessID}).
		ToSql()
	if err != nil {
		return model.Staff{}, err
	}
	var s model.Staff
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.BusinessID, &s.Name, &s.Active); err != nil {
		return model.Staff{}, mapErr(err)
	}
	return s, nil
}

func (r *Repository) ListStaffForService(ctx context.Context, businessID, serviceID string) ([]model.Staff, error) {
	query, args, err := staffForServiceQuery(businessID, serviceID).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Active); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, mapErr(rows.Err())
	}
	return out, nil
}

func staffForServiceQuery(businessID, serviceID string) sq.SelectBuilder {
	return psql.
		Select("s.id::text", "s.business_id::text", "s.name", "s.active").
		From("staff s").
		Join("staff_services ss ON ss.staff_id = s.id").
		Where(sq.Eq{"s.business_id": businessID, "ss.service_id": serviceID, "s.active": true}).
		OrderBy("s.name", "s.id")
}

func (r *Repository) ListRules(ctx context.Context, businessID, staffID, serviceID string, from, to civil.Date) ([]model.AvailabilityRule, error) {
	query, args, err := rulesQuery(businessID, staffID, serviceID, from, to).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []model.AvailabilityRule
	for rows.Next() {
		var (
			rule       model.AvailabilityRule
			kind       string
			weekday    *int16
			date       pgtype.Date
			start, end pgtype.Time
		)
		if err := rows.Scan(&rule.ID, &rule.StaffID, &rule.ServiceID, &kind, &weekday, &date, &start, &end, &rule.Capacity); err != nil {
			return nil, err
		}
		if rule.Kind, err = model.ParseRuleKind(kind); err != nil {
			return nil, err
		}
		if weekday != nil {
			rule.Weekday = model.WeekdayPtr(time.Weekday(*weekday))
		}
		if date.Valid {
			rule.Date = model.DatePtr(civil.DateOf(date.Time))
		}
		rule.StartTime = clockOf(start)
		rule.EndTime = clockOf(end)
		out = append(out, rule)
	}
	if rows.Err() != nil {
		return nil, mapErr(rows.Err())
	}
	return out, nil
}

// rulesQuery selects live weekly rules plus dated rules in [from, to] that apply to serviceID.
func rulesQuery(businessID, staffID, serviceID string, from, to civil.Date) sq.SelectBuilder {
	return psql.
		Select("id::text", "staff_id::text", "COALESCE(service_id::text, '')", "kind", "weekday", "rule_date", "start_time", "end_time", "capacity").
		From("availability_rules").
		Where(sq.Eq{"business_id": businessID, "staff_id": staffID, "deleted_at": nil}).
		Where(sq.Or{sq.Eq{"service_id": nil}, sq.Eq{"service_id": serviceID}}).
		Where(sq.Or{
			sq.Eq{"kind": model.RuleWeekly.String()},
			sq.And{sq.GtOrEq{"rule_date": dateArg(from)}, sq.LtOrEq{"rule_date": dateArg(to)}},
		}).
		OrderBy("id")
}

func (r *Repository) ListBlackouts(ctx context.Context, businessID, staffID string, start, end time.Time) ([]model.Blackout, error) {
	query, args, err := blackoutsQuery(businessID, staffID, start, end).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []model.Blackout
	for rows.Next() {
		var b model.Blackout
		if err := rows.Scan(&b.ID, &b.StaffID, &b.StartAt, &b.EndAt, &b.Reason); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, mapErr(rows.Err())
	}
	return out, nil
}

func blackoutsQuery(businessID, staffID string, start, end time.Time) sq.SelectBuilder {
	return psql.
		Select("id::text", "COALESCE(staff_id::text, '')", "start_at", "end_at", "reason").
		From("blackouts").
		Where(sq.Eq{"business_id": businessID}).
		Where(sq.Or{sq.Eq{"staff_id": nil}, sq.Eq{"staff_id": staffID}}).
		Where(sq.Lt{"start_at": end}).
		Where(sq.Gt{"end_at": start}).
		OrderBy("start_at")
}

func (r *Repository) ListActiveBookings(ctx context.Context, businessID, staffID string, start, end time.Time) ([]model.Booking, error) {
	q := bookingsQuery(businessID, start, end).
		Where(sq.Eq{"staff_id": staffID, "status": activeStatuses()})
	return r.queryBookings(ctx, q)
}

// ListBookings returns every non-deleted booking of the business overlapping [start, end),
// including cancelled ones.
func (r *Repository) ListBookings(ctx context.Context, businessID string, start, end time.Time) ([]model.Booking, error) {
	return r.queryBookings(ctx, bookingsQuery(businessID, start, end))
}

func bookingsQuery(businessID string, start, end time.Time) sq.SelectBuilder {
	return psql.
		Select("id::text", "business_id::text", "staff_id::text", "service_id::text",
			"customer_name", "customer_email", "customer_phone", "start_at", "end_at", "status", "deleted_at", "created_at").
		From("bookings").
		Where(sq.Eq{"business_id": businessID, "deleted_at": nil}).
		Where(sq.Lt{"start_at": end}).
		Where(sq.Gt{"end_at": start}).
		OrderBy("start_at", "id")
}

func (r *Repository) queryBookings(ctx context.Context, q sq.SelectBuilder) ([]model.Booking, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		var status string
		if err := rows.Scan(
			&b.ID,
			&b.BusinessID,
			&b.StaffID,
			&b.ServiceID,
			&b.CustomerName,
			&b.CustomerEmail,
			&b.CustomerPhone,
			&b.StartAt,
			&b.EndAt,
			&status,
			&b.DeletedAt,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		b.Status = model.BookingStatus(status)
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, mapErr(rows.Err())
	}
	return out, nil
}

func activeStatuses() []string {
	out := make([]string, 0, len(model.ActiveStatuses))
	for _, s := range model.ActiveStatuses {
		out = append(out, string(s))
	}
	return out
}

func dateArg(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func clockOf(t pgtype.Time) civil.Time {
	if !t.Valid {
		return civil.Time{}
	}
	d := time.Duration(t.Microseconds) * time.Microsecond
	return civil.Time{
		Hour:   int(d / time.Hour),
		Minute: int(d % time.Hour / time.Minute),
		Second: int(d % time.Minute / time.Second),
	}
}

// mapErr turns missing rows and malformed ids into model.ErrNotFound.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return fmt.Errorf("%w: %s", model.ErrNotFound, pgErr.Message)
	}
	return err
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// IsUniqueViolation reports a duplicate key, such as a second waiting waitlist entry.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
