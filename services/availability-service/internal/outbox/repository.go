package outbox

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	otelx "github.com/slotwise/slotwise/libs/otel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert writes evt inside tx together with the trace context of ctx.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	query, args, err := psql.
		Insert("outbox_events").
		Columns("aggregate_type", "aggregate_id", "event_type", "payload", "traceparent", "tracestate").
		Values(evt.AggregateType, evt.AggregateID, evt.EventType, string(evt.Payload), traceparent, tracestate).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

func fetchQuery(limit int) sq.SelectBuilder {
	return psql.
		Select("id", "event_id::text", "aggregate_type", "aggregate_id", "event_type", "payload::text", "traceparent", "tracestate", "created_at").
		From("outbox_events").
		Where(sq.Eq{"published_at": nil}).
		OrderBy("id").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")
}

// FetchUnpublished locks up to limit unpublished rows for the rest of tx.
func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	query, args, err := fetchQuery(limit).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		var payload string
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateType, &rcd.AggregateID, &rcd.EventType, &payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		rcd.Payload = []byte(payload)
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.
		Update("outbox_events").
		Set("published_at", sq.Expr("now()")).
		Where(sq.Expr("id = ANY(?)", ids)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}
