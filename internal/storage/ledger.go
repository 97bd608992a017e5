package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arisehq/arise/internal/model"
)

// execer is the subset of pgx shared by pools and transactions, so
// ledger writes can run standalone or inside a caller's transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// InsertLedgerEvent appends an event to the ledger. Daily-unique event
// types rely on the partial unique index uq_ledger_daily; this plain
// insert surfaces a duplicate as an error, which guarded callers avoid
// by going through insertDailyGuarded instead.
func (db *DB) InsertLedgerEvent(ctx context.Context, e model.LedgerEvent) error {
	return insertEvent(ctx, db.pool, e)
}

func insertEvent(ctx context.Context, q execer, e model.LedgerEvent) error {
	_, err := q.Exec(ctx,
		`INSERT INTO ledger_events (id, user_id, event_type, xp_amount, gold_amount, event_date, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, string(e.EventType), e.XPAmount, e.GoldAmount, e.EventDate, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: insert ledger event: %w", err)
	}
	return nil
}

// insertDailyGuarded attempts a once-per-day ledger insert. Returns true
// when this call won the insert, false when an event of this type
// already exists for (user, date); the partial unique index absorbs
// the race between concurrent sessions.
func insertDailyGuarded(ctx context.Context, q execer, e model.LedgerEvent) (bool, error) {
	tag, err := q.Exec(ctx,
		`INSERT INTO ledger_events (id, user_id, event_type, xp_amount, gold_amount, event_date, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT DO NOTHING`,
		e.ID, e.UserID, string(e.EventType), e.XPAmount, e.GoldAmount, e.EventDate, e.Description, e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("storage: guarded ledger insert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountActionsOnDate counts qualifying action events for a user on a
// calendar date.
func (db *DB) CountActionsOnDate(ctx context.Context, userID uuid.UUID, date time.Time) (int, error) {
	types := make([]string, len(model.ActionEventTypes))
	for i, t := range model.ActionEventTypes {
		types[i] = string(t)
	}
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT count(*) FROM ledger_events
		 WHERE user_id = $1 AND event_date = $2 AND event_type = ANY($3)`,
		userID, date, types,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count actions on date: %w", err)
	}
	return n, nil
}

// HasDailyEvent reports whether any of the given event types exists for
// the user on the given date. This is the reconciler's idempotency read.
func (db *DB) HasDailyEvent(ctx context.Context, userID uuid.UUID, date time.Time, types ...model.EventType) (bool, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM ledger_events
		   WHERE user_id = $1 AND event_date = $2 AND event_type = ANY($3)
		 )`,
		userID, date, names,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("storage: has daily event: %w", err)
	}
	return exists, nil
}

// CountEventsInRange counts events of one type for a user with
// event_date in [from, to). Used for the monthly shield cap.
func (db *DB) CountEventsInRange(ctx context.Context, userID uuid.UUID, eventType model.EventType, from, to time.Time) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT count(*) FROM ledger_events
		 WHERE user_id = $1 AND event_type = $2 AND event_date >= $3 AND event_date < $4`,
		userID, string(eventType), from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count events in range: %w", err)
	}
	return n, nil
}

// ListLedgerEvents returns a user's ledger history, newest first,
// paginated by a created_at/id cursor.
func (db *DB) ListLedgerEvents(ctx context.Context, userID uuid.UUID, cursor *uuid.UUID, limit int) ([]model.LedgerEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = db.pool.Query(ctx,
			`SELECT id, user_id, event_type, xp_amount, gold_amount, event_date, description, created_at
			 FROM ledger_events
			 WHERE user_id = $1
			   AND (created_at, id) < (SELECT created_at, id FROM ledger_events WHERE id = $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			userID, *cursor, limit)
	} else {
		rows, err = db.pool.Query(ctx,
			`SELECT id, user_id, event_type, xp_amount, gold_amount, event_date, description, created_at
			 FROM ledger_events
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			userID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list ledger events: %w", err)
	}
	defer rows.Close()

	var events []model.LedgerEvent
	for rows.Next() {
		var e model.LedgerEvent
		var typ string
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.XPAmount, &e.GoldAmount, &e.EventDate, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan ledger event: %w", err)
		}
		e.EventType = model.EventType(typ)
		events = append(events, e)
	}
	return events, rows.Err()
}
