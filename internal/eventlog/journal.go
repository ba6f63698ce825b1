package eventlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/relsync/internal/ecs"
	"github.com/roach88/relsync/internal/event"
)

var _ event.Recorder = (*Store)(nil)

// Record appends one event. Re-recording the same (flush_token, seq) is
// silently ignored.
func (s *Store) Record(ctx context.Context, rec event.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relation_events
		(seq, flush_token, relation, kind, from_entity, to_entity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(flush_token, seq) DO NOTHING
	`,
		rec.Seq,
		rec.FlushToken,
		rec.Relation,
		rec.Kind,
		int64(rec.From.Bits()),
		int64(rec.To.Bits()),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

const selectEvents = `
	SELECT seq, flush_token, relation, kind, from_entity, to_entity
	FROM relation_events
`

// ReadAll returns every event in seq order.
func (s *Store) ReadAll(ctx context.Context) ([]event.Record, error) {
	return s.query(ctx, selectEvents+`ORDER BY seq ASC, id ASC`)
}

// ReadFlush returns the events recorded during one flush.
func (s *Store) ReadFlush(ctx context.Context, flushToken string) ([]event.Record, error) {
	return s.query(ctx, selectEvents+`WHERE flush_token = ? ORDER BY seq ASC, id ASC`, flushToken)
}

// ReadRelation returns the events of one relation.
func (s *Store) ReadRelation(ctx context.Context, relation string) ([]event.Record, error) {
	return s.query(ctx, selectEvents+`WHERE relation = ? ORDER BY seq ASC, id ASC`, relation)
}

// ListFlushTokens returns distinct flush tokens in order of first event.
func (s *Store) ListFlushTokens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flush_token
		FROM relation_events
		GROUP BY flush_token
		ORDER BY MIN(seq) ASC, flush_token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list flush tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan flush token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flush tokens: %w", err)
	}
	return tokens, nil
}

// LastSeq returns the highest recorded seq, or 0 for an empty journal.
// Pass it to ecs.NewClockAt to continue numbering after a restart.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM relation_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]event.Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	records := []event.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (event.Record, error) {
	var (
		rec      event.Record
		from, to int64
	)
	if err := rows.Scan(&rec.Seq, &rec.FlushToken, &rec.Relation, &rec.Kind, &from, &to); err != nil {
		return event.Record{}, fmt.Errorf("scan event: %w", err)
	}
	rec.From = ecs.FromBits(uint64(from))
	rec.To = ecs.FromBits(uint64(to))
	return rec, nil
}
