package storage

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

func (s *Store) LogAction(ctx context.Context, e AuditEntry) error {
	if e.MetaJSON == "" || !json.Valid([]byte(e.MetaJSON)) {
		e.MetaJSON = "{}"
	}

	q := s.sql.Insert("audit_log").
		Columns("user_id", "action", "meta_json").
		Values(e.UserID, e.Action, e.MetaJSON)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Record satisfies the session engine's audit boundary.
func (s *Store) Record(ctx context.Context, userID int64, action string, meta map[string]any) error {
	b, err := json.Marshal(meta)
	if err != nil {
		b = []byte("{}")
	}
	return s.LogAction(ctx, AuditEntry{UserID: userID, Action: action, MetaJSON: string(b)})
}

// PurgeUser removes every audit row for a user. Called on wipe so a full-data
// wipe really leaves nothing behind.
func (s *Store) PurgeUser(ctx context.Context, userID int64) error {
	q := s.sql.Delete("audit_log").Where(sq.Eq{"user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit purge query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("purge audit entries: %w", err)
	}
	return nil
}

func (s *Store) CountActions(ctx context.Context, userID int64) (int64, error) {
	q := s.sql.Select("COUNT(*)").From("audit_log").Where(sq.Eq{"user_id": userID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build audit count query: %w", err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}
