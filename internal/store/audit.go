package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/pg"
)

const auditColumns = `id, action, actor_type, actor_id, subject_type, subject_id, properties, ip_address, user_agent, created_at`

// AuditLogs is the PostgreSQL audit.Store. The audit_logs triggers reject
// every UPDATE, DELETE and TRUNCATE except deletes issued by Purge.
type AuditLogs struct {
	db DB
}

// NewAuditLogs creates an audit log store.
func NewAuditLogs(db DB) *AuditLogs {
	return &AuditLogs{db: db}
}

var _ audit.Store = (*AuditLogs)(nil)

// Append inserts entry and fills in ID and CreatedAt.
func (s *AuditLogs) Append(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return audit.ErrInvalidEntry
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	var props []byte
	if entry.Properties != nil {
		var err error
		if props, err = json.Marshal(entry.Properties); err != nil {
			return fmt.Errorf("%w: %w", audit.ErrInvalidEntry, err)
		}
	}
	actorType, actorID := splitRef(entry.Actor)
	subjectType, subjectID := splitRef(entry.Subject)

	err := s.db.QueryRow(ctx,
		`INSERT INTO audit_logs (action, actor_type, actor_id, subject_type, subject_id, properties, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		entry.Action, actorType, actorID, subjectType, subjectID, props,
		nullable(entry.IPAddress), nullable(entry.UserAgent),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	return nil
}

// List returns matching entries newest first.
func (s *AuditLogs) List(ctx context.Context, params audit.ListParams) ([]audit.Entry, error) {
	if err := params.Filter.Validate(); err != nil {
		return nil, err
	}

	query, args := listQuery(params)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]audit.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of matching entries.
func (s *AuditLogs) Count(ctx context.Context, filter audit.Filter) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	w := filterWhere(filter)
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// Get returns one entry.
func (s *AuditLogs) Get(ctx context.Context, id int64) (*audit.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_logs WHERE id = $1`, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, audit.ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

// Actions returns the distinct recorded actions in ascending order.
func (s *AuditLogs) Actions(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT action FROM audit_logs ORDER BY action`)
	if err != nil {
		return nil, fmt.Errorf("list audit actions: %w", err)
	}
	actions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list audit actions: %w", err)
	}
	return actions, nil
}

// Purge deletes entries created strictly before the cutoff. The setting
// that unlocks the delete trigger is local to the transaction.
func (s *AuditLogs) Purge(ctx context.Context, before time.Time) (deleted int64, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if _, err = tx.Exec(ctx, `SET LOCAL audit.allow_purge = 'on'`); err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete exists so callers get a typed error: the trigger refuses any
// delete outside Purge.
func (s *AuditLogs) Delete(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM audit_logs WHERE id = $1`, id)
	return immutable(err)
}

// Update is refused by the trigger in the same way as Delete.
func (s *AuditLogs) Update(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return audit.ErrInvalidEntry
	}
	_, err := s.db.Exec(ctx, `UPDATE audit_logs SET action = $2 WHERE id = $1`, entry.ID, entry.Action)
	return immutable(err)
}

func immutable(err error) error {
	switch {
	case err == nil:
		// Only possible if the trigger is missing.
		return nil
	case pg.IsRestrictViolationError(err):
		return audit.ErrImmutableEntry
	default:
		return err
	}
}

func scanEntry(row pgx.Row) (*audit.Entry, error) {
	var (
		e                    audit.Entry
		actorType, subjType  *string
		actorID, subjID      *int64
		props                []byte
		ipAddress, userAgent *string
	)
	if err := row.Scan(&e.ID, &e.Action, &actorType, &actorID, &subjType, &subjID,
		&props, &ipAddress, &userAgent, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}

	e.Actor = joinRef(actorType, actorID)
	e.Subject = joinRef(subjType, subjID)
	if len(props) > 0 {
		if err := json.Unmarshal(props, &e.Properties); err != nil {
			return nil, fmt.Errorf("decode audit properties: %w", err)
		}
	}
	if ipAddress != nil {
		e.IPAddress = *ipAddress
	}
	if userAgent != nil {
		e.UserAgent = *userAgent
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func splitRef(ref *audit.EntityRef) (*string, *int64) {
	if ref == nil {
		return nil, nil
	}
	kind := string(ref.Kind)
	id := ref.ID
	return &kind, &id
}

func joinRef(kind *string, id *int64) *audit.EntityRef {
	if kind == nil || id == nil {
		return nil
	}
	return &audit.EntityRef{Kind: audit.EntityKind(*kind), ID: *id}
}
