// Package localstore is the on-device cache of checklist responses for field
// auditors working without connectivity. Rows written locally are marked
// dirty and stay dirty until the server confirms the write.
package localstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Store holds the local checklist cache in a single SQLite file.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the cache file and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("local db path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping local db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply local schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordResponse writes a local mutation and marks the row dirty. The dirty
// flag clears only when a sync confirms the server accepted the write.
func (s *Store) RecordResponse(ctx context.Context, item domain.ChecklistItem) error {
	if item.ID == "" || item.AuditID == "" {
		return apperr.Validation("checklist item id and audit id are required")
	}
	if !item.Status.Valid() {
		return apperr.Validationf("invalid checklist status %q", item.Status)
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO checklist_items
			(id, audit_id, section, requirement, status, evidence, recorded_by, dirty, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (id) DO UPDATE SET
			section = excluded.section,
			requirement = excluded.requirement,
			status = excluded.status,
			evidence = excluded.evidence,
			recorded_by = excluded.recorded_by,
			dirty = 1,
			updated_at = excluded.updated_at
	`, item.ID, item.AuditID, item.Section, item.Requirement, item.Status,
		item.Evidence, item.RecordedBy, toMillis(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	return nil
}

// Get returns one cached item.
func (s *Store) Get(ctx context.Context, id string) (domain.ChecklistItem, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChecklistItem{}, apperr.NotFound("checklist item", id)
	}
	if err != nil {
		return domain.ChecklistItem{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListByAudit returns all cached items for one audit.
func (s *Store) ListByAudit(ctx context.Context, auditID string) ([]domain.ChecklistItem, error) {
	return s.list(ctx, selectColumns+` WHERE audit_id = ? ORDER BY section, requirement`, auditID)
}

// DirtyItems returns the unsynced items for one audit, oldest first so the
// sync pushes writes in the order they were made.
func (s *Store) DirtyItems(ctx context.Context, auditID string) ([]domain.ChecklistItem, error) {
	return s.list(ctx, selectColumns+` WHERE audit_id = ? AND dirty = 1 ORDER BY updated_at`, auditID)
}

// DirtyAuditIDs returns the audits that have unsynced items.
func (s *Store) DirtyAuditIDs(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT DISTINCT audit_id FROM checklist_items WHERE dirty = 1 ORDER BY audit_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list dirty audits: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan dirty audit: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkClean clears the dirty flag after a confirmed server write.
func (s *Store) MarkClean(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE checklist_items SET dirty = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark clean: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark clean: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("checklist item", id)
	}
	return nil
}

// ReplaceFromServer refreshes the cache for one audit with server truth.
// Rows with unsynced local writes are left alone so a refresh can never
// silently discard field work.
func (s *Store) ReplaceFromServer(ctx context.Context, auditID string, items []domain.ChecklistItem) (err error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin refresh: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM checklist_items WHERE audit_id = ? AND dirty = 0
	`, auditID); err != nil {
		return fmt.Errorf("clear clean rows: %w", err)
	}

	for _, item := range items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO checklist_items
				(id, audit_id, section, requirement, status, evidence, recorded_by, dirty, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
			ON CONFLICT (id) DO UPDATE SET
				section = excluded.section,
				requirement = excluded.requirement,
				status = excluded.status,
				evidence = excluded.evidence,
				recorded_by = excluded.recorded_by,
				dirty = 0,
				updated_at = excluded.updated_at
			WHERE checklist_items.dirty = 0
		`, item.ID, auditID, item.Section, item.Requirement, item.Status,
			item.Evidence, item.RecordedBy, toMillis(item.UpdatedAt)); err != nil {
			return fmt.Errorf("refresh item %s: %w", item.ID, err)
		}
	}
	return nil
}

const selectColumns = `
	SELECT id, audit_id, section, requirement, status, evidence, recorded_by, dirty, updated_at
	FROM checklist_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.ChecklistItem, error) {
	var (
		item      domain.ChecklistItem
		dirty     int
		updatedAt int64
	)
	err := row.Scan(&item.ID, &item.AuditID, &item.Section, &item.Requirement,
		&item.Status, &item.Evidence, &item.RecordedBy, &dirty, &updatedAt)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	item.Dirty = dirty != 0
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]domain.ChecklistItem, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.ChecklistItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
