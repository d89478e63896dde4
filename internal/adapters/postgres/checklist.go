package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

// UpsertChecklistResponse applies a response with last-writer-wins on
// UpdatedAt. A write older than the stored row is dropped and reported as
// not applied, so an offline client knows its copy is stale.
func (db *DB) UpsertChecklistResponse(ctx context.Context, item domain.ChecklistItem) (applied bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, apperr.Remote("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var stored domain.ChecklistItem
	err = tx.QueryRow(ctx, `
		SELECT updated_at FROM audit_checklist_responses WHERE id = $1 FOR UPDATE
	`, item.ID).Scan(&stored.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first write for this item
	case err != nil:
		return false, apperr.Remote("load checklist response", err)
	default:
		if !item.UpdatedAt.After(stored.UpdatedAt) {
			return false, nil
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_checklist_responses
			(id, audit_id, section, requirement, status, evidence, recorded_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			evidence = EXCLUDED.evidence,
			recorded_by = EXCLUDED.recorded_by,
			updated_at = EXCLUDED.updated_at
	`, item.ID, item.AuditID, item.Section, item.Requirement, item.Status,
		item.Evidence, item.RecordedBy, item.UpdatedAt)
	if err != nil {
		return false, apperr.Remote("upsert checklist response", err)
	}
	return true, nil
}

func (db *DB) ListChecklistByAudit(ctx context.Context, auditID string) ([]domain.ChecklistItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, audit_id, section, requirement, status, evidence, recorded_by, updated_at
		FROM audit_checklist_responses
		WHERE audit_id = $1
		ORDER BY section, requirement
	`, auditID)
	if err != nil {
		return nil, apperr.Remote("list checklist responses", err)
	}
	defer rows.Close()

	var items []domain.ChecklistItem
	for rows.Next() {
		var item domain.ChecklistItem
		if err := rows.Scan(&item.ID, &item.AuditID, &item.Section, &item.Requirement,
			&item.Status, &item.Evidence, &item.RecordedBy, &item.UpdatedAt); err != nil {
			return nil, apperr.Remote("scan checklist response", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
