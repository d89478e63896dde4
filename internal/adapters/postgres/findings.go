package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

func (db *DB) CreateFinding(ctx context.Context, finding domain.Finding) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO findings
			(id, audit_id, clause_ref, description, severity, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, finding.ID, finding.AuditID, finding.ClauseRef, finding.Description, finding.Severity,
		finding.Status, finding.CreatedBy, finding.CreatedAt, finding.UpdatedAt)
	if err != nil {
		return apperr.Remote("insert finding", err)
	}
	return nil
}

func (db *DB) GetFinding(ctx context.Context, id string) (domain.Finding, error) {
	var f domain.Finding
	err := db.Pool.QueryRow(ctx, `
		SELECT id, audit_id, clause_ref, description, severity, status, created_by, created_at, updated_at
		FROM findings WHERE id = $1
	`, id).Scan(&f.ID, &f.AuditID, &f.ClauseRef, &f.Description, &f.Severity, &f.Status, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Finding{}, apperr.NotFound("finding", id)
	}
	if err != nil {
		return domain.Finding{}, apperr.Remote("get finding", err)
	}
	return f, nil
}

func (db *DB) UpdateFindingStatus(ctx context.Context, id string, status domain.FindingStatus, updatedAt time.Time) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE findings SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, updatedAt)
	if err != nil {
		return apperr.Remote("update finding", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("finding", id)
	}
	return nil
}

func (db *DB) ListFindingsByAudit(ctx context.Context, auditID string) ([]domain.Finding, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, audit_id, clause_ref, description, severity, status, created_by, created_at, updated_at
		FROM findings
		WHERE audit_id = $1
		ORDER BY created_at DESC
	`, auditID)
	if err != nil {
		return nil, apperr.Remote("list findings", err)
	}
	defer rows.Close()

	var findings []domain.Finding
	for rows.Next() {
		var f domain.Finding
		if err := rows.Scan(&f.ID, &f.AuditID, &f.ClauseRef, &f.Description, &f.Severity, &f.Status, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, apperr.Remote("scan finding", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
