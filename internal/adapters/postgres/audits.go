package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

const auditColumns = `
	id, code, application_id, client_org_id, lead_auditor_id, status, standards, scope,
	start_date, end_date, certificate_number, issue_date, expiry_date, created_at, updated_at`

func (db *DB) CreateAudit(ctx context.Context, audit domain.Audit) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audits
			(id, code, application_id, client_org_id, lead_auditor_id, status, standards, scope,
			 start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, audit.ID, audit.Code, audit.ApplicationID, audit.ClientOrgID, audit.LeadAuditorID, audit.Status,
		audit.Standards, audit.Scope, audit.StartDate, audit.EndDate, audit.CreatedAt, audit.UpdatedAt)
	if err != nil {
		return apperr.Remote("insert audit", err)
	}
	return nil
}

func (db *DB) GetAudit(ctx context.Context, id string) (domain.Audit, error) {
	row := db.Pool.QueryRow(ctx, `SELECT`+auditColumns+` FROM audits WHERE id = $1`, id)
	audit, err := scanAudit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Audit{}, apperr.NotFound("audit", id)
	}
	if err != nil {
		return domain.Audit{}, apperr.Remote("get audit", err)
	}
	return audit, nil
}

func (db *DB) GetAuditByApplication(ctx context.Context, applicationID string) (domain.Audit, bool, error) {
	row := db.Pool.QueryRow(ctx, `SELECT`+auditColumns+` FROM audits WHERE application_id = $1`, applicationID)
	audit, err := scanAudit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Audit{}, false, nil
	}
	if err != nil {
		return domain.Audit{}, false, apperr.Remote("get audit", err)
	}
	return audit, true, nil
}

func (db *DB) UpdateAuditStatus(ctx context.Context, id string, status domain.AuditStatus, updatedAt time.Time) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE audits SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, updatedAt)
	if err != nil {
		return apperr.Remote("update audit", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("audit", id)
	}
	return nil
}

// AssignTeam sets the lead auditor, forces the audit ongoing, and replaces
// the member set wholesale, all inside one transaction. A failed step rolls
// everything back; an audit can never end up ongoing with no members.
func (db *DB) AssignTeam(ctx context.Context, auditID, leadAuditorID string, auditorIDs []string, at time.Time) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Remote("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE audits SET lead_auditor_id = $2, status = 'ongoing', updated_at = $3 WHERE id = $1
	`, auditID, leadAuditorID, at)
	if err != nil {
		return apperr.Remote("set lead", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("audit", auditID)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM audit_members WHERE audit_id = $1`, auditID); err != nil {
		return apperr.Remote("clear members", err)
	}
	for _, principalID := range auditorIDs {
		if _, err = tx.Exec(ctx, `
			INSERT INTO audit_members (audit_id, principal_id, role, assigned_at)
			VALUES ($1, $2, $3, $4)
		`, auditID, principalID, domain.RoleAuditor, at); err != nil {
			return apperr.Remote("insert members", err)
		}
	}
	return nil
}

func (db *DB) SetCertificate(ctx context.Context, update ports.CertificateUpdate) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE audits
		SET status = 'certified',
		    certificate_number = $2,
		    issue_date = $3,
		    expiry_date = $4,
		    scope = $5,
		    updated_at = $6
		WHERE id = $1
	`, update.AuditID, update.CertificateNumber, update.IssueDate, update.ExpiryDate, update.Scope, update.UpdatedAt)
	if err != nil {
		return apperr.Remote("set certificate", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("audit", update.AuditID)
	}
	return nil
}

func (db *DB) ListAuditsByStatus(ctx context.Context, statuses ...domain.AuditStatus) ([]domain.Audit, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT`+auditColumns+` FROM audits WHERE status = ANY($1) ORDER BY created_at
	`, values)
	if err != nil {
		return nil, apperr.Remote("list audits", err)
	}
	defer rows.Close()

	var audits []domain.Audit
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, apperr.Remote("scan audit", err)
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

func (db *DB) ListMembers(ctx context.Context, auditID string) ([]domain.AuditMember, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT audit_id, principal_id, role, assigned_at
		FROM audit_members
		WHERE audit_id = $1
		ORDER BY assigned_at, principal_id
	`, auditID)
	if err != nil {
		return nil, apperr.Remote("list members", err)
	}
	defer rows.Close()

	var members []domain.AuditMember
	for rows.Next() {
		var m domain.AuditMember
		if err := rows.Scan(&m.AuditID, &m.PrincipalID, &m.Role, &m.AssignedAt); err != nil {
			return nil, apperr.Remote("scan member", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanAudit(row rowScanner) (domain.Audit, error) {
	var a domain.Audit
	err := row.Scan(&a.ID, &a.Code, &a.ApplicationID, &a.ClientOrgID, &a.LeadAuditorID, &a.Status,
		&a.Standards, &a.Scope, &a.StartDate, &a.EndDate, &a.CertificateNumber, &a.IssueDate,
		&a.ExpiryDate, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
