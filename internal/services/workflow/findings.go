package workflow

import (
	"context"

	"go.uber.org/zap"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

// CreateFinding records a finding against an audit. Auditors must be on the
// audit team; admins may record on any audit.
func (s *Service) CreateFinding(ctx context.Context, callerID string, input domain.CreateFindingInput) (domain.Finding, error) {
	caller, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapRecordFindings)
	if err != nil {
		return domain.Finding{}, err
	}
	audit, err := s.audits.GetAudit(ctx, input.AuditID)
	if err != nil {
		return domain.Finding{}, err
	}
	if audit.Status == domain.AuditCertified || audit.Status == domain.AuditCompleted {
		return domain.Finding{}, apperr.Conflict("audit is closed")
	}
	if caller.ActiveRole != domain.RoleAdmin {
		member, err := s.onTeam(ctx, audit, caller.ID)
		if err != nil {
			return domain.Finding{}, err
		}
		if !member {
			return domain.Finding{}, apperr.Forbidden(string(caller.ActiveRole), "record findings on an audit outside their team")
		}
	}

	input.CreatedBy = caller.ID
	finding, err := domain.NewFinding(input, s.now, s.newID)
	if err != nil {
		return domain.Finding{}, apperr.Validation(err.Error())
	}
	if err := s.findings.CreateFinding(ctx, finding); err != nil {
		return domain.Finding{}, wrapRemote("create finding", err)
	}
	s.log.Info("finding recorded",
		zap.String("finding_id", finding.ID),
		zap.String("audit_id", finding.AuditID),
		zap.String("severity", string(finding.Severity)))
	return finding, nil
}

// UpdateFindingStatus moves a finding between open, closed, approved, and
// rejected. Approval and rejection are disposition decisions reserved for
// lead-auditor or admin authority.
func (s *Service) UpdateFindingStatus(ctx context.Context, callerID, findingID string, status domain.FindingStatus) error {
	if !status.Valid() {
		return apperr.Validationf("unknown finding status %q", status)
	}
	required := domain.CapRecordFindings
	if status.RequiresApprovalAuthority() {
		required = domain.CapApproveFindings
	}
	if _, err := s.roles.AuthorizeCap(ctx, callerID, required); err != nil {
		return err
	}
	if _, err := s.findings.GetFinding(ctx, findingID); err != nil {
		return err
	}
	if err := s.findings.UpdateFindingStatus(ctx, findingID, status, s.now().UTC()); err != nil {
		return wrapRemote("update finding", err)
	}
	s.log.Info("finding status updated",
		zap.String("finding_id", findingID),
		zap.String("status", string(status)))
	return nil
}

// ListFindings returns an audit's findings.
func (s *Service) ListFindings(ctx context.Context, callerID, auditID string) ([]domain.Finding, error) {
	if _, err := s.roles.Resolve(ctx, callerID); err != nil {
		return nil, err
	}
	findings, err := s.findings.ListFindingsByAudit(ctx, auditID)
	if err != nil {
		return nil, apperr.Remote("list findings", err)
	}
	return findings, nil
}

// SaveChecklistResponse upserts one checklist response on the server. The
// write applies last-writer-wins on the update stamp; applied reports false
// when the server copy was newer, which a syncing field device treats as the
// server winning.
func (s *Service) SaveChecklistResponse(ctx context.Context, callerID string, item domain.ChecklistItem) (bool, error) {
	caller, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapRecordFindings)
	if err != nil {
		return false, err
	}
	if item.ID == "" || item.AuditID == "" {
		return false, apperr.Validation("checklist item id and audit id are required")
	}
	if !item.Status.Valid() {
		return false, apperr.Validationf("unknown checklist status %q", item.Status)
	}
	item.RecordedBy = caller.ID
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = s.now().UTC()
	}
	applied, err := s.checklist.UpsertChecklistResponse(ctx, item)
	if err != nil {
		return false, wrapRemote("upsert checklist response", err)
	}
	return applied, nil
}

// ListChecklist returns an audit's checklist responses.
func (s *Service) ListChecklist(ctx context.Context, callerID, auditID string) ([]domain.ChecklistItem, error) {
	if _, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapRecordFindings); err != nil {
		return nil, err
	}
	items, err := s.checklist.ListChecklistByAudit(ctx, auditID)
	if err != nil {
		return nil, apperr.Remote("list checklist", err)
	}
	return items, nil
}
