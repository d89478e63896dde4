package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

// CreateAuditFromApplication derives a planned audit from an approved
// application. Kept separate from AdminReview on purpose: approval and audit
// creation are two explicit steps. At most one audit per application.
func (s *Service) CreateAuditFromApplication(ctx context.Context, callerID, applicationID string, input domain.CreateAuditInput) (domain.Audit, error) {
	if _, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapAssignTeams); err != nil {
		return domain.Audit{}, err
	}
	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return domain.Audit{}, err
	}
	if _, exists, err := s.audits.GetAuditByApplication(ctx, applicationID); err != nil {
		return domain.Audit{}, apperr.Remote("check existing audit", err)
	} else if exists {
		return domain.Audit{}, apperr.Conflict("an audit already exists for this application")
	}

	audit, err := domain.NewAuditFromApplication(app, input, s.now, s.newID)
	if err != nil {
		if err == domain.ErrApplicationNotApproved {
			return domain.Audit{}, apperr.Conflict(err.Error())
		}
		return domain.Audit{}, apperr.Validation(err.Error())
	}
	if err := s.audits.CreateAudit(ctx, audit); err != nil {
		return domain.Audit{}, wrapRemote("create audit", err)
	}

	s.notify(ctx, app.OwnerID, "Audit scheduled",
		fmt.Sprintf("Audit %s has been created for %s.", audit.Code, app.ProductName))
	s.log.Info("audit created from application",
		zap.String("audit_id", audit.ID),
		zap.String("application_id", applicationID))
	return audit, nil
}

// CreateAudit opens a planned audit with no application link; the
// administrative direct-create path.
func (s *Service) CreateAudit(ctx context.Context, callerID string, input domain.CreateAuditInput) (domain.Audit, error) {
	if _, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapAssignTeams); err != nil {
		return domain.Audit{}, err
	}
	audit, err := domain.NewAudit(input, s.now, s.newID)
	if err != nil {
		return domain.Audit{}, apperr.Validation(err.Error())
	}
	if err := s.audits.CreateAudit(ctx, audit); err != nil {
		return domain.Audit{}, wrapRemote("create audit", err)
	}
	s.log.Info("audit created", zap.String("audit_id", audit.ID))
	return audit, nil
}

// AssignTeam sets the lead auditor and replaces the member set in one
// transaction, forcing the audit ongoing. Reassignment replaces members
// wholesale; nothing from the previous assignment survives.
func (s *Service) AssignTeam(ctx context.Context, callerID, auditID, leadAuditorID string, auditorIDs []string) error {
	if _, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapAssignTeams); err != nil {
		return err
	}
	if leadAuditorID == "" {
		return apperr.Validation("a lead auditor is required")
	}
	audit, err := s.audits.GetAudit(ctx, auditID)
	if err != nil {
		return err
	}
	if audit.Status != domain.AuditPlanned && audit.Status != domain.AuditOngoing {
		return apperr.Conflict(fmt.Sprintf("cannot assign a team while the audit is %s", audit.Status))
	}

	if err := s.audits.AssignTeam(ctx, auditID, leadAuditorID, auditorIDs, s.now().UTC()); err != nil {
		return wrapRemote("assign team", err)
	}

	s.notify(ctx, leadAuditorID, "Audit assignment",
		fmt.Sprintf("You are the lead auditor for audit %s.", audit.Code))
	s.log.Info("audit team assigned",
		zap.String("audit_id", auditID),
		zap.String("lead_auditor_id", leadAuditorID),
		zap.Int("auditors", len(auditorIDs)))
	return nil
}

// UpdateAuditStatus advances an audit along its lifecycle. Certification has
// its own operation with a findings guard; it cannot be reached here.
func (s *Service) UpdateAuditStatus(ctx context.Context, callerID, auditID string, newStatus domain.AuditStatus) error {
	if _, err := s.roles.Authorize(ctx, callerID, domain.RoleLeadAuditor, domain.RoleAdmin); err != nil {
		return err
	}
	if !newStatus.Valid() {
		return apperr.Validationf("unknown audit status %q", newStatus)
	}
	if newStatus == domain.AuditCertified {
		return apperr.Validation("certification requires issuing a certificate")
	}
	audit, err := s.audits.GetAudit(ctx, auditID)
	if err != nil {
		return err
	}
	if !audit.Status.CanTransition(newStatus) {
		return apperr.Conflict(domain.TransitionError(audit.Status, newStatus).Error())
	}
	if err := s.audits.UpdateAuditStatus(ctx, auditID, newStatus, s.now().UTC()); err != nil {
		return wrapRemote("update audit", err)
	}
	s.log.Info("audit status updated",
		zap.String("audit_id", auditID),
		zap.String("status", string(newStatus)))
	return nil
}

// IssueCertificate closes a reviewing audit as certified. Refused while any
// major finding is still open or rejected.
func (s *Service) IssueCertificate(ctx context.Context, callerID, auditID, certificateNumber string, issueDate, expiryDate time.Time, scope string) error {
	if _, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapIssueCertificates); err != nil {
		return err
	}
	if certificateNumber == "" {
		return apperr.Validation("certificate number is required")
	}
	if !expiryDate.After(issueDate) {
		return apperr.Validation("certificate expiry must be after the issue date")
	}
	audit, err := s.audits.GetAudit(ctx, auditID)
	if err != nil {
		return err
	}
	if audit.Status != domain.AuditReviewing {
		return apperr.Conflict(domain.TransitionError(audit.Status, domain.AuditCertified).Error())
	}
	findings, err := s.findings.ListFindingsByAudit(ctx, auditID)
	if err != nil {
		return apperr.Remote("list findings", err)
	}
	if domain.CertificationBlocked(findings) {
		return apperr.Conflict("major findings must be closed or approved before certification")
	}
	if scope == "" {
		scope = audit.Scope
	}
	update := ports.CertificateUpdate{
		AuditID:           auditID,
		CertificateNumber: certificateNumber,
		IssueDate:         issueDate.UTC(),
		ExpiryDate:        expiryDate.UTC(),
		Scope:             scope,
		UpdatedAt:         s.now().UTC(),
	}
	if err := s.audits.SetCertificate(ctx, update); err != nil {
		return wrapRemote("set certificate", err)
	}
	s.log.Info("certificate issued",
		zap.String("audit_id", auditID),
		zap.String("certificate_number", certificateNumber))
	return nil
}

// CompleteAudit closes a reviewing audit without a certificate.
func (s *Service) CompleteAudit(ctx context.Context, callerID, auditID string) error {
	if _, err := s.roles.Authorize(ctx, callerID, domain.RoleLeadAuditor, domain.RoleAdmin); err != nil {
		return err
	}
	audit, err := s.audits.GetAudit(ctx, auditID)
	if err != nil {
		return err
	}
	if !audit.Status.CanTransition(domain.AuditCompleted) {
		return apperr.Conflict(domain.TransitionError(audit.Status, domain.AuditCompleted).Error())
	}
	if err := s.audits.UpdateAuditStatus(ctx, auditID, domain.AuditCompleted, s.now().UTC()); err != nil {
		return wrapRemote("update audit", err)
	}
	return nil
}

// GetAudit returns one audit.
func (s *Service) GetAudit(ctx context.Context, callerID, auditID string) (domain.Audit, error) {
	if _, err := s.roles.Resolve(ctx, callerID); err != nil {
		return domain.Audit{}, err
	}
	return s.audits.GetAudit(ctx, auditID)
}

// ListAuditsByStatus returns audits in the given states.
func (s *Service) ListAuditsByStatus(ctx context.Context, callerID string, statuses ...domain.AuditStatus) ([]domain.Audit, error) {
	if _, err := s.roles.Resolve(ctx, callerID); err != nil {
		return nil, err
	}
	audits, err := s.audits.ListAuditsByStatus(ctx, statuses...)
	if err != nil {
		return nil, apperr.Remote("list audits", err)
	}
	return audits, nil
}

// ListTeam returns the audit's member assignments.
func (s *Service) ListTeam(ctx context.Context, callerID, auditID string) ([]domain.AuditMember, error) {
	if _, err := s.roles.Resolve(ctx, callerID); err != nil {
		return nil, err
	}
	members, err := s.audits.ListMembers(ctx, auditID)
	if err != nil {
		return nil, apperr.Remote("list members", err)
	}
	return members, nil
}

// onTeam reports whether the principal leads or belongs to the audit team.
func (s *Service) onTeam(ctx context.Context, audit domain.Audit, principalID string) (bool, error) {
	if audit.LeadAuditorID != nil && *audit.LeadAuditorID == principalID {
		return true, nil
	}
	members, err := s.audits.ListMembers(ctx, audit.ID)
	if err != nil {
		return false, apperr.Remote("list members", err)
	}
	for _, m := range members {
		if m.PrincipalID == principalID {
			return true, nil
		}
	}
	return false, nil
}
