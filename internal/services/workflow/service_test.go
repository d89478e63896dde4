package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

func TestApplicationApprovalScenario(t *testing.T) {
	// Draft application; admin approves with notes; a subsequent explicit
	// audit-creation call yields a planned audit referencing it.
	client := principalWith("client-1", domain.RoleClient)
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(client, admin)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, "client-1", domain.CreateApplicationInput{
		ProductName: "Pressure valve X2",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationDraft, app.Status)

	require.NoError(t, e.svc.SubmitApplication(ctx, "client-1", app.ID))

	err = e.svc.AdminReview(ctx, "admin-1", app.ID, domain.ApplicationApproved, "looks good")
	require.NoError(t, err)

	got, err := e.apps.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, got.Status)
	require.NotNil(t, got.ReviewNotes)
	assert.Equal(t, "looks good", *got.ReviewNotes)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, "admin-1", *got.ReviewedBy)

	audit, err := e.svc.CreateAuditFromApplication(ctx, "admin-1", app.ID, domain.CreateAuditInput{
		Code:      "AUD-2026-001",
		Standards: []string{"ISO 17065"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AuditPlanned, audit.Status)
	require.NotNil(t, audit.ApplicationID)
	assert.Equal(t, app.ID, *audit.ApplicationID)
	assert.Equal(t, "Pressure valve X2", audit.Scope)
}

func TestAdminReviewRequiresAdmin(t *testing.T) {
	client := principalWith("client-1", domain.RoleClient)
	auditor := principalWith("auditor-1", domain.RoleAuditor)
	e := newEnv(client, auditor)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, "client-1", domain.CreateApplicationInput{ProductName: "Widget"})
	require.NoError(t, err)
	require.NoError(t, e.svc.SubmitApplication(ctx, "client-1", app.ID))

	err = e.svc.AdminReview(ctx, "auditor-1", app.ID, domain.ApplicationApproved, "")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestResubmitAfterInfoNeededBumpsRevision(t *testing.T) {
	client := principalWith("client-1", domain.RoleClient)
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(client, admin)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, "client-1", domain.CreateApplicationInput{ProductName: "Widget"})
	require.NoError(t, err)
	require.NoError(t, e.svc.SubmitApplication(ctx, "client-1", app.ID))
	require.NoError(t, e.svc.AdminReview(ctx, "admin-1", app.ID, domain.ApplicationInfoNeeded, "need drawings"))

	require.NoError(t, e.svc.SubmitApplication(ctx, "client-1", app.ID))

	got, err := e.apps.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationSubmitted, got.Status)
	assert.Equal(t, 1, got.RevisionCount)
	assert.Nil(t, got.ReviewNotes)
}

func TestApprovedIsTerminalForApplication(t *testing.T) {
	client := principalWith("client-1", domain.RoleClient)
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(client, admin)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, "client-1", domain.CreateApplicationInput{ProductName: "Widget"})
	require.NoError(t, err)
	require.NoError(t, e.svc.SubmitApplication(ctx, "client-1", app.ID))
	require.NoError(t, e.svc.AdminReview(ctx, "admin-1", app.ID, domain.ApplicationApproved, ""))

	err = e.svc.AdminReview(ctx, "admin-1", app.ID, domain.ApplicationRejected, "")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestCreateAuditFromApplicationOnlyOnce(t *testing.T) {
	client := principalWith("client-1", domain.RoleClient)
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(client, admin)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, "client-1", domain.CreateApplicationInput{ProductName: "Widget"})
	require.NoError(t, err)
	require.NoError(t, e.svc.SubmitApplication(ctx, "client-1", app.ID))
	require.NoError(t, e.svc.AdminReview(ctx, "admin-1", app.ID, domain.ApplicationApproved, ""))

	_, err = e.svc.CreateAuditFromApplication(ctx, "admin-1", app.ID, domain.CreateAuditInput{Code: "AUD-1"})
	require.NoError(t, err)

	_, err = e.svc.CreateAuditFromApplication(ctx, "admin-1", app.ID, domain.CreateAuditInput{Code: "AUD-2"})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestCreateAuditFromUnapprovedApplication(t *testing.T) {
	client := principalWith("client-1", domain.RoleClient)
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(client, admin)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, "client-1", domain.CreateApplicationInput{ProductName: "Widget"})
	require.NoError(t, err)

	_, err = e.svc.CreateAuditFromApplication(ctx, "admin-1", app.ID, domain.CreateAuditInput{Code: "AUD-1"})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestAssignTeamReplacesMembersAndStartsAudit(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(admin)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)

	require.NoError(t, e.svc.AssignTeam(ctx, "admin-1", audit.ID, "lead-1", []string{"aud-1", "aud-2"}))
	// Reassign; nothing from the first assignment may survive.
	require.NoError(t, e.svc.AssignTeam(ctx, "admin-1", audit.ID, "lead-2", []string{"aud-3"}))

	got, err := e.audits.GetAudit(ctx, audit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditOngoing, got.Status)
	require.NotNil(t, got.LeadAuditorID)
	assert.Equal(t, "lead-2", *got.LeadAuditorID)

	members, err := e.svc.ListTeam(ctx, "admin-1", audit.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "aud-3", members[0].PrincipalID)
	assert.Equal(t, domain.RoleAuditor, members[0].Role)
}

func TestAssignTeamRequiresLead(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(admin)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)

	err = e.svc.AssignTeam(ctx, "admin-1", audit.ID, "", []string{"aud-1"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestSubmitDossierIdempotent(t *testing.T) {
	client := principalWith("client-1", domain.RoleClient)
	e := newEnv(client)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, "client-1", domain.CreateApplicationInput{ProductName: "Widget"})
	require.NoError(t, err)
	require.NoError(t, e.svc.SubmitApplication(ctx, "client-1", app.ID))

	require.NoError(t, e.svc.SubmitDossier(ctx, "client-1", app.ID))
	got, _ := e.apps.GetApplication(ctx, app.ID)
	first := got.UpdatedAt

	// Second call succeeds without side effects.
	require.NoError(t, e.svc.SubmitDossier(ctx, "client-1", app.ID))
	got, _ = e.apps.GetApplication(ctx, app.ID)
	assert.Equal(t, domain.ApplicationDossierSubmitted, got.Status)
	assert.Equal(t, first, got.UpdatedAt)
}

func TestUpdateFindingStatusAuthority(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	lead := principalWith("lead-1", domain.RoleLeadAuditor)
	client := principalWith("client-1", domain.RoleClient)
	e := newEnv(admin, lead, client)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)
	require.NoError(t, e.svc.AssignTeam(ctx, "admin-1", audit.ID, "lead-1", nil))

	finding, err := e.svc.CreateFinding(ctx, "lead-1", domain.CreateFindingInput{
		AuditID:     audit.ID,
		Description: "Calibration records missing",
		Severity:    domain.SeverityMajor,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FindingOpen, finding.Status)

	// A client-role caller must be rejected with Forbidden.
	err = e.svc.UpdateFindingStatus(ctx, "client-1", finding.ID, domain.FindingApproved)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	// A lead auditor may approve.
	require.NoError(t, e.svc.UpdateFindingStatus(ctx, "lead-1", finding.ID, domain.FindingApproved))
	got, err := e.findings.GetFinding(ctx, finding.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FindingApproved, got.Status)
}

func TestPlainAuditorCannotApproveFindings(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	auditor := principalWith("aud-1", domain.RoleAuditor)
	e := newEnv(admin, auditor)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)
	require.NoError(t, e.svc.AssignTeam(ctx, "admin-1", audit.ID, "lead-1", []string{"aud-1"}))

	finding, err := e.svc.CreateFinding(ctx, "aud-1", domain.CreateFindingInput{
		AuditID:     audit.ID,
		Description: "Labeling inconsistent",
		Severity:    domain.SeverityMinor,
	})
	require.NoError(t, err)

	// Auditors may close but not approve.
	require.NoError(t, e.svc.UpdateFindingStatus(ctx, "aud-1", finding.ID, domain.FindingClosed))
	err = e.svc.UpdateFindingStatus(ctx, "aud-1", finding.ID, domain.FindingApproved)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestFindingRequiresTeamMembership(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	outsider := principalWith("aud-9", domain.RoleAuditor)
	e := newEnv(admin, outsider)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)
	require.NoError(t, e.svc.AssignTeam(ctx, "admin-1", audit.ID, "lead-1", []string{"aud-1"}))

	_, err = e.svc.CreateFinding(ctx, "aud-9", domain.CreateFindingInput{
		AuditID:     audit.ID,
		Description: "Out of scope observation",
		Severity:    domain.SeverityObservation,
	})
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestCertificateBlockedByOpenMajorFinding(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	lead := principalWith("lead-1", domain.RoleLeadAuditor)
	e := newEnv(admin, lead)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)
	require.NoError(t, e.svc.AssignTeam(ctx, "admin-1", audit.ID, "lead-1", nil))

	finding, err := e.svc.CreateFinding(ctx, "lead-1", domain.CreateFindingInput{
		AuditID:     audit.ID,
		Description: "No process control records",
		Severity:    domain.SeverityMajor,
	})
	require.NoError(t, err)

	require.NoError(t, e.svc.UpdateAuditStatus(ctx, "lead-1", audit.ID, domain.AuditReviewing))

	issue := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	expiry := issue.AddDate(3, 0, 0)
	err = e.svc.IssueCertificate(ctx, "lead-1", audit.ID, "CERT-001", issue, expiry, "")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	// After the major finding is closed, certification goes through.
	require.NoError(t, e.svc.UpdateFindingStatus(ctx, "lead-1", finding.ID, domain.FindingClosed))
	require.NoError(t, e.svc.IssueCertificate(ctx, "lead-1", audit.ID, "CERT-001", issue, expiry, ""))

	got, err := e.audits.GetAudit(ctx, audit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditCertified, got.Status)
	require.NotNil(t, got.CertificateNumber)
	assert.Equal(t, "CERT-001", *got.CertificateNumber)
}

func TestMinorFindingsDoNotBlockCertification(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	lead := principalWith("lead-1", domain.RoleLeadAuditor)
	e := newEnv(admin, lead)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)
	require.NoError(t, e.svc.AssignTeam(ctx, "admin-1", audit.ID, "lead-1", nil))

	_, err = e.svc.CreateFinding(ctx, "lead-1", domain.CreateFindingInput{
		AuditID:     audit.ID,
		Description: "Minor labeling issue",
		Severity:    domain.SeverityMinor,
	})
	require.NoError(t, err)
	require.NoError(t, e.svc.UpdateAuditStatus(ctx, "lead-1", audit.ID, domain.AuditReviewing))

	issue := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, e.svc.IssueCertificate(ctx, "lead-1", audit.ID, "CERT-002", issue, issue.AddDate(3, 0, 0), ""))
}

func TestUpdateAuditStatusRejectsCertifiedShortcut(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(admin)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)

	err = e.svc.UpdateAuditStatus(ctx, "admin-1", audit.ID, domain.AuditCertified)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestCompleteAuditWithoutCertificate(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(admin)
	ctx := context.Background()

	audit, err := e.svc.CreateAudit(ctx, "admin-1", domain.CreateAuditInput{Code: "AUD-1", ClientOrgID: "org-1"})
	require.NoError(t, err)
	require.NoError(t, e.svc.AssignTeam(ctx, "admin-1", audit.ID, "lead-1", nil))
	require.NoError(t, e.svc.UpdateAuditStatus(ctx, "admin-1", audit.ID, domain.AuditReviewing))

	require.NoError(t, e.svc.CompleteAudit(ctx, "admin-1", audit.ID))
	got, _ := e.audits.GetAudit(ctx, audit.ID)
	assert.Equal(t, domain.AuditCompleted, got.Status)
	assert.Nil(t, got.CertificateNumber)
}

func TestSaveChecklistResponseLastWriterWins(t *testing.T) {
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(admin)
	ctx := context.Background()

	newer := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	applied, err := e.svc.SaveChecklistResponse(ctx, "admin-1", domain.ChecklistItem{
		ID: "item-1", AuditID: "aud-1", Status: domain.ChecklistPass, UpdatedAt: newer,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	// A stale write loses and reports not applied.
	applied, err = e.svc.SaveChecklistResponse(ctx, "admin-1", domain.ChecklistItem{
		ID: "item-1", AuditID: "aud-1", Status: domain.ChecklistFail, UpdatedAt: older,
	})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestAdminReviewNotifiesOwner(t *testing.T) {
	client := principalWith("client-1", domain.RoleClient)
	admin := principalWith("admin-1", domain.RoleAdmin)
	e := newEnv(client, admin)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, "client-1", domain.CreateApplicationInput{ProductName: "Widget"})
	require.NoError(t, err)
	require.NoError(t, e.svc.SubmitApplication(ctx, "client-1", app.ID))
	require.NoError(t, e.svc.AdminReview(ctx, "admin-1", app.ID, domain.ApplicationApproved, ""))

	count, err := e.svc.UnreadNotifications(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
