package workflow

import (
	"context"
	"fmt"
	"time"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

// fakeRoles resolves principals from a fixed map with the same authorization
// semantics as the real resolver.
type fakeRoles struct {
	principals map[string]domain.Principal
}

func (f *fakeRoles) Resolve(_ context.Context, id string) (domain.Principal, error) {
	if id == "" {
		return domain.Principal{}, apperr.Unauthenticated("no principal")
	}
	p, ok := f.principals[id]
	if !ok {
		return domain.Principal{ID: id, Granted: []domain.Role{domain.RoleClient}, ActiveRole: domain.RoleClient}, nil
	}
	return p, nil
}

func (f *fakeRoles) Authorize(ctx context.Context, id string, allowed ...domain.Role) (domain.Principal, error) {
	p, err := f.Resolve(ctx, id)
	if err != nil {
		return domain.Principal{}, err
	}
	for _, role := range allowed {
		if p.ActiveRole == role {
			return p, nil
		}
	}
	return domain.Principal{}, apperr.Forbidden(string(p.ActiveRole), "perform this operation")
}

func (f *fakeRoles) AuthorizeCap(ctx context.Context, id string, cap domain.Capability) (domain.Principal, error) {
	p, err := f.Resolve(ctx, id)
	if err != nil {
		return domain.Principal{}, err
	}
	if !p.ActiveRole.Can(cap) {
		return domain.Principal{}, apperr.Forbidden(string(p.ActiveRole), string(cap))
	}
	return p, nil
}

func (f *fakeRoles) SwitchActiveRole(_ context.Context, _ string, _ domain.Role) error {
	return nil
}

type fakeApps struct {
	apps map[string]domain.Application
}

func (f *fakeApps) CreateApplication(_ context.Context, app domain.Application) error {
	f.apps[app.ID] = app
	return nil
}

func (f *fakeApps) GetApplication(_ context.Context, id string) (domain.Application, error) {
	app, ok := f.apps[id]
	if !ok {
		return domain.Application{}, apperr.NotFound("application", id)
	}
	return app, nil
}

func (f *fakeApps) ListApplicationsByStatus(_ context.Context, statuses ...domain.ApplicationStatus) ([]domain.Application, error) {
	var out []domain.Application
	for _, app := range f.apps {
		for _, s := range statuses {
			if app.Status == s {
				out = append(out, app)
			}
		}
	}
	return out, nil
}

func (f *fakeApps) ListApplicationsByOwner(_ context.Context, ownerID string) ([]domain.Application, error) {
	var out []domain.Application
	for _, app := range f.apps {
		if app.OwnerID == ownerID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeApps) UpdateApplicationReview(_ context.Context, update ports.ReviewUpdate) error {
	app, ok := f.apps[update.ApplicationID]
	if !ok {
		return apperr.NotFound("application", update.ApplicationID)
	}
	app.Status = update.Status
	app.ReviewedBy = &update.Event.PerformedBy
	at := update.ReviewedAt
	app.ReviewedAt = &at
	app.ReviewNotes = update.Notes
	if update.RevisionCount != nil {
		app.RevisionCount = *update.RevisionCount
	}
	app.UpdatedAt = update.ReviewedAt
	f.apps[update.ApplicationID] = app
	return nil
}

func (f *fakeApps) UpdateApplicationStatus(_ context.Context, id string, status domain.ApplicationStatus, updatedAt time.Time) error {
	app, ok := f.apps[id]
	if !ok {
		return apperr.NotFound("application", id)
	}
	app.Status = status
	app.UpdatedAt = updatedAt
	f.apps[id] = app
	return nil
}

func (f *fakeApps) ReviewHistory(_ context.Context, _ string) ([]domain.ReviewEvent, error) {
	return nil, nil
}

type fakeAudits struct {
	audits        map[string]domain.Audit
	members       map[string][]domain.AuditMember
	assignTeamErr error
}

func (f *fakeAudits) CreateAudit(_ context.Context, audit domain.Audit) error {
	f.audits[audit.ID] = audit
	return nil
}

func (f *fakeAudits) GetAudit(_ context.Context, id string) (domain.Audit, error) {
	audit, ok := f.audits[id]
	if !ok {
		return domain.Audit{}, apperr.NotFound("audit", id)
	}
	return audit, nil
}

func (f *fakeAudits) GetAuditByApplication(_ context.Context, applicationID string) (domain.Audit, bool, error) {
	for _, audit := range f.audits {
		if audit.ApplicationID != nil && *audit.ApplicationID == applicationID {
			return audit, true, nil
		}
	}
	return domain.Audit{}, false, nil
}

func (f *fakeAudits) UpdateAuditStatus(_ context.Context, id string, status domain.AuditStatus, updatedAt time.Time) error {
	audit, ok := f.audits[id]
	if !ok {
		return apperr.NotFound("audit", id)
	}
	audit.Status = status
	audit.UpdatedAt = updatedAt
	f.audits[id] = audit
	return nil
}

func (f *fakeAudits) AssignTeam(_ context.Context, auditID, leadAuditorID string, auditorIDs []string, at time.Time) error {
	if f.assignTeamErr != nil {
		return f.assignTeamErr
	}
	audit, ok := f.audits[auditID]
	if !ok {
		return apperr.NotFound("audit", auditID)
	}
	audit.LeadAuditorID = &leadAuditorID
	audit.Status = domain.AuditOngoing
	audit.UpdatedAt = at
	f.audits[auditID] = audit

	members := make([]domain.AuditMember, 0, len(auditorIDs))
	for _, id := range auditorIDs {
		members = append(members, domain.AuditMember{
			AuditID:     auditID,
			PrincipalID: id,
			Role:        domain.RoleAuditor,
			AssignedAt:  at,
		})
	}
	f.members[auditID] = members
	return nil
}

func (f *fakeAudits) SetCertificate(_ context.Context, update ports.CertificateUpdate) error {
	audit, ok := f.audits[update.AuditID]
	if !ok {
		return apperr.NotFound("audit", update.AuditID)
	}
	audit.Status = domain.AuditCertified
	audit.CertificateNumber = &update.CertificateNumber
	issue, expiry := update.IssueDate, update.ExpiryDate
	audit.IssueDate = &issue
	audit.ExpiryDate = &expiry
	audit.Scope = update.Scope
	audit.UpdatedAt = update.UpdatedAt
	f.audits[update.AuditID] = audit
	return nil
}

func (f *fakeAudits) ListAuditsByStatus(_ context.Context, statuses ...domain.AuditStatus) ([]domain.Audit, error) {
	var out []domain.Audit
	for _, audit := range f.audits {
		for _, s := range statuses {
			if audit.Status == s {
				out = append(out, audit)
			}
		}
	}
	return out, nil
}

func (f *fakeAudits) ListMembers(_ context.Context, auditID string) ([]domain.AuditMember, error) {
	return f.members[auditID], nil
}

type fakeFindings struct {
	findings map[string]domain.Finding
}

func (f *fakeFindings) CreateFinding(_ context.Context, finding domain.Finding) error {
	f.findings[finding.ID] = finding
	return nil
}

func (f *fakeFindings) GetFinding(_ context.Context, id string) (domain.Finding, error) {
	finding, ok := f.findings[id]
	if !ok {
		return domain.Finding{}, apperr.NotFound("finding", id)
	}
	return finding, nil
}

func (f *fakeFindings) UpdateFindingStatus(_ context.Context, id string, status domain.FindingStatus, updatedAt time.Time) error {
	finding, ok := f.findings[id]
	if !ok {
		return apperr.NotFound("finding", id)
	}
	finding.Status = status
	finding.UpdatedAt = updatedAt
	f.findings[id] = finding
	return nil
}

func (f *fakeFindings) ListFindingsByAudit(_ context.Context, auditID string) ([]domain.Finding, error) {
	var out []domain.Finding
	for _, finding := range f.findings {
		if finding.AuditID == auditID {
			out = append(out, finding)
		}
	}
	return out, nil
}

type fakeNotifications struct {
	inserted []domain.Notification
}

func (f *fakeNotifications) InsertNotification(_ context.Context, n domain.Notification) error {
	f.inserted = append(f.inserted, n)
	return nil
}

func (f *fakeNotifications) UnreadCount(_ context.Context, principalID string) (int, error) {
	count := 0
	for _, n := range f.inserted {
		if n.PrincipalID == principalID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) MarkNotificationRead(_ context.Context, id string) error {
	for i, n := range f.inserted {
		if n.ID == id {
			f.inserted[i].Read = true
			return nil
		}
	}
	return apperr.NotFound("notification", id)
}

func (f *fakeNotifications) ListNotifications(_ context.Context, principalID string, _ int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range f.inserted {
		if n.PrincipalID == principalID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeChecklist struct {
	items map[string]domain.ChecklistItem
}

func (f *fakeChecklist) UpsertChecklistResponse(_ context.Context, item domain.ChecklistItem) (bool, error) {
	existing, ok := f.items[item.ID]
	if ok && existing.UpdatedAt.After(item.UpdatedAt) {
		return false, nil
	}
	f.items[item.ID] = item
	return true, nil
}

func (f *fakeChecklist) ListChecklistByAudit(_ context.Context, auditID string) ([]domain.ChecklistItem, error) {
	var out []domain.ChecklistItem
	for _, item := range f.items {
		if item.AuditID == auditID {
			out = append(out, item)
		}
	}
	return out, nil
}

// env bundles a workflow service over fresh fakes.
type env struct {
	svc           *Service
	roles         *fakeRoles
	apps          *fakeApps
	audits        *fakeAudits
	findings      *fakeFindings
	notifications *fakeNotifications
	checklist     *fakeChecklist
}

func newEnv(principals ...domain.Principal) *env {
	roles := &fakeRoles{principals: make(map[string]domain.Principal)}
	for _, p := range principals {
		roles.principals[p.ID] = p
	}
	e := &env{
		roles:         roles,
		apps:          &fakeApps{apps: make(map[string]domain.Application)},
		audits:        &fakeAudits{audits: make(map[string]domain.Audit), members: make(map[string][]domain.AuditMember)},
		findings:      &fakeFindings{findings: make(map[string]domain.Finding)},
		notifications: &fakeNotifications{},
		checklist:     &fakeChecklist{items: make(map[string]domain.ChecklistItem)},
	}
	seq := 0
	e.svc = New(Deps{
		Roles:         e.roles,
		Applications:  e.apps,
		Audits:        e.audits,
		Findings:      e.findings,
		Notifications: e.notifications,
		Checklist:     e.checklist,
		Now:           func() time.Time { return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	return e
}

func principalWith(id string, role domain.Role) domain.Principal {
	return domain.Principal{ID: id, Granted: []domain.Role{role}, ActiveRole: role}
}
