package ports

import (
	"context"
	"io"
	"time"

	"certflow/internal/domain"
)

// ReviewUpdate carries the fields an admin decision writes in one
// transaction, together with the review-trail entry.
type ReviewUpdate struct {
	ApplicationID string
	Status        domain.ApplicationStatus
	ReviewedBy    string
	ReviewedAt    time.Time
	Notes         *string
	RevisionCount *int // set to bump the counter, nil to leave it
	Event         domain.ReviewEvent
}

// ApplicationRepository stores applications and their review trail.
type ApplicationRepository interface {
	CreateApplication(ctx context.Context, app domain.Application) error
	GetApplication(ctx context.Context, id string) (domain.Application, error)
	ListApplicationsByStatus(ctx context.Context, statuses ...domain.ApplicationStatus) ([]domain.Application, error)
	ListApplicationsByOwner(ctx context.Context, ownerID string) ([]domain.Application, error)
	// UpdateApplicationReview applies the status change and appends the
	// review event in a single transaction.
	UpdateApplicationReview(ctx context.Context, update ReviewUpdate) error
	UpdateApplicationStatus(ctx context.Context, id string, status domain.ApplicationStatus, updatedAt time.Time) error
	ReviewHistory(ctx context.Context, applicationID string) ([]domain.ReviewEvent, error)
}

// CertificateUpdate carries the fields set when a certificate is issued.
type CertificateUpdate struct {
	AuditID           string
	CertificateNumber string
	IssueDate         time.Time
	ExpiryDate        time.Time
	Scope             string
	UpdatedAt         time.Time
}

// AuditRepository stores audits and their team membership.
type AuditRepository interface {
	CreateAudit(ctx context.Context, audit domain.Audit) error
	GetAudit(ctx context.Context, id string) (domain.Audit, error)
	GetAuditByApplication(ctx context.Context, applicationID string) (domain.Audit, bool, error)
	UpdateAuditStatus(ctx context.Context, id string, status domain.AuditStatus, updatedAt time.Time) error
	// AssignTeam sets the lead auditor, forces the audit ongoing, and
	// replaces the member set, all in one transaction.
	AssignTeam(ctx context.Context, auditID, leadAuditorID string, auditorIDs []string, at time.Time) error
	SetCertificate(ctx context.Context, update CertificateUpdate) error
	ListAuditsByStatus(ctx context.Context, statuses ...domain.AuditStatus) ([]domain.Audit, error)
	ListMembers(ctx context.Context, auditID string) ([]domain.AuditMember, error)
}

// FindingRepository stores findings per audit.
type FindingRepository interface {
	CreateFinding(ctx context.Context, finding domain.Finding) error
	GetFinding(ctx context.Context, id string) (domain.Finding, error)
	UpdateFindingStatus(ctx context.Context, id string, status domain.FindingStatus, updatedAt time.Time) error
	ListFindingsByAudit(ctx context.Context, auditID string) ([]domain.Finding, error)
}

// DossierRepository stores dossier item records; the files themselves live in
// a FileStore.
type DossierRepository interface {
	InsertDossierItem(ctx context.Context, item domain.DossierItem) error
	GetDossierItem(ctx context.Context, id string) (domain.DossierItem, error)
	DeleteDossierItem(ctx context.Context, id string) error
	ListDossierItems(ctx context.Context, applicationID string) ([]domain.DossierItem, error)
}

// Profile is a stored principal plus its credential hash.
type Profile struct {
	Principal    domain.Principal
	PasswordHash string
}

// ProfileRepository stores principals, their granted roles and active role.
type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (Profile, bool, error)
	GetProfileByEmail(ctx context.Context, email string) (Profile, bool, error)
	SetActiveRole(ctx context.Context, id string, role domain.Role) error
	ListProfilesByRoles(ctx context.Context, roles ...domain.Role) ([]domain.Principal, error)
}

// NotificationRepository stores workflow notifications.
type NotificationRepository interface {
	InsertNotification(ctx context.Context, n domain.Notification) error
	UnreadCount(ctx context.Context, principalID string) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error
	ListNotifications(ctx context.Context, principalID string, limit int) ([]domain.Notification, error)
}

// ChecklistRepository is the server-side store of checklist responses.
// Upsert applies last-writer-wins on UpdatedAt and reports whether the write
// was applied (false when the server copy was newer).
type ChecklistRepository interface {
	UpsertChecklistResponse(ctx context.Context, item domain.ChecklistItem) (applied bool, err error)
	ListChecklistByAudit(ctx context.Context, auditID string) ([]domain.ChecklistItem, error)
}

// FileStore is the object store for dossier documents.
type FileStore interface {
	Upload(ctx context.Context, path string, r io.Reader) (storedPath string, err error)
	Remove(ctx context.Context, paths []string) error
}
