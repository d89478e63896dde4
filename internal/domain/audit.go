package domain

import (
	"errors"
	"strings"
	"time"
)

// AuditStatus tracks an engagement from planning to its terminal state.
// certified and completed are both terminal; completed is the no-certificate
// exit from reviewing.
type AuditStatus string

const (
	AuditPlanned   AuditStatus = "planned"
	AuditOngoing   AuditStatus = "ongoing"
	AuditReviewing AuditStatus = "reviewing"
	AuditCertified AuditStatus = "certified"
	AuditCompleted AuditStatus = "completed"
)

var auditTransitions = map[AuditStatus][]AuditStatus{
	AuditPlanned:   {AuditOngoing},
	AuditOngoing:   {AuditReviewing},
	AuditReviewing: {AuditCertified, AuditCompleted},
}

func (s AuditStatus) Valid() bool {
	switch s {
	case AuditPlanned, AuditOngoing, AuditReviewing, AuditCertified, AuditCompleted:
		return true
	}
	return false
}

// CanTransition reports whether the status may move to next.
func (s AuditStatus) CanTransition(next AuditStatus) bool {
	for _, allowed := range auditTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AuditStatus) String() string { return string(s) }

var (
	// ErrEmptyAuditCode indicates a missing audit code.
	ErrEmptyAuditCode = errors.New("audit code is required")
	// ErrEmptyClientOrg indicates a missing client organization.
	ErrEmptyClientOrg = errors.New("client organization is required")
	// ErrApplicationNotApproved indicates an audit was requested for an
	// application that has not been approved.
	ErrApplicationNotApproved = errors.New("application is not approved")
)

// Audit is the executable certification engagement. ApplicationID is nil for
// the administrative direct-create path.
type Audit struct {
	ID                string
	Code              string
	ApplicationID     *string
	ClientOrgID       string
	LeadAuditorID     *string
	Status            AuditStatus
	Standards         []string
	Scope             string
	StartDate         *time.Time
	EndDate           *time.Time
	CertificateNumber *string
	IssueDate         *time.Time
	ExpiryDate        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AuditMember is one (audit, principal, role-in-audit) assignment. The member
// set is replaced wholesale on reassignment, never diffed.
type AuditMember struct {
	AuditID     string
	PrincipalID string
	Role        Role
	AssignedAt  time.Time
}

// CreateAuditInput describes the metadata needed to open an audit directly.
type CreateAuditInput struct {
	Code        string
	ClientOrgID string
	Standards   []string
	Scope       string
	StartDate   *time.Time
	EndDate     *time.Time
}

// NewAudit creates a planned audit with no application link.
func NewAudit(input CreateAuditInput, now func() time.Time, idGenerator func() string) (Audit, error) {
	if now == nil {
		now = time.Now
	}
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return Audit{}, ErrEmptyAuditCode
	}
	if input.ClientOrgID == "" {
		return Audit{}, ErrEmptyClientOrg
	}
	createdAt := now().UTC()
	return Audit{
		ID:          idGenerator(),
		Code:        input.Code,
		ClientOrgID: input.ClientOrgID,
		Status:      AuditPlanned,
		Standards:   input.Standards,
		Scope:       input.Scope,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NewAuditFromApplication derives a planned audit from an approved
// application. Scope falls back to the application's product name.
func NewAuditFromApplication(app Application, input CreateAuditInput, now func() time.Time, idGenerator func() string) (Audit, error) {
	if app.Status != ApplicationApproved {
		return Audit{}, ErrApplicationNotApproved
	}
	if input.ClientOrgID == "" && app.ClientOrgID != nil {
		input.ClientOrgID = *app.ClientOrgID
	}
	if input.ClientOrgID == "" {
		input.ClientOrgID = app.OwnerID
	}
	if input.Scope == "" {
		input.Scope = app.ProductName
	}
	audit, err := NewAudit(input, now, idGenerator)
	if err != nil {
		return Audit{}, err
	}
	appID := app.ID
	audit.ApplicationID = &appID
	return audit, nil
}

// CertificationBlocked reports whether outstanding findings forbid issuing a
// certificate: every major finding must be closed or approved first. Minor
// findings and observations do not block.
func CertificationBlocked(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity != SeverityMajor {
			continue
		}
		if f.Status != FindingClosed && f.Status != FindingApproved {
			return true
		}
	}
	return false
}
