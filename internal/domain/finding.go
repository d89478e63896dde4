package domain

import (
	"errors"
	"strings"
	"time"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityMajor       Severity = "major"
	SeverityMinor       Severity = "minor"
	SeverityObservation Severity = "observation"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityMajor, SeverityMinor, SeverityObservation:
		return true
	}
	return false
}

// FindingStatus tracks a finding from capture to disposition.
type FindingStatus string

const (
	FindingOpen     FindingStatus = "open"
	FindingClosed   FindingStatus = "closed"
	FindingApproved FindingStatus = "approved"
	FindingRejected FindingStatus = "rejected"
)

func (s FindingStatus) Valid() bool {
	switch s {
	case FindingOpen, FindingClosed, FindingApproved, FindingRejected:
		return true
	}
	return false
}

// RequiresApprovalAuthority reports whether setting the status is a
// disposition decision reserved for lead-auditor or admin authority.
func (s FindingStatus) RequiresApprovalAuthority() bool {
	return s == FindingApproved || s == FindingRejected
}

var (
	// ErrEmptyAuditRef indicates a finding with no audit.
	ErrEmptyAuditRef = errors.New("audit reference is required")
	// ErrEmptyDescription indicates a finding with no description.
	ErrEmptyDescription = errors.New("finding description is required")
	// ErrInvalidSeverity indicates an unknown severity value.
	ErrInvalidSeverity = errors.New("invalid finding severity")
)

// Finding is a non-conformity or observation recorded during an audit.
type Finding struct {
	ID          string
	AuditID     string
	ClauseRef   string
	Description string
	Severity    Severity
	Status      FindingStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateFindingInput describes the metadata needed to record a finding.
type CreateFindingInput struct {
	AuditID     string
	ClauseRef   string
	Description string
	Severity    Severity
	CreatedBy   string
}

// NewFinding records an open finding with a generated id.
func NewFinding(input CreateFindingInput, now func() time.Time, idGenerator func() string) (Finding, error) {
	if now == nil {
		now = time.Now
	}
	input.Description = strings.TrimSpace(input.Description)
	if input.AuditID == "" {
		return Finding{}, ErrEmptyAuditRef
	}
	if input.Description == "" {
		return Finding{}, ErrEmptyDescription
	}
	if !input.Severity.Valid() {
		return Finding{}, ErrInvalidSeverity
	}
	createdAt := now().UTC()
	return Finding{
		ID:          idGenerator(),
		AuditID:     input.AuditID,
		ClauseRef:   strings.TrimSpace(input.ClauseRef),
		Description: input.Description,
		Severity:    input.Severity,
		Status:      FindingOpen,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}
