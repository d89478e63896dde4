package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ApplicationStatus tracks an application through review. Transitions are
// one-directional except info_needed, which hands the application back to the
// client for another submission.
type ApplicationStatus string

const (
	ApplicationDraft            ApplicationStatus = "draft"
	ApplicationSubmitted        ApplicationStatus = "submitted"
	ApplicationInfoNeeded       ApplicationStatus = "info_needed"
	ApplicationDossierSubmitted ApplicationStatus = "dossier_submitted"
	ApplicationApproved         ApplicationStatus = "approved"
	ApplicationRejected         ApplicationStatus = "rejected"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationDraft:            {ApplicationSubmitted},
	ApplicationSubmitted:        {ApplicationApproved, ApplicationRejected, ApplicationInfoNeeded, ApplicationDossierSubmitted},
	ApplicationDossierSubmitted: {ApplicationApproved, ApplicationRejected, ApplicationInfoNeeded},
	ApplicationInfoNeeded:       {ApplicationSubmitted},
	// approved and rejected are terminal; once approved the audit owns the
	// lifecycle.
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationDraft, ApplicationSubmitted, ApplicationInfoNeeded,
		ApplicationDossierSubmitted, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// CanTransition reports whether the status may move to next.
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidDecision reports whether the status is one an admin review may set.
func ValidDecision(s ApplicationStatus) bool {
	return s == ApplicationApproved || s == ApplicationRejected || s == ApplicationInfoNeeded
}

var (
	// ErrEmptyProductName indicates a missing product name.
	ErrEmptyProductName = errors.New("product name is required")
	// ErrEmptyOwner indicates a missing owning principal.
	ErrEmptyOwner = errors.New("application owner is required")
	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Application is a client submission requesting a certification audit.
// Never deleted, only status-transitioned.
type Application struct {
	ID            string
	OwnerID       string
	ClientOrgID   *string
	ProductName   string
	Content       map[string]any
	Status        ApplicationStatus
	ReviewedBy    *string
	ReviewedAt    *time.Time
	ReviewNotes   *string
	RevisionCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateApplicationInput describes the metadata needed to open an application.
type CreateApplicationInput struct {
	OwnerID     string
	ClientOrgID *string
	ProductName string
	Content     map[string]any
}

// NewApplication creates a draft application with a generated id.
func NewApplication(input CreateApplicationInput, now func() time.Time, idGenerator func() string) (Application, error) {
	if now == nil {
		now = time.Now
	}
	input.ProductName = strings.TrimSpace(input.ProductName)
	if input.OwnerID == "" {
		return Application{}, ErrEmptyOwner
	}
	if input.ProductName == "" {
		return Application{}, ErrEmptyProductName
	}
	createdAt := now().UTC()
	return Application{
		ID:          idGenerator(),
		OwnerID:     input.OwnerID,
		ClientOrgID: input.ClientOrgID,
		ProductName: input.ProductName,
		Content:     input.Content,
		Status:      ApplicationDraft,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// TransitionError builds the detail for a rejected status change.
func TransitionError(from, to fmt.Stringer) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func (s ApplicationStatus) String() string { return string(s) }
