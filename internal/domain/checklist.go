package domain

import "time"

// ChecklistStatus is the auditor's conclusion for one checklist requirement.
type ChecklistStatus string

const (
	ChecklistPending     ChecklistStatus = "pending"
	ChecklistPass        ChecklistStatus = "pass"
	ChecklistFail        ChecklistStatus = "fail"
	ChecklistObservation ChecklistStatus = "observation"
	ChecklistNA          ChecklistStatus = "na"
)

func (s ChecklistStatus) Valid() bool {
	switch s {
	case ChecklistPending, ChecklistPass, ChecklistFail, ChecklistObservation, ChecklistNA:
		return true
	}
	return false
}

// ChecklistItem is one checklist response for an audit. On a field device it
// is the locally cached copy of server truth; Dirty marks unsynced local
// mutation and clears only on a confirmed server write.
type ChecklistItem struct {
	ID          string
	AuditID     string
	Section     string
	Requirement string
	Status      ChecklistStatus
	Evidence    string
	RecordedBy  string
	Dirty       bool
	UpdatedAt   time.Time
}
