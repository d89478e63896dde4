package domain

// Role is the part a principal plays in the certification process. A
// principal may hold several roles but operates under exactly one at a time.
type Role string

const (
	RoleClient      Role = "client"
	RoleAuditor     Role = "auditor"
	RoleLeadAuditor Role = "lead_auditor"
	RoleAdmin       Role = "admin"
)

// rolePriority orders roles from most to least privileged; used to pick a
// default active role for multi-role principals.
var rolePriority = []Role{RoleAdmin, RoleLeadAuditor, RoleAuditor, RoleClient}

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAuditor, RoleLeadAuditor, RoleAdmin:
		return true
	}
	return false
}

// DefaultRole picks the active role for a principal with no stored override.
func DefaultRole(granted []Role) Role {
	for _, candidate := range rolePriority {
		for _, role := range granted {
			if role == candidate {
				return candidate
			}
		}
	}
	return RoleClient
}

// Capability names a permission checked by workflow operations. Checks go
// through capability sets instead of comparing role strings at call sites, so
// adding a role means editing this table once.
type Capability string

const (
	CapSubmitApplications Capability = "submit_applications"
	CapReviewApplications Capability = "review_applications"
	CapAssignTeams        Capability = "assign_teams"
	CapRecordFindings     Capability = "record_findings"
	CapApproveFindings    Capability = "approve_findings"
	CapIssueCertificates  Capability = "issue_certificates"
	CapManageDossiers     Capability = "manage_dossiers"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleClient: {
		CapSubmitApplications: true,
		CapManageDossiers:     true,
	},
	RoleAuditor: {
		CapRecordFindings: true,
	},
	RoleLeadAuditor: {
		CapRecordFindings:    true,
		CapApproveFindings:   true,
		CapIssueCertificates: true,
	},
	RoleAdmin: {
		CapReviewApplications: true,
		CapAssignTeams:        true,
		CapRecordFindings:     true,
		CapApproveFindings:    true,
		CapIssueCertificates:  true,
		CapManageDossiers:     true,
	},
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// Principal is an authenticated identity with its granted roles and the role
// it is currently operating as. ActiveRole is always a member of Granted.
type Principal struct {
	ID         string
	Email      string
	FullName   string
	Granted    []Role
	ActiveRole Role
}

// HasRole reports whether the role was granted to the principal.
func (p Principal) HasRole(r Role) bool {
	for _, role := range p.Granted {
		if role == r {
			return true
		}
	}
	return false
}
