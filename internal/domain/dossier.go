package domain

import "time"

// DossierCategory groups dossier requirements.
type DossierCategory string

const (
	DossierLegal     DossierCategory = "legal"
	DossierQuality   DossierCategory = "quality"
	DossierTechnical DossierCategory = "technical"
)

// DossierRequirement is one entry of the fixed document checklist a client
// must satisfy for an application.
type DossierRequirement struct {
	Category DossierCategory
	Code     string
	Label    string
	Required bool
}

var dossierChecklist = []DossierRequirement{
	{DossierLegal, "legal_license", "Business license", true},
	{DossierLegal, "legal_tax", "Tax registration", true},
	{DossierLegal, "legal_rep", "Representative appointment decision", false},
	{DossierQuality, "qm_manual", "Quality manual", true},
	{DossierQuality, "qm_policy", "Quality policy and objectives", true},
	{DossierQuality, "qm_chart", "Organization chart", true},
	{DossierQuality, "qm_procedures", "List of procedures", true},
	{DossierTechnical, "tech_specs", "Product technical specifications", true},
	{DossierTechnical, "tech_drawings", "Technical drawings and diagrams", true},
	{DossierTechnical, "tech_test_reports", "Test reports", true},
	{DossierTechnical, "tech_process", "Production and QC process", true},
}

// DossierChecklist returns the fixed requirement taxonomy.
func DossierChecklist() []DossierRequirement {
	out := make([]DossierRequirement, len(dossierChecklist))
	copy(out, dossierChecklist)
	return out
}

// DossierRequirementByCode looks up one requirement.
func DossierRequirementByCode(code string) (DossierRequirement, bool) {
	for _, req := range dossierChecklist {
		if req.Code == code {
			return req, true
		}
	}
	return DossierRequirement{}, false
}

// DossierItem is one uploaded document tied to an application.
type DossierItem struct {
	ID            string
	ApplicationID string
	DocumentType  string
	FileName      string
	FilePath      string
	UploadedBy    string
	UploadedAt    time.Time
}

// MissingRequired lists the required document types not covered by items.
func MissingRequired(items []DossierItem) []DossierRequirement {
	covered := make(map[string]bool, len(items))
	for _, item := range items {
		covered[item.DocumentType] = true
	}
	var missing []DossierRequirement
	for _, req := range dossierChecklist {
		if req.Required && !covered[req.Code] {
			missing = append(missing, req)
		}
	}
	return missing
}
