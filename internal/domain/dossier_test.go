package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDossierChecklistShape(t *testing.T) {
	checklist := DossierChecklist()
	require.Len(t, checklist, 11)

	required := 0
	byCategory := map[DossierCategory]int{}
	for _, req := range checklist {
		if req.Required {
			required++
		}
		byCategory[req.Category]++
	}
	assert.Equal(t, 10, required, "only the representative appointment is optional")
	assert.Equal(t, 3, byCategory[DossierLegal])
	assert.Equal(t, 4, byCategory[DossierQuality])
	assert.Equal(t, 4, byCategory[DossierTechnical])
}

func TestDossierRequirementByCode(t *testing.T) {
	req, ok := DossierRequirementByCode("qm_manual")
	require.True(t, ok)
	assert.Equal(t, DossierQuality, req.Category)
	assert.True(t, req.Required)

	_, ok = DossierRequirementByCode("unknown_doc")
	assert.False(t, ok)
}

func TestMissingRequired(t *testing.T) {
	assert.Len(t, MissingRequired(nil), 10)

	items := []DossierItem{
		{DocumentType: "legal_license"},
		{DocumentType: "legal_tax"},
		{DocumentType: "legal_rep"}, // optional, does not count against required
	}
	missing := MissingRequired(items)
	assert.Len(t, missing, 8)
	for _, req := range missing {
		assert.NotEqual(t, DossierLegal, req.Category)
	}

	var all []DossierItem
	for _, req := range DossierChecklist() {
		all = append(all, DossierItem{DocumentType: req.Code})
	}
	assert.Empty(t, MissingRequired(all))
}
