package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

type auditRequest struct {
	Code        string     `json:"code"`
	ClientOrgID string     `json:"client_org_id"`
	Standards   []string   `json:"standards"`
	Scope       string     `json:"scope"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

func (req auditRequest) input() domain.CreateAuditInput {
	return domain.CreateAuditInput{
		Code:        req.Code,
		ClientOrgID: req.ClientOrgID,
		Standards:   req.Standards,
		Scope:       req.Scope,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
}

func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	audit, err := s.workflow.CreateAudit(r.Context(), callerID(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, audit)
}

func (s *Server) handleCreateAuditFromApplication(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	audit, err := s.workflow.CreateAuditFromApplication(r.Context(), callerID(r), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, audit)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := s.workflow.GetAudit(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, audit)
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query()["status"]
	if len(raw) == 0 {
		writeError(w, apperr.Validation("at least one status query parameter is required"))
		return
	}
	statuses := make([]domain.AuditStatus, len(raw))
	for i, v := range raw {
		statuses[i] = domain.AuditStatus(v)
	}
	audits, err := s.workflow.ListAuditsByStatus(r.Context(), callerID(r), statuses...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, audits)
}

func (s *Server) handleAssignTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadAuditorID string   `json:"lead_auditor_id"`
		AuditorIDs    []string `json:"auditor_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.workflow.AssignTeam(r.Context(), callerID(r), chi.URLParam(r, "id"), req.LeadAuditorID, req.AuditorIDs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTeam(w http.ResponseWriter, r *http.Request) {
	members, err := s.workflow.ListTeam(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, members)
}

func (s *Server) handleUpdateAuditStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.AuditStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.workflow.UpdateAuditStatus(r.Context(), callerID(r), chi.URLParam(r, "id"), req.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CertificateNumber string    `json:"certificate_number"`
		IssueDate         time.Time `json:"issue_date"`
		ExpiryDate        time.Time `json:"expiry_date"`
		Scope             string    `json:"scope"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := s.workflow.IssueCertificate(r.Context(), callerID(r), chi.URLParam(r, "id"),
		req.CertificateNumber, req.IssueDate, req.ExpiryDate, req.Scope)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteAudit(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.CompleteAudit(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateFinding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClauseRef   string          `json:"clause_ref"`
		Description string          `json:"description"`
		Severity    domain.Severity `json:"severity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	finding, err := s.workflow.CreateFinding(r.Context(), callerID(r), domain.CreateFindingInput{
		AuditID:     chi.URLParam(r, "id"),
		ClauseRef:   req.ClauseRef,
		Description: req.Description,
		Severity:    req.Severity,
		CreatedBy:   callerID(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, finding)
}

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	findings, err := s.workflow.ListFindings(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, findings)
}

func (s *Server) handleUpdateFindingStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.FindingStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.workflow.UpdateFindingStatus(r.Context(), callerID(r), chi.URLParam(r, "id"), req.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveChecklistResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Section     string                 `json:"section"`
		Requirement string                 `json:"requirement"`
		Status      domain.ChecklistStatus `json:"status"`
		Evidence    string                 `json:"evidence"`
		UpdatedAt   time.Time              `json:"updated_at"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	applied, err := s.workflow.SaveChecklistResponse(r.Context(), callerID(r), domain.ChecklistItem{
		ID:          chi.URLParam(r, "item"),
		AuditID:     chi.URLParam(r, "id"),
		Section:     req.Section,
		Requirement: req.Requirement,
		Status:      req.Status,
		Evidence:    req.Evidence,
		UpdatedAt:   req.UpdatedAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"applied": applied})
}

func (s *Server) handleListChecklist(w http.ResponseWriter, r *http.Request) {
	items, err := s.workflow.ListChecklist(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}
