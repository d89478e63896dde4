package httpadapter

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, principal, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"token":     token,
		"principal": principal,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, err := s.roles.Resolve(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, principal)
}

func (s *Server) handleSwitchRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role domain.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.roles.SwitchActiveRole(r.Context(), callerID(r), req.Role); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientOrgID *string        `json:"client_org_id"`
		ProductName string         `json:"product_name"`
		Content     map[string]any `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	app, err := s.workflow.CreateApplication(r.Context(), callerID(r), domain.CreateApplicationInput{
		OwnerID:     callerID(r),
		ClientOrgID: req.ClientOrgID,
		ProductName: req.ProductName,
		Content:     req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, app)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.workflow.GetApplication(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

func (s *Server) handleListMyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.workflow.ListMyApplications(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, apps)
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	apps, err := s.workflow.ListApplicationsForReview(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, apps)
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.SubmitApplication(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision domain.ApplicationStatus `json:"decision"`
		Notes    string                   `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.workflow.AdminReview(r.Context(), callerID(r), chi.URLParam(r, "id"), req.Decision, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReviewHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.workflow.ReviewHistory(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, events)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, apperr.Validationf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	notifications, err := s.workflow.Notifications(r.Context(), callerID(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, notifications)
}

func (s *Server) handleUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	count, err := s.workflow.UnreadNotifications(r.Context(), callerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"unread": count})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.MarkNotificationRead(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
