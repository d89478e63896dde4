// Package httpadapter exposes the workflow over a JSON API.
package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"certflow/internal/ports"
	"certflow/internal/services/dossier"
	"certflow/internal/services/workflow"
)

type Server struct {
	auth     ports.Authenticator
	roles    ports.RoleResolver
	workflow *workflow.Service
	dossier  *dossier.Service
	log      *zap.Logger
}

func New(auth ports.Authenticator, roles ports.RoleResolver, wf *workflow.Service, ds *dossier.Service, log *zap.Logger) *Server {
	return &Server{auth: auth, roles: roles, workflow: wf, dossier: ds, log: log}
}

// Routes returns a chi.Router with the full API mounted under /v1.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Post("/v1/auth/signin", s.handleSignIn)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/v1/me", s.handleMe)
		r.Post("/v1/me/active-role", s.handleSwitchRole)

		r.Get("/v1/notifications", s.handleListNotifications)
		r.Get("/v1/notifications/unread", s.handleUnreadNotifications)
		r.Post("/v1/notifications/{id}/read", s.handleMarkNotificationRead)

		r.Post("/v1/applications", s.handleCreateApplication)
		r.Get("/v1/applications", s.handleListMyApplications)
		r.Get("/v1/applications/review-queue", s.handleReviewQueue)
		r.Get("/v1/applications/{id}", s.handleGetApplication)
		r.Post("/v1/applications/{id}/submit", s.handleSubmitApplication)
		r.Post("/v1/applications/{id}/review", s.handleAdminReview)
		r.Get("/v1/applications/{id}/history", s.handleReviewHistory)
		r.Post("/v1/applications/{id}/audit", s.handleCreateAuditFromApplication)

		r.Post("/v1/applications/{id}/dossier", s.handleUploadDossier)
		r.Get("/v1/applications/{id}/dossier", s.handleListDossier)
		r.Get("/v1/applications/{id}/dossier/missing", s.handleMissingDossier)
		r.Post("/v1/applications/{id}/dossier/submit", s.handleSubmitDossier)
		r.Delete("/v1/dossier/{id}", s.handleDeleteDossier)

		r.Post("/v1/audits", s.handleCreateAudit)
		r.Get("/v1/audits", s.handleListAudits)
		r.Get("/v1/audits/{id}", s.handleGetAudit)
		r.Post("/v1/audits/{id}/team", s.handleAssignTeam)
		r.Get("/v1/audits/{id}/team", s.handleListTeam)
		r.Post("/v1/audits/{id}/status", s.handleUpdateAuditStatus)
		r.Post("/v1/audits/{id}/certificate", s.handleIssueCertificate)
		r.Post("/v1/audits/{id}/complete", s.handleCompleteAudit)

		r.Post("/v1/audits/{id}/findings", s.handleCreateFinding)
		r.Get("/v1/audits/{id}/findings", s.handleListFindings)
		r.Post("/v1/findings/{id}/status", s.handleUpdateFindingStatus)

		r.Put("/v1/audits/{id}/checklist/{item}", s.handleSaveChecklistResponse)
		r.Get("/v1/audits/{id}/checklist", s.handleListChecklist)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
