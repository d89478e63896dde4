// Package workflow implements the certification lifecycle: application
// review, audit execution, findings, and certificates. Every operation
// authorizes the caller before touching the store.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

// Service is the workflow engine.
type Service struct {
	roles         ports.RoleResolver
	apps          ports.ApplicationRepository
	audits        ports.AuditRepository
	findings      ports.FindingRepository
	notifications ports.NotificationRepository
	checklist     ports.ChecklistRepository
	log           *zap.Logger
	now           func() time.Time
	newID         func() string
}

// Deps wires the repositories behind the workflow engine.
type Deps struct {
	Roles         ports.RoleResolver
	Applications  ports.ApplicationRepository
	Audits        ports.AuditRepository
	Findings      ports.FindingRepository
	Notifications ports.NotificationRepository
	Checklist     ports.ChecklistRepository
	Log           *zap.Logger
	Now           func() time.Time
	NewID         func() string
}

func New(deps Deps) *Service {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewString() }
	}
	return &Service{
		roles:         deps.Roles,
		apps:          deps.Applications,
		audits:        deps.Audits,
		findings:      deps.Findings,
		notifications: deps.Notifications,
		checklist:     deps.Checklist,
		log:           deps.Log,
		now:           deps.Now,
		newID:         deps.NewID,
	}
}

// CreateApplication opens a draft application for the calling client.
func (s *Service) CreateApplication(ctx context.Context, callerID string, input domain.CreateApplicationInput) (domain.Application, error) {
	caller, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapSubmitApplications)
	if err != nil {
		return domain.Application{}, err
	}
	input.OwnerID = caller.ID
	app, err := domain.NewApplication(input, s.now, s.newID)
	if err != nil {
		return domain.Application{}, apperr.Validation(err.Error())
	}
	if err := s.apps.CreateApplication(ctx, app); err != nil {
		return domain.Application{}, apperr.Remote("create application", err)
	}
	s.log.Info("application created",
		zap.String("application_id", app.ID),
		zap.String("owner_id", app.OwnerID))
	return app, nil
}

// SubmitApplication moves a draft or info_needed application to submitted.
// Resubmission after an info request bumps the revision counter and clears
// the reviewer notes.
func (s *Service) SubmitApplication(ctx context.Context, callerID, applicationID string) error {
	caller, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return err
	}
	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.OwnerID != caller.ID && caller.ActiveRole != domain.RoleAdmin {
		return apperr.Forbidden(string(caller.ActiveRole), "submit another principal's application")
	}
	if !app.Status.CanTransition(domain.ApplicationSubmitted) {
		return apperr.Conflict(domain.TransitionError(app.Status, domain.ApplicationSubmitted).Error())
	}

	now := s.now().UTC()
	action := "submitted"
	update := ports.ReviewUpdate{
		ApplicationID: app.ID,
		Status:        domain.ApplicationSubmitted,
		ReviewedBy:    caller.ID,
		ReviewedAt:    now,
		Notes:         nil, // clear any reviewer notes
		Event: domain.ReviewEvent{
			ID:             s.newID(),
			ApplicationID:  app.ID,
			PerformedBy:    caller.ID,
			PreviousStatus: app.Status,
			NewStatus:      domain.ApplicationSubmitted,
			CreatedAt:      now,
		},
	}
	if app.Status == domain.ApplicationInfoNeeded {
		action = "resubmitted"
		revision := app.RevisionCount + 1
		update.RevisionCount = &revision
	}
	update.Event.Action = action

	if err := s.apps.UpdateApplicationReview(ctx, update); err != nil {
		return wrapRemote("update application", err)
	}
	s.log.Info("application submitted",
		zap.String("application_id", app.ID),
		zap.String("action", action))
	return nil
}

// AdminReview records an admin decision on a submitted application. The
// downstream audit is a separate, explicit step; see
// CreateAuditFromApplication.
func (s *Service) AdminReview(ctx context.Context, callerID, applicationID string, decision domain.ApplicationStatus, notes string) error {
	caller, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapReviewApplications)
	if err != nil {
		return err
	}
	if !domain.ValidDecision(decision) {
		return apperr.Validationf("invalid decision %q", decision)
	}
	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if !app.Status.CanTransition(decision) {
		return apperr.Conflict(domain.TransitionError(app.Status, decision).Error())
	}

	now := s.now().UTC()
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}
	update := ports.ReviewUpdate{
		ApplicationID: app.ID,
		Status:        decision,
		ReviewedBy:    caller.ID,
		ReviewedAt:    now,
		Notes:         notesPtr,
		Event: domain.ReviewEvent{
			ID:             s.newID(),
			ApplicationID:  app.ID,
			Action:         string(decision),
			PerformedBy:    caller.ID,
			Notes:          notesPtr,
			PreviousStatus: app.Status,
			NewStatus:      decision,
			CreatedAt:      now,
		},
	}
	if err := s.apps.UpdateApplicationReview(ctx, update); err != nil {
		return wrapRemote("update application", err)
	}

	s.notify(ctx, app.OwnerID,
		fmt.Sprintf("Application %s", decision),
		fmt.Sprintf("Your application for %s is now %s.", app.ProductName, decision))
	s.log.Info("application reviewed",
		zap.String("application_id", app.ID),
		zap.String("decision", string(decision)),
		zap.String("reviewed_by", caller.ID))
	return nil
}

// SubmitDossier marks the application's dossier as submitted. Idempotent:
// submitting again while already dossier_submitted is a no-op success.
func (s *Service) SubmitDossier(ctx context.Context, callerID, applicationID string) error {
	caller, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return err
	}
	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.OwnerID != caller.ID && caller.ActiveRole != domain.RoleAdmin {
		return apperr.Forbidden(string(caller.ActiveRole), "submit another principal's dossier")
	}
	if app.Status == domain.ApplicationDossierSubmitted {
		return nil
	}
	if !app.Status.CanTransition(domain.ApplicationDossierSubmitted) {
		return apperr.Conflict(domain.TransitionError(app.Status, domain.ApplicationDossierSubmitted).Error())
	}
	if err := s.apps.UpdateApplicationStatus(ctx, app.ID, domain.ApplicationDossierSubmitted, s.now().UTC()); err != nil {
		return wrapRemote("update application", err)
	}
	return nil
}

// GetApplication returns one application, visible to its owner and to
// principals who may review applications.
func (s *Service) GetApplication(ctx context.Context, callerID, applicationID string) (domain.Application, error) {
	caller, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return domain.Application{}, err
	}
	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return domain.Application{}, err
	}
	if app.OwnerID != caller.ID && !caller.ActiveRole.Can(domain.CapReviewApplications) {
		return domain.Application{}, apperr.Forbidden(string(caller.ActiveRole), "view this application")
	}
	return app, nil
}

// ListApplicationsForReview returns applications awaiting an admin decision.
func (s *Service) ListApplicationsForReview(ctx context.Context, callerID string) ([]domain.Application, error) {
	if _, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapReviewApplications); err != nil {
		return nil, err
	}
	apps, err := s.apps.ListApplicationsByStatus(ctx, domain.ApplicationSubmitted, domain.ApplicationDossierSubmitted)
	if err != nil {
		return nil, apperr.Remote("list applications", err)
	}
	return apps, nil
}

// ListMyApplications returns the caller's own applications.
func (s *Service) ListMyApplications(ctx context.Context, callerID string) ([]domain.Application, error) {
	caller, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	apps, err := s.apps.ListApplicationsByOwner(ctx, caller.ID)
	if err != nil {
		return nil, apperr.Remote("list applications", err)
	}
	return apps, nil
}

// ReviewHistory returns the review trail for an application.
func (s *Service) ReviewHistory(ctx context.Context, callerID, applicationID string) ([]domain.ReviewEvent, error) {
	if _, err := s.GetApplication(ctx, callerID, applicationID); err != nil {
		return nil, err
	}
	events, err := s.apps.ReviewHistory(ctx, applicationID)
	if err != nil {
		return nil, apperr.Remote("list review history", err)
	}
	return events, nil
}

// UnreadNotifications returns the caller's unread notification count.
func (s *Service) UnreadNotifications(ctx context.Context, callerID string) (int, error) {
	caller, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return 0, err
	}
	count, err := s.notifications.UnreadCount(ctx, caller.ID)
	if err != nil {
		return 0, apperr.Remote("count notifications", err)
	}
	return count, nil
}

// Notifications returns the caller's most recent notifications.
func (s *Service) Notifications(ctx context.Context, callerID string, limit int) ([]domain.Notification, error) {
	caller, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	list, err := s.notifications.ListNotifications(ctx, caller.ID, limit)
	if err != nil {
		return nil, apperr.Remote("list notifications", err)
	}
	return list, nil
}

// MarkNotificationRead marks one notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, callerID, notificationID string) error {
	if _, err := s.roles.Resolve(ctx, callerID); err != nil {
		return err
	}
	if err := s.notifications.MarkNotificationRead(ctx, notificationID); err != nil {
		return wrapRemote("mark notification", err)
	}
	return nil
}

// notify inserts a notification best-effort; delivery failures are logged,
// never surfaced to the triggering operation.
func (s *Service) notify(ctx context.Context, principalID, title, body string) {
	n := domain.NewNotification(principalID, title, body, s.now, s.newID)
	if err := s.notifications.InsertNotification(ctx, n); err != nil {
		s.log.Warn("notification insert failed",
			zap.String("principal_id", principalID),
			zap.Error(err))
	}
}

// wrapRemote keeps taxonomy errors intact and wraps everything else.
func wrapRemote(step string, err error) error {
	if apperr.CodeOf(err) != apperr.CodeUnknown {
		return err
	}
	return apperr.Remote(step, err)
}
