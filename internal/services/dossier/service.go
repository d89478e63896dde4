// Package dossier manages the supporting documents a client submits for an
// application: uploads into the file store, their database records, and the
// required-document checklist.
package dossier

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

// Service handles dossier uploads and submission.
type Service struct {
	roles ports.RoleResolver
	apps  ports.ApplicationRepository
	repo  ports.DossierRepository
	files ports.FileStore
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

func New(roles ports.RoleResolver, apps ports.ApplicationRepository, repo ports.DossierRepository, files ports.FileStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		roles: roles,
		apps:  apps,
		repo:  repo,
		files: files,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Upload stores a dossier document and records it against the application.
// If the database insert fails the stored file is removed again so the two
// never drift apart.
func (s *Service) Upload(ctx context.Context, callerID, applicationID, documentType, fileName string, r io.Reader) (domain.DossierItem, error) {
	caller, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapManageDossiers)
	if err != nil {
		return domain.DossierItem{}, err
	}
	if applicationID == "" || fileName == "" {
		return domain.DossierItem{}, apperr.Validation("application id and file name are required")
	}
	if _, ok := domain.DossierRequirementByCode(documentType); !ok {
		return domain.DossierItem{}, apperr.Validationf("unknown document type %q", documentType)
	}
	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return domain.DossierItem{}, err
	}
	if app.OwnerID != caller.ID && caller.ActiveRole != domain.RoleAdmin {
		return domain.DossierItem{}, apperr.Forbidden(string(caller.ActiveRole), "upload to another principal's dossier")
	}

	now := s.now().UTC()
	storagePath := path.Join(applicationID, documentType,
		fmt.Sprintf("%d_%s", now.UnixMilli(), sanitizeFileName(fileName)))
	storedPath, err := s.files.Upload(ctx, storagePath, r)
	if err != nil {
		return domain.DossierItem{}, apperr.Remote("upload", err)
	}

	item := domain.DossierItem{
		ID:            s.newID(),
		ApplicationID: applicationID,
		DocumentType:  documentType,
		FileName:      fileName,
		FilePath:      storedPath,
		UploadedBy:    caller.ID,
		UploadedAt:    now,
	}
	if err := s.repo.InsertDossierItem(ctx, item); err != nil {
		// Compensate: the stored file must not outlive a failed record.
		if removeErr := s.files.Remove(ctx, []string{storedPath}); removeErr != nil {
			s.log.Error("orphaned dossier file left in store",
				zap.String("path", storedPath),
				zap.Error(removeErr))
		}
		return domain.DossierItem{}, apperr.Remote("insert", err)
	}
	s.log.Info("dossier item uploaded",
		zap.String("application_id", applicationID),
		zap.String("document_type", documentType))
	return item, nil
}

// Delete removes a dossier record and then its file. A failed file removal
// is logged but not surfaced; the record is already gone.
func (s *Service) Delete(ctx context.Context, callerID, itemID string) error {
	caller, err := s.roles.AuthorizeCap(ctx, callerID, domain.CapManageDossiers)
	if err != nil {
		return err
	}
	item, err := s.repo.GetDossierItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UploadedBy != caller.ID && caller.ActiveRole != domain.RoleAdmin {
		return apperr.Forbidden(string(caller.ActiveRole), "delete another principal's dossier item")
	}
	if err := s.repo.DeleteDossierItem(ctx, itemID); err != nil {
		return apperr.Remote("delete", err)
	}
	if err := s.files.Remove(ctx, []string{item.FilePath}); err != nil {
		s.log.Warn("dossier file removal failed",
			zap.String("path", item.FilePath),
			zap.Error(err))
	}
	return nil
}

// List returns the application's dossier items.
func (s *Service) List(ctx context.Context, callerID, applicationID string) ([]domain.DossierItem, error) {
	if _, err := s.roles.Resolve(ctx, callerID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListDossierItems(ctx, applicationID)
	if err != nil {
		return nil, apperr.Remote("list", err)
	}
	return items, nil
}

// Missing returns the required document types the application has not
// covered yet.
func (s *Service) Missing(ctx context.Context, callerID, applicationID string) ([]domain.DossierRequirement, error) {
	items, err := s.List(ctx, callerID, applicationID)
	if err != nil {
		return nil, err
	}
	return domain.MissingRequired(items), nil
}

func sanitizeFileName(name string) string {
	name = path.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
