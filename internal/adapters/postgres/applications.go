package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

const applicationColumns = `
	id, owner_id, client_org_id, product_name, content, status,
	reviewed_by, reviewed_at, review_notes, revision_count, created_at, updated_at`

func (db *DB) CreateApplication(ctx context.Context, app domain.Application) error {
	content, err := json.Marshal(app.Content)
	if err != nil {
		return apperr.Remote("encode content", err)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO audit_applications
			(id, owner_id, client_org_id, product_name, content, status, revision_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, app.ID, app.OwnerID, app.ClientOrgID, app.ProductName, content, app.Status, app.RevisionCount, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return apperr.Remote("insert application", err)
	}
	return nil
}

func (db *DB) GetApplication(ctx context.Context, id string) (domain.Application, error) {
	row := db.Pool.QueryRow(ctx, `SELECT`+applicationColumns+` FROM audit_applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Application{}, apperr.NotFound("application", id)
	}
	if err != nil {
		return domain.Application{}, apperr.Remote("get application", err)
	}
	return app, nil
}

func (db *DB) ListApplicationsByStatus(ctx context.Context, statuses ...domain.ApplicationStatus) ([]domain.Application, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT`+applicationColumns+`
		FROM audit_applications
		WHERE status = ANY($1)
		ORDER BY created_at
	`, values)
	if err != nil {
		return nil, apperr.Remote("list applications", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (db *DB) ListApplicationsByOwner(ctx context.Context, ownerID string) ([]domain.Application, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT`+applicationColumns+`
		FROM audit_applications
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, apperr.Remote("list applications", err)
	}
	defer rows.Close()
	return collectApplications(rows)
}

// UpdateApplicationReview applies the status change and appends the review
// event in one transaction so the trail can never disagree with the status.
func (db *DB) UpdateApplicationReview(ctx context.Context, update ports.ReviewUpdate) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Remote("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE audit_applications
		SET status = $2,
		    reviewed_by = $3,
		    reviewed_at = $4,
		    review_notes = $5,
		    revision_count = COALESCE($6, revision_count),
		    updated_at = $4
		WHERE id = $1
	`, update.ApplicationID, update.Status, update.ReviewedBy, update.ReviewedAt, update.Notes, update.RevisionCount)
	if err != nil {
		return apperr.Remote("update status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("application", update.ApplicationID)
	}

	event := update.Event
	if _, err = tx.Exec(ctx, `
		INSERT INTO application_review_history
			(id, application_id, action, performed_by, notes, previous_status, new_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.ID, event.ApplicationID, event.Action, event.PerformedBy, event.Notes, event.PreviousStatus, event.NewStatus, event.CreatedAt); err != nil {
		return apperr.Remote("append history", err)
	}
	return nil
}

func (db *DB) UpdateApplicationStatus(ctx context.Context, id string, status domain.ApplicationStatus, updatedAt time.Time) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE audit_applications SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, updatedAt)
	if err != nil {
		return apperr.Remote("update status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("application", id)
	}
	return nil
}

func (db *DB) ReviewHistory(ctx context.Context, applicationID string) ([]domain.ReviewEvent, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, application_id, action, performed_by, notes, previous_status, new_status, created_at
		FROM application_review_history
		WHERE application_id = $1
		ORDER BY created_at DESC
	`, applicationID)
	if err != nil {
		return nil, apperr.Remote("list history", err)
	}
	defer rows.Close()

	var events []domain.ReviewEvent
	for rows.Next() {
		var e domain.ReviewEvent
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.Action, &e.PerformedBy, &e.Notes, &e.PreviousStatus, &e.NewStatus, &e.CreatedAt); err != nil {
			return nil, apperr.Remote("scan history", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (domain.Application, error) {
	var app domain.Application
	var content []byte
	err := row.Scan(&app.ID, &app.OwnerID, &app.ClientOrgID, &app.ProductName, &content, &app.Status,
		&app.ReviewedBy, &app.ReviewedAt, &app.ReviewNotes, &app.RevisionCount, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return domain.Application{}, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &app.Content); err != nil {
			return domain.Application{}, err
		}
	}
	return app, nil
}

func collectApplications(rows pgx.Rows) ([]domain.Application, error) {
	var apps []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperr.Remote("scan application", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}
