package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

func (db *DB) InsertDossierItem(ctx context.Context, item domain.DossierItem) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_dossier
			(id, application_id, document_type, file_name, file_path, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.ApplicationID, item.DocumentType, item.FileName, item.FilePath, item.UploadedBy, item.UploadedAt)
	if err != nil {
		return apperr.Remote("insert dossier item", err)
	}
	return nil
}

func (db *DB) GetDossierItem(ctx context.Context, id string) (domain.DossierItem, error) {
	var item domain.DossierItem
	err := db.Pool.QueryRow(ctx, `
		SELECT id, application_id, document_type, file_name, file_path, uploaded_by, uploaded_at
		FROM audit_dossier WHERE id = $1
	`, id).Scan(&item.ID, &item.ApplicationID, &item.DocumentType, &item.FileName, &item.FilePath, &item.UploadedBy, &item.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DossierItem{}, apperr.NotFound("dossier item", id)
	}
	if err != nil {
		return domain.DossierItem{}, apperr.Remote("get dossier item", err)
	}
	return item, nil
}

func (db *DB) DeleteDossierItem(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM audit_dossier WHERE id = $1`, id)
	if err != nil {
		return apperr.Remote("delete dossier item", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("dossier item", id)
	}
	return nil
}

func (db *DB) ListDossierItems(ctx context.Context, applicationID string) ([]domain.DossierItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, application_id, document_type, file_name, file_path, uploaded_by, uploaded_at
		FROM audit_dossier
		WHERE application_id = $1
		ORDER BY uploaded_at
	`, applicationID)
	if err != nil {
		return nil, apperr.Remote("list dossier items", err)
	}
	defer rows.Close()

	var items []domain.DossierItem
	for rows.Next() {
		var item domain.DossierItem
		if err := rows.Scan(&item.ID, &item.ApplicationID, &item.DocumentType, &item.FileName, &item.FilePath, &item.UploadedBy, &item.UploadedAt); err != nil {
			return nil, apperr.Remote("scan dossier item", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
