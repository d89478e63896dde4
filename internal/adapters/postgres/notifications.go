package postgres

import (
	"context"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

func (db *DB) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO notifications (id, principal_id, title, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.PrincipalID, n.Title, n.Body, n.Read, n.CreatedAt)
	if err != nil {
		return apperr.Remote("insert notification", err)
	}
	return nil
}

func (db *DB) UnreadCount(ctx context.Context, principalID string) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE principal_id = $1 AND NOT read
	`, principalID).Scan(&count)
	if err != nil {
		return 0, apperr.Remote("count notifications", err)
	}
	return count, nil
}

func (db *DB) MarkNotificationRead(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return apperr.Remote("mark notification", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification", id)
	}
	return nil
}

func (db *DB) ListNotifications(ctx context.Context, principalID string, limit int) ([]domain.Notification, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, principal_id, title, body, read, created_at
		FROM notifications
		WHERE principal_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, principalID, limit)
	if err != nil {
		return nil, apperr.Remote("list notifications", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.PrincipalID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, apperr.Remote("scan notification", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
