package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

func (db *DB) GetProfile(ctx context.Context, id string) (ports.Profile, bool, error) {
	return db.getProfile(ctx, `WHERE id = $1`, id)
}

func (db *DB) GetProfileByEmail(ctx context.Context, email string) (ports.Profile, bool, error) {
	return db.getProfile(ctx, `WHERE email = $1`, strings.ToLower(email))
}

func (db *DB) getProfile(ctx context.Context, where string, arg any) (ports.Profile, bool, error) {
	var (
		profile    ports.Profile
		roles      []string
		activeRole *string
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT id, email, full_name, password_hash, roles, active_role
		FROM profiles `+where, arg,
	).Scan(&profile.Principal.ID, &profile.Principal.Email, &profile.Principal.FullName,
		&profile.PasswordHash, &roles, &activeRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.Profile{}, false, nil
	}
	if err != nil {
		return ports.Profile{}, false, err
	}
	for _, r := range roles {
		profile.Principal.Granted = append(profile.Principal.Granted, domain.Role(r))
	}
	if activeRole != nil {
		profile.Principal.ActiveRole = domain.Role(*activeRole)
	}
	return profile, true, nil
}

func (db *DB) SetActiveRole(ctx context.Context, id string, role domain.Role) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE profiles SET active_role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("profile", id)
	}
	return nil
}

func (db *DB) ListProfilesByRoles(ctx context.Context, roles ...domain.Role) ([]domain.Principal, error) {
	values := make([]string, len(roles))
	for i, r := range roles {
		values[i] = string(r)
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, email, full_name, roles, active_role
		FROM profiles
		WHERE roles && $1
		ORDER BY full_name
	`, values)
	if err != nil {
		return nil, apperr.Remote("list profiles", err)
	}
	defer rows.Close()

	var out []domain.Principal
	for rows.Next() {
		var (
			p          domain.Principal
			granted    []string
			activeRole *string
		)
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &granted, &activeRole); err != nil {
			return nil, apperr.Remote("scan profile", err)
		}
		for _, r := range granted {
			p.Granted = append(p.Granted, domain.Role(r))
		}
		if activeRole != nil {
			p.ActiveRole = domain.Role(*activeRole)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
