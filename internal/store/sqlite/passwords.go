package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lockboxapp/lockbox-server/internal/domain"
)

// passwordColumns must match the scan order in scanPassword.
const passwordColumns = `id, title, username, password, website, notes,
	is_favorite, category_id, sort_order, is_group_cover, created_at, updated_at`

func scanPassword(scanner interface{ Scan(dest ...any) error }) (domain.PasswordEntry, error) {
	var (
		p          domain.PasswordEntry
		favorite   int
		groupCover int
		categoryID sql.NullInt64
		createdAt  string
		updatedAt  string
	)
	err := scanner.Scan(&p.ID, &p.Title, &p.Username, &p.Password, &p.Website, &p.Notes,
		&favorite, &categoryID, &p.SortOrder, &groupCover, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}
	p.IsFavorite = favorite != 0
	p.IsGroupCover = groupCover != 0
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return p, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return p, fmt.Errorf("parse updated_at: %w", err)
	}
	return p, nil
}

// ListPasswords returns every password entry ordered by id.
func (s *Store) ListPasswords(ctx context.Context) ([]domain.PasswordEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+passwordColumns+` FROM passwords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list passwords: %w", err)
	}
	defer rows.Close()

	var out []domain.PasswordEntry
	for rows.Next() {
		p, err := scanPassword(rows)
		if err != nil {
			return nil, fmt.Errorf("scan password: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreatePassword inserts p and returns its new id. p.ID is ignored.
func (s *Store) CreatePassword(ctx context.Context, p *domain.PasswordEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO passwords (title, username, password, website, notes,
			is_favorite, category_id, sort_order, is_group_cover, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Username, p.Password, p.Website, p.Notes,
		boolInt(p.IsFavorite), nullableInt64(p.CategoryID), p.SortOrder, boolInt(p.IsGroupCover),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert password: %w", err)
	}
	return res.LastInsertId()
}

// PasswordExists reports whether an entry with the same title, username and
// website is stored.
func (s *Store) PasswordExists(ctx context.Context, title, username, website string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM passwords WHERE title = ? AND username = ? AND website = ? LIMIT 1`,
		title, username, website,
	).Scan(&one)
	return exists(err)
}

// exists turns the error of a SELECT 1 probe into a found flag.
func exists(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}
