package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/domain"
)

// ListGeneratorHistory returns the generator history, oldest first.
func (s *Store) ListGeneratorHistory(ctx context.Context) ([]domain.GeneratedPassword, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT password, kind, length, created_at FROM generated_passwords ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list generator history: %w", err)
	}
	defer rows.Close()

	var out []domain.GeneratedPassword
	for rows.Next() {
		var (
			g         domain.GeneratedPassword
			createdAt string
		)
		if err := rows.Scan(&g.Password, &g.Kind, &g.Length, &createdAt); err != nil {
			return nil, fmt.Errorf("scan generated password: %w", err)
		}
		if g.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddGeneratorHistory appends g to the history.
func (s *Store) AddGeneratorHistory(ctx context.Context, g *domain.GeneratedPassword) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_passwords (password, kind, length, created_at) VALUES (?, ?, ?, ?)`,
		g.Password, g.Kind, g.Length, formatTime(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert generated password: %w", err)
	}
	return nil
}

// HistoryExists reports whether password was recorded at createdAt,
// compared at millisecond precision.
func (s *Store) HistoryExists(ctx context.Context, password string, createdAt time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM generated_passwords WHERE password = ? AND created_at = ? LIMIT 1`,
		password, formatTime(createdAt),
	).Scan(&one)
	return exists(err)
}
