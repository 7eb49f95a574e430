package sqlite

import (
	"context"
	"encoding/json/v2"
	"fmt"

	"github.com/lockboxapp/lockbox-server/internal/domain"
)

const secureItemColumns = `id, item_type, title, item_data, notes, is_favorite,
	image_paths, created_at, updated_at`

func scanSecureItem(scanner interface{ Scan(dest ...any) error }) (domain.SecureItem, error) {
	var (
		item      domain.SecureItem
		itemType  string
		favorite  int
		images    string
		createdAt string
		updatedAt string
	)
	err := scanner.Scan(&item.ID, &itemType, &item.Title, &item.ItemData, &item.Notes,
		&favorite, &images, &createdAt, &updatedAt)
	if err != nil {
		return item, err
	}
	item.ItemType = domain.ItemType(itemType)
	item.IsFavorite = favorite != 0
	if images != "" && images != "[]" {
		if err := json.Unmarshal([]byte(images), &item.ImagePaths); err != nil {
			return item, fmt.Errorf("parse image_paths: %w", err)
		}
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return item, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return item, fmt.Errorf("parse updated_at: %w", err)
	}
	return item, nil
}

// ListSecureItems returns every secure item ordered by id.
func (s *Store) ListSecureItems(ctx context.Context) ([]domain.SecureItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+secureItemColumns+` FROM secure_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list secure items: %w", err)
	}
	defer rows.Close()

	var out []domain.SecureItem
	for rows.Next() {
		item, err := scanSecureItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan secure item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// CreateSecureItem inserts item and returns its new id.
func (s *Store) CreateSecureItem(ctx context.Context, item *domain.SecureItem) (int64, error) {
	paths := item.ImagePaths
	if paths == nil {
		paths = []string{}
	}
	images, err := json.Marshal(paths)
	if err != nil {
		return 0, fmt.Errorf("marshal image_paths: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO secure_items (item_type, title, item_data, notes, is_favorite,
			image_paths, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(item.ItemType), item.Title, item.ItemData, item.Notes, boolInt(item.IsFavorite),
		string(images), formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert secure item: %w", err)
	}
	return res.LastInsertId()
}

// SecureItemExists reports whether an item of itemType with title is stored.
func (s *Store) SecureItemExists(ctx context.Context, itemType domain.ItemType, title string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM secure_items WHERE item_type = ? AND title = ? LIMIT 1`,
		string(itemType), title,
	).Scan(&one)
	return exists(err)
}
