// Package codec converts live records to and from the per-item JSON files
// stored under passwords/ and notes/ in a backup archive.
//
// The schemas are additive only: unknown keys are ignored on decode, and
// decoding always resets the record id so the live store assigns a new one.
package codec

import (
	"fmt"
	"time"

	"encoding/json/jsontext"
	"encoding/json/v2"

	"github.com/lockboxapp/lockbox-server/internal/domain"
)

// Category tags used in file names and failure reports.
const (
	CategoryPassword = "password"
	CategoryNote     = "note"
)

// now is swapped by tests that need deterministic defaults.
var now = time.Now

// PasswordRecord is the on-disk shape of one credential.
type PasswordRecord struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Website      string `json:"website"`
	Notes        string `json:"notes"`
	IsFavorite   bool   `json:"isFavorite"`
	CategoryID   *int64 `json:"categoryId,omitzero"`
	SortOrder    int    `json:"sortOrder,omitzero"`
	IsGroupCover bool   `json:"isGroupCover,omitzero"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// NoteRecord is the on-disk shape of one note. ImagePaths holds a JSON array
// of image file names, kept as a string for compatibility with older archives.
type NoteRecord struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Notes      string `json:"notes"`
	ItemData   string `json:"itemData"`
	IsFavorite bool   `json:"isFavorite"`
	ImagePaths string `json:"imagePaths"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// FileName returns the archive file name for a record:
// <category>_<id>_<createdAtMillis>.json. Re-exporting the same record yields
// the same name.
func FileName(category string, id int64, createdAt time.Time) string {
	return fmt.Sprintf("%s_%d_%d.json", category, id, createdAt.UnixMilli())
}

// EncodePassword serializes one credential.
func EncodePassword(p *domain.PasswordEntry) ([]byte, error) {
	rec := PasswordRecord{
		ID:           p.ID,
		Title:        p.Title,
		Username:     p.Username,
		Password:     p.Password,
		Website:      p.Website,
		Notes:        p.Notes,
		IsFavorite:   p.IsFavorite,
		CategoryID:   p.CategoryID,
		SortOrder:    p.SortOrder,
		IsGroupCover: p.IsGroupCover,
		CreatedAt:    p.CreatedAt.UnixMilli(),
		UpdatedAt:    p.UpdatedAt.UnixMilli(),
	}
	data, err := json.Marshal(rec, jsontext.WithIndent("  "))
	if err != nil {
		return nil, fmt.Errorf("encode password %d: %w", p.ID, err)
	}
	return data, nil
}

// DecodePassword parses one credential file. The returned entry has ID 0.
func DecodePassword(data []byte) (domain.PasswordEntry, error) {
	var rec PasswordRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.PasswordEntry{}, fmt.Errorf("decode password record: %w", err)
	}
	created, updated := timestamps(rec.CreatedAt, rec.UpdatedAt)
	return domain.PasswordEntry{
		Title:        rec.Title,
		Username:     rec.Username,
		Password:     rec.Password,
		Website:      rec.Website,
		Notes:        rec.Notes,
		IsFavorite:   rec.IsFavorite,
		CategoryID:   rec.CategoryID,
		SortOrder:    rec.SortOrder,
		IsGroupCover: rec.IsGroupCover,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}

// EncodeNote serializes one note item.
func EncodeNote(item *domain.SecureItem) ([]byte, error) {
	images, err := EncodeImagePaths(item.ImagePaths)
	if err != nil {
		return nil, fmt.Errorf("encode note %d: %w", item.ID, err)
	}
	rec := NoteRecord{
		ID:         item.ID,
		Title:      item.Title,
		Notes:      item.Notes,
		ItemData:   item.ItemData,
		IsFavorite: item.IsFavorite,
		ImagePaths: images,
		CreatedAt:  item.CreatedAt.UnixMilli(),
		UpdatedAt:  item.UpdatedAt.UnixMilli(),
	}
	data, err := json.Marshal(rec, jsontext.WithIndent("  "))
	if err != nil {
		return nil, fmt.Errorf("encode note %d: %w", item.ID, err)
	}
	return data, nil
}

// DecodeNote parses one note file. The returned item has ID 0 and type NOTE.
func DecodeNote(data []byte) (domain.SecureItem, error) {
	var rec NoteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.SecureItem{}, fmt.Errorf("decode note record: %w", err)
	}
	images, err := DecodeImagePaths(rec.ImagePaths)
	if err != nil {
		return domain.SecureItem{}, fmt.Errorf("decode note record: %w", err)
	}
	created, updated := timestamps(rec.CreatedAt, rec.UpdatedAt)
	return domain.SecureItem{
		ItemType:   domain.ItemTypeNote,
		Title:      rec.Title,
		ItemData:   rec.ItemData,
		Notes:      rec.Notes,
		IsFavorite: rec.IsFavorite,
		ImagePaths: images,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

// EncodeImagePaths renders image names as the JSON array string stored in
// note records and secure-item CSV rows. No images encode as "".
func EncodeImagePaths(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return "", fmt.Errorf("encode image paths: %w", err)
	}
	return string(data), nil
}

// DecodeImagePaths is the inverse of EncodeImagePaths.
func DecodeImagePaths(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(s), &paths); err != nil {
		return nil, fmt.Errorf("decode image paths: %w", err)
	}
	return paths, nil
}

// timestamps applies the decode defaults: a missing creation time is now,
// a missing update time is the creation time.
func timestamps(createdMs, updatedMs int64) (time.Time, time.Time) {
	created := now()
	if createdMs > 0 {
		created = time.UnixMilli(createdMs)
	}
	updated := created
	if updatedMs > 0 {
		updated = time.UnixMilli(updatedMs)
	}
	return created, updated
}
