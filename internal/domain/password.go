// Package domain contains the live record types the lockbox store holds and
// the backup engine snapshots.
package domain

import "time"

// PasswordEntry is one saved credential.
type PasswordEntry struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	Website      string    `json:"website"`
	Notes        string    `json:"notes"`
	IsFavorite   bool      `json:"is_favorite"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	SortOrder    int       `json:"sort_order"`
	IsGroupCover bool      `json:"is_group_cover"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName is the label legacy exports and reports use for a credential:
// the title, else the website, else the username.
func (p *PasswordEntry) DisplayName() string {
	switch {
	case p.Title != "":
		return p.Title
	case p.Website != "":
		return p.Website
	default:
		return p.Username
	}
}
