package domain

import (
	"strings"
	"time"
)

// ItemType discriminates the kinds of secure item.
type ItemType string

// Secure item kinds. Values match the on-disk itemType column.
const (
	ItemTypeTOTP     ItemType = "TOTP"
	ItemTypeBankCard ItemType = "BANK_CARD"
	ItemTypeDocument ItemType = "DOCUMENT"
	ItemTypeNote     ItemType = "NOTE"
)

// ParseItemType maps a stored value back to an ItemType, case-insensitively.
func ParseItemType(s string) (ItemType, bool) {
	switch ItemType(strings.ToUpper(strings.TrimSpace(s))) {
	case ItemTypeTOTP:
		return ItemTypeTOTP, true
	case ItemTypeBankCard:
		return ItemTypeBankCard, true
	case ItemTypeDocument:
		return ItemTypeDocument, true
	case ItemTypeNote:
		return ItemTypeNote, true
	default:
		return "", false
	}
}

// SecureItem is a TOTP secret, bank card, document or note. ItemData is the
// type-specific payload, opaque to the backup engine.
type SecureItem struct {
	ID         int64     `json:"id"`
	ItemType   ItemType  `json:"item_type"`
	Title      string    `json:"title"`
	ItemData   string    `json:"item_data"`
	Notes      string    `json:"notes"`
	IsFavorite bool      `json:"is_favorite"`
	ImagePaths []string  `json:"image_paths,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EncryptedImages returns the referenced image blobs that are stored
// encrypted on disk. Only those are carried in backups.
func (s *SecureItem) EncryptedImages() []string {
	var out []string
	for _, p := range s.ImagePaths {
		p = strings.TrimSpace(p)
		if strings.HasSuffix(p, ".enc") {
			out = append(out, p)
		}
	}
	return out
}
