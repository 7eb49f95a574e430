package backup

import (
	"strings"

	"github.com/lockboxapp/lockbox-server/internal/backup/archive"
)

// entryKind is what an archive entry holds, decided by its path alone.
type entryKind int

const (
	entryIgnored entryKind = iota
	entryPasswordJSON
	entryNoteJSON
	entryLegacyPasswords
	entrySecureCSV
	entryHistory
	entryImage
)

func (k entryKind) String() string {
	switch k {
	case entryPasswordJSON:
		return "password_json"
	case entryNoteJSON:
		return "note_json"
	case entryLegacyPasswords:
		return "legacy_password_csv"
	case entrySecureCSV:
		return "secure_item_csv"
	case entryHistory:
		return "generator_history"
	case entryImage:
		return "image"
	default:
		return "ignored"
	}
}

var secureCSVSuffixes = []string{"_totp.csv", "_cards_docs.csv", "_other.csv", "_notes.csv"}

// routeEntry maps an archive entry to its decoder. Root-level names are
// matched case-insensitively.
func routeEntry(e *archive.Entry) entryKind {
	base := strings.ToLower(e.Base())
	switch e.Dir() {
	case "passwords":
		if strings.HasSuffix(base, ".json") {
			return entryPasswordJSON
		}
		return entryIgnored
	case "notes":
		if strings.HasSuffix(base, ".json") {
			return entryNoteJSON
		}
		return entryIgnored
	case "images":
		return entryImage
	case "":
	default:
		return entryIgnored
	}

	switch {
	case base == "passwords.csv" || strings.HasSuffix(base, "_password.csv"):
		return entryLegacyPasswords
	case base == "secure_items.csv" || base == "backup.csv":
		return entrySecureCSV
	case strings.HasSuffix(base, "_generated_history.json"):
		return entryHistory
	case strings.HasSuffix(base, ".enc"):
		return entryImage
	}
	for _, suffix := range secureCSVSuffixes {
		if strings.HasSuffix(base, suffix) {
			return entrySecureCSV
		}
	}
	return entryIgnored
}
