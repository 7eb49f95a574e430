package backup

// BackupPreferences selects the categories a backup includes.
type BackupPreferences struct {
	Passwords        bool `json:"passwords"`
	Authenticators   bool `json:"authenticators"`
	Documents        bool `json:"documents"`
	BankCards        bool `json:"bank_cards"`
	Notes            bool `json:"notes"`
	GeneratorHistory bool `json:"generator_history"`
	Images           bool `json:"images"`
}

// DefaultPreferences includes everything.
func DefaultPreferences() BackupPreferences {
	return BackupPreferences{
		Passwords:        true,
		Authenticators:   true,
		Documents:        true,
		BankCards:        true,
		Notes:            true,
		GeneratorHistory: true,
		Images:           true,
	}
}

// AnyEnabled reports whether at least one category is selected.
func (p BackupPreferences) AnyEnabled() bool {
	return p.Passwords || p.Authenticators || p.Documents || p.BankCards ||
		p.Notes || p.GeneratorHistory || p.Images
}

// secureItems reports whether any category stored as a secure item is selected.
func (p BackupPreferences) secureItems() bool {
	return p.Authenticators || p.Documents || p.BankCards || p.Notes
}

// EncryptionConfig is the persisted encryption setting.
type EncryptionConfig struct {
	Enabled  bool   `json:"enabled"`
	Password string `json:"password,omitempty"`
}

// RestoreOptions configures one restore call.
type RestoreOptions struct {
	// Password decrypts an encrypted archive. When empty, the configured
	// encryption password is tried.
	Password string
}
