// Package backup builds backup snapshots of the live record store, ships
// them to a remote store, and restores records from any archive generation.
package backup

import "errors"

var (
	// ErrNoCategories rejects a backup whose preferences select nothing.
	ErrNoCategories = errors.New("no backup categories selected")

	// ErrEncryptionPassword rejects an encrypted backup without a password.
	ErrEncryptionPassword = errors.New("encryption is enabled but no password is set")

	// ErrPasswordRequired means the archive is encrypted and no password was
	// supplied or configured. Retrying with a password is expected.
	ErrPasswordRequired = errors.New("archive is encrypted; password required")

	// ErrCorruptArchive means the archive, once decrypted, is not a readable zip.
	ErrCorruptArchive = errors.New("archive is not readable")

	// ErrBackupNotFound indicates the requested backup does not exist.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrInvalidName rejects remote names that are not backup archives.
	ErrInvalidName = errors.New("invalid backup name")
)
