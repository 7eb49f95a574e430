package backup

import (
	"strings"
	"time"
)

const (
	archiveTimeLayout = "20060102_150405"
	archivePrefix     = "Lockbox_"
)

// BackupFile is one archive in the remote backup directory.
type BackupFile struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

// IsEncrypted classifies the archive by its name alone.
func (f BackupFile) IsEncrypted() bool {
	return IsEncryptedName(f.Name)
}

// IsEncryptedName reports whether name follows the encrypted naming
// convention, either _enc.zip or the older .enc.zip.
func IsEncryptedName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "_enc.zip") || strings.HasSuffix(lower, ".enc.zip")
}

// RemoteName is the remote file name of a backup taken at t:
// backup_<yyyyMMdd_HHmmss>.zip, or ..._enc.zip when encrypted.
func RemoteName(t time.Time, encrypted bool) string {
	name := "backup_" + t.Format(archiveTimeLayout)
	if encrypted {
		return name + "_enc.zip"
	}
	return name + ".zip"
}

// entryPrefix names the root-level files inside an archive taken at t.
func entryPrefix(t time.Time) string {
	return archivePrefix + t.Format(archiveTimeLayout)
}

// validName accepts a bare .zip file name.
func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && name != "." && name != ".." &&
		strings.HasSuffix(strings.ToLower(name), ".zip")
}
