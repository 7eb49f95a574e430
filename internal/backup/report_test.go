package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemCounts_TotalExcludesAuxiliary(t *testing.T) {
	c := ItemCounts{Passwords: 1, Notes: 2, TOTP: 3, BankCards: 4, Documents: 5, Images: 100, GeneratorHistory: 100}
	assert.Equal(t, 15, c.Total())
}

func TestItemCounts_Add(t *testing.T) {
	var c ItemCounts
	for _, cat := range []Category{CategoryPassword, CategoryNote, CategoryTOTP, CategoryBankCard,
		CategoryDocument, CategoryImage, CategoryGeneratorHistory} {
		c.Add(cat, 2)
	}
	assert.Equal(t, ItemCounts{2, 2, 2, 2, 2, 2, 2}, c)
}

func TestBackupReport_HasIssues(t *testing.T) {
	tests := []struct {
		name   string
		report BackupReport
		want   bool
	}{
		{"clean", BackupReport{Success: true}, false},
		{"warning only", BackupReport{Success: true, Warnings: []string{"image file missing: a.enc"}}, true},
		{"failure", BackupReport{Failed: []FailedItem{{ID: 1, Category: CategoryNote, Title: "x", Reason: "y"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.HasIssues())
		})
	}
}

func TestBackupReport_Summary(t *testing.T) {
	r := &BackupReport{
		ArchiveName: "backup_20260101_000000.zip",
		Total:       ItemCounts{Passwords: 3, Images: 1},
		Succeeded:   ItemCounts{Passwords: 2},
		Failed:      []FailedItem{{ID: 9, Category: CategoryPassword, Title: "Mail", Reason: "invalid UTF-8"}},
		Warnings:    []string{"image file missing: a.enc"},
	}

	out := r.Summary()
	assert.Contains(t, out, "finished with problems")
	assert.Contains(t, out, "Passwords: 2/3")
	assert.Contains(t, out, "Images: 0/1")
	assert.NotContains(t, out, "Notes:")
	assert.Contains(t, out, "[password] Mail: invalid UTF-8")
	assert.Contains(t, out, "image file missing: a.enc")
}

func TestRestoreReport_Summary(t *testing.T) {
	r := &RestoreReport{
		Success:     true,
		ArchiveName: "backup_20260101_000000.zip",
		Contained:   ItemCounts{Notes: 2},
		Restored:    ItemCounts{Notes: 1},
		Skipped:     ItemCounts{Notes: 1},
	}

	out := r.Summary()
	assert.Contains(t, out, "Restored from backup_20260101_000000.zip")
	assert.Contains(t, out, "Notes: 1/2")
	assert.Contains(t, out, "Skipped as duplicates: 1")
	assert.False(t, r.HasIssues())
}
