package backup

import (
	"fmt"
	"strings"
)

// Category tags a record kind in counts and failure reports.
type Category string

// Categories a backup carries.
const (
	CategoryPassword         Category = "password"
	CategoryNote             Category = "note"
	CategoryTOTP             Category = "totp"
	CategoryBankCard         Category = "bank_card"
	CategoryDocument         Category = "document"
	CategoryImage            Category = "image"
	CategoryGeneratorHistory Category = "generator_history"
)

// ItemCounts holds one count per category.
type ItemCounts struct {
	Passwords        int `json:"passwords"`
	Notes            int `json:"notes"`
	TOTP             int `json:"totp"`
	BankCards        int `json:"bank_cards"`
	Documents        int `json:"documents"`
	Images           int `json:"images"`
	GeneratorHistory int `json:"generator_history"`
}

// Total sums the primary categories. Images and generator history are
// auxiliary and not included.
func (c ItemCounts) Total() int {
	return c.Passwords + c.Notes + c.TOTP + c.BankCards + c.Documents
}

// Add increments the count for cat by n.
func (c *ItemCounts) Add(cat Category, n int) {
	switch cat {
	case CategoryPassword:
		c.Passwords += n
	case CategoryNote:
		c.Notes += n
	case CategoryTOTP:
		c.TOTP += n
	case CategoryBankCard:
		c.BankCards += n
	case CategoryDocument:
		c.Documents += n
	case CategoryImage:
		c.Images += n
	case CategoryGeneratorHistory:
		c.GeneratorHistory += n
	}
}

func (c ItemCounts) String() string {
	return fmt.Sprintf("passwords=%d notes=%d totp=%d bank_cards=%d documents=%d images=%d generator_history=%d",
		c.Passwords, c.Notes, c.TOTP, c.BankCards, c.Documents, c.Images, c.GeneratorHistory)
}

// FailedItem is one record that could not be serialized, parsed or written.
type FailedItem struct {
	ID       int64    `json:"id"`
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Reason   string   `json:"reason"`
}

// BackupReport is the outcome of one backup.
type BackupReport struct {
	RunID       string       `json:"run_id"`
	ArchiveName string       `json:"archive_name"`
	Success     bool         `json:"success"`
	Total       ItemCounts   `json:"total"`
	Succeeded   ItemCounts   `json:"succeeded"`
	Failed      []FailedItem `json:"failed"`
	Warnings    []string     `json:"warnings"`
}

// HasIssues reports whether the report carries failures or warnings.
func (r *BackupReport) HasIssues() bool {
	return len(r.Failed) > 0 || len(r.Warnings) > 0
}

// Summary renders the report for people.
func (r *BackupReport) Summary() string {
	var b strings.Builder
	if r.Success {
		fmt.Fprintf(&b, "Backup %s uploaded.\n", r.ArchiveName)
	} else {
		fmt.Fprintf(&b, "Backup %s finished with problems.\n", r.ArchiveName)
	}
	writeCountLines(&b, []countLine{
		{"Passwords", r.Succeeded.Passwords, r.Total.Passwords},
		{"Authenticators", r.Succeeded.TOTP, r.Total.TOTP},
		{"Bank cards", r.Succeeded.BankCards, r.Total.BankCards},
		{"Documents", r.Succeeded.Documents, r.Total.Documents},
		{"Notes", r.Succeeded.Notes, r.Total.Notes},
		{"Images", r.Succeeded.Images, r.Total.Images},
		{"Generator history", r.Succeeded.GeneratorHistory, r.Total.GeneratorHistory},
	})
	writeIssues(&b, r.Failed, r.Warnings)
	return b.String()
}

// RestoreReport is the outcome of one restore. Contained counts what the
// archive held, Restored what was written and Skipped what already existed.
type RestoreReport struct {
	RunID       string       `json:"run_id"`
	ArchiveName string       `json:"archive_name"`
	Success     bool         `json:"success"`
	Contained   ItemCounts   `json:"contained"`
	Restored    ItemCounts   `json:"restored"`
	Skipped     ItemCounts   `json:"skipped"`
	Failed      []FailedItem `json:"failed"`
	Warnings    []string     `json:"warnings"`
}

// HasIssues reports whether the report carries failures or warnings.
func (r *RestoreReport) HasIssues() bool {
	return len(r.Failed) > 0 || len(r.Warnings) > 0
}

// Summary renders the report for people.
func (r *RestoreReport) Summary() string {
	var b strings.Builder
	if r.Success {
		fmt.Fprintf(&b, "Restored from %s.\n", r.ArchiveName)
	} else {
		fmt.Fprintf(&b, "Restore from %s finished with problems.\n", r.ArchiveName)
	}
	writeCountLines(&b, []countLine{
		{"Passwords", r.Restored.Passwords, r.Contained.Passwords},
		{"Authenticators", r.Restored.TOTP, r.Contained.TOTP},
		{"Bank cards", r.Restored.BankCards, r.Contained.BankCards},
		{"Documents", r.Restored.Documents, r.Contained.Documents},
		{"Notes", r.Restored.Notes, r.Contained.Notes},
		{"Images", r.Restored.Images, r.Contained.Images},
		{"Generator history", r.Restored.GeneratorHistory, r.Contained.GeneratorHistory},
	})
	if n := r.Skipped.Total() + r.Skipped.Images + r.Skipped.GeneratorHistory; n > 0 {
		fmt.Fprintf(&b, "  Skipped as duplicates: %d\n", n)
	}
	writeIssues(&b, r.Failed, r.Warnings)
	return b.String()
}

type countLine struct {
	label    string
	done, of int
}

func writeCountLines(b *strings.Builder, lines []countLine) {
	for _, l := range lines {
		if l.of == 0 && l.done == 0 {
			continue
		}
		fmt.Fprintf(b, "  %s: %d/%d\n", l.label, l.done, l.of)
	}
}

func writeIssues(b *strings.Builder, failed []FailedItem, warnings []string) {
	if len(failed) > 0 {
		fmt.Fprintf(b, "Failed items (%d):\n", len(failed))
		for _, f := range failed {
			fmt.Fprintf(b, "  [%s] %s: %s\n", f.Category, f.Title, f.Reason)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintf(b, "Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(b, "  %s\n", w)
		}
	}
}
