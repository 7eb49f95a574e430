package legacy

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/domain"
)

// TabularHeader is the header row written by WritePasswords.
var TabularHeader = []string{"name", "url", "username", "password", "note"}

var (
	errTooFewColumns = errors.New("too few columns")
	errEmptyRow      = errors.New("row has no title, website, username or password")
)

// now is swapped by tests that need deterministic defaults.
var now = time.Now

// PasswordResult is the outcome of reading one credential CSV.
type PasswordResult struct {
	Detection Detection
	Entries   []domain.PasswordEntry
	// Warnings holds one message per skipped row, in file order.
	Warnings []string
}

// ParsePasswords reads a credential CSV in either dialect. Rows that do not
// parse become warnings; only a failure to read the input is an error.
func ParsePasswords(r io.Reader) (*PasswordResult, error) {
	first, rest, err := splitFirstLine(r)
	if err != nil {
		return nil, err
	}

	det := Detect(first)
	res := &PasswordResult{Detection: det}

	var rr *rowReader
	if det.Header {
		rr = &rowReader{cr: newReader(rest), lineOffset: 1}
	} else {
		rr = &rowReader{cr: newReader(io.MultiReader(strings.NewReader(first), rest))}
	}

	for {
		fields, line, parseErr, ok, err := rr.next()
		if err != nil {
			return res, fmt.Errorf("read credential csv: %w", err)
		}
		if !ok {
			break
		}
		if parseErr != nil {
			res.Warnings = append(res.Warnings, warnf(line, "malformed row: %v", parseErr))
			continue
		}

		entry, err := parseRow(det, fields)
		if err != nil {
			res.Warnings = append(res.Warnings, warnf(line, "skipped %s row: %v", det.Dialect, err))
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

func parseRow(det Detection, fields []string) (domain.PasswordEntry, error) {
	switch det.Dialect {
	case DialectTabular:
		return parseTabular(fields, det.Columns)
	case DialectPositional:
		return parsePositional(fields)
	default:
		entry, errB := parsePositional(fields)
		if errB == nil {
			return entry, nil
		}
		entry, errA := parseTabular(fields, nil)
		if errA == nil {
			return entry, nil
		}
		return domain.PasswordEntry{}, fmt.Errorf("positional: %v; tabular: %v", errB, errA)
	}
}

// parseTabular reads name,url,username,password,note. Column positions come
// from the header when there is one.
func parseTabular(fields []string, columns map[string]int) (domain.PasswordEntry, error) {
	if len(fields) < TabularMinColumns {
		return domain.PasswordEntry{}, fmt.Errorf("%w: got %d, need %d", errTooFewColumns, len(fields), TabularMinColumns)
	}
	pos := func(name string, fallback int) int {
		if columns == nil {
			return fallback
		}
		if i, ok := columns[name]; ok {
			return i
		}
		return -1
	}

	name := strings.TrimSpace(field(fields, pos("name", 0)))
	website := strings.TrimSpace(field(fields, pos("url", 1)))
	username := strings.TrimSpace(field(fields, pos("username", 2)))
	password := field(fields, pos("password", 3))
	note := ParseNote(field(fields, pos("note", 4)))

	if name == "" && website == "" && username == "" && password == "" {
		return domain.PasswordEntry{}, errEmptyRow
	}

	entry := domain.PasswordEntry{
		Title:    firstNonEmpty(name, website, username),
		Username: username,
		Password: password,
		Website:  website,
		Notes:    note.Text,
	}

	m := note.Meta
	if m.IsFavorite != nil {
		entry.IsFavorite = *m.IsFavorite
	}
	if m.SortOrder != nil {
		entry.SortOrder = *m.SortOrder
	}
	if m.IsGroupCover != nil {
		entry.IsGroupCover = *m.IsGroupCover
	}
	entry.CreatedAt = now()
	if m.CreatedAt != nil {
		entry.CreatedAt = *m.CreatedAt
	}
	entry.UpdatedAt = entry.CreatedAt
	if m.UpdatedAt != nil {
		entry.UpdatedAt = *m.UpdatedAt
	}
	return entry, nil
}

// parsePositional reads the fixed 11-column layout. Column 0 held the old
// row id and is ignored.
func parsePositional(fields []string) (domain.PasswordEntry, error) {
	if len(fields) < PositionalColumns {
		return domain.PasswordEntry{}, fmt.Errorf("%w: got %d, need %d", errTooFewColumns, len(fields), PositionalColumns)
	}
	created, err := strconv.ParseInt(strings.TrimSpace(fields[7]), 10, 64)
	if err != nil {
		return domain.PasswordEntry{}, fmt.Errorf("createdAt %q: not epoch milliseconds", fields[7])
	}
	updated, err := strconv.ParseInt(strings.TrimSpace(fields[8]), 10, 64)
	if err != nil {
		return domain.PasswordEntry{}, fmt.Errorf("updatedAt %q: not epoch milliseconds", fields[8])
	}
	sortOrder, err := strconv.Atoi(strings.TrimSpace(fields[9]))
	if err != nil {
		sortOrder = 0
	}
	favorite, _ := parseBool(strings.TrimSpace(fields[6]))
	groupCover, _ := parseBool(strings.TrimSpace(fields[10]))

	return domain.PasswordEntry{
		Title:        strings.TrimSpace(fields[1]),
		Website:      strings.TrimSpace(fields[2]),
		Username:     strings.TrimSpace(fields[3]),
		Password:     fields[4],
		Notes:        fields[5],
		IsFavorite:   favorite,
		CreatedAt:    time.UnixMilli(created),
		UpdatedAt:    time.UnixMilli(updated),
		SortOrder:    sortOrder,
		IsGroupCover: groupCover,
	}, nil
}

// WritePasswords writes the tabular dialect: a byte-order marker, the
// header, then one row per entry with its metadata embedded in the note.
func WritePasswords(w io.Writer, entries []domain.PasswordEntry) error {
	cw, err := newWriter(w)
	if err != nil {
		return fmt.Errorf("write credential csv: %w", err)
	}
	if err := cw.Write(TabularHeader); err != nil {
		return fmt.Errorf("write credential csv header: %w", err)
	}
	for i := range entries {
		e := &entries[i]
		created, updated := e.CreatedAt, e.UpdatedAt
		favorite, cover, order := e.IsFavorite, e.IsGroupCover, e.SortOrder
		note := Note{
			Text: e.Notes,
			Meta: Meta{
				IsFavorite:   &favorite,
				CreatedAt:    &created,
				UpdatedAt:    &updated,
				SortOrder:    &order,
				IsGroupCover: &cover,
			},
		}
		row := []string{e.DisplayName(), e.Website, e.Username, e.Password, note.String()}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write credential csv row %d: %w", e.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write credential csv: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
