package legacy

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MetaMarker separates the visible note text from the embedded metadata in
// the note column of tabular exports. The token is part of the on-disk
// format of existing archives and must not change.
const MetaMarker = "[MonicaMeta]"

// Metadata keys written after MetaMarker.
const (
	metaFavorite   = "isFavorite"
	metaCreatedAt  = "createdAt"
	metaUpdatedAt  = "updatedAt"
	metaSortOrder  = "sortOrder"
	metaGroupCover = "isGroupCover"
)

// Meta is the structured data carried inside a tabular note. Nil fields were
// absent. Keys that are unknown, or known but unparsable, are kept verbatim
// in Extra so a rebuilt note carries them unchanged.
type Meta struct {
	IsFavorite   *bool
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	SortOrder    *int
	IsGroupCover *bool
	Extra        map[string]string
}

// IsZero reports whether no metadata is present.
func (m Meta) IsZero() bool {
	return m.IsFavorite == nil && m.CreatedAt == nil && m.UpdatedAt == nil &&
		m.SortOrder == nil && m.IsGroupCover == nil && len(m.Extra) == 0
}

// Note is a parsed tabular note column.
type Note struct {
	Text string
	Meta Meta
}

// ParseNote splits a raw note column at the first MetaMarker. A note without
// the marker is all text. Trailing newlines are trimmed from the text.
func ParseNote(raw string) Note {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	text, encoded, found := strings.Cut(raw, MetaMarker)
	if !found {
		return Note{Text: strings.TrimRight(raw, "\r\n")}
	}
	return Note{
		Text: strings.TrimRight(text, "\r\n"),
		Meta: parseMeta(encoded),
	}
}

// String renders the note column: the text, a blank line, the marker and
// the metadata pairs. A note without metadata renders as its text alone and
// an empty text drops the blank line.
func (n Note) String() string {
	if n.Meta.IsZero() {
		return n.Text
	}
	pairs := n.Meta.pairs()
	encoded := make([]string, 0, len(pairs))
	for _, p := range pairs {
		encoded = append(encoded, p[0]+"="+p[1])
	}
	meta := MetaMarker + strings.Join(encoded, "|")
	if n.Text == "" {
		return meta
	}
	return n.Text + "\n\n" + meta
}

// pairs returns the key/value list in write order: the known keys in a fixed
// order, then extra keys sorted.
func (m Meta) pairs() [][2]string {
	var out [][2]string
	if m.IsFavorite != nil {
		out = append(out, [2]string{metaFavorite, strconv.FormatBool(*m.IsFavorite)})
	}
	if m.CreatedAt != nil {
		out = append(out, [2]string{metaCreatedAt, strconv.FormatInt(m.CreatedAt.UnixMilli(), 10)})
	}
	if m.UpdatedAt != nil {
		out = append(out, [2]string{metaUpdatedAt, strconv.FormatInt(m.UpdatedAt.UnixMilli(), 10)})
	}
	if m.SortOrder != nil {
		out = append(out, [2]string{metaSortOrder, strconv.Itoa(*m.SortOrder)})
	}
	if m.IsGroupCover != nil {
		out = append(out, [2]string{metaGroupCover, strconv.FormatBool(*m.IsGroupCover)})
	}
	for _, k := range slices.Sorted(maps.Keys(m.Extra)) {
		out = append(out, [2]string{k, m.Extra[k]})
	}
	return out
}

func parseMeta(encoded string) Meta {
	var m Meta
	for part := range strings.SplitSeq(strings.TrimSpace(encoded), "|") {
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if !m.set(key, value) {
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[key] = value
		}
	}
	return m
}

// set stores a known key. It reports false for unknown keys and for values
// that do not parse, which the caller keeps in Extra.
func (m *Meta) set(key, value string) bool {
	switch key {
	case metaFavorite:
		b, ok := parseBool(value)
		if ok {
			m.IsFavorite = &b
		}
		return ok
	case metaGroupCover:
		b, ok := parseBool(value)
		if ok {
			m.IsGroupCover = &b
		}
		return ok
	case metaCreatedAt, metaUpdatedAt:
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return false
		}
		ts := time.UnixMilli(ms)
		if key == metaCreatedAt {
			m.CreatedAt = &ts
		} else {
			m.UpdatedAt = &ts
		}
		return true
	case metaSortOrder:
		n, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		m.SortOrder = &n
		return true
	default:
		return false
	}
}

// parseBool accepts exactly "true" or "false" in any case, the only forms
// previous exporters wrote.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
