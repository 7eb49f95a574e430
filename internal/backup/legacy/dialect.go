package legacy

import (
	"slices"
	"strings"
)

// Dialect identifies one historical CSV layout for credentials.
type Dialect int

const (
	// DialectUnknown is never returned by Detect.
	DialectUnknown Dialect = iota
	// DialectTabular is name,url,username,password,note with metadata
	// embedded in the note column.
	DialectTabular
	// DialectPositional is the fixed 11-column layout: id, title, website,
	// username, password, notes, favorite, createdAt, updatedAt, sortOrder,
	// isGroupCover.
	DialectPositional
	// DialectAmbiguous means the first line is data in an unrecognized shape;
	// each row is tried as positional, then as tabular.
	DialectAmbiguous
)

// PositionalColumns is the minimum field count of a positional row.
const PositionalColumns = 11

// TabularMinColumns is the minimum field count of a tabular row.
const TabularMinColumns = 4

func (d Dialect) String() string {
	switch d {
	case DialectTabular:
		return "tabular"
	case DialectPositional:
		return "positional"
	case DialectAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Detection is the outcome of inspecting the first line of a file.
type Detection struct {
	Dialect Dialect
	// Header is true when the first line is a header row to be consumed.
	Header bool
	// Columns maps lower-cased header names to their index. Nil without a header.
	Columns map[string]int
	// Detector names the detector that matched.
	Detector string
}

// Detector inspects the comma-split, lower-cased, trimmed fields of the first
// line. Blank reports whether that line was empty.
type Detector struct {
	Name  string
	Match func(fields []string, blank bool) (Detection, bool)
}

// Detectors run in order and the first match wins. A header naming name,
// username and password is tabular even if it also names title.
var Detectors = []Detector{
	{Name: "blank-first-line", Match: matchBlank},
	{Name: "tabular-header", Match: matchTabularHeader},
	{Name: "positional-header", Match: matchPositionalHeader},
	{Name: "positional-row", Match: matchPositionalRow},
	{Name: "fallback", Match: matchFallback},
}

// Detect classifies a file from its first line.
func Detect(firstLine string) Detection {
	blank := strings.TrimSpace(firstLine) == ""
	var fields []string
	if !blank {
		raw, err := SplitFields(firstLine)
		if err == nil {
			fields = make([]string, len(raw))
			for i, f := range raw {
				fields[i] = strings.ToLower(strings.TrimSpace(f))
			}
		}
	}
	for _, d := range Detectors {
		if det, ok := d.Match(fields, blank); ok {
			det.Detector = d.Name
			return det
		}
	}
	return Detection{Dialect: DialectAmbiguous, Detector: "none"}
}

func matchBlank(_ []string, blank bool) (Detection, bool) {
	// The blank line is consumed like a header.
	return Detection{Dialect: DialectTabular, Header: true}, blank
}

func matchTabularHeader(fields []string, _ bool) (Detection, bool) {
	if !containsAll(fields, "name", "password", "username") {
		return Detection{}, false
	}
	return Detection{Dialect: DialectTabular, Header: true, Columns: columnIndex(fields)}, true
}

func matchPositionalHeader(fields []string, _ bool) (Detection, bool) {
	if !containsAll(fields, "title", "password") {
		return Detection{}, false
	}
	return Detection{Dialect: DialectPositional, Header: true, Columns: columnIndex(fields)}, true
}

func matchPositionalRow(fields []string, _ bool) (Detection, bool) {
	return Detection{Dialect: DialectPositional}, len(fields) >= PositionalColumns
}

func matchFallback(_ []string, _ bool) (Detection, bool) {
	return Detection{Dialect: DialectAmbiguous}, true
}

func containsAll(fields []string, names ...string) bool {
	for _, n := range names {
		if !slices.Contains(fields, n) {
			return false
		}
	}
	return true
}

func columnIndex(fields []string) map[string]int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := idx[f]; !dup {
			idx[f] = i
		}
	}
	return idx
}
