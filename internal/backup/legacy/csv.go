// Package legacy reads and writes the CSV files carried in backup archives:
// the credential export in its two historical dialects and the secure-item
// export for TOTP secrets, bank cards, documents and notes.
package legacy

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8BOM is written at the start of every exported CSV so spreadsheet
// applications pick the right encoding.
const utf8BOM = "\ufeff"

// SplitFields splits one CSV line. Quoted fields may contain commas and
// doubled quotes.
func SplitFields(line string) ([]string, error) {
	r := newReader(strings.NewReader(strings.TrimRight(line, "\r\n")))
	fields, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return fields, err
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// decodeUTF8 strips an optional byte-order marker.
func decodeUTF8(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// splitFirstLine returns the first physical line and a reader positioned at
// the start of the second.
func splitFirstLine(r io.Reader) (string, *bufio.Reader, error) {
	br := bufio.NewReader(decodeUTF8(r))
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("read first line: %w", err)
	}
	return line, br, nil
}

// rowReader walks CSV records and keeps a physical line number for warnings.
type rowReader struct {
	cr         *csv.Reader
	lineOffset int
}

// next returns the next record, the line it started on and a parse error to
// report as a warning. ok is false at the end of input or on a read failure,
// which is returned as err.
func (rr *rowReader) next() (fields []string, line int, parseErr error, ok bool, err error) {
	fields, readErr := rr.cr.Read()
	switch {
	case readErr == nil:
		l, _ := rr.cr.FieldPos(0)
		return fields, l + rr.lineOffset, nil, true, nil
	case errors.Is(readErr, io.EOF):
		return nil, 0, nil, false, nil
	}
	var pe *csv.ParseError
	if errors.As(readErr, &pe) {
		return nil, pe.StartLine + rr.lineOffset, pe, true, nil
	}
	return nil, 0, nil, false, readErr
}

func newWriter(w io.Writer) (*csv.Writer, error) {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return nil, err
	}
	return csv.NewWriter(w), nil
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func warnf(line int, format string, args ...any) string {
	return fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...))
}
