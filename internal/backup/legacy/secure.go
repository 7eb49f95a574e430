package legacy

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/backup/codec"
	"github.com/lockboxapp/lockbox-server/internal/domain"
)

// SecureHeader is the header row of secure-item CSV files.
var SecureHeader = []string{"id", "itemType", "title", "itemData", "notes", "isFavorite", "imagePaths", "createdAt", "updatedAt"}

// SecureResult is the outcome of reading one secure-item CSV.
type SecureResult struct {
	Items    []domain.SecureItem
	Warnings []string
}

// WriteSecureItems writes items with a byte-order marker and SecureHeader.
func WriteSecureItems(w io.Writer, items []domain.SecureItem) error {
	cw, err := newWriter(w)
	if err != nil {
		return fmt.Errorf("write secure item csv: %w", err)
	}
	if err := cw.Write(SecureHeader); err != nil {
		return fmt.Errorf("write secure item csv header: %w", err)
	}
	for i := range items {
		it := &items[i]
		images, err := codec.EncodeImagePaths(it.ImagePaths)
		if err != nil {
			return fmt.Errorf("write secure item %d: %w", it.ID, err)
		}
		row := []string{
			strconv.FormatInt(it.ID, 10),
			string(it.ItemType),
			it.Title,
			it.ItemData,
			it.Notes,
			strconv.FormatBool(it.IsFavorite),
			images,
			strconv.FormatInt(it.CreatedAt.UnixMilli(), 10),
			strconv.FormatInt(it.UpdatedAt.UnixMilli(), 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write secure item %d: %w", it.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write secure item csv: %w", err)
	}
	return nil
}

// ParseSecureItems reads a secure-item CSV. Columns are located by header
// name when the first line names itemType; otherwise SecureHeader order is
// assumed and the first line is data. Returned items have ID 0.
func ParseSecureItems(r io.Reader) (*SecureResult, error) {
	first, rest, err := splitFirstLine(r)
	if err != nil {
		return nil, err
	}

	columns := defaultSecureColumns()
	rr := &rowReader{cr: newReader(io.MultiReader(strings.NewReader(first), rest))}
	if hdr, _ := SplitFields(first); hasColumn(hdr, "itemtype") {
		columns = make(map[string]int, len(hdr))
		for i, h := range hdr {
			columns[strings.ToLower(strings.TrimSpace(h))] = i
		}
		rr = &rowReader{cr: newReader(rest), lineOffset: 1}
	}

	res := &SecureResult{}
	for {
		fields, line, parseErr, ok, err := rr.next()
		if err != nil {
			return res, fmt.Errorf("read secure item csv: %w", err)
		}
		if !ok {
			break
		}
		if parseErr != nil {
			res.Warnings = append(res.Warnings, warnf(line, "malformed row: %v", parseErr))
			continue
		}
		item, err := parseSecureRow(fields, columns)
		if err != nil {
			res.Warnings = append(res.Warnings, warnf(line, "skipped secure item: %v", err))
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func parseSecureRow(fields []string, columns map[string]int) (domain.SecureItem, error) {
	get := func(name string) string {
		i, ok := columns[name]
		if !ok {
			return ""
		}
		return field(fields, i)
	}

	itemType, ok := domain.ParseItemType(get("itemtype"))
	if !ok {
		return domain.SecureItem{}, fmt.Errorf("unknown item type %q", get("itemtype"))
	}
	images, err := codec.DecodeImagePaths(strings.TrimSpace(get("imagepaths")))
	if err != nil {
		return domain.SecureItem{}, err
	}
	favorite, _ := parseBool(strings.TrimSpace(get("isfavorite")))

	created := now()
	if s := strings.TrimSpace(get("createdat")); s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.SecureItem{}, fmt.Errorf("createdAt %q: not epoch milliseconds", s)
		}
		created = time.UnixMilli(ms)
	}
	updated := created
	if s := strings.TrimSpace(get("updatedat")); s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.SecureItem{}, fmt.Errorf("updatedAt %q: not epoch milliseconds", s)
		}
		updated = time.UnixMilli(ms)
	}

	return domain.SecureItem{
		ItemType:   itemType,
		Title:      get("title"),
		ItemData:   get("itemdata"),
		Notes:      get("notes"),
		IsFavorite: favorite,
		ImagePaths: images,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

func defaultSecureColumns() map[string]int {
	m := make(map[string]int, len(SecureHeader))
	for i, h := range SecureHeader {
		m[strings.ToLower(h)] = i
	}
	return m
}

func hasColumn(fields []string, name string) bool {
	for _, f := range fields {
		if strings.EqualFold(strings.TrimSpace(f), name) {
			return true
		}
	}
	return false
}
