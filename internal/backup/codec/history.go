package codec

import (
	"fmt"
	"time"

	"encoding/json/jsontext"
	"encoding/json/v2"

	"github.com/lockboxapp/lockbox-server/internal/domain"
)

// HistoryRecord is one generator history entry inside
// <prefix>_generated_history.json.
type HistoryRecord struct {
	Password  string `json:"password"`
	Kind      string `json:"kind,omitzero"`
	Length    int    `json:"length,omitzero"`
	CreatedAt int64  `json:"createdAt"`
}

// EncodeHistory serializes the whole generator history as one JSON array.
func EncodeHistory(entries []domain.GeneratedPassword) ([]byte, error) {
	recs := make([]HistoryRecord, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, HistoryRecord{
			Password:  e.Password,
			Kind:      e.Kind,
			Length:    e.Length,
			CreatedAt: e.CreatedAt.UnixMilli(),
		})
	}
	data, err := json.Marshal(recs, jsontext.WithIndent("  "))
	if err != nil {
		return nil, fmt.Errorf("encode generator history: %w", err)
	}
	return data, nil
}

// DecodeHistory parses a generator history file. Entries without a password
// are dropped.
func DecodeHistory(data []byte) ([]domain.GeneratedPassword, error) {
	var recs []HistoryRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode generator history: %w", err)
	}
	out := make([]domain.GeneratedPassword, 0, len(recs))
	for _, r := range recs {
		if r.Password == "" {
			continue
		}
		created := now()
		if r.CreatedAt > 0 {
			created = time.UnixMilli(r.CreatedAt)
		}
		out = append(out, domain.GeneratedPassword{
			Password:  r.Password,
			Kind:      r.Kind,
			Length:    r.Length,
			CreatedAt: created,
		})
	}
	return out, nil
}
