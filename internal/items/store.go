// Package items persists reported lost-and-found records and finds
// opposite-type records that share a label.
package items

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
)

// Store is the append-only record facade used by the lost-and-found flow.
type Store interface {
	Insert(ctx context.Context, rec *domain.ItemRecord) (string, error)
	Get(ctx context.Context, id string) (*domain.ItemRecord, error)
	Query(ctx context.Context, filter domain.ItemFilter) ([]domain.ItemRecord, error)
	Close() error
}

const selectColumns = `id, label, confidence, tags, image_url, type, location, reward, created_at`

// prepareInsert validates rec and fills server-assigned fields in place.
func prepareInsert(rec *domain.ItemRecord, now func() time.Time) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Microsecond)
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return tags, nil
}

// whereClause renders filter with placeholders produced by ph (1-based).
func whereClause(filter domain.ItemFilter, ph func(n int) string) (string, []any) {
	var conds []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, col+" = "+ph(len(args)))
	}
	if filter.ID != "" {
		add("id", filter.ID)
	}
	if filter.Label != "" {
		add("label", filter.Label)
	}
	if filter.Type != "" {
		add("type", string(filter.Type))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func decodeTags(raw []byte) ([]string, error) {
	tags := []string{}
	if len(raw) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return tags, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
