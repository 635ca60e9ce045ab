package items

import (
	"context"
	"fmt"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
)

// Querier is the read side of Store.
type Querier interface {
	Query(ctx context.Context, filter domain.ItemFilter) ([]domain.ItemRecord, error)
}

// Finder matches records of the opposite type with an identical label.
type Finder struct {
	store Querier
}

func NewFinder(store Querier) *Finder {
	return &Finder{store: store}
}

// FindMatches is a pure read. An empty result is a valid "no match".
func (f *Finder) FindMatches(ctx context.Context, label string, typ domain.ItemType) ([]domain.ItemRecord, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: item type %q", domain.ErrInvalidInput, typ)
	}
	if label == "" {
		return []domain.ItemRecord{}, nil
	}
	matches, err := f.store.Query(ctx, domain.ItemFilter{Label: label, Type: typ.Complement()})
	if err != nil {
		return nil, fmt.Errorf("find matches: %w", err)
	}
	if matches == nil {
		matches = []domain.ItemRecord{}
	}
	return matches, nil
}
