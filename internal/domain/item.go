package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ItemType marks which side of a lost-and-found exchange a record represents.
type ItemType string

const (
	ItemFound  ItemType = "found"
	ItemSearch ItemType = "search"
)

// ParseItemType accepts "found" or "search", case-insensitively.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(strings.ToLower(strings.TrimSpace(s))) {
	case ItemFound:
		return ItemFound, nil
	case ItemSearch:
		return ItemSearch, nil
	default:
		return "", fmt.Errorf("%w: item type %q, want found or search", ErrInvalidInput, s)
	}
}

// Complement returns the opposite side of the exchange.
func (t ItemType) Complement() ItemType {
	if t == ItemFound {
		return ItemSearch
	}
	return ItemFound
}

func (t ItemType) Valid() bool {
	return t == ItemFound || t == ItemSearch
}

// ItemRecord is a reported item. Records are append-only in the lost-and-found flow.
type ItemRecord struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Confidence float32   `json:"confidence"`
	Tags       []string  `json:"tags"`
	ImageURL   string    `json:"image_url"`
	Type       ItemType  `json:"type"`
	Location   *string   `json:"location,omitempty"`
	Reward     float64   `json:"reward"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the fields a caller supplies before insert.
func (r *ItemRecord) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidInput)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: item type %q", ErrInvalidInput, r.Type)
	}
	return ValidateReward(r.Reward)
}

// ValidateReward accepts finite, non-negative amounts. NaN and ±Inf cannot
// be stored or encoded as JSON.
func ValidateReward(reward float64) error {
	if math.IsNaN(reward) || math.IsInf(reward, 0) || reward < 0 {
		return fmt.Errorf("%w: reward must be a finite non-negative number, got %v", ErrInvalidInput, reward)
	}
	return nil
}

// ItemFilter selects records. Zero-valued fields do not filter.
type ItemFilter struct {
	ID    string
	Label string
	Type  ItemType
	Limit int
}
