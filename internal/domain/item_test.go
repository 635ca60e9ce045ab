package domain

import (
	"math"
	"testing"
)

func TestValidateReward(t *testing.T) {
	for _, ok := range []float64{0, math.Copysign(0, -1), 12.5} {
		if err := ValidateReward(ok); err != nil {
			t.Fatalf("reward %v: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := ValidateReward(bad); !IsKind(err, ErrInvalidInput) {
			t.Fatalf("reward %v: expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestItemRecordValidateChecksReward(t *testing.T) {
	rec := ItemRecord{Label: "Key", Type: ItemFound, Reward: math.Inf(1)}
	if err := rec.Validate(); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
