package items

import (
	"context"
	"testing"
	"time"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Deterministic, strictly increasing server timestamps.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return s
}

func strPtr(s string) *string { return &s }

func TestInsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := domain.ItemRecord{
		Label:      "Wallet",
		Confidence: 0.91,
		Tags:       []string{"leather", "brown"},
		ImageURL:   "http://localhost/images/found/a.jpg",
		Type:       domain.ItemFound,
		Location:   strPtr("Mensa"),
		Reward:     10,
	}
	rec := in
	id, err := s.Insert(ctx, &rec)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == "" || rec.ID != id {
		t.Fatalf("expected assigned id, got %q / %q", id, rec.ID)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID = %q, want %q", got.ID, id)
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("CreatedAt not populated")
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
	if got.Label != in.Label || got.Confidence != in.Confidence || got.ImageURL != in.ImageURL ||
		got.Type != in.Type || got.Reward != in.Reward {
		t.Errorf("record mismatch: got %+v, want %+v", got, in)
	}
	if got.Location == nil || *got.Location != "Mensa" {
		t.Errorf("Location = %v", got.Location)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "leather" || got.Tags[1] != "brown" {
		t.Errorf("Tags = %v", got.Tags)
	}
}

func TestInsertKeepsCallerID(t *testing.T) {
	s := openTestStore(t)
	rec := domain.ItemRecord{ID: "fixed-id", Label: "Key", Type: domain.ItemSearch}
	id, err := s.Insert(context.Background(), &rec)
	if err != nil {
		t.Fatal(err)
	}
	if id != "fixed-id" {
		t.Fatalf("id = %q", id)
	}
	got, err := s.Get(context.Background(), "fixed-id")
	if err != nil {
		t.Fatal(err)
	}
	if got.Location != nil {
		t.Fatalf("expected nil location, got %q", *got.Location)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("expected empty tags, got %#v", got.Tags)
	}
}

func TestInsertValidates(t *testing.T) {
	s := openTestStore(t)
	cases := []domain.ItemRecord{
		{Label: "", Type: domain.ItemFound},
		{Label: "Cup", Type: "lost"},
		{Label: "Cup", Type: domain.ItemFound, Reward: -1},
	}
	for _, rec := range cases {
		rec := rec
		if _, err := s.Insert(context.Background(), &rec); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Errorf("Insert(%+v) err = %v, want ErrInvalidInput", rec, err)
		}
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryOrderAndFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, rec := range []domain.ItemRecord{
		{Label: "Wallet", Type: domain.ItemFound},
		{Label: "Umbrella", Type: domain.ItemSearch},
		{Label: "Wallet", Type: domain.ItemSearch},
		{Label: "Wallet", Type: domain.ItemFound},
	} {
		rec := rec
		if _, err := s.Insert(ctx, &rec); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.Query(ctx, domain.ItemFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("records not ordered newest first: %v then %v", all[i-1].CreatedAt, all[i].CreatedAt)
		}
	}

	found, err := s.Query(ctx, domain.ItemFilter{Label: "Wallet", Type: domain.ItemFound})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 found wallets, got %d", len(found))
	}

	limited, err := s.Query(ctx, domain.ItemFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != all[0].ID {
		t.Fatalf("limit 1 should return newest record")
	}

	byID, err := s.Query(ctx, domain.ItemFilter{ID: all[2].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(byID) != 1 || byID[0].ID != all[2].ID {
		t.Fatalf("query by id returned %v", byID)
	}

	none, err := s.Query(ctx, domain.ItemFilter{Label: "wallet"})
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("label match must be exact, got %d", len(none))
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) == 0 || len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}
