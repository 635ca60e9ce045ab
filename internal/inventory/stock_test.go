package inventory

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
)

func seedStock(t *testing.T, s *StockStore) {
	t.Helper()
	for _, it := range []StockItem{
		{Produkt: "Schrauben", Kategorie: "Werkzeug", Menge: 100, Preis: 0.05},
		{Produkt: "Kabel", Kategorie: "Elektronik", Menge: 4, Preis: 2.5},
	} {
		if _, err := s.Create(it); err != nil {
			t.Fatalf("Create %s: %v", it.Produkt, err)
		}
	}
}

func TestStockRoundTrip(t *testing.T) {
	for _, ext := range []string{".csv", ".xlsx"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bestand"+ext)
			s, err := NewStockStore(path)
			if err != nil {
				t.Fatal(err)
			}
			seedStock(t, s)

			fresh, _ := NewStockStore(path)
			got, err := fresh.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != 2 || got[1].Produkt != "Kabel" || got[1].Menge != 4 || got[1].Preis != 2.5 {
				t.Fatalf("List = %+v", got)
			}

			sum, err := fresh.Summary()
			if err != nil {
				t.Fatal(err)
			}
			if sum.Products != 2 || sum.TotalQuantity != 104 || math.Abs(sum.TotalValue-15) > 1e-9 {
				t.Fatalf("Summary = %+v", sum)
			}

			if _, err := fresh.Update("Kabel", StockItem{Kategorie: "Elektronik", Menge: 6, Preis: 2.5}); err != nil {
				t.Fatalf("Update: %v", err)
			}
			if err := fresh.Delete("Schrauben"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			got, _ = fresh.List()
			if len(got) != 1 || got[0].Produkt != "Kabel" || got[0].Menge != 6 {
				t.Fatalf("after update/delete: %+v", got)
			}
		})
	}
}

func TestStockCSVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bestand.csv")
	s, _ := NewStockStore(path)
	seedStock(t, s)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[0] != "Produkt,Kategorie,Menge,Preis" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[2] != "Kabel,Elektronik,4,2.5" {
		t.Fatalf("row = %q", lines[2])
	}
}

func TestStockReadsReorderedColumnsAndGermanDecimals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bestand.csv")
	csv := "Preis,Menge,Produkt,Kategorie\n\"1,25\",3.0,Tesafilm,Büro\n,,,\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	s, _ := NewStockStore(path)
	got, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Produkt != "Tesafilm" || got[0].Menge != 3 || got[0].Preis != 1.25 {
		t.Fatalf("List = %+v", got)
	}
}

func TestStockRejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bestand.csv")
	if err := os.WriteFile(path, []byte("Name,Menge\nx,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, _ := NewStockStore(path)
	if _, err := s.List(); !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestStockValidation(t *testing.T) {
	s, _ := NewStockStore(filepath.Join(t.TempDir(), "bestand.csv"))
	seedStock(t, s)

	cases := []StockItem{
		{Produkt: ""},
		{Produkt: "Neu", Menge: -1},
		{Produkt: "Neu", Preis: -0.01},
		{Produkt: "Kabel"},
	}
	for _, it := range cases {
		if _, err := s.Create(it); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Errorf("Create(%+v) = %v, want ErrInvalidInput", it, err)
		}
	}
	if _, err := s.Update("Fehlt", StockItem{Menge: 1}); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Update("Kabel", StockItem{Produkt: "Schrauben"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("rename onto existing product should fail, got %v", err)
	}
}

func TestNewStockStoreRejectsUnknownFormat(t *testing.T) {
	if _, err := NewStockStore("bestand.ods"); err == nil {
		t.Fatal("expected error for .ods")
	}
}
