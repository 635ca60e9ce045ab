package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
)

// StockItem is one row of the stock table, keyed by Produkt.
type StockItem struct {
	Produkt   string  `json:"Produkt"`
	Kategorie string  `json:"Kategorie"`
	Menge     int     `json:"Menge"`
	Preis     float64 `json:"Preis"`
}

// Value is Menge × Preis.
func (it StockItem) Value() float64 {
	return float64(it.Menge) * it.Preis
}

type StockSummary struct {
	Products      int     `json:"products"`
	TotalQuantity int     `json:"total_quantity"`
	TotalValue    float64 `json:"total_value"`
}

var stockHeader = []string{"Produkt", "Kategorie", "Menge", "Preis"}

// tableCodec moves the stock table to and from one file format.
type tableCodec interface {
	read(path string) ([][]string, error)
	write(path string, rows []StockItem) error
}

type StockStore struct {
	path  string
	codec tableCodec
}

// NewStockStore picks the file format from the extension: .csv or .xlsx.
func NewStockStore(path string) (*StockStore, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return &StockStore{path: path, codec: csvCodec{}}, nil
	case ".xlsx":
		return &StockStore{path: path, codec: xlsxCodec{sheet: "Bestand"}}, nil
	default:
		return nil, fmt.Errorf("unsupported stock table format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func (s *StockStore) List() ([]StockItem, error) {
	return s.load()
}

func (s *StockStore) Create(it StockItem) (StockItem, error) {
	it.Produkt = strings.TrimSpace(it.Produkt)
	if err := validateStock(it); err != nil {
		return StockItem{}, err
	}
	all, err := s.load()
	if err != nil {
		return StockItem{}, err
	}
	if indexOfProduct(all, it.Produkt) >= 0 {
		return StockItem{}, fmt.Errorf("%w: product %q already exists", domain.ErrInvalidInput, it.Produkt)
	}
	all = append(all, it)
	if err := s.save(all); err != nil {
		return StockItem{}, err
	}
	return it, nil
}

// Update replaces the row for product. The product name itself may change
// as long as it does not collide with another row.
func (s *StockStore) Update(product string, it StockItem) (StockItem, error) {
	it.Produkt = strings.TrimSpace(it.Produkt)
	if it.Produkt == "" {
		it.Produkt = product
	}
	if err := validateStock(it); err != nil {
		return StockItem{}, err
	}
	all, err := s.load()
	if err != nil {
		return StockItem{}, err
	}
	i := indexOfProduct(all, product)
	if i < 0 {
		return StockItem{}, domain.WrapError(domain.ErrNotFound, "update stock", fmt.Errorf("product=%s", product))
	}
	if j := indexOfProduct(all, it.Produkt); j >= 0 && j != i {
		return StockItem{}, fmt.Errorf("%w: product %q already exists", domain.ErrInvalidInput, it.Produkt)
	}
	all[i] = it
	if err := s.save(all); err != nil {
		return StockItem{}, err
	}
	return it, nil
}

func (s *StockStore) Delete(product string) error {
	all, err := s.load()
	if err != nil {
		return err
	}
	i := indexOfProduct(all, product)
	if i < 0 {
		return domain.WrapError(domain.ErrNotFound, "delete stock", fmt.Errorf("product=%s", product))
	}
	return s.save(append(all[:i], all[i+1:]...))
}

// Summary aggregates on read; nothing derived is persisted.
func (s *StockStore) Summary() (StockSummary, error) {
	all, err := s.load()
	if err != nil {
		return StockSummary{}, err
	}
	sum := StockSummary{Products: len(all)}
	for _, it := range all {
		sum.TotalQuantity += it.Menge
		sum.TotalValue += it.Value()
	}
	return sum, nil
}

func (s *StockStore) load() ([]StockItem, error) {
	rows, err := s.codec.read(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []StockItem{}, nil
		}
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "read stock table", err)
	}
	items, err := parseStockRows(rows)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "parse stock table", err)
	}
	return items, nil
}

func (s *StockStore) save(all []StockItem) error {
	if err := s.codec.write(s.path, all); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "write stock table", err)
	}
	return nil
}

// parseStockRows maps columns by header name, so column order is free.
func parseStockRows(rows [][]string) ([]StockItem, error) {
	out := []StockItem{}
	if len(rows) == 0 {
		return out, nil
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range stockHeader {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q in header %v", name, rows[0])
		}
	}

	cell := func(row []string, name string) string {
		if i := col[name]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	for n, row := range rows[1:] {
		if len(strings.Join(row, "")) == 0 {
			continue
		}
		menge, err := parseQuantity(cell(row, "Menge"))
		if err != nil {
			return nil, fmt.Errorf("row %d: Menge: %w", n+2, err)
		}
		preis, err := parsePrice(cell(row, "Preis"))
		if err != nil {
			return nil, fmt.Errorf("row %d: Preis: %w", n+2, err)
		}
		out = append(out, StockItem{
			Produkt:   cell(row, "Produkt"),
			Kategorie: cell(row, "Kategorie"),
			Menge:     menge,
			Preis:     preis,
		})
	}
	return out, nil
}

func parseQuantity(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	// Spreadsheets often hand back whole numbers as "3.0".
	f, err := parsePrice(s)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

// parsePrice accepts "2.50" and the German "2,50".
func parsePrice(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func validateStock(it StockItem) error {
	if it.Produkt == "" {
		return fmt.Errorf("%w: Produkt is required", domain.ErrInvalidInput)
	}
	if it.Menge < 0 {
		return fmt.Errorf("%w: Menge must be non-negative, got %d", domain.ErrInvalidInput, it.Menge)
	}
	if it.Preis < 0 {
		return fmt.Errorf("%w: Preis must be non-negative, got %v", domain.ErrInvalidInput, it.Preis)
	}
	return nil
}

func indexOfProduct(all []StockItem, product string) int {
	for i, it := range all {
		if it.Produkt == product {
			return i
		}
	}
	return -1
}
