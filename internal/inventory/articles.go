// Package inventory implements the flat-file inventory managers: a JSON
// article list and a CSV/XLSX stock table. Each change rewrites the whole
// file; there is no locking, so at most one writer may run at a time.
package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
)

// Categories offered when creating an article.
var Categories = []string{"Werkzeug", "Elektronik", "Büro", "Möbel", "Sonstiges"}

// Article is one entry of the JSON inventory file; field names are the
// on-disk keys.
type Article struct {
	ID        string `json:"ID"`
	Name      string `json:"Name"`
	Kategorie string `json:"Kategorie"`
	Menge     int    `json:"Menge"`
	Standort  string `json:"Standort"`
	Kommentar string `json:"Kommentar"`
}

type ArticleSummary struct {
	Count      int `json:"count"`
	TotalMenge int `json:"total_menge"`
}

const articleIDLayout = "20060102150405"

type ArticleStore struct {
	path string
	now  func() time.Time
}

func NewArticleStore(path string) *ArticleStore {
	return &ArticleStore{path: path, now: time.Now}
}

// List returns all articles, or those whose Name or Kategorie contains
// search, case-insensitively.
func (s *ArticleStore) List(search string) ([]Article, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return all, nil
	}
	out := []Article{}
	for _, a := range all {
		if strings.Contains(strings.ToLower(a.Name), search) || strings.Contains(strings.ToLower(a.Kategorie), search) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *ArticleStore) Get(id string) (Article, error) {
	all, err := s.load()
	if err != nil {
		return Article{}, err
	}
	i := indexOfArticle(all, id)
	if i < 0 {
		return Article{}, domain.WrapError(domain.ErrNotFound, "get article", fmt.Errorf("id=%s", id))
	}
	return all[i], nil
}

// Create assigns a timestamp ID and appends the article.
func (s *ArticleStore) Create(a Article) (Article, error) {
	if err := validateArticle(a); err != nil {
		return Article{}, err
	}
	all, err := s.load()
	if err != nil {
		return Article{}, err
	}

	base := s.now().Format(articleIDLayout)
	a.ID = base
	for n := 2; indexOfArticle(all, a.ID) >= 0; n++ {
		a.ID = fmt.Sprintf("%s-%d", base, n)
	}

	all = append(all, a)
	if err := s.save(all); err != nil {
		return Article{}, err
	}
	return a, nil
}

// Update replaces every field but the ID. Last write wins.
func (s *ArticleStore) Update(id string, a Article) (Article, error) {
	if err := validateArticle(a); err != nil {
		return Article{}, err
	}
	all, err := s.load()
	if err != nil {
		return Article{}, err
	}
	i := indexOfArticle(all, id)
	if i < 0 {
		return Article{}, domain.WrapError(domain.ErrNotFound, "update article", fmt.Errorf("id=%s", id))
	}
	a.ID = all[i].ID
	all[i] = a
	if err := s.save(all); err != nil {
		return Article{}, err
	}
	return a, nil
}

func (s *ArticleStore) Delete(id string) error {
	all, err := s.load()
	if err != nil {
		return err
	}
	i := indexOfArticle(all, id)
	if i < 0 {
		return domain.WrapError(domain.ErrNotFound, "delete article", fmt.Errorf("id=%s", id))
	}
	all = append(all[:i], all[i+1:]...)
	return s.save(all)
}

func (s *ArticleStore) Summary() (ArticleSummary, error) {
	all, err := s.load()
	if err != nil {
		return ArticleSummary{}, err
	}
	sum := ArticleSummary{Count: len(all)}
	for _, a := range all {
		sum.TotalMenge += a.Menge
	}
	return sum, nil
}

// load treats a missing or unparsable file as an empty inventory.
func (s *ArticleStore) load() ([]Article, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Article{}, nil
		}
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "read inventory", err)
	}
	var all []Article
	if err := json.Unmarshal(raw, &all); err != nil || all == nil {
		return []Article{}, nil
	}
	return all, nil
}

func (s *ArticleStore) save(all []Article) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(all); err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	if err := writeFileReplace(s.path, buf.Bytes()); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "write inventory", err)
	}
	return nil
}

func validateArticle(a Article) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if a.Menge < 0 {
		return fmt.Errorf("%w: Menge must be non-negative, got %d", domain.ErrInvalidInput, a.Menge)
	}
	return nil
}

func indexOfArticle(all []Article, id string) int {
	for i, a := range all {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// writeFileReplace writes next to path and renames over it.
func writeFileReplace(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
