package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Brownie44l1/fundgrube-api/internal/inventory"
)

const (
	articlesStore = "articles"
	stockStore    = "stock"
)

func (h *Handler) recordInventory(store, op string) {
	if h.metrics != nil {
		h.metrics.RecordInventoryOp(store, op)
	}
}

func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	list, err := h.articles.List(r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, "list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": list, "count": len(list)})
}

func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var a inventory.Article
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	created, err := h.articles.Create(a)
	if err != nil {
		h.fail(w, r, "create article", err)
		return
	}
	h.recordInventory(articlesStore, "create")
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var a inventory.Article
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	updated, err := h.articles.Update(chi.URLParam(r, "id"), a)
	if err != nil {
		h.fail(w, r, "update article", err)
		return
	}
	h.recordInventory(articlesStore, "update")
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.articles.Delete(chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete article", err)
		return
	}
	h.recordInventory(articlesStore, "delete")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ArticleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.articles.Summary()
	if err != nil {
		h.fail(w, r, "article summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	list, err := h.stock.List()
	if err != nil {
		h.fail(w, r, "list stock", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock": list, "count": len(list)})
}

func (h *Handler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var it inventory.StockItem
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	created, err := h.stock.Create(it)
	if err != nil {
		h.fail(w, r, "create stock", err)
		return
	}
	h.recordInventory(stockStore, "create")
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	product, ok := productParam(w, r)
	if !ok {
		return
	}
	var it inventory.StockItem
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	updated, err := h.stock.Update(product, it)
	if err != nil {
		h.fail(w, r, "update stock", err)
		return
	}
	h.recordInventory(stockStore, "update")
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	product, ok := productParam(w, r)
	if !ok {
		return
	}
	if err := h.stock.Delete(product); err != nil {
		h.fail(w, r, "delete stock", err)
		return
	}
	h.recordInventory(stockStore, "delete")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) StockSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.stock.Summary()
	if err != nil {
		h.fail(w, r, "stock summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// productParam returns the decoded product name. chi matches on
// r.URL.RawPath only when it is set (e.g. an encoded "/"); otherwise the
// segment is already decoded and must not be unescaped again.
func productParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	product := chi.URLParam(r, "product")
	if r.URL.RawPath == "" {
		return product, true
	}
	product, err := url.PathUnescape(product)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product name")
		return "", false
	}
	return product, true
}
