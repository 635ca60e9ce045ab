package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
	"github.com/Brownie44l1/fundgrube-api/internal/fundgrube"
	"github.com/Brownie44l1/fundgrube-api/internal/inventory"
	"github.com/Brownie44l1/fundgrube-api/internal/metrics"
	"github.com/Brownie44l1/fundgrube-api/internal/model"
)

// Pipeline is the lost-and-found surface; *fundgrube.Service implements it.
type Pipeline interface {
	Analyze(ctx context.Context, image []byte) (model.PredictionResult, error)
	AnalyzeTensor(ctx context.Context, data []float32) (model.PredictionResult, error)
	Report(ctx context.Context, sub fundgrube.Submission) (*fundgrube.Report, error)
	Matches(ctx context.Context, label string, typ domain.ItemType) ([]domain.ItemRecord, error)
	Items(ctx context.Context, filter domain.ItemFilter) ([]domain.ItemRecord, error)
	Item(ctx context.Context, id string) (*domain.ItemRecord, error)
}

type ArticleStore interface {
	List(search string) ([]inventory.Article, error)
	Create(a inventory.Article) (inventory.Article, error)
	Update(id string, a inventory.Article) (inventory.Article, error)
	Delete(id string) error
	Summary() (inventory.ArticleSummary, error)
}

type StockStore interface {
	List() ([]inventory.StockItem, error)
	Create(it inventory.StockItem) (inventory.StockItem, error)
	Update(product string, it inventory.StockItem) (inventory.StockItem, error)
	Delete(product string) error
	Summary() (inventory.StockSummary, error)
}

type Deps struct {
	Pipeline Pipeline
	Articles ArticleStore
	Stock    StockStore
	// Images serves stored uploads under /images/.
	Images  http.Handler
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// Labels are the resolved catalog labels; empty means degraded mode.
	Labels         []string
	MaxUploadBytes int64
}

type Handler struct {
	pipeline  Pipeline
	articles  ArticleStore
	stock     StockStore
	images    http.Handler
	metrics   *metrics.Metrics
	logger    *slog.Logger
	labels    []string
	maxUpload int64
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		pipeline:  d.Pipeline,
		articles:  d.Articles,
		stock:     d.Stock,
		images:    d.Images,
		metrics:   d.Metrics,
		logger:    d.Logger,
		labels:    d.Labels,
		maxUpload: d.MaxUploadBytes,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 10 << 20
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Use(h.logRequests)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Get("/health", h.Health)
	r.Post("/predict", h.Predict)
	r.Post("/predict/image", h.PredictFromImage)

	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.ReportItem)
		r.Get("/", h.ListItems)
		r.Get("/{id}", h.GetItem)
	})
	r.Get("/matches", h.FindMatches)
	if h.images != nil {
		r.Handle("/images/*", http.StripPrefix("/images", h.images))
	}

	if h.articles != nil {
		r.Route("/inventory/articles", func(r chi.Router) {
			r.Get("/", h.ListArticles)
			r.Post("/", h.CreateArticle)
			r.Get("/summary", h.ArticleSummary)
			r.Put("/{id}", h.UpdateArticle)
			r.Delete("/{id}", h.DeleteArticle)
		})
	}
	if h.stock != nil {
		r.Route("/inventory/stock", func(r chi.Router) {
			r.Get("/", h.ListStock)
			r.Post("/", h.CreateStock)
			r.Get("/summary", h.StockSummary)
			r.Put("/{product}", h.UpdateStock)
			r.Delete("/{product}", h.DeleteStock)
		})
	}
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"classes":       len(h.labels),
		"labels_loaded": len(h.labels) > 0,
	})
}

// Predict classifies a raw, already normalized [1,224,224,3] tensor.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var req model.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body exceeds %d bytes", tooLarge.Limit)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	result, err := h.pipeline.AnalyzeTensor(r.Context(), req.Image)
	if err != nil {
		h.fail(w, r, "predict", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	raw, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	h.logger.Debug("upload_received", "filename", filename, "bytes", len(raw))

	pred, err := h.pipeline.Analyze(r.Context(), raw)
	if err != nil {
		h.fail(w, r, "predict image", err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// readUpload parses the multipart form and returns the "image" field.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload exceeds %d bytes", tooLarge.Limit)
			return nil, "", false
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return nil, "", false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided. Use 'image' as the form field name")
		return nil, "", false
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read image")
		return nil, "", false
	}
	return raw, header.Filename, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request_failed", "op", op, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string, args ...any) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
