// Package fundgrube runs one lost-and-found interaction end to end:
// classify the uploaded photo, store the report, and look for matches.
package fundgrube

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
	"github.com/Brownie44l1/fundgrube-api/internal/items"
	"github.com/Brownie44l1/fundgrube-api/internal/model"
	"github.com/Brownie44l1/fundgrube-api/internal/notify"
	"github.com/Brownie44l1/fundgrube-api/internal/objectstore"
)

// ObjectStorage keeps the uploaded photo and returns where it can be fetched.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Recorder receives pipeline observations. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordPrediction(label string, confidence float32, took time.Duration)
	RecordReport(itemType string, matches int)
}

type Deps struct {
	Predictor *model.Predictor
	Store     items.Store
	Objects   ObjectStorage
	Publisher notify.Publisher
	Metrics   Recorder
	Logger    *slog.Logger
}

type Service struct {
	predictor *model.Predictor
	store     items.Store
	finder    *items.Finder
	objects   ObjectStorage
	publisher notify.Publisher
	metrics   Recorder
	logger    *slog.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		predictor: d.Predictor,
		store:     d.Store,
		finder:    items.NewFinder(d.Store),
		objects:   d.Objects,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
	if s.publisher == nil {
		s.publisher = notify.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Submission carries everything one report interaction needs. It replaces
// any notion of a shared "current session".
type Submission struct {
	Image    []byte
	Filename string
	Type     domain.ItemType
	Tags     []string
	Location string
	Reward   float64
	// Label, when set, is the user-confirmed label and wins over the prediction.
	Label string
}

type Report struct {
	Prediction model.PredictionResult `json:"prediction"`
	Record     domain.ItemRecord      `json:"record"`
	Matches    []domain.ItemRecord    `json:"matches"`
}

// Analyze decodes a JPEG/PNG upload and classifies it.
func (s *Service) Analyze(ctx context.Context, raw []byte) (model.PredictionResult, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return model.PredictionResult{}, domain.WrapError(domain.ErrDecode, "decode image", err)
	}

	start := time.Now()
	res, err := s.predictor.PredictImage(ctx, img)
	if err != nil {
		return model.PredictionResult{}, err
	}
	s.observe(res, time.Since(start))
	return res, nil
}

// AnalyzeTensor classifies values that are already normalized to [-1,1].
func (s *Service) AnalyzeTensor(ctx context.Context, data []float32) (model.PredictionResult, error) {
	t, err := model.NewInputTensor(data)
	if err != nil {
		return model.PredictionResult{}, domain.WrapError(domain.ErrInvalidInput, "build tensor", err)
	}

	start := time.Now()
	res, err := s.predictor.PredictTensor(ctx, t)
	if err != nil {
		return model.PredictionResult{}, err
	}
	s.observe(res, time.Since(start))
	return res, nil
}

// Report classifies the photo, stores it with the record, and returns any
// opposite-type records with the same label.
func (s *Service) Report(ctx context.Context, sub Submission) (*Report, error) {
	if !sub.Type.Valid() {
		return nil, fmt.Errorf("%w: item type %q, want found or search", domain.ErrInvalidInput, sub.Type)
	}
	if err := domain.ValidateReward(sub.Reward); err != nil {
		return nil, err
	}

	pred, err := s.Analyze(ctx, sub.Image)
	if err != nil {
		return nil, err
	}

	key := objectstore.Key(string(sub.Type), sub.Filename)
	label := strings.TrimSpace(sub.Label)
	if label == "" {
		label = pred.Label
	}
	rec := domain.ItemRecord{
		Label:      label,
		Confidence: pred.Confidence,
		Tags:       CleanTags(sub.Tags),
		ImageURL:   s.objects.URL(key),
		Type:       sub.Type,
		Reward:     sub.Reward,
	}
	if loc := strings.TrimSpace(sub.Location); loc != "" {
		rec.Location = &loc
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	if err := s.objects.Save(ctx, key, bytes.NewReader(sub.Image)); err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "save image", err)
	}
	if _, err := s.store.Insert(ctx, &rec); err != nil {
		if derr := s.objects.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned_image", "key", key, "error", derr)
		}
		return nil, err
	}

	matches, err := s.finder.FindMatches(ctx, rec.Label, rec.Type)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReport(string(rec.Type), len(matches))
	}
	s.logger.Info("item_reported",
		"id", rec.ID,
		"label", rec.Label,
		"type", rec.Type,
		"predicted", pred.Label,
		"percent", pred.Percent,
		"matches", len(matches),
	)

	if len(matches) > 0 {
		if err := s.publisher.PublishMatch(ctx, notify.NewMatchEvent(rec, matches)); err != nil {
			s.logger.Warn("match_notification_failed", "id", rec.ID, "error", err)
		}
	}

	return &Report{Prediction: pred, Record: rec, Matches: matches}, nil
}

func (s *Service) Matches(ctx context.Context, label string, typ domain.ItemType) ([]domain.ItemRecord, error) {
	return s.finder.FindMatches(ctx, label, typ)
}

func (s *Service) Items(ctx context.Context, filter domain.ItemFilter) ([]domain.ItemRecord, error) {
	return s.store.Query(ctx, filter)
}

func (s *Service) Item(ctx context.Context, id string) (*domain.ItemRecord, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) observe(res model.PredictionResult, took time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordPrediction(res.Label, res.Confidence, took)
	}
	s.logger.Debug("prediction", "label", res.Label, "class_index", res.ClassIndex, "percent", res.Percent)
}

// CleanTags trims tags and drops empty ones. "a, b,,c" arrives as
// []string{"a", " b", "", "c"} from a form split.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitTags parses a comma-separated tag string.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return CleanTags(strings.Split(s, ","))
}
