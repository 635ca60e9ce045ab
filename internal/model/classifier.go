package model

import (
	"context"
	"fmt"
	"image"

	"github.com/Brownie44l1/fundgrube-api/internal/labels"
)

// Classifier scores a preprocessed tensor and returns one probability per
// class. Implementations must be deterministic for a fixed model and input.
type Classifier interface {
	Classify(ctx context.Context, t Tensor) ([]float32, error)
}

// Predictor runs preprocess, classify and resolve against a loaded model.
type Predictor struct {
	classifier Classifier
	catalog    *labels.Catalog
}

// NewPredictor takes a nil catalog to run in degraded "Class N" mode.
func NewPredictor(classifier Classifier, catalog *labels.Catalog) *Predictor {
	return &Predictor{classifier: classifier, catalog: catalog}
}

func (p *Predictor) Catalog() *labels.Catalog {
	return p.catalog
}

func (p *Predictor) PredictImage(ctx context.Context, img image.Image) (PredictionResult, error) {
	t, err := Preprocess(img)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("preprocess: %w", err)
	}
	return p.PredictTensor(ctx, t)
}

func (p *Predictor) PredictTensor(ctx context.Context, t Tensor) (PredictionResult, error) {
	probs, err := p.classifier.Classify(ctx, t)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("classify: %w", err)
	}
	return Resolve(probs, p.catalog)
}
