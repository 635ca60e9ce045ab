package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
	"github.com/Brownie44l1/fundgrube-api/internal/labels"
)

// Session is the ONNX-backed Classifier. The model is loaded once and the
// input/output tensors are reused, so Classify calls are serialized.
type Session struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// DefaultMetadata matches a Teachable Machine export converted to ONNX.
func DefaultMetadata(classes int) Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  append([]int64(nil), InputShape...),
		OutputShape: []int64{1, int64(classes)},
	}
}

// LoadMetadata reads the graph description. A missing file falls back to
// DefaultMetadata sized to the catalog; unset fields take the defaults.
func LoadMetadata(path string, catalog *labels.Catalog) (Metadata, error) {
	meta := DefaultMetadata(catalog.Len())

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, nil
		}
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var fromFile Metadata
	if err := json.Unmarshal(raw, &fromFile); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if fromFile.InputName != "" {
		meta.InputName = fromFile.InputName
	}
	if fromFile.OutputName != "" {
		meta.OutputName = fromFile.OutputName
	}
	if len(fromFile.InputShape) > 0 {
		meta.InputShape = fromFile.InputShape
	}
	if len(fromFile.OutputShape) > 0 {
		meta.OutputShape = fromFile.OutputShape
	}
	return meta, nil
}

// OutputWidth is the size of the last output dimension.
func (m Metadata) OutputWidth() int {
	if len(m.OutputShape) == 0 {
		return 0
	}
	return int(m.OutputShape[len(m.OutputShape)-1])
}

// Check fails with ErrConfigMismatch when the graph does not take a
// [1,224,224,3] input or its output width differs from the catalog length.
// A nil catalog skips the width check.
func (m Metadata) Check(catalog *labels.Catalog) error {
	if !slices.Equal(m.InputShape, InputShape) {
		return domain.WrapError(domain.ErrConfigMismatch, "check model input",
			fmt.Errorf("input shape %v, want %v", m.InputShape, InputShape))
	}
	if m.OutputWidth() <= 0 {
		return domain.WrapError(domain.ErrConfigMismatch, "check model output",
			fmt.Errorf("output shape %v has no class dimension", m.OutputShape))
	}
	if catalog != nil && catalog.Len() != m.OutputWidth() {
		return domain.WrapError(domain.ErrConfigMismatch, "check label catalog",
			fmt.Errorf("%d labels for %d model outputs", catalog.Len(), m.OutputWidth()))
	}
	return nil
}

// NewSession initializes the ONNX runtime and binds the model. libraryPath
// may be empty to use the runtime's default shared library lookup.
func NewSession(modelPath, libraryPath string, meta Metadata) (*Session, error) {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session:      session,
		Metadata:     meta,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (s *Session) Classify(ctx context.Context, t Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in := s.inputTensor.GetData()
	if len(t.Data) != len(in) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify",
			fmt.Errorf("expected %d values, got %d", len(in), len(t.Data)))
	}
	copy(in, t.Data)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return slices.Clone(s.outputTensor.GetData()), nil
}

func (s *Session) Close() {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
