package model

// Metadata describes the ONNX graph the Session binds to.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// PredictionResult is the resolved arg-max class. Confidence is the raw
// probability; Percent is the display value, rounded to two decimals.
type PredictionResult struct {
	ClassIndex int                `json:"class_index"`
	Label      string             `json:"label"`
	Confidence float32            `json:"confidence"`
	Percent    float64            `json:"percent"`
	Scores     map[string]float32 `json:"scores,omitempty"`
}
