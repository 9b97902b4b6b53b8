package models

import "time"

// Record is one subject observation. Nil fields are missing values.
type Record struct {
	BMI        *float64 `json:"bmi,omitempty"`
	MeanSpO2   *float64 `json:"mean_sa02,omitempty"`
	HRVSDNN    *float64 `json:"hrv_sdnn,omitempty"`
	HRMean     *float64 `json:"hr_mean,omitempty"`
	Gender     *string  `json:"gender,omitempty"`
	Age        *float64 `json:"age,omitempty"`
	TempMedian *float64 `json:"temp_median,omitempty"` // regression target
}

// Float returns a pointer to v, for building records
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s, for building records
func String(s string) *string {
	return &s
}

// Prediction is the serving output for one record
type Prediction struct {
	Temperature float64 `json:"predicted_temperature"`
	Category    string  `json:"category"`
	Label       string  `json:"temperature_category"`
}

// ComfortDecision is published for downstream climate control
type ComfortDecision struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Category    string    `json:"category"`
	Label       string    `json:"label"`
}

// PredictionLog is one row of the prediction log
type PredictionLog struct {
	Timestamp   time.Time
	ModelType   string
	FeatureSet  string
	HRMean      float64
	HRVSDNN     float64
	BMI         float64
	MeanSpO2    float64
	Gender      string
	Age         float64
	Temperature float64
	Category    string
	LatencyMs   float64
}

// TrainingRun summarizes one training driver run
type TrainingRun struct {
	Timestamp    time.Time
	RunID        string
	Kind         string
	FeatureSet   string
	ModelType    string
	TrainRows    int
	TestRows     int
	Metrics      map[string]float64
	ArtifactPath string
}

// ModelInfo describes the loaded serving model
type ModelInfo struct {
	ModelType   string   `json:"model_type"`
	Features    []string `json:"features"`
	Target      string   `json:"target"`
	ModelLoaded bool     `json:"model_loaded"`
}
