package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"thermal-backend/internal/artifact"
	"thermal-backend/internal/comfort"
	"thermal-backend/internal/features"
	"thermal-backend/internal/metrics"
	"thermal-backend/internal/models"
	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// PredictionRecorder stores served predictions (the ClickHouse prediction log)
type PredictionRecorder interface {
	SavePrediction(ctx context.Context, p *models.PredictionLog) error
}

// DecisionPublisher hands comfort decisions to downstream climate control
type DecisionPublisher interface {
	Publish(ctx context.Context, d *models.ComfortDecision) error
}

// PredictionService owns the loaded ensemble and serves single predictions.
// The bundle is read-only after construction, so Predict is safe for
// concurrent use.
type PredictionService struct {
	bundle *artifact.EnsembleBundle
	set    features.Set
	preset comfort.Preset

	deviceID  string
	recorder  PredictionRecorder
	publisher DecisionPublisher
}

// PredictionServiceConfig holds configuration for prediction service
type PredictionServiceConfig struct {
	FeatureSet features.Set
	Preset     comfort.Preset
	DeviceID   string // device the published decisions are addressed to

	// Optional sinks; nil disables them
	Recorder  PredictionRecorder
	Publisher DecisionPublisher
}

// NewPredictionService checks the bundle against the configured feature set
func NewPredictionService(bundle *artifact.EnsembleBundle, config PredictionServiceConfig) (*PredictionService, error) {
	if bundle == nil || bundle.Ensemble == nil {
		return nil, apperrors.ErrModelNotLoaded
	}
	if bundle.Kind != artifact.KindRegression {
		return nil, fmt.Errorf("artifact holds a %s model, want %s", bundle.Kind, artifact.KindRegression)
	}
	if err := checkColumns(config.FeatureSet.Columns(), bundle.Ensemble.InputColumns()); err != nil {
		return nil, err
	}
	if config.Preset.Name == "" {
		config.Preset = comfort.Serving
	}

	logger.Infof("PredictionService: loaded %s model on %q (%d features)",
		bundle.ModelType, bundle.FeatureSet, len(bundle.Features))

	return &PredictionService{
		bundle:    bundle,
		set:       config.FeatureSet,
		preset:    config.Preset,
		deviceID:  config.DeviceID,
		recorder:  config.Recorder,
		publisher: config.Publisher,
	}, nil
}

// Predict derives features, runs the ensemble, and classifies the result
func (s *PredictionService) Predict(ctx context.Context, rec models.Record) (*models.Prediction, error) {
	start := time.Now()

	vec, err := features.Derive(s.set, rec)
	if err != nil {
		metrics.RecordPredictionError("validation")
		return nil, err
	}

	temp, err := s.bundle.Ensemble.PredictVector(vec)
	if err != nil {
		var schemaErr *apperrors.SchemaError
		if apperrors.As(err, &schemaErr) {
			metrics.RecordPredictionError("schema")
		} else {
			metrics.RecordPredictionError("internal")
		}
		return nil, fmt.Errorf("failed to run ensemble: %w", err)
	}
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		metrics.RecordPredictionError("internal")
		return nil, fmt.Errorf("ensemble produced non-finite temperature %v", temp)
	}

	category := s.preset.Classify(temp)
	prediction := &models.Prediction{
		Temperature: temp,
		Category:    category.String(),
		Label:       category.Label(),
	}

	latency := time.Since(start)
	metrics.RecordPrediction(prediction.Category, latency)
	logger.Debugf("PredictionService: %.3f°C -> %s (%s)", temp, prediction.Category, latency)

	s.record(ctx, rec, prediction, latency)
	s.publish(ctx, prediction)

	return prediction, nil
}

// ModelInfo describes the loaded model
func (s *PredictionService) ModelInfo() models.ModelInfo {
	return models.ModelInfo{
		ModelType:   s.bundle.ModelType,
		Features:    s.set.Columns(),
		Target:      s.bundle.Target,
		ModelLoaded: true,
	}
}

// record writes the prediction log; failures never fail the request
func (s *PredictionService) record(ctx context.Context, rec models.Record, p *models.Prediction, latency time.Duration) {
	if s.recorder == nil {
		return
	}

	entry := &models.PredictionLog{
		Timestamp:   time.Now(),
		ModelType:   s.bundle.ModelType,
		FeatureSet:  s.set.Name,
		HRMean:      valueOf(rec.HRMean),
		HRVSDNN:     valueOf(rec.HRVSDNN),
		BMI:         valueOf(rec.BMI),
		MeanSpO2:    valueOf(rec.MeanSpO2),
		Age:         valueOf(rec.Age),
		Temperature: p.Temperature,
		Category:    p.Category,
		LatencyMs:   float64(latency.Microseconds()) / 1000,
	}
	if rec.Gender != nil {
		entry.Gender = *rec.Gender
	}

	if err := s.recorder.SavePrediction(ctx, entry); err != nil {
		logger.Warnf("PredictionService: failed to record prediction: %v", err)
	}
}

// publish hands the decision to the publisher; failures never fail the request
func (s *PredictionService) publish(ctx context.Context, p *models.Prediction) {
	if s.publisher == nil {
		return
	}

	decision := &models.ComfortDecision{
		DeviceID:    s.deviceID,
		Timestamp:   time.Now(),
		Temperature: p.Temperature,
		Category:    p.Category,
		Label:       p.Label,
	}
	if err := s.publisher.Publish(ctx, decision); err != nil {
		logger.Warnf("PredictionService: failed to publish decision: %v", err)
	}
}

func checkColumns(expected, got []string) error {
	present := make(map[string]bool, len(got))
	for _, c := range got {
		present[c] = true
	}

	var missing []string
	for _, c := range expected {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 || len(expected) != len(got) {
		return &apperrors.SchemaError{Expected: expected, Got: got, Missing: missing}
	}
	for i := range expected {
		if expected[i] != got[i] {
			return &apperrors.SchemaError{Expected: expected, Got: got}
		}
	}
	return nil
}

func valueOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
