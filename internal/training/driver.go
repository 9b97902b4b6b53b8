// Package training runs the offline load, clean, derive, split, fit,
// evaluate and persist stages for the temperature ensemble and the comfort
// classifiers.
package training

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"thermal-backend/internal/dataset"
	"thermal-backend/internal/features"
	"thermal-backend/internal/models"
	"thermal-backend/internal/preprocess"
	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// Stage names, in execution order
const (
	StageLoad     = "load"
	StageClean    = "clean"
	StageDerive   = "derive"
	StageSplit    = "split"
	StageFit      = "fit"
	StageEvaluate = "evaluate"
	StagePersist  = "persist"
)

// RunRecorder stores a summary of each run (the ClickHouse training-run table)
type RunRecorder interface {
	SaveTrainingRun(ctx context.Context, run *models.TrainingRun) error
}

// Driver runs training jobs against one data source
type Driver struct {
	source   dataset.Source
	recorder RunRecorder
	report   io.Writer
}

// NewDriver creates a driver. recorder and report may be nil.
func NewDriver(source dataset.Source, recorder RunRecorder, report io.Writer) *Driver {
	if report == nil {
		report = io.Discard
	}
	return &Driver{
		source:   source,
		recorder: recorder,
		report:   report,
	}
}

// prepared is a cleaned, derived dataset ready to split
type prepared struct {
	records []models.Record
	frame   *preprocess.Frame
	stats   dataset.CleanStats
}

// prepare runs the load, clean and derive stages
func (d *Driver) prepare(ctx context.Context, set features.Set, minRows int) (*prepared, error) {
	logger.Infof("Training: loading %s", d.source.Describe())
	records, err := d.source.Load(ctx)
	if err != nil {
		return nil, &apperrors.StageError{Stage: StageLoad, Err: err}
	}

	kept, stats := dataset.Clean(set, records)
	logger.Infof("Training: %d rows loaded, %d kept (%d missing values, %d zero temperature, %d zero heart rate)",
		stats.Total, stats.Kept, stats.Missing, stats.ZeroTemp, stats.ZeroHeart)
	if len(kept) < minRows {
		return nil, &apperrors.StageError{
			Stage: StageClean,
			Err:   fmt.Errorf("only %d usable rows, need at least %d", len(kept), minRows),
		}
	}

	vecs, err := features.DeriveAll(set, kept)
	if err != nil {
		return nil, &apperrors.StageError{Stage: StageDerive, Err: err}
	}

	return &prepared{
		records: kept,
		frame:   preprocess.FrameFromVectors(vecs),
		stats:   stats,
	}, nil
}

// recordRun stores the run summary; failures are logged only
func (d *Driver) recordRun(ctx context.Context, run *models.TrainingRun) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.SaveTrainingRun(ctx, run); err != nil {
		logger.Warnf("Training: failed to record run %s: %v", run.RunID, err)
	}
}

func newRun(kind, featureSet, modelType string) *models.TrainingRun {
	return &models.TrainingRun{
		Timestamp:  time.Now(),
		RunID:      uuid.NewString(),
		Kind:       kind,
		FeatureSet: featureSet,
		ModelType:  modelType,
		Metrics:    make(map[string]float64),
	}
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func pickInts(values []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
