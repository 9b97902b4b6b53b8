package training

import (
	"context"
	"fmt"
	"time"

	"thermal-backend/internal/artifact"
	"thermal-backend/internal/comfort"
	"thermal-backend/internal/dataset"
	"thermal-backend/internal/features"
	"thermal-backend/internal/ml/ensemble"
	"thermal-backend/internal/ml/metrics"
	"thermal-backend/internal/ml/selection"
	"thermal-backend/internal/preprocess"
	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// ModelTypeVoting names the serving ensemble in artifacts and the run table
const ModelTypeVoting = "VotingRegressor"

// RegressionConfig configures an ensemble training run
type RegressionConfig struct {
	FeatureSet features.Set
	TestSize   float64
	Folds      int
	Seed       int64
	Ensemble   ensemble.Config
	OutputPath string // empty skips the persist stage
}

// DefaultRegressionConfig is a 70/30 split with 5-fold cross-validation
func DefaultRegressionConfig() RegressionConfig {
	return RegressionConfig{
		FeatureSet: features.ServiceAge,
		TestSize:   0.3,
		Folds:      5,
		Seed:       42,
		Ensemble:   ensemble.DefaultConfig(),
	}
}

// RegressionResult is everything a regression run measured
type RegressionResult struct {
	RunID          string
	Stats          dataset.CleanStats
	TrainRows      int
	TestRows       int
	Test           metrics.Regression
	Members        []MemberScore
	CV             metrics.Summary
	Classification metrics.Classification // test predictions under the analysis preset
	AgeGroups      []metrics.Group
	Importances    []ensemble.Importance
	ArtifactPath   string
	Duration       time.Duration
}

// MemberScore is one ensemble member's test R2
type MemberScore struct {
	Name string
	R2   float64
}

// Train fits, evaluates and persists the temperature ensemble
func (d *Driver) Train(ctx context.Context, cfg RegressionConfig) (*RegressionResult, error) {
	start := time.Now()
	set := cfg.FeatureSet

	data, err := d.prepare(ctx, set, cfg.Folds+2)
	if err != nil {
		return nil, err
	}
	y := dataset.Targets(data.records)

	split, err := selection.TrainTestSplit(len(y), cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, &apperrors.StageError{Stage: StageSplit, Err: err}
	}
	if len(split.Train) < cfg.Folds {
		return nil, &apperrors.StageError{
			Stage: StageSplit,
			Err:   fmt.Errorf("%d training rows cannot fill %d folds", len(split.Train), cfg.Folds),
		}
	}
	trainFrame := data.frame.Subset(split.Train)
	testFrame := data.frame.Subset(split.Test)
	yTrain, yTest := pick(y, split.Train), pick(y, split.Test)
	logger.Infof("Training: %d train rows, %d test rows", len(yTrain), len(yTest))

	model := ensemble.New(set, cfg.Ensemble)
	if err := model.Fit(ctx, trainFrame, yTrain); err != nil {
		return nil, &apperrors.StageError{Stage: StageFit, Err: err}
	}

	result := &RegressionResult{
		Stats:     data.stats,
		TrainRows: len(yTrain),
		TestRows:  len(yTest),
	}

	preds, err := model.Predict(testFrame)
	if err != nil {
		return nil, &apperrors.StageError{Stage: StageEvaluate, Err: err}
	}
	result.Test = metrics.Evaluate(yTest, preds)

	memberPreds, err := model.MemberPredictions(testFrame)
	if err != nil {
		return nil, &apperrors.StageError{Stage: StageEvaluate, Err: err}
	}
	for k, name := range model.MemberNames() {
		result.Members = append(result.Members, MemberScore{Name: name, R2: metrics.R2(yTest, memberPreds[k])})
	}

	result.CV, err = d.crossValidateEnsemble(ctx, cfg, trainFrame, yTrain)
	if err != nil {
		return nil, &apperrors.StageError{Stage: StageEvaluate, Err: err}
	}

	result.Classification = metrics.Classify(
		comfort.Analysis.ClassifyAll(yTest),
		comfort.Analysis.ClassifyAll(preds),
		comfort.Names(),
	)
	if set.HasAge() {
		ages := pick(dataset.Ages(data.records), split.Test)
		result.AgeGroups = metrics.AgeGroups(ages, yTest, preds)
	}
	result.Importances = model.FeatureImportances()

	run := newRun(string(artifact.KindRegression), set.Name, ModelTypeVoting)
	run.TrainRows, run.TestRows = result.TrainRows, result.TestRows
	run.Metrics["r2"] = result.Test.R2
	run.Metrics["mse"] = result.Test.MSE
	run.Metrics["rmse"] = result.Test.RMSE
	run.Metrics["mae"] = result.Test.MAE
	run.Metrics["cv_r2_mean"] = result.CV.Mean
	run.Metrics["cv_r2_std"] = result.CV.Std
	run.Metrics["category_accuracy"] = result.Classification.Accuracy
	result.RunID = run.RunID

	if cfg.OutputPath != "" {
		bundle := &artifact.EnsembleBundle{
			Metadata: artifact.Metadata{
				FeatureSet: set.Name,
				Target:     artifact.TargetTemperature,
				ModelType:  ModelTypeVoting,
				CreatedAt:  time.Now().UTC(),
				Metrics:    run.Metrics,
			},
			Ensemble: model,
		}
		if err := artifact.SaveEnsemble(cfg.OutputPath, bundle); err != nil {
			return nil, &apperrors.StageError{Stage: StagePersist, Err: err}
		}
		result.ArtifactPath = cfg.OutputPath
		run.ArtifactPath = cfg.OutputPath
	}

	d.recordRun(ctx, run)
	result.Duration = time.Since(start)

	WriteRegressionReport(d.report, set, result)
	logger.Infof("Training: run %s finished in %s (test R2 %.4f)", run.RunID, result.Duration.Round(time.Millisecond), result.Test.R2)
	return result, nil
}

// crossValidateEnsemble scores fresh ensembles on k folds of the training rows
func (d *Driver) crossValidateEnsemble(ctx context.Context, cfg RegressionConfig, frame *preprocess.Frame, y []float64) (metrics.Summary, error) {
	folds, err := selection.KFold(len(y), cfg.Folds, cfg.Seed)
	if err != nil {
		return metrics.Summary{}, err
	}

	return selection.CrossValidate(ctx, folds, func(ctx context.Context, split selection.Split) (float64, error) {
		model := ensemble.New(cfg.FeatureSet, cfg.Ensemble)
		if err := model.Fit(ctx, frame.Subset(split.Train), pick(y, split.Train)); err != nil {
			return 0, err
		}
		preds, err := model.Predict(frame.Subset(split.Test))
		if err != nil {
			return 0, err
		}
		return metrics.R2(pick(y, split.Test), preds), nil
	})
}
