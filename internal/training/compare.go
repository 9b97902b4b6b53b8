package training

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"thermal-backend/internal/artifact"
	"thermal-backend/internal/comfort"
	"thermal-backend/internal/dataset"
	"thermal-backend/internal/features"
	"thermal-backend/internal/ml/classifier"
	"thermal-backend/internal/ml/metrics"
	"thermal-backend/internal/ml/selection"
	"thermal-backend/internal/preprocess"
	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// CompareConfig configures a classifier comparison run
type CompareConfig struct {
	FeatureSet features.Set
	Preset     comfort.Preset
	TestSize   float64
	Folds      int
	Seed       int64
	Catalog    []classifier.Spec // nil means classifier.Catalog()
	OutputDir  string            // empty skips the persist stage
}

// DefaultCompareConfig is a stratified 80/20 split with 5-fold cross-validation
func DefaultCompareConfig() CompareConfig {
	return CompareConfig{
		FeatureSet: features.V3Gender,
		Preset:     comfort.Analysis,
		TestSize:   0.2,
		Folds:      5,
		Seed:       42,
	}
}

// ClassifierResult is one classifier's scores
type ClassifierResult struct {
	Name         string
	Scaled       bool
	CV           metrics.Summary // macro F1 per fold
	Test         metrics.Classification
	ArtifactPath string
}

// CompareResult ranks classifiers by test macro F1, best first
type CompareResult struct {
	RunID     string
	Stats     dataset.CleanStats
	TrainRows int
	TestRows  int
	Results   []ClassifierResult
	Duration  time.Duration
}

// Best returns the top-ranked classifier
func (r *CompareResult) Best() ClassifierResult {
	return r.Results[0]
}

// Compare trains every catalog classifier on comfort labels and ranks them
func (d *Driver) Compare(ctx context.Context, cfg CompareConfig) (*CompareResult, error) {
	start := time.Now()
	set := cfg.FeatureSet
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = classifier.Catalog()
	}

	data, err := d.prepare(ctx, set, cfg.Folds+2)
	if err != nil {
		return nil, err
	}
	labels := cfg.Preset.ClassifyAll(dataset.Targets(data.records))

	split, err := selection.StratifiedSplit(labels, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, &apperrors.StageError{Stage: StageSplit, Err: err}
	}
	yTrain, yTest := pickInts(labels, split.Train), pickInts(labels, split.Test)
	trainFrame := data.frame.Subset(split.Train)
	testFrame := data.frame.Subset(split.Test)

	folds, err := selection.StratifiedKFold(yTrain, cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, &apperrors.StageError{Stage: StageSplit, Err: err}
	}
	logger.Infof("Training: comparing %d classifiers on %d train / %d test rows", len(catalog), len(yTrain), len(yTest))

	names := comfort.Names()
	result := &CompareResult{
		Stats:     data.stats,
		TrainRows: len(yTrain),
		TestRows:  len(yTest),
	}

	for _, spec := range catalog {
		cv, err := selection.CrossValidate(ctx, folds, func(ctx context.Context, fold selection.Split) (float64, error) {
			_, _, pred, err := fitClassifier(ctx, spec, set, cfg.Seed, trainFrame.Subset(fold.Train), pickInts(yTrain, fold.Train), trainFrame.Subset(fold.Test), len(names))
			if err != nil {
				return 0, err
			}
			return metrics.MacroF1(pickInts(yTrain, fold.Test), pred, len(names)), nil
		})
		if err != nil {
			return nil, &apperrors.StageError{Stage: StageEvaluate, Err: fmt.Errorf("%s: %w", spec.Name, err)}
		}

		pipeline, model, pred, err := fitClassifier(ctx, spec, set, cfg.Seed, trainFrame, yTrain, testFrame, len(names))
		if err != nil {
			return nil, &apperrors.StageError{Stage: StageFit, Err: fmt.Errorf("%s: %w", spec.Name, err)}
		}

		res := ClassifierResult{
			Name:   spec.Name,
			Scaled: spec.Scaled,
			CV:     cv,
			Test:   metrics.Classify(yTest, pred, names),
		}
		logger.Infof("Training: %s macro F1 %.4f (CV %.4f ± %.4f)", spec.Name, res.Test.MacroF1, cv.Mean, cv.Std)

		if cfg.OutputDir != "" {
			path := filepath.Join(cfg.OutputDir, ClassifierFileName(spec.Name))
			bundle := &artifact.ClassifierBundle{
				Metadata: artifact.Metadata{
					FeatureSet: set.Name,
					Target:     artifact.TargetComfort,
					ModelType:  spec.Name,
					CreatedAt:  time.Now().UTC(),
					Metrics: map[string]float64{
						"accuracy":   res.Test.Accuracy,
						"macro_f1":   res.Test.MacroF1,
						"cv_f1_mean": cv.Mean,
						"cv_f1_std":  cv.Std,
					},
				},
				Pipeline: pipeline,
				Model:    model,
				Labels:   names,
			}
			if err := artifact.SaveClassifier(path, bundle); err != nil {
				return nil, &apperrors.StageError{Stage: StagePersist, Err: err}
			}
			res.ArtifactPath = path
		}

		result.Results = append(result.Results, res)
	}

	sort.SliceStable(result.Results, func(i, j int) bool {
		return result.Results[i].Test.MacroF1 > result.Results[j].Test.MacroF1
	})

	best := result.Best()
	run := newRun(string(artifact.KindClassification), set.Name, best.Name)
	run.TrainRows, run.TestRows = result.TrainRows, result.TestRows
	run.ArtifactPath = best.ArtifactPath
	for _, r := range result.Results {
		run.Metrics[metricKey(r.Name)+"_macro_f1"] = r.Test.MacroF1
	}
	result.RunID = run.RunID
	d.recordRun(ctx, run)
	result.Duration = time.Since(start)

	WriteComparisonReport(d.report, set, result)
	logger.Infof("Training: best classifier %s (macro F1 %.4f)", best.Name, best.Test.MacroF1)
	return result, nil
}

// fitClassifier fits a fresh pipeline and model and predicts the evaluation frame
func fitClassifier(ctx context.Context, spec classifier.Spec, set features.Set, seed int64, train *preprocess.Frame, y []int, eval *preprocess.Frame, classes int) (*preprocess.Pipeline, classifier.Model, []int, error) {
	pipeline := preprocess.New(set, spec.Scaled)
	x, err := pipeline.FitTransform(train)
	if err != nil {
		return nil, nil, nil, err
	}

	model := spec.New(seed)
	if err := model.Fit(ctx, x, y, classes); err != nil {
		return nil, nil, nil, err
	}

	xEval, err := pipeline.Transform(eval)
	if err != nil {
		return nil, nil, nil, err
	}
	return pipeline, model, model.Predict(xEval), nil
}

// ClassifierFileName is the artifact file name for a catalog entry
func ClassifierFileName(name string) string {
	return "classifier_" + metricKey(name) + ".bin"
}

func metricKey(name string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(name))
}
