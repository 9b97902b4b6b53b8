// Package ensemble combines independently fit regressors by averaging.
package ensemble

import (
	"context"
	"encoding/gob"
	"fmt"
	"sort"

	"thermal-backend/internal/features"
	"thermal-backend/internal/ml/regressor"
	"thermal-backend/internal/preprocess"
)

func init() {
	gob.Register(&regressor.Forest{})
	gob.Register(&regressor.GradientBoosting{})
}

// Member names, as reported in evaluation
const (
	RandomForest     = "Random Forest"
	ExtraTrees       = "Extra Trees"
	GradientBoosting = "Gradient Boosting"
)

// Config sizes the three members
type Config struct {
	RandomForest regressor.ForestConfig
	ExtraTrees   regressor.ForestConfig
	Boosting     regressor.BoostingConfig
}

// DefaultConfig is the production configuration, seed 42 throughout
func DefaultConfig() Config {
	return Config{
		RandomForest: regressor.RandomForestConfig(),
		ExtraTrees:   regressor.ExtraTreesConfig(),
		Boosting:     regressor.GradientBoostingConfig(),
	}
}

// Scaled returns a copy with every member's tree or stage count replaced
func (c Config) Scaled(n int) Config {
	c.RandomForest.Trees = n
	c.ExtraTrees.Trees = n
	c.Boosting.Stages = n
	return c
}

// Member is one learner behind its own preprocessing pipeline
type Member struct {
	Name     string
	Pipeline *preprocess.Pipeline
	Model    regressor.Model
}

// Voting predicts the unweighted mean of its members
type Voting struct {
	FeatureSet string
	Members    []Member
}

// New returns an unfitted three-member ensemble for a feature set
func New(set features.Set, cfg Config) *Voting {
	return &Voting{
		FeatureSet: set.Name,
		Members: []Member{
			{Name: RandomForest, Pipeline: preprocess.New(set, true), Model: regressor.NewForest(cfg.RandomForest)},
			{Name: ExtraTrees, Pipeline: preprocess.New(set, true), Model: regressor.NewForest(cfg.ExtraTrees)},
			{Name: GradientBoosting, Pipeline: preprocess.New(set, true), Model: regressor.NewGradientBoosting(cfg.Boosting)},
		},
	}
}

// Fit fits every member's pipeline and model on the same training frame
func (v *Voting) Fit(ctx context.Context, frame *preprocess.Frame, y []float64) error {
	if frame.Len() != len(y) {
		return fmt.Errorf("ensemble: %d rows but %d targets", frame.Len(), len(y))
	}
	for _, m := range v.Members {
		x, err := m.Pipeline.FitTransform(frame)
		if err != nil {
			return fmt.Errorf("failed to preprocess for %s: %w", m.Name, err)
		}
		if err := m.Model.Fit(ctx, x, y); err != nil {
			return fmt.Errorf("failed to fit %s: %w", m.Name, err)
		}
	}
	return nil
}

// MemberPredictions returns each member's predictions, in member order
func (v *Voting) MemberPredictions(frame *preprocess.Frame) ([][]float64, error) {
	out := make([][]float64, len(v.Members))
	for k, m := range v.Members {
		x, err := m.Pipeline.Transform(frame)
		if err != nil {
			return nil, fmt.Errorf("failed to preprocess for %s: %w", m.Name, err)
		}
		out[k] = m.Model.Predict(x)
	}
	return out, nil
}

// Predict returns the mean member prediction per row
func (v *Voting) Predict(frame *preprocess.Frame) ([]float64, error) {
	members, err := v.MemberPredictions(frame)
	if err != nil {
		return nil, err
	}
	out := make([]float64, frame.Len())
	for _, preds := range members {
		for i, p := range preds {
			out[i] += p
		}
	}
	for i := range out {
		out[i] /= float64(len(members))
	}
	return out, nil
}

// PredictVector predicts a single derived vector
func (v *Voting) PredictVector(vec features.Vector) (float64, error) {
	var sum float64
	for _, m := range v.Members {
		row, err := m.Pipeline.TransformVector(vec)
		if err != nil {
			return 0, err
		}
		sum += m.Model.PredictRow(row)
	}
	return sum / float64(len(v.Members)), nil
}

// InputColumns returns the derived columns the ensemble expects
func (v *Voting) InputColumns() []string {
	if len(v.Members) == 0 {
		return nil
	}
	return v.Members[0].Pipeline.InputColumns()
}

// MemberNames lists the members in order
func (v *Voting) MemberNames() []string {
	names := make([]string, len(v.Members))
	for i, m := range v.Members {
		names[i] = m.Name
	}
	return names
}

// Importance is one transformed column's share of impurity decrease
type Importance struct {
	Feature string
	Value   float64
}

// FeatureImportances reports the random forest member's importances,
// highest first
func (v *Voting) FeatureImportances() []Importance {
	for _, m := range v.Members {
		f, ok := m.Model.(*regressor.Forest)
		if !ok || m.Name != RandomForest {
			continue
		}
		names := m.Pipeline.OutputNames()
		values := f.FeatureImportances()
		out := make([]Importance, 0, len(names))
		for j, name := range names {
			if j < len(values) {
				out = append(out, Importance{Feature: name, Value: values[j]})
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
		return out
	}
	return nil
}
