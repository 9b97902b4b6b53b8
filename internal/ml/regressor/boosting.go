package regressor

import (
	"context"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"thermal-backend/internal/ml/tree"
)

// BoostingConfig configures squared-loss gradient boosting
type BoostingConfig struct {
	Stages          int
	LearningRate    float64
	MaxDepth        int
	Subsample       float64
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// GradientBoostingConfig is the boosted member of the serving ensemble
func GradientBoostingConfig() BoostingConfig {
	return BoostingConfig{
		Stages:          1000,
		LearningRate:    0.01,
		MaxDepth:        6,
		Subsample:       0.9,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

// GradientBoosting fits each stage to the residuals of the previous stages
type GradientBoosting struct {
	Config      BoostingConfig
	Init        float64
	Trees       []*tree.Tree
	FeatureSize int
}

// NewGradientBoosting returns an unfitted model
func NewGradientBoosting(cfg BoostingConfig) *GradientBoosting {
	return &GradientBoosting{Config: cfg}
}

// Fit runs the boosting stages sequentially
func (g *GradientBoosting) Fit(ctx context.Context, x mat.Matrix, y []float64) error {
	n, c := x.Dims()
	if n != len(y) {
		return fmt.Errorf("boosting: %d rows but %d targets", n, len(y))
	}
	if g.Config.Subsample <= 0 || g.Config.Subsample > 1 {
		return fmt.Errorf("boosting: subsample must be in (0, 1], got %v", g.Config.Subsample)
	}

	data := tree.NewData(x)
	rng := rand.New(rand.NewSource(g.Config.Seed))
	opts := tree.Options{
		MaxDepth:        g.Config.MaxDepth,
		MinSamplesSplit: g.Config.MinSamplesSplit,
		MinSamplesLeaf:  g.Config.MinSamplesLeaf,
		Criterion:       tree.SquaredError,
	}

	g.Init = stat.Mean(y, nil)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.Init
	}

	sampleSize := int(g.Config.Subsample * float64(n))
	if sampleSize < 1 {
		sampleSize = 1
	}

	residual := make([]float64, n)
	buf := make([]float64, c)
	trees := make([]*tree.Tree, 0, g.Config.Stages)
	for m := 0; m < g.Config.Stages; m++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("boosting stopped at stage %d: %w", m, err)
		}
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}

		idx := data.All()
		if sampleSize < n {
			idx = rng.Perm(n)[:sampleSize]
		}
		t := tree.Build(data, residual, idx, opts, rng)
		for i := 0; i < n; i++ {
			pred[i] += g.Config.LearningRate * t.Value(rowOf(x, i, buf))
		}
		trees = append(trees, t)
	}

	g.Trees = trees
	g.FeatureSize = c
	return nil
}

// PredictRow sums the scaled stage outputs on top of the initial mean
func (g *GradientBoosting) PredictRow(row []float64) float64 {
	out := g.Init
	for _, t := range g.Trees {
		out += g.Config.LearningRate * t.Value(row)
	}
	return out
}

// Predict returns one prediction per row
func (g *GradientBoosting) Predict(x mat.Matrix) []float64 {
	return predictAll(g, x)
}

// FeatureImportances averages per-stage normalized impurity decrease
func (g *GradientBoosting) FeatureImportances() []float64 {
	return averageImportances(g.Trees, g.FeatureSize)
}
