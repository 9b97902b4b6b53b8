package regressor

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"thermal-backend/internal/ml/tree"
)

// ForestConfig configures a bagged or extremely-randomized forest
type ForestConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 means all features
	Bootstrap       bool
	RandomSplits    bool
	Seed            int64
	Workers         int // 0 means runtime.NumCPU()
}

// RandomForestConfig is the bagged-tree member of the serving ensemble
func RandomForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           1000,
		MaxDepth:        20,
		MinSamplesSplit: 3,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		Seed:            42,
	}
}

// ExtraTreesConfig is the extremely-randomized member of the serving ensemble
func ExtraTreesConfig() ForestConfig {
	return ForestConfig{
		Trees:           1000,
		MaxDepth:        25,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomSplits:    true,
		Seed:            42,
	}
}

// Forest averages independently grown regression trees
type Forest struct {
	Config      ForestConfig
	Trees       []*tree.Tree
	FeatureSize int
}

// NewForest returns an unfitted forest
func NewForest(cfg ForestConfig) *Forest {
	return &Forest{Config: cfg}
}

// Fit grows every tree. Per-tree seeds are drawn from the forest seed
// before any goroutine starts, so the result does not depend on scheduling.
func (f *Forest) Fit(ctx context.Context, x mat.Matrix, y []float64) error {
	n, c := x.Dims()
	if n != len(y) {
		return fmt.Errorf("forest: %d rows but %d targets", n, len(y))
	}
	if f.Config.Trees <= 0 {
		return fmt.Errorf("forest: tree count must be positive, got %d", f.Config.Trees)
	}

	data := tree.NewData(x)
	master := rand.New(rand.NewSource(f.Config.Seed))
	seeds := make([]int64, f.Config.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	opts := tree.Options{
		MaxDepth:        f.Config.MaxDepth,
		MinSamplesSplit: f.Config.MinSamplesSplit,
		MinSamplesLeaf:  f.Config.MinSamplesLeaf,
		MaxFeatures:     f.Config.MaxFeatures,
		RandomSplits:    f.Config.RandomSplits,
		Criterion:       tree.SquaredError,
	}

	workers := f.Config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	trees := make([]*tree.Tree, f.Config.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := data.All()
			if f.Config.Bootstrap {
				for k := range idx {
					idx[k] = rng.Intn(n)
				}
			}
			trees[i] = tree.Build(data, y, idx, opts, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to fit forest: %w", err)
	}

	f.Trees = trees
	f.FeatureSize = c
	return nil
}

// PredictRow averages the tree outputs for one row
func (f *Forest) PredictRow(row []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.Value(row)
	}
	return sum / float64(len(f.Trees))
}

// Predict returns one prediction per row
func (f *Forest) Predict(x mat.Matrix) []float64 {
	return predictAll(f, x)
}

// FeatureImportances averages per-tree normalized impurity decrease
func (f *Forest) FeatureImportances() []float64 {
	return averageImportances(f.Trees, f.FeatureSize)
}

func averageImportances(trees []*tree.Tree, size int) []float64 {
	out := make([]float64, size)
	counted := 0
	for _, t := range trees {
		var total float64
		for _, v := range t.Importances {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range t.Importances {
			out[j] += v / total
		}
		counted++
	}
	if counted > 0 {
		for j := range out {
			out[j] /= float64(counted)
		}
	}
	return out
}
