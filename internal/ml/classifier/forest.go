package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"thermal-backend/internal/ml/tree"
)

// ForestConfig configures a bagged gini forest with sqrt(features) per split
type ForestConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// Forest averages class frequencies over bootstrap trees
type Forest struct {
	Config  ForestConfig
	Classes int
	Trees   []*tree.Tree
}

func NewForest(cfg ForestConfig) *Forest {
	return &Forest{Config: cfg}
}

func (f *Forest) Fit(ctx context.Context, x mat.Matrix, y []int, classes int) error {
	n, c := x.Dims()
	if n != len(y) {
		return fmt.Errorf("forest classifier: %d rows but %d labels", n, len(y))
	}
	data := tree.NewData(x)
	target := labelsToFloat(y)
	opts := tree.Options{
		MaxDepth:        f.Config.MaxDepth,
		MinSamplesSplit: f.Config.MinSamplesSplit,
		MinSamplesLeaf:  f.Config.MinSamplesLeaf,
		MaxFeatures:     int(math.Max(1, math.Floor(math.Sqrt(float64(c))))),
		Criterion:       tree.Gini,
		NumClasses:      classes,
	}

	master := rand.New(rand.NewSource(f.Config.Seed))
	seeds := make([]int64, f.Config.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*tree.Tree, f.Config.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, n)
			for k := range idx {
				idx[k] = rng.Intn(n)
			}
			trees[i] = tree.Build(data, target, idx, opts, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to fit forest classifier: %w", err)
	}
	f.Trees = trees
	f.Classes = classes
	return nil
}

// Proba returns the mean class distribution over trees
func (f *Forest) Proba(row []float64) []float64 {
	p := make([]float64, f.Classes)
	for _, t := range f.Trees {
		for k, v := range t.Evaluate(row) {
			p[k] += v
		}
	}
	for k := range p {
		p[k] /= float64(len(f.Trees))
	}
	return p
}

func (f *Forest) Predict(x mat.Matrix) []int {
	return predictRows(x, func(row []float64) int { return argmax(f.Proba(row)) })
}

// DecisionTree is a single gini tree over all features
type DecisionTree struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
	Tree            *tree.Tree
}

func NewDecisionTree(maxDepth, minSplit, minLeaf int, seed int64) *DecisionTree {
	return &DecisionTree{MaxDepth: maxDepth, MinSamplesSplit: minSplit, MinSamplesLeaf: minLeaf, Seed: seed}
}

func (d *DecisionTree) Fit(ctx context.Context, x mat.Matrix, y []int, classes int) error {
	n, _ := x.Dims()
	if n != len(y) {
		return fmt.Errorf("decision tree: %d rows but %d labels", n, len(y))
	}
	data := tree.NewData(x)
	d.Tree = tree.Build(data, labelsToFloat(y), data.All(), tree.Options{
		MaxDepth:        d.MaxDepth,
		MinSamplesSplit: d.MinSamplesSplit,
		MinSamplesLeaf:  d.MinSamplesLeaf,
		Criterion:       tree.Gini,
		NumClasses:      classes,
	}, rand.New(rand.NewSource(d.Seed)))
	return ctx.Err()
}

func (d *DecisionTree) Predict(x mat.Matrix) []int {
	return predictRows(x, func(row []float64) int { return argmax(d.Tree.Evaluate(row)) })
}

func labelsToFloat(y []int) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = float64(v)
	}
	return out
}
