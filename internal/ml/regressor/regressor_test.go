package regressor

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// synthetic returns y = 2*x0 - x1 + noise over uniform features
func synthetic(rows int, seed int64) (*mat.Dense, []float64) {
	r := rand.New(rand.NewSource(seed))
	raw := make([]float64, rows*3)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < 3; j++ {
			raw[i*3+j] = r.Float64() * 10
		}
		y[i] = 2*raw[i*3] - raw[i*3+1] + r.NormFloat64()*0.1
	}
	return mat.NewDense(rows, 3, raw), y
}

func rmse(pred, y []float64) float64 {
	var s float64
	for i := range y {
		d := pred[i] - y[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(y)))
}

func smallForest(cfg ForestConfig) ForestConfig {
	cfg.Trees = 30
	return cfg
}

func TestRandomForestFits(t *testing.T) {
	x, y := synthetic(200, 1)
	f := NewForest(smallForest(RandomForestConfig()))
	require.NoError(t, f.Fit(context.Background(), x, y))

	assert.Len(t, f.Trees, 30)
	assert.Less(t, rmse(f.Predict(x), y), 2.0)

	imp := f.FeatureImportances()
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
	assert.Greater(t, imp[0], imp[2])
}

func TestExtraTreesFits(t *testing.T) {
	x, y := synthetic(200, 2)
	f := NewForest(smallForest(ExtraTreesConfig()))
	require.NoError(t, f.Fit(context.Background(), x, y))
	assert.Less(t, rmse(f.Predict(x), y), 2.0)
}

func TestForestDeterministicAcrossWorkers(t *testing.T) {
	x, y := synthetic(120, 3)

	one := smallForest(RandomForestConfig())
	one.Workers = 1
	many := smallForest(RandomForestConfig())
	many.Workers = 8

	a := NewForest(one)
	b := NewForest(many)
	require.NoError(t, a.Fit(context.Background(), x, y))
	require.NoError(t, b.Fit(context.Background(), x, y))

	row := []float64{5, 5, 5}
	assert.Equal(t, a.PredictRow(row), b.PredictRow(row))
}

func TestForestCancelled(t *testing.T) {
	x, y := synthetic(50, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewForest(smallForest(RandomForestConfig())).Fit(ctx, x, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForestRejectsMismatch(t *testing.T) {
	x, _ := synthetic(10, 5)
	err := NewForest(smallForest(RandomForestConfig())).Fit(context.Background(), x, []float64{1})
	assert.Error(t, err)
}

func TestGradientBoostingFits(t *testing.T) {
	x, y := synthetic(200, 6)
	cfg := GradientBoostingConfig()
	cfg.Stages = 200
	cfg.LearningRate = 0.1
	g := NewGradientBoosting(cfg)
	require.NoError(t, g.Fit(context.Background(), x, y))

	assert.Len(t, g.Trees, 200)
	assert.Less(t, rmse(g.Predict(x), y), 1.0)

	var mean float64
	for _, v := range y {
		mean += v
	}
	assert.InDelta(t, mean/float64(len(y)), g.Init, 1e-9)
}

func TestGradientBoostingDeterministic(t *testing.T) {
	x, y := synthetic(100, 7)
	cfg := GradientBoostingConfig()
	cfg.Stages = 50

	a := NewGradientBoosting(cfg)
	b := NewGradientBoosting(cfg)
	require.NoError(t, a.Fit(context.Background(), x, y))
	require.NoError(t, b.Fit(context.Background(), x, y))
	assert.Equal(t, a.Predict(x), b.Predict(x))
}

func TestGradientBoostingRejectsSubsample(t *testing.T) {
	x, y := synthetic(20, 8)
	cfg := GradientBoostingConfig()
	cfg.Subsample = 0
	assert.Error(t, NewGradientBoosting(cfg).Fit(context.Background(), x, y))
}
