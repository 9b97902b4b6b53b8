package classifier

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blobs returns three well-separated gaussian clusters
func blobs(perClass int, seed int64) (*mat.Dense, []int) {
	centers := [][2]float64{{-3, -3}, {3, -3}, {0, 3}}
	r := rand.New(rand.NewSource(seed))
	n := perClass * len(centers)
	raw := make([]float64, 0, n*2)
	y := make([]int, 0, n)
	for c, center := range centers {
		for i := 0; i < perClass; i++ {
			raw = append(raw, center[0]+r.NormFloat64()*0.6, center[1]+r.NormFloat64()*0.6)
			y = append(y, c)
		}
	}
	return mat.NewDense(n, 2, raw), y
}

func accuracy(y, pred []int) float64 {
	correct := 0
	for i := range y {
		if y[i] == pred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

func TestCatalogSeparatesBlobs(t *testing.T) {
	xTrain, yTrain := blobs(30, 1)
	xTest, yTest := blobs(10, 2)

	for _, spec := range Catalog() {
		spec := spec
		t.Run(spec.Name, func(t *testing.T) {
			m := spec.New(42)
			require.NoError(t, m.Fit(context.Background(), xTrain, yTrain, 3))
			assert.GreaterOrEqual(t, accuracy(yTest, m.Predict(xTest)), 0.9)
		})
	}
}

func TestCatalogNames(t *testing.T) {
	var names []string
	for _, s := range Catalog() {
		names = append(names, s.Name)
	}
	assert.Len(t, names, 8)
	assert.Contains(t, names, "Naive Bayes")

	spec, ok := Lookup("SVM")
	require.True(t, ok)
	assert.True(t, spec.Scaled)

	spec, ok = Lookup("Random Forest")
	require.True(t, ok)
	assert.False(t, spec.Scaled)

	_, ok = Lookup("Perceptron")
	assert.False(t, ok)
}

func TestForestDeterministic(t *testing.T) {
	x, y := blobs(20, 3)
	a := NewForest(ForestConfig{Trees: 20, MaxDepth: 10, MinSamplesSplit: 5, MinSamplesLeaf: 2, Seed: 42})
	b := NewForest(ForestConfig{Trees: 20, MaxDepth: 10, MinSamplesSplit: 5, MinSamplesLeaf: 2, Seed: 42})
	require.NoError(t, a.Fit(context.Background(), x, y, 3))
	require.NoError(t, b.Fit(context.Background(), x, y, 3))

	row := []float64{0.1, 0.2}
	assert.Equal(t, a.Proba(row), b.Proba(row))
	assert.InDelta(t, 1.0, a.Proba(row)[0]+a.Proba(row)[1]+a.Proba(row)[2], 1e-9)
}

func TestKNNExactMatchWins(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 1, 1.1, 1.2})
	y := []int{0, 1, 1, 1}
	m := NewKNN(4)
	require.NoError(t, m.Fit(context.Background(), x, y, 2))
	assert.Equal(t, []int{0}, m.Predict(mat.NewDense(1, 1, []float64{0})))
}

func TestNaiveBayesPriors(t *testing.T) {
	x, y := blobs(10, 4)
	g := NewGaussianNB(1e-9)
	require.NoError(t, g.Fit(context.Background(), x, y, 4))
	assert.InDelta(t, -1.0986, g.LogPrior[0], 1e-3)
	assert.Equal(t, []int{0}, g.Predict(mat.NewDense(1, 2, []float64{-3, -3})))
}

func TestFitRejectsMismatch(t *testing.T) {
	x, _ := blobs(5, 5)
	for _, spec := range Catalog() {
		assert.Error(t, spec.New(42).Fit(context.Background(), x, []int{0}, 3), spec.Name)
	}
}
