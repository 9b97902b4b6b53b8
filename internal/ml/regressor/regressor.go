// Package regressor holds the tree-ensemble regression learners.
package regressor

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Model is a fitted-in-place regression learner
type Model interface {
	Fit(ctx context.Context, x mat.Matrix, y []float64) error
	Predict(x mat.Matrix) []float64
	PredictRow(row []float64) float64
}

func rowOf(x mat.Matrix, i int, buf []float64) []float64 {
	if d, ok := x.(mat.RawRowViewer); ok {
		return d.RawRowView(i)
	}
	return mat.Row(buf, i, x)
}

func predictAll(m Model, x mat.Matrix) []float64 {
	r, c := x.Dims()
	out := make([]float64, r)
	buf := make([]float64, c)
	for i := 0; i < r; i++ {
		out[i] = m.PredictRow(rowOf(x, i, buf))
	}
	return out
}
