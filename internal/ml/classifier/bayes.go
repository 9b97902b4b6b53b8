package classifier

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GaussianNB models each feature as an independent normal per class.
// Smoothing adds VarSmoothing times the largest feature variance.
type GaussianNB struct {
	VarSmoothing float64
	LogPrior     []float64
	Mean         [][]float64
	Var          [][]float64
}

func NewGaussianNB(varSmoothing float64) *GaussianNB {
	return &GaussianNB{VarSmoothing: varSmoothing}
}

func (g *GaussianNB) Fit(ctx context.Context, x mat.Matrix, y []int, classes int) error {
	n, d := x.Dims()
	if n != len(y) {
		return fmt.Errorf("naive bayes: %d rows but %d labels", n, len(y))
	}

	var maxVar float64
	for j := 0; j < d; j++ {
		_, v := stat.PopMeanVariance(mat.Col(nil, j, x), nil)
		maxVar = math.Max(maxVar, v)
	}
	eps := g.VarSmoothing * maxVar

	g.LogPrior = make([]float64, classes)
	g.Mean = make([][]float64, classes)
	g.Var = make([][]float64, classes)
	X := rows(x)
	for c := 0; c < classes; c++ {
		var members [][]float64
		for i, row := range X {
			if y[i] == c {
				members = append(members, row)
			}
		}
		g.Mean[c] = make([]float64, d)
		g.Var[c] = make([]float64, d)
		if len(members) == 0 {
			g.LogPrior[c] = math.Inf(-1)
			continue
		}
		g.LogPrior[c] = math.Log(float64(len(members)) / float64(n))
		col := make([]float64, len(members))
		for j := 0; j < d; j++ {
			for i, row := range members {
				col[i] = row[j]
			}
			m, v := stat.PopMeanVariance(col, nil)
			g.Mean[c][j] = m
			g.Var[c][j] = v + eps
		}
	}
	return ctx.Err()
}

func (g *GaussianNB) Predict(x mat.Matrix) []int {
	scores := make([]float64, len(g.LogPrior))
	return predictRows(x, func(row []float64) int {
		for c := range scores {
			s := g.LogPrior[c]
			if !math.IsInf(s, -1) {
				for j, v := range row {
					variance := g.Var[c][j]
					diff := v - g.Mean[c][j]
					s -= 0.5*math.Log(2*math.Pi*variance) + diff*diff/(2*variance)
				}
			}
			scores[c] = s
		}
		return argmax(scores)
	})
}
