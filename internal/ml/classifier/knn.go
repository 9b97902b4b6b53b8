package classifier

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KNN votes among the k nearest training rows, weighted by inverse
// distance. Exact matches outvote every other neighbor.
type KNN struct {
	K       int
	Classes int
	X       [][]float64
	Y       []int
}

func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

func (m *KNN) Fit(ctx context.Context, x mat.Matrix, y []int, classes int) error {
	n, _ := x.Dims()
	if n != len(y) {
		return fmt.Errorf("knn: %d rows but %d labels", n, len(y))
	}
	m.X = rows(x)
	m.Y = append([]int(nil), y...)
	m.Classes = classes
	return ctx.Err()
}

type neighbor struct {
	dist  float64
	label int
}

func (m *KNN) vote(row []float64) int {
	nb := make([]neighbor, len(m.X))
	for i, tr := range m.X {
		nb[i] = neighbor{dist: floats.Distance(row, tr, 2), label: m.Y[i]}
	}
	sort.SliceStable(nb, func(i, j int) bool { return nb[i].dist < nb[j].dist })
	k := m.K
	if k > len(nb) {
		k = len(nb)
	}

	votes := make([]float64, m.Classes)
	exact := false
	for _, n := range nb[:k] {
		if n.dist == 0 {
			if !exact {
				for c := range votes {
					votes[c] = 0
				}
				exact = true
			}
			votes[n.label]++
		} else if !exact {
			votes[n.label] += 1 / n.dist
		}
	}
	return argmax(votes)
}

func (m *KNN) Predict(x mat.Matrix) []int {
	return predictRows(x, m.vote)
}
