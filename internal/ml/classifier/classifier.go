// Package classifier holds the comfort-category classifiers that are
// trained and ranked side by side. None of them feeds the serving path.
package classifier

import (
	"context"
	"encoding/gob"

	"gonum.org/v1/gonum/mat"
)

// Model is a multi-class classifier over class indices 0..classes-1
type Model interface {
	Fit(ctx context.Context, x mat.Matrix, y []int, classes int) error
	Predict(x mat.Matrix) []int
}

// Spec names a classifier and how to build it
type Spec struct {
	Name string
	// Scaled models consume standardized inputs; tree models consume raw
	Scaled bool
	New    func(seed int64) Model
}

func init() {
	gob.Register(&Forest{})
	gob.Register(&DecisionTree{})
	gob.Register(&LogisticRegression{})
	gob.Register(&KNN{})
	gob.Register(&GaussianNB{})
	gob.Register(&SVM{})
	gob.Register(&Boosting{})
}

// Catalog returns the comparison set in reporting order
func Catalog() []Spec {
	return []Spec{
		{Name: "Random Forest", New: func(seed int64) Model {
			return NewForest(ForestConfig{Trees: 100, MaxDepth: 10, MinSamplesSplit: 5, MinSamplesLeaf: 2, Seed: seed})
		}},
		{Name: "Gradient Boosting", New: func(seed int64) Model {
			return NewBoosting(BoostingConfig{Rounds: 100, LearningRate: 0.1, MaxDepth: 6, Lambda: 1})
		}},
		{Name: "SVM", Scaled: true, New: func(seed int64) Model {
			return NewSVM(SVMConfig{C: 1, Epochs: 20, Seed: seed})
		}},
		{Name: "Logistic Regression", Scaled: true, New: func(seed int64) Model {
			return NewLogisticRegression(LogisticConfig{C: 1, Iterations: 1000, LearningRate: 0.5})
		}},
		{Name: "K-Nearest Neighbors", Scaled: true, New: func(seed int64) Model {
			return NewKNN(5)
		}},
		{Name: "Naive Bayes", New: func(seed int64) Model {
			return NewGaussianNB(1e-9)
		}},
		{Name: "Decision Tree", New: func(seed int64) Model {
			return NewDecisionTree(10, 5, 2, seed)
		}},
		{Name: "Regularized Boosting", New: func(seed int64) Model {
			return NewBoosting(BoostingConfig{Rounds: 500, LearningRate: 0.1, MaxDepth: 6, Lambda: 3})
		}},
	}
}

// Lookup finds a catalog entry by name
func Lookup(name string) (Spec, bool) {
	for _, s := range Catalog() {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func rows(x mat.Matrix) [][]float64 {
	r, _ := x.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, x)
	}
	return out
}

func predictRows(x mat.Matrix, fn func(row []float64) int) []int {
	r, c := x.Dims()
	out := make([]int, r)
	buf := make([]float64, c)
	for i := range out {
		out[i] = fn(mat.Row(buf, i, x))
	}
	return out
}
