package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SVMConfig configures the RBF kernel SVM trained with kernelized Pegasos
type SVMConfig struct {
	C      float64
	Epochs int
	Seed   int64
}

// SVM is one-vs-rest over kernel machines sharing the training rows.
// Gamma is 1/(features * variance of all inputs).
type SVM struct {
	Config  SVMConfig
	Gamma   float64
	Lambda  float64
	Steps   int
	Support [][]float64
	// Coef[c][s] is alpha*y of support row s for the class c machine
	Coef [][]float64
}

func NewSVM(cfg SVMConfig) *SVM {
	return &SVM{Config: cfg}
}

func (s *SVM) kernel(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-s.Gamma * d * d)
}

func (s *SVM) Fit(ctx context.Context, x mat.Matrix, y []int, classes int) error {
	n, d := x.Dims()
	if n != len(y) {
		return fmt.Errorf("svm: %d rows but %d labels", n, len(y))
	}
	X := rows(x)
	all := make([]float64, 0, n*d)
	for _, row := range X {
		all = append(all, row...)
	}
	_, variance := stat.PopMeanVariance(all, nil)
	if variance == 0 {
		variance = 1
	}
	s.Gamma = 1 / (float64(d) * variance)
	s.Lambda = 1 / (s.Config.C * float64(n))
	s.Steps = s.Config.Epochs * n

	alphas := make([][]float64, classes)
	rng := rand.New(rand.NewSource(s.Config.Seed))
	for c := 0; c < classes; c++ {
		alpha := make([]float64, n)
		var active []int
		for t := 1; t <= s.Steps; t++ {
			if t%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			i := rng.Intn(n)
			yi := sign(y[i], c)
			var sum float64
			for _, j := range active {
				sum += alpha[j] * sign(y[j], c) * s.kernel(X[j], X[i])
			}
			if yi*sum/(s.Lambda*float64(t)) < 1 {
				if alpha[i] == 0 {
					active = append(active, i)
				}
				alpha[i]++
			}
		}
		alphas[c] = alpha
	}

	// keep rows that are support vectors of any machine
	var support []int
	for i := 0; i < n; i++ {
		for c := 0; c < classes; c++ {
			if alphas[c][i] > 0 {
				support = append(support, i)
				break
			}
		}
	}
	s.Support = make([][]float64, len(support))
	s.Coef = make([][]float64, classes)
	for c := range s.Coef {
		s.Coef[c] = make([]float64, len(support))
	}
	scale := 1 / (s.Lambda * float64(s.Steps))
	for k, i := range support {
		s.Support[k] = X[i]
		for c := 0; c < classes; c++ {
			s.Coef[c][k] = alphas[c][i] * sign(y[i], c) * scale
		}
	}
	return nil
}

func (s *SVM) Predict(x mat.Matrix) []int {
	scores := make([]float64, len(s.Coef))
	return predictRows(x, func(row []float64) int {
		for c := range scores {
			scores[c] = 0
		}
		for k, sv := range s.Support {
			kv := s.kernel(sv, row)
			for c := range scores {
				scores[c] += s.Coef[c][k] * kv
			}
		}
		return argmax(scores)
	})
}

func sign(label, class int) float64 {
	if label == class {
		return 1
	}
	return -1
}
