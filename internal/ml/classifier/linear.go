package classifier

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogisticConfig configures one-vs-rest L2 logistic regression
type LogisticConfig struct {
	C            float64
	Iterations   int
	LearningRate float64
}

// LogisticRegression holds one binary model per class
type LogisticRegression struct {
	Config  LogisticConfig
	Weights [][]float64
	Bias    []float64
}

func NewLogisticRegression(cfg LogisticConfig) *LogisticRegression {
	return &LogisticRegression{Config: cfg}
}

// Fit minimizes mean log-loss + ||w||^2/(2Cn) per class by batch gradient
// descent
func (l *LogisticRegression) Fit(ctx context.Context, x mat.Matrix, y []int, classes int) error {
	n, d := x.Dims()
	if n != len(y) {
		return fmt.Errorf("logistic regression: %d rows but %d labels", n, len(y))
	}
	X := rows(x)
	reg := 1 / (l.Config.C * float64(n))

	l.Weights = make([][]float64, classes)
	l.Bias = make([]float64, classes)
	grad := make([]float64, d)
	for c := 0; c < classes; c++ {
		w := make([]float64, d)
		var b float64
		for it := 0; it < l.Config.Iterations; it++ {
			if it%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			for j := range grad {
				grad[j] = 0
			}
			var gb float64
			for i, row := range X {
				target := 0.0
				if y[i] == c {
					target = 1
				}
				r := sigmoid(floats.Dot(w, row)+b) - target
				floats.AddScaled(grad, r, row)
				gb += r
			}
			for j := range w {
				w[j] -= l.Config.LearningRate * (grad[j]/float64(n) + reg*w[j])
			}
			b -= l.Config.LearningRate * gb / float64(n)
		}
		l.Weights[c] = w
		l.Bias[c] = b
	}
	return nil
}

func (l *LogisticRegression) Predict(x mat.Matrix) []int {
	scores := make([]float64, len(l.Weights))
	return predictRows(x, func(row []float64) int {
		for c, w := range l.Weights {
			scores[c] = floats.Dot(w, row) + l.Bias[c]
		}
		return argmax(scores)
	})
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
