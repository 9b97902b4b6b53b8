package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"thermal-backend/internal/ml/tree"
)

// BoostingConfig configures softmax gradient-boosted trees
type BoostingConfig struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
	// Lambda is the L2 penalty on leaf values
	Lambda float64
}

// Boosting fits one regression tree per class per round to the softmax
// gradient, with Newton leaf values sum(g)/(sum(h)+lambda)
type Boosting struct {
	Config  BoostingConfig
	Classes int
	// Trees[r][k] is the class k tree of round r
	Trees [][]*tree.Tree
}

func NewBoosting(cfg BoostingConfig) *Boosting {
	return &Boosting{Config: cfg}
}

func (b *Boosting) Fit(ctx context.Context, x mat.Matrix, y []int, classes int) error {
	n, c := x.Dims()
	if n != len(y) {
		return fmt.Errorf("boosting classifier: %d rows but %d labels", n, len(y))
	}
	data := tree.NewData(x)
	opts := tree.Options{MaxDepth: b.Config.MaxDepth, Criterion: tree.SquaredError}
	rng := rand.New(rand.NewSource(0))

	margin := make([][]float64, n)
	for i := range margin {
		margin[i] = make([]float64, classes)
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	buf := make([]float64, c)

	b.Trees = make([][]*tree.Tree, 0, b.Config.Rounds)
	for r := 0; r < b.Config.Rounds; r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		probs := make([][]float64, n)
		for i := range probs {
			probs[i] = softmax(margin[i])
		}
		round := make([]*tree.Tree, classes)
		for k := 0; k < classes; k++ {
			for i := 0; i < n; i++ {
				p := probs[i][k]
				target := 0.0
				if y[i] == k {
					target = 1
				}
				grad[i] = target - p
				hess[i] = math.Max(p*(1-p), 1e-16)
			}
			leaf := func(idx []int) []float64 {
				var g, h float64
				for _, i := range idx {
					g += grad[i]
					h += hess[i]
				}
				return []float64{g / (h + b.Config.Lambda)}
			}
			t := tree.BuildWithLeaves(data, grad, data.All(), opts, rng, leaf)
			for i := 0; i < n; i++ {
				margin[i][k] += b.Config.LearningRate * t.Value(mat.Row(buf, i, x))
			}
			round[k] = t
		}
		b.Trees = append(b.Trees, round)
	}
	b.Classes = classes
	return nil
}

func (b *Boosting) margins(row []float64) []float64 {
	m := make([]float64, b.Classes)
	for _, round := range b.Trees {
		for k, t := range round {
			m[k] += b.Config.LearningRate * t.Value(row)
		}
	}
	return m
}

func (b *Boosting) Predict(x mat.Matrix) []int {
	return predictRows(x, func(row []float64) int { return argmax(b.margins(row)) })
}

func softmax(z []float64) []float64 {
	max := z[0]
	for _, v := range z[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
