// Package metrics computes evaluation scores for regression and
// classification models.
package metrics

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Regression holds held-out regression scores
type Regression struct {
	R2   float64 `json:"r2"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// R2 is the coefficient of determination of pred against y
func R2(y, pred []float64) float64 {
	return stat.RSquaredFrom(pred, y, nil)
}

// MSE is the mean squared error
func MSE(y, pred []float64) float64 {
	var s float64
	for i := range y {
		d := y[i] - pred[i]
		s += d * d
	}
	return s / float64(len(y))
}

// MAE is the mean absolute error
func MAE(y, pred []float64) float64 {
	var s float64
	for i := range y {
		s += math.Abs(y[i] - pred[i])
	}
	return s / float64(len(y))
}

// Evaluate computes every regression score
func Evaluate(y, pred []float64) Regression {
	mse := MSE(y, pred)
	return Regression{
		R2:   R2(y, pred),
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAE:  MAE(y, pred),
	}
}

// Group is the error summary of one age band
type Group struct {
	Name          string
	Count         int
	MeanError     float64
	StdError      float64
	MeanActual    float64
	MeanPredicted float64
}

// AgeBand is a right-closed age interval (Low, High]
type AgeBand struct {
	Name      string
	Low, High float64
}

// AgeBands are the bands used in the error analysis
var AgeBands = []AgeBand{
	{Name: "0-30", Low: 0, High: 30},
	{Name: "30-50", Low: 30, High: 50},
	{Name: "50-70", Low: 50, High: 70},
	{Name: "70-100", Low: 70, High: 100},
}

// AgeGroups summarizes absolute error per age band. Ages outside every band
// are ignored; empty bands are reported with zero count.
func AgeGroups(ages, y, pred []float64) []Group {
	out := make([]Group, len(AgeBands))
	for b, band := range AgeBands {
		var errs, actual, predicted stats.Float64Data
		for i, age := range ages {
			if age <= band.Low || age > band.High {
				continue
			}
			errs = append(errs, math.Abs(y[i]-pred[i]))
			actual = append(actual, y[i])
			predicted = append(predicted, pred[i])
		}
		g := Group{Name: band.Name, Count: len(errs)}
		if len(errs) > 0 {
			g.MeanError, _ = stats.Mean(errs)
			g.MeanActual, _ = stats.Mean(actual)
			g.MeanPredicted, _ = stats.Mean(predicted)
		}
		if len(errs) > 1 {
			g.StdError, _ = stats.StandardDeviationSample(errs)
		}
		out[b] = g
	}
	return out
}

// Summary is the mean and population standard deviation of fold scores
type Summary struct {
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// Summarize reduces cross-validation fold scores
func Summarize(scores []float64) Summary {
	s := Summary{Scores: scores}
	if len(scores) == 0 {
		return s
	}
	s.Mean, _ = stats.Mean(scores)
	s.Std, _ = stats.StandardDeviationPopulation(scores)
	return s
}
