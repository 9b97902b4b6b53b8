package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegressionScores(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	pred := []float64{1, 2, 3, 5}

	r := Evaluate(y, pred)
	assert.InDelta(t, 0.25, r.MSE, 1e-12)
	assert.InDelta(t, 0.5, r.RMSE, 1e-12)
	assert.InDelta(t, 0.25, r.MAE, 1e-12)
	// 1 - SSE/SST = 1 - 1/5
	assert.InDelta(t, 0.8, r.R2, 1e-12)

	assert.InDelta(t, 1.0, R2(y, y), 1e-12)
}

func TestClassificationReport(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 1, 2}
	yPred := []int{0, 1, 1, 1, 0, 2}
	r := Classify(yTrue, yPred, []string{"cold", "comfortable", "hot"})

	assert.Equal(t, [][]int{{1, 1, 0}, {1, 2, 0}, {0, 0, 1}}, r.Confusion)
	assert.InDelta(t, 4.0/6.0, r.Accuracy, 1e-12)

	cold := r.Classes[0]
	assert.Equal(t, 2, cold.Support)
	assert.InDelta(t, 0.5, cold.Precision, 1e-12)
	assert.InDelta(t, 0.5, cold.Recall, 1e-12)
	assert.InDelta(t, 0.5, cold.F1, 1e-12)

	comf := r.Classes[1]
	assert.InDelta(t, 2.0/3.0, comf.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, comf.Recall, 1e-12)

	assert.InDelta(t, (0.5+2.0/3.0+1)/3, r.MacroF1, 1e-12)
	assert.InDelta(t, (0.5*2+2.0/3.0*3+1)/6, r.WeightedF1, 1e-12)
}

func TestZeroSupportClass(t *testing.T) {
	yTrue := []int{1, 1, 1}
	yPred := []int{1, 0, 1}
	r := Classify(yTrue, yPred, []string{"cold", "comfortable", "hot"})

	assert.Equal(t, 0, r.Classes[2].Support)
	assert.Equal(t, 0.0, r.Classes[2].Accuracy)
	assert.Equal(t, 0.0, r.Classes[2].F1)
	assert.Equal(t, 0.0, r.Classes[0].Precision)
	assert.False(t, math.IsNaN(r.MacroF1))
}

func TestMacroF1(t *testing.T) {
	assert.InDelta(t, 1.0, MacroF1([]int{0, 1}, []int{0, 1}, 2), 1e-12)
}

func TestAgeGroups(t *testing.T) {
	ages := []float64{25, 30, 45, 65, 80, 120}
	y := []float64{36, 36, 36, 36, 36, 36}
	pred := []float64{35, 37, 36.5, 36, 36, 30}

	groups := AgeGroups(ages, y, pred)
	assert.Len(t, groups, 4)

	assert.Equal(t, 2, groups[0].Count)
	assert.InDelta(t, 1.0, groups[0].MeanError, 1e-12)
	assert.InDelta(t, 0.0, groups[0].StdError, 1e-12)
	assert.Equal(t, 1, groups[1].Count)
	assert.InDelta(t, 0.5, groups[1].MeanError, 1e-12)
	assert.Equal(t, 0.0, groups[1].StdError)
	assert.Equal(t, 1, groups[2].Count)
	assert.Equal(t, 1, groups[3].Count)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{0.5, 0.7})
	assert.InDelta(t, 0.6, s.Mean, 1e-12)
	assert.InDelta(t, 0.1, s.Std, 1e-12)
	assert.Equal(t, Summary{}, Summarize(nil))
}
