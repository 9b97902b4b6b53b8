package preprocess

import (
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column on its training mean and divides by
// its population standard deviation. Constant columns keep scale 1.
type StandardScaler struct {
	Columns []string
	Mean    []float64
	Scale   []float64
}

// Fit computes per-column statistics
func (s *StandardScaler) Fit(columns []string, data [][]float64) {
	s.Columns = append([]string(nil), columns...)
	s.Mean = make([]float64, len(columns))
	s.Scale = make([]float64, len(columns))
	for j, col := range data {
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
}

// Apply standardizes value x of column j
func (s *StandardScaler) Apply(j int, x float64) float64 {
	return (x - s.Mean[j]) / s.Scale[j]
}
