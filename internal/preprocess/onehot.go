package preprocess

import (
	"sort"

	"thermal-backend/internal/features"
)

// OneHotEncoder maps each categorical column to indicator columns over the
// sorted levels seen during fit. Unseen levels encode as all zeros.
type OneHotEncoder struct {
	Columns    []string
	Categories [][]string
	Encoding   features.Encoding
}

// Fit records the sorted distinct levels of each column
func (e *OneHotEncoder) Fit(columns []string, data [][]string) {
	e.Columns = append([]string(nil), columns...)
	e.Categories = make([][]string, len(columns))
	for j, col := range data {
		seen := make(map[string]bool)
		for _, v := range col {
			seen[v] = true
		}
		levels := make([]string, 0, len(seen))
		for v := range seen {
			levels = append(levels, v)
		}
		sort.Strings(levels)
		e.Categories[j] = levels
	}
}

// levels returns the encoded levels of column j
func (e *OneHotEncoder) levels(j int) []string {
	levels := e.Categories[j]
	if e.Encoding == features.DropFirst && len(levels) > 0 {
		return levels[1:]
	}
	return levels
}

// Width returns the number of output columns
func (e *OneHotEncoder) Width() int {
	n := 0
	for j := range e.Columns {
		n += len(e.levels(j))
	}
	return n
}

// Names returns output column names as column_level
func (e *OneHotEncoder) Names() []string {
	names := make([]string, 0, e.Width())
	for j, col := range e.Columns {
		for _, level := range e.levels(j) {
			names = append(names, col+"_"+level)
		}
	}
	return names
}

// Encode writes the indicator block for value v of column j into dst
func (e *OneHotEncoder) Encode(j int, v string, dst []float64) {
	for k, level := range e.levels(j) {
		if level == v {
			dst[k] = 1
		} else {
			dst[k] = 0
		}
	}
}
