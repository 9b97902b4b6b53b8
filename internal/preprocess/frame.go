// Package preprocess holds the standardize + one-hot transform fit on the
// training split and reused unchanged for validation and inference.
package preprocess

import (
	"fmt"
	"sort"

	"thermal-backend/internal/features"
)

// Frame is a column-oriented table of numeric and categorical columns
type Frame struct {
	Numeric     map[string][]float64
	Categorical map[string][]string
	rows        int
}

// NewFrame returns an empty frame with the given row count
func NewFrame(rows int) *Frame {
	return &Frame{
		Numeric:     make(map[string][]float64),
		Categorical: make(map[string][]string),
		rows:        rows,
	}
}

// FrameFromVectors pivots derived vectors into columns
func FrameFromVectors(vecs []features.Vector) *Frame {
	f := NewFrame(len(vecs))
	for i, v := range vecs {
		for name, x := range v.Numeric {
			col, ok := f.Numeric[name]
			if !ok {
				col = make([]float64, len(vecs))
				f.Numeric[name] = col
			}
			col[i] = x
		}
		for name, s := range v.Categorical {
			col, ok := f.Categorical[name]
			if !ok {
				col = make([]string, len(vecs))
				f.Categorical[name] = col
			}
			col[i] = s
		}
	}
	return f
}

// SetNumeric adds or replaces a numeric column
func (f *Frame) SetNumeric(name string, values []float64) error {
	if len(values) != f.rows {
		return fmt.Errorf("column %s has %d rows, frame has %d", name, len(values), f.rows)
	}
	f.Numeric[name] = values
	return nil
}

// SetCategorical adds or replaces a categorical column
func (f *Frame) SetCategorical(name string, values []string) error {
	if len(values) != f.rows {
		return fmt.Errorf("column %s has %d rows, frame has %d", name, len(values), f.rows)
	}
	f.Categorical[name] = values
	return nil
}

// Len returns the row count
func (f *Frame) Len() int {
	return f.rows
}

// Columns lists numeric then categorical column names, each sorted
func (f *Frame) Columns() []string {
	num := make([]string, 0, len(f.Numeric))
	for name := range f.Numeric {
		num = append(num, name)
	}
	sort.Strings(num)
	cat := make([]string, 0, len(f.Categorical))
	for name := range f.Categorical {
		cat = append(cat, name)
	}
	sort.Strings(cat)
	return append(num, cat...)
}

// Subset returns a new frame with the rows at idx, in idx order
func (f *Frame) Subset(idx []int) *Frame {
	out := NewFrame(len(idx))
	for name, col := range f.Numeric {
		sub := make([]float64, len(idx))
		for i, j := range idx {
			sub[i] = col[j]
		}
		out.Numeric[name] = sub
	}
	for name, col := range f.Categorical {
		sub := make([]string, len(idx))
		for i, j := range idx {
			sub[i] = col[j]
		}
		out.Categorical[name] = sub
	}
	return out
}
