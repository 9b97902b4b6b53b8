package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"thermal-backend/internal/features"
	"thermal-backend/pkg/errors"
)

// Pipeline standardizes numeric columns (when Scale is set) and one-hot
// encodes categorical columns. It is fit exactly once.
type Pipeline struct {
	Numeric     []string
	Categorical []string
	Scale       bool
	Scaler      StandardScaler
	Encoder     OneHotEncoder
	Fitted      bool
}

// New returns an unfitted pipeline for a feature set
func New(set features.Set, scale bool) *Pipeline {
	return &Pipeline{
		Numeric:     append([]string(nil), set.Numeric...),
		Categorical: append([]string(nil), set.Categorical...),
		Scale:       scale,
		Encoder:     OneHotEncoder{Encoding: set.Encoding},
	}
}

// Clone returns an unfitted pipeline with the same configuration
func (p *Pipeline) Clone() *Pipeline {
	return &Pipeline{
		Numeric:     append([]string(nil), p.Numeric...),
		Categorical: append([]string(nil), p.Categorical...),
		Scale:       p.Scale,
		Encoder:     OneHotEncoder{Encoding: p.Encoder.Encoding},
	}
}

// InputColumns returns the columns a frame must carry
func (p *Pipeline) InputColumns() []string {
	cols := append([]string(nil), p.Numeric...)
	return append(cols, p.Categorical...)
}

// OutputNames returns the transformed column names
func (p *Pipeline) OutputNames() []string {
	names := append([]string(nil), p.Numeric...)
	return append(names, p.Encoder.Names()...)
}

// FitTransform fits on the training frame and transforms it
func (p *Pipeline) FitTransform(f *Frame) (*mat.Dense, error) {
	if p.Fitted {
		return nil, errors.ErrAlreadyFitted
	}
	num, cat, err := p.columns(f)
	if err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, fmt.Errorf("cannot fit on an empty frame")
	}

	p.Scaler.Fit(p.Numeric, num)
	p.Encoder.Fit(p.Categorical, cat)
	p.Fitted = true

	return p.build(f.Len(), num, cat), nil
}

// Transform applies the fitted state to a frame
func (p *Pipeline) Transform(f *Frame) (*mat.Dense, error) {
	if !p.Fitted {
		return nil, errors.ErrNotFitted
	}
	num, cat, err := p.columns(f)
	if err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, fmt.Errorf("cannot transform an empty frame")
	}
	return p.build(f.Len(), num, cat), nil
}

// TransformVector transforms a single derived vector into a row
func (p *Pipeline) TransformVector(v features.Vector) ([]float64, error) {
	x, err := p.Transform(FrameFromVectors([]features.Vector{v}))
	if err != nil {
		return nil, err
	}
	return x.RawRowView(0), nil
}

func (p *Pipeline) columns(f *Frame) ([][]float64, [][]string, error) {
	var missing []string
	num := make([][]float64, len(p.Numeric))
	for j, name := range p.Numeric {
		col, ok := f.Numeric[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		num[j] = col
	}
	cat := make([][]string, len(p.Categorical))
	for j, name := range p.Categorical {
		col, ok := f.Categorical[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cat[j] = col
	}
	if len(missing) > 0 {
		return nil, nil, &errors.SchemaError{
			Expected: p.InputColumns(),
			Got:      f.Columns(),
			Missing:  missing,
		}
	}
	return num, cat, nil
}

func (p *Pipeline) build(rows int, num [][]float64, cat [][]string) *mat.Dense {
	width := len(p.Numeric) + p.Encoder.Width()
	data := make([]float64, rows*width)
	for i := 0; i < rows; i++ {
		row := data[i*width : (i+1)*width]
		for j := range p.Numeric {
			x := num[j][i]
			if p.Scale {
				x = p.Scaler.Apply(j, x)
			}
			row[j] = x
		}
		off := len(p.Numeric)
		for j := range p.Categorical {
			n := len(p.Encoder.levels(j))
			p.Encoder.Encode(j, cat[j][i], row[off:off+n])
			off += n
		}
	}
	return mat.NewDense(rows, width, data)
}
