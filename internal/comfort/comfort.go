// Package comfort maps a body temperature to a comfort category.
package comfort

import (
	"fmt"
	"strings"
)

// Category is a discrete comfort level
type Category int

const (
	Cold Category = iota
	Comfortable
	Hot
)

// Categories lists every category in label order
var Categories = []Category{Cold, Comfortable, Hot}

// Preset is a named pair of thresholds
type Preset struct {
	Name string
	Cold float64
	Hot  float64
}

var (
	// Analysis labels the training and evaluation data.
	Analysis = Preset{Name: "analysis", Cold: 33.0, Hot: 35.0}

	// Serving classifies live predictions. The comfortable band includes
	// both thresholds.
	Serving = Preset{Name: "serving", Cold: 34.5, Hot: 35.6}
)

// Classify returns Cold below cold, Hot above hot and Comfortable otherwise.
// NaN is Comfortable since neither comparison holds.
func Classify(value, cold, hot float64) Category {
	switch {
	case value < cold:
		return Cold
	case value > hot:
		return Hot
	default:
		return Comfortable
	}
}

// Classify applies the preset thresholds
func (p Preset) Classify(value float64) Category {
	return Classify(value, p.Cold, p.Hot)
}

// ClassifyAll labels a slice of values
func (p Preset) ClassifyAll(values []float64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(p.Classify(v))
	}
	return out
}

// String returns the English name used in logs and payloads
func (c Category) String() string {
	switch c {
	case Cold:
		return "cold"
	case Comfortable:
		return "comfortable"
	case Hot:
		return "hot"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Label returns the label returned to mobile clients
func (c Category) Label() string {
	switch c {
	case Cold:
		return "추움"
	case Comfortable:
		return "적정"
	case Hot:
		return "더움"
	default:
		return ""
	}
}

// ParseCategory accepts English names and client labels
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(s, c.String()) || s == c.Label() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown comfort category %q", s)
}

// Names returns the English names in category order
func Names() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = c.String()
	}
	return names
}
