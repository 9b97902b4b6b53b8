package comfort

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServingBoundaries(t *testing.T) {
	cases := []struct {
		value float64
		want  Category
	}{
		{34.5, Comfortable},
		{35.6, Comfortable},
		{34.49, Cold},
		{35.61, Hot},
		{35.0, Comfortable},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.value, 34.5, 35.6), "value %v", c.value)
		assert.Equal(t, c.want, Serving.Classify(c.value), "value %v", c.value)
	}
}

func TestAnalysisBoundaries(t *testing.T) {
	cases := []struct {
		value float64
		want  Category
	}{
		{33.0, Comfortable},
		{35.0, Comfortable},
		{32.99, Cold},
		{35.01, Hot},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.value, 33.0, 35.0), "value %v", c.value)
		assert.Equal(t, c.want, Analysis.Classify(c.value), "value %v", c.value)
	}
}

func TestPresetsDiffer(t *testing.T) {
	assert.Equal(t, Comfortable, Analysis.Classify(34.0))
	assert.Equal(t, Cold, Serving.Classify(34.0))
}

func TestClassifyTotal(t *testing.T) {
	assert.Equal(t, Cold, Serving.Classify(math.Inf(-1)))
	assert.Equal(t, Hot, Serving.Classify(math.Inf(1)))
	assert.Equal(t, Comfortable, Serving.Classify(math.NaN()))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "추움", Cold.Label())
	assert.Equal(t, "적정", Comfortable.Label())
	assert.Equal(t, "더움", Hot.Label())
	assert.Equal(t, []string{"cold", "comfortable", "hot"}, Names())

	c, err := ParseCategory("더움")
	require.NoError(t, err)
	assert.Equal(t, Hot, c)

	c, err = ParseCategory("Cold")
	require.NoError(t, err)
	assert.Equal(t, Cold, c)

	_, err = ParseCategory("warm")
	assert.Error(t, err)
}

func TestClassifyAll(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, Analysis.ClassifyAll([]float64{32.0, 34.0, 36.0}))
}
