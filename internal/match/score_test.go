package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Identical(t *testing.T) {
	assert.Equal(t, 1.0, Score("deep learning", "deep learning"))
	assert.Equal(t, 1.0, Score("", ""))
}

func TestScore_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Score("deep learning", ""))
	assert.Equal(t, 0.0, Score("", "deep learning"))
}

func TestScore_Symmetric(t *testing.T) {
	a := "introduction to information retrieval"
	b := "introduction to modern information retrieval"
	assert.Equal(t, Score(a, b), Score(b, a))
}

func TestScore_Reordering(t *testing.T) {
	a := "methods and applications deep learning"
	b := "deep learning methods and applications"
	assert.Greater(t, Score(a, b), 0.95, "token reordering should barely penalize")
}

func TestScore_MinorDifferences(t *testing.T) {
	a := "the elements of statistical learning"
	b := "elements of statistical learning"
	assert.Greater(t, Score(a, b), 0.8)
}

func TestScore_UnrelatedTitlesBelowThreshold(t *testing.T) {
	a := "deep learning methods and applications"
	b := "a history of the roman empire"
	assert.Less(t, Score(a, b), 0.8)
}

func TestScore_Range(t *testing.T) {
	pairs := [][2]string{
		{"abc", "xyz"},
		{"short", "a considerably longer unrelated string"},
		{"same", "same"},
	}
	for _, p := range pairs {
		s := Score(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}
