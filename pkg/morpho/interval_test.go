package morpho

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInterval(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		end      float64
		step     float64
		expected Interval
	}{
		{
			name:  "well formed",
			start: 0, end: 10, step: 2,
			expected: Interval{Start: 0, End: 10, Step: 2},
		},
		{
			name:  "reversed range collapses to constant",
			start: 10, end: 0, step: 2,
			expected: Interval{Start: 10, End: 10, Step: 0, IsConstant: true},
		},
		{
			name:  "negative step cleared",
			start: 0, end: 10, step: -1,
			expected: Interval{Start: 0, End: 10, Step: 0},
		},
		{
			name:  "oversized step clipped to width",
			start: 0, end: 4, step: 100,
			expected: Interval{Start: 0, End: 4, Step: 4},
		},
		{
			name:  "degenerate range is constant",
			start: 3, end: 3, step: 1,
			expected: Interval{Start: 3, End: 3, Step: 0, IsConstant: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := NewInterval("x", tt.start, tt.end, tt.step)
			tt.expected.Name = "x"
			assert.Equal(t, tt.expected, iv)
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	iv := NewInterval("x", 8, 2, 3)
	once := iv
	iv.Sanitize()
	assert.Equal(t, once, iv)
}

func TestClamp(t *testing.T) {
	iv := NewInterval("x", -5, 5, 0)
	assert.Equal(t, -5.0, iv.Clamp(-100))
	assert.Equal(t, 5.0, iv.Clamp(100))
	assert.Equal(t, 1.5, iv.Clamp(1.5))
}

func TestQuantize(t *testing.T) {
	iv := NewInterval("x", 1, 9, 2)
	assert.Equal(t, 5.0, iv.Quantize(4.5))
	assert.Equal(t, 3.0, iv.Quantize(3.9))
	assert.Equal(t, 1.0, iv.Quantize(1.0))

	continuous := NewInterval("x", 0, 1, 0)
	assert.Equal(t, 0.37, continuous.Quantize(0.37))
}

func TestIntervalMap(t *testing.T) {
	m := IntervalMap([]Interval{
		NewInterval("a", 0, 1, 0),
		NewInterval("b", 0, 2, 0),
		NewInterval("a", 5, 6, 0), // later duplicate wins
	})
	assert.Len(t, m, 2)
	assert.Equal(t, 5.0, m["a"].Start)
}
