package governor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("two agents with cap binding", func(t *testing.T) {
		weights := Normalize(map[string]float64{"A": 0.6, "B": 0.2}, 0.05, 0.40)

		// Shares 0.75 and 0.25, clamped to 0.40 and 0.25, renormalized.
		assert.InDelta(t, 0.6154, weights["A"], 1e-4)
		assert.InDelta(t, 0.3846, weights["B"], 1e-4)
	})

	t.Run("floor binding lifts weak agent", func(t *testing.T) {
		weights := Normalize(map[string]float64{"A": 0.99, "B": 0.01}, 0.05, 1.0)

		// B's 1% share is lifted to the 5% floor before renormalization.
		assert.InDelta(t, 0.05/1.04, weights["B"], 1e-9)
		assert.InDelta(t, 0.99/1.04, weights["A"], 1e-9)
	})

	t.Run("all zero scores fall back to equal weights", func(t *testing.T) {
		weights := Normalize(map[string]float64{"A": 0, "B": 0, "C": 0}, 0.05, 0.40)

		for name, w := range weights {
			assert.InDelta(t, 1.0/3.0, w, 1e-9, "agent %s", name)
		}
	})

	t.Run("negative scores floored at zero", func(t *testing.T) {
		weights := Normalize(map[string]float64{"A": 0.5, "B": -0.5}, 0.0, 1.0)

		assert.InDelta(t, 1.0, weights["A"], 1e-9)
		assert.InDelta(t, 0.0, weights["B"], 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Normalize(nil, 0.05, 0.40))
	})
}

func TestNormalizeSumsToOne(t *testing.T) {
	cases := []map[string]float64{
		{"A": 0.6, "B": 0.2},
		{"A": 0.9, "B": 0.05, "C": 0.05},
		{"A": 1, "B": 1, "C": 1, "D": 1, "E": 1},
		{"A": 0.001, "B": 0.999},
		{"A": -1, "B": 2},
	}

	for _, scores := range cases {
		weights := Normalize(scores, 0.05, 0.40)

		sum := 0.0
		for _, w := range weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
	}
}

func TestMaxChange(t *testing.T) {
	tests := []struct {
		name    string
		next    map[string]float64
		current map[string]float64
		want    float64
	}{
		{
			name:    "identical",
			next:    map[string]float64{"A": 0.5, "B": 0.5},
			current: map[string]float64{"A": 0.5, "B": 0.5},
			want:    0,
		},
		{
			name:    "symmetric shift",
			next:    map[string]float64{"A": 0.62, "B": 0.38},
			current: map[string]float64{"A": 0.5, "B": 0.5},
			want:    0.12,
		},
		{
			name:    "agent appears",
			next:    map[string]float64{"A": 0.7, "B": 0.3},
			current: map[string]float64{"A": 1.0},
			want:    0.3,
		},
		{
			name:    "agent disappears",
			next:    map[string]float64{"A": 1.0},
			current: map[string]float64{"A": 0.6, "B": 0.4},
			want:    0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxChange(tt.next, tt.current), 1e-9)
		})
	}
}

func TestShouldReallocate(t *testing.T) {
	t.Run("change at threshold triggers", func(t *testing.T) {
		next := map[string]float64{"A": 0.62, "B": 0.38}
		current := map[string]float64{"A": 0.5, "B": 0.5}
		assert.True(t, ShouldReallocate(next, current, 0.10))
	})

	t.Run("change below threshold holds", func(t *testing.T) {
		next := map[string]float64{"A": 0.55, "B": 0.45}
		current := map[string]float64{"A": 0.5, "B": 0.5}
		assert.False(t, ShouldReallocate(next, current, 0.10))
	})

	t.Run("empty current always reallocates", func(t *testing.T) {
		next := map[string]float64{"A": 0.5, "B": 0.5}
		assert.True(t, ShouldReallocate(next, nil, 0.10))
		assert.True(t, ShouldReallocate(next, map[string]float64{}, 0.10))
	})
}
