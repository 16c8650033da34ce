package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	entries := []WeightEntry{{"A", 60}, {"B", 40}}

	tests := []struct {
		name string
		draw float64
		want string
	}{
		{name: "first bucket", draw: 50, want: "A"},
		{name: "boundary belongs to first", draw: 60, want: "A"},
		{name: "second bucket", draw: 80, want: "B"},
		{name: "zero draw", draw: 0, want: "A"},
		{name: "out of range falls back to first", draw: 150, want: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Select(entries, tt.draw)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.BeneficiaryID)
		})
	}
}

func TestSelectEmpty(t *testing.T) {
	_, ok := Select(nil, 10)
	assert.False(t, ok)
}

func TestRandomDrawRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		d := RandomDraw()
		if d < 0 || d >= 100 {
			t.Fatalf("RandomDraw() = %v, want [0,100)", d)
		}
	}
}
