package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"08:15": 495,
		"12:00": 720,
		"23:59": 1439,
	}
	for raw, want := range cases {
		got, err := ToMinutes(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got, raw)
	}
}

func TestToMinutesRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "12", "12:60", "24:00", "-1:00", "ab:cd", "12:00:00"} {
		_, err := ToMinutes(raw)
		assert.Error(t, err, raw)
	}
}

func TestOverlapsSymmetric(t *testing.T) {
	pairs := [][4]int{
		{0, 60, 30, 90},
		{0, 60, 60, 120},
		{0, 60, 59, 61},
		{100, 200, 0, 50},
		{0, 0, 0, 0},
	}
	for _, p := range pairs {
		assert.Equal(t, Overlaps(p[0], p[1], p[2], p[3]), Overlaps(p[2], p[3], p[0], p[1]), p)
	}
}

func TestOverlapsAdjacencyIsNotOverlap(t *testing.T) {
	assert.False(t, Overlaps(480, 540, 540, 600))
	assert.False(t, Overlaps(540, 600, 480, 540))
	assert.True(t, Overlaps(480, 541, 540, 600))
}

func TestOverlapsZeroLengthNeverOverlaps(t *testing.T) {
	assert.False(t, Overlaps(500, 500, 480, 540))
	assert.False(t, Overlaps(500, 500, 500, 500))
}
