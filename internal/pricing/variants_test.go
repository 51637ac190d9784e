package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eddiguesti/jengu-sub009/pkg/money"
)

func TestBuildVariantsShape(t *testing.T) {
	grid, band := buildVariants(200)

	assert.Equal(t, []float64{180, 190, 200, 210, 220}, grid)
	assert.Equal(t, Band{Lower: 180, Upper: 220}, band)
}

func TestBuildVariantsRoundsOnlyAtTheBoundary(t *testing.T) {
	// An awkward final price whose grid points need rounding.
	grid, band := buildVariants(123.456789)

	assert.Equal(t, []float64{111.11, 117.28, 123.46, 129.63, 135.8}, grid)
	assert.Equal(t, Band{Lower: 111.11, Upper: 135.8}, band)
}

func TestBuildVariantsMonotonicAtSmallMagnitudes(t *testing.T) {
	for _, final := range []float64{0.01, 0.02, 0.05, 0.11, 1.004, 2.984} {
		grid, band := buildVariants(final)

		for i := 1; i < len(grid); i++ {
			assert.GreaterOrEqual(t, grid[i], grid[i-1], "final=%v", final)
		}
		center := grid[len(grid)/2]
		assert.Equal(t, money.Round2(final), center, "final=%v", final)
		assert.LessOrEqual(t, band.Lower, center, "final=%v", final)
		assert.GreaterOrEqual(t, band.Upper, center, "final=%v", final)
	}
}
