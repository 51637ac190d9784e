package pricing

import "github.com/eddiguesti/jengu-sub009/pkg/money"

// Band is the fixed confidence interval around the recommended price.
// It is a contract value, not a statistical estimate.
type Band struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

var gridRatios = [5]float64{0.90, 0.95, 1.00, 1.05, 1.10}

const (
	bandRatio         = 0.10
	fallbackBandRatio = 0.20
)

// buildVariants derives the 5-point price grid and confidence band
// from the bounded price. All arithmetic runs unrounded; rounding to
// two decimals happens once at the end, and the grid is repaired
// against the unrounded values if rounding at small magnitudes would
// otherwise invert it.
func buildVariants(final float64) ([]float64, Band) {
	unrounded := make([]float64, len(gridRatios))
	grid := make([]float64, len(gridRatios))
	for i, r := range gridRatios {
		unrounded[i] = final * r
		grid[i] = money.Round2(unrounded[i])
	}

	// Post-rounding monotonicity repair. Ties are allowed; an
	// inversion of an originally non-decreasing pair is not.
	for i := 1; i < len(grid); i++ {
		if grid[i] < grid[i-1] && unrounded[i] >= unrounded[i-1] {
			grid[i] = grid[i-1]
		}
	}

	band := Band{
		Lower: money.Round2(final * (1 - bandRatio)),
		Upper: money.Round2(final * (1 + bandRatio)),
	}

	// Containment must survive rounding.
	center := grid[len(grid)/2]
	if band.Lower > center {
		band.Lower = center
	}
	if band.Upper < center {
		band.Upper = center
	}
	return grid, band
}
