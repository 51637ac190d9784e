package pricing

import "github.com/eddiguesti/jengu-sub009/pkg/money"

const (
	reasonPremiumPricing     = "Premium pricing vs competitors"
	reasonCompetitivePricing = "Competitive pricing vs market"

	premiumRatio     = 1.1
	competitiveRatio = 0.9
)

// enforceBounds clamps the raw pipeline output into a market-consistent
// floor/ceiling and returns positioning commentary. No rounding here;
// that belongs to the output boundary.
func enforceBounds(raw float64, ctx *Context, cfg *Config) (price, minPrice, maxPrice float64, reasons []string) {
	minPrice = raw * cfg.FallbackFloorRatio
	if ctx.CompPriceP10 != nil {
		minPrice = *ctx.CompPriceP10 * cfg.FloorFactor
	}
	maxPrice = raw * cfg.FallbackCeilingRatio
	if ctx.CompPriceP90 != nil {
		maxPrice = *ctx.CompPriceP90 * cfg.CeilingFactor
	}

	price = money.Clamp(raw, minPrice, maxPrice)

	if ctx.CompPriceP50 != nil {
		switch {
		case price > *ctx.CompPriceP50*premiumRatio:
			reasons = append(reasons, reasonPremiumPricing)
		case price < *ctx.CompPriceP50*competitiveRatio:
			reasons = append(reasons, reasonCompetitivePricing)
		}
	}
	return price, minPrice, maxPrice, reasons
}
