// Package pricing implements the nightly price scoring engine: an
// ordered factor pipeline over an immutable request context, market
// bounds enforcement, price grid and confidence band generation, and
// an all-or-nothing fallback path.
package pricing

import "time"

// Season is the canonical season label carried by a request context.
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
)

// LOSTier is a length-of-stay discount threshold. Tiers are evaluated
// longest first and exactly one applies.
type LOSTier struct {
	MinNights  int
	Multiplier float64
	Reason     string
}

// PickupBucket maps a lead-time window to an expected pickup factor:
// the share of remaining headroom expected to fill by the stay date.
type PickupBucket struct {
	MaxLeadDays int
	Factor      float64
}

// Config holds the factor tables and tuning constants. It is injected
// at engine construction and never mutated, so tenants and test
// fixtures can carry different tunings without shared state.
type Config struct {
	DefaultBasePrice float64

	Seasonal  map[Season]float64
	DayOfWeek map[time.Weekday]float64

	// Demand: multiplier = 1 + occupancy*DemandSlope; the reason is
	// recorded above HighDemandThreshold.
	DemandSlope         float64
	HighDemandThreshold float64

	// Lead-time window: strictly below LastMinuteDays applies the
	// last-minute premium, strictly above EarlyBookingDays the early
	// booking discount.
	LastMinuteDays         int
	LastMinuteMultiplier   float64
	EarlyBookingDays       int
	EarlyBookingMultiplier float64

	LOSTiers []LOSTier

	NonRefundableMultiplier float64

	AggressiveMultiplier   float64
	ConservativeMultiplier float64

	// Bounds relative to competitor percentiles, with the raw-price
	// ratios used when no competitor data is present.
	FloorFactor          float64 // applied to comp_price_p10
	CeilingFactor        float64 // applied to comp_price_p90
	FallbackFloorRatio   float64 // applied to the raw price
	FallbackCeilingRatio float64

	// Expected-occupancy projection.
	Pickup        []PickupBucket
	DefaultPickup float64
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		DefaultBasePrice: 100.0,
		Seasonal: map[Season]float64{
			Winter: 0.9,
			Spring: 1.0,
			Summer: 1.3,
			Fall:   1.1,
		},
		DayOfWeek: map[time.Weekday]float64{
			time.Monday:    1.0,
			time.Tuesday:   1.0,
			time.Wednesday: 1.0,
			time.Thursday:  1.0,
			time.Friday:    1.15,
			time.Saturday:  1.25,
			time.Sunday:    1.1,
		},
		DemandSlope:            0.5,
		HighDemandThreshold:    0.7,
		LastMinuteDays:         7,
		LastMinuteMultiplier:   1.2,
		EarlyBookingDays:       90,
		EarlyBookingMultiplier: 0.9,
		LOSTiers: []LOSTier{
			{MinNights: 30, Multiplier: 0.8, Reason: "Monthly stay discount"},
			{MinNights: 14, Multiplier: 0.85, Reason: "Extended stay discount"},
			{MinNights: 7, Multiplier: 0.9, Reason: "Weekly stay discount"},
		},
		NonRefundableMultiplier: 0.95,
		AggressiveMultiplier:    1.1,
		ConservativeMultiplier:  0.9,
		FloorFactor:             0.8,
		CeilingFactor:           2.0,
		FallbackFloorRatio:      0.5,
		FallbackCeilingRatio:    2.0,
		Pickup: []PickupBucket{
			{MaxLeadDays: 7, Factor: 0.6},
			{MaxLeadDays: 30, Factor: 0.4},
			{MaxLeadDays: 90, Factor: 0.25},
		},
		DefaultPickup: 0.1,
	}
}

// Validate checks the tables the pipeline depends on. Failures here
// are fatal at startup, never per-request.
func (c *Config) Validate() error {
	if c.DefaultBasePrice <= 0 {
		return newConfigurationError(ErrCodeMissingBasePrice, "default base price must be positive, got %v", c.DefaultBasePrice)
	}
	for _, s := range []Season{Winter, Spring, Summer, Fall} {
		if _, ok := c.Seasonal[s]; !ok {
			return newConfigurationError(ErrCodeBadFactorTable, "seasonal table missing entry for %q", s)
		}
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if _, ok := c.DayOfWeek[d]; !ok {
			return newConfigurationError(ErrCodeBadFactorTable, "day-of-week table missing entry for %s", d)
		}
	}
	for i := 1; i < len(c.LOSTiers); i++ {
		if c.LOSTiers[i].MinNights >= c.LOSTiers[i-1].MinNights {
			return newConfigurationError(ErrCodeBadFactorTable, "LOS tiers must be ordered longest first")
		}
	}
	if c.FallbackFloorRatio <= 0 || c.FallbackCeilingRatio <= 0 {
		return newConfigurationError(ErrCodeBadFactorTable, "fallback bound ratios must be positive")
	}
	return nil
}

// pickupFactor returns the expected pickup for a lead time.
func (c *Config) pickupFactor(leadDays int) float64 {
	for _, b := range c.Pickup {
		if leadDays < b.MaxLeadDays {
			return b.Factor
		}
	}
	return c.DefaultPickup
}
