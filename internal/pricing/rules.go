package pricing

// The factor pipeline. Stage order is a contract: reason traces and
// golden outputs depend on it, so the single source of truth is the
// declared slice below, not code position.

// Rule is one pure pricing stage.
type Rule struct {
	Name  string
	Apply func(price float64, ctx *Context, cfg *Config) (float64, string, error)
}

const (
	reasonWeekendPremium = "Weekend premium"
	reasonHighDemand     = "High demand"
	reasonLastMinute     = "Last-minute booking premium"
	reasonEarlyBooking   = "Early booking discount"
	reasonNonRefundable  = "Non-refundable rate"
	reasonAggressive     = "Aggressive pricing strategy"
	reasonConservative   = "Conservative pricing strategy"
	reasonCompetitorBase = "Base price from competitor median"
)

// factorChain returns the fixed, non-reorderable stage sequence.
func factorChain() []Rule {
	return []Rule{
		{Name: "base", Apply: applyBase},
		{Name: "seasonal", Apply: applySeasonal},
		{Name: "day_of_week", Apply: applyDayOfWeek},
		{Name: "demand", Apply: applyDemand},
		{Name: "lead_time", Apply: applyLeadTime},
		{Name: "length_of_stay", Apply: applyLengthOfStay},
		{Name: "refundability", Apply: applyRefundability},
		{Name: "strategy", Apply: applyStrategy},
	}
}

// basePrice resolves the starting price: the competitor median when
// present and enabled, otherwise the configured default.
func basePrice(ctx *Context, cfg *Config) (float64, bool) {
	if ctx.UseCompetitors && ctx.CompPriceP50 != nil {
		return *ctx.CompPriceP50, true
	}
	return cfg.DefaultBasePrice, false
}

func applyBase(_ float64, ctx *Context, cfg *Config) (float64, string, error) {
	base, fromMarket := basePrice(ctx, cfg)
	if fromMarket {
		return base, reasonCompetitorBase, nil
	}
	return base, "", nil
}

func applySeasonal(price float64, ctx *Context, cfg *Config) (float64, string, error) {
	if !ctx.ApplySeasonality {
		return price, "", nil
	}
	m := cfg.Seasonal[ctx.Season]
	if m == 1.0 || m == 0 {
		return price, "", nil
	}
	return price * m, "Seasonal adjustment (" + string(ctx.Season) + ")", nil
}

func applyDayOfWeek(price float64, ctx *Context, cfg *Config) (float64, string, error) {
	m := cfg.DayOfWeek[ctx.Weekday]
	if m == 0 {
		m = 1.0
	}
	if m > 1.0 {
		return price * m, reasonWeekendPremium, nil
	}
	return price * m, "", nil
}

func applyDemand(price float64, ctx *Context, cfg *Config) (float64, string, error) {
	occ, err := occupancyRate(ctx)
	if err != nil {
		return price, "", err
	}
	m := 1 + occ*cfg.DemandSlope
	if occ > cfg.HighDemandThreshold {
		return price * m, reasonHighDemand, nil
	}
	return price * m, "", nil
}

func applyLeadTime(price float64, ctx *Context, cfg *Config) (float64, string, error) {
	switch {
	case ctx.LeadDays < cfg.LastMinuteDays:
		return price * cfg.LastMinuteMultiplier, reasonLastMinute, nil
	case ctx.LeadDays > cfg.EarlyBookingDays:
		return price * cfg.EarlyBookingMultiplier, reasonEarlyBooking, nil
	default:
		return price, "", nil
	}
}

// applyLengthOfStay walks tiers longest first so exactly one applies;
// the discounts never compound.
func applyLengthOfStay(price float64, ctx *Context, cfg *Config) (float64, string, error) {
	for _, tier := range cfg.LOSTiers {
		if ctx.LengthOfStay >= tier.MinNights {
			return price * tier.Multiplier, tier.Reason, nil
		}
	}
	return price, "", nil
}

func applyRefundability(price float64, ctx *Context, cfg *Config) (float64, string, error) {
	if ctx.Refundable {
		return price, "", nil
	}
	return price * cfg.NonRefundableMultiplier, reasonNonRefundable, nil
}

// applyStrategy is the final override lever. Conflicts were already
// resolved at validation, so at most one branch fires.
func applyStrategy(price float64, ctx *Context, cfg *Config) (float64, string, error) {
	if ctx.Aggressive {
		return price * cfg.AggressiveMultiplier, reasonAggressive, nil
	}
	if ctx.Conservative {
		return price * cfg.ConservativeMultiplier, reasonConservative, nil
	}
	return price, "", nil
}
