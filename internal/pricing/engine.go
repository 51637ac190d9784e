package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/eddiguesti/jengu-sub009/pkg/money"
)

// state is the per-request state machine. The transition is one-way:
// once a request falls back it never recovers to a normal result.
type state int

const (
	stateNormal state = iota
	stateFallback
)

func (s state) String() string {
	if s == stateFallback {
		return "fallback"
	}
	return "normal"
}

const reasonFallback = "Fallback pricing due to calculation error"

// Expected is the occupancy projection attached to a result.
type Expected struct {
	OccNow       float64 `json:"occ_now"`
	OccEndBucket float64 `json:"occ_end_bucket"`
}

// Safety echoes the inputs that drove the recommendation, plus the
// failure cause on a fallback result.
type Safety struct {
	BasePriceUsed float64 `json:"base_price_used"`
	OccupancyRate float64 `json:"occupancy_rate"`
	LeadDays      int     `json:"lead_days"`
	Season        Season  `json:"season"`
	DayOfWeek     string  `json:"day_of_week"`
	Error         string  `json:"error,omitempty"`
}

// Result is the complete scoring output. It is constructed exactly
// once per request, either at the end of a successful run or inside
// the fallback path; partial results do not exist.
type Result struct {
	Price     float64   `json:"price"`
	PriceGrid []float64 `json:"price_grid"`
	ConfBand  Band      `json:"conf_band"`
	Expected  Expected  `json:"expected"`
	Reasons   []string  `json:"reasons"`
	Safety    Safety    `json:"safety"`
}

// Fallback reports whether this is the degraded result.
func (r *Result) Fallback() bool {
	return r.Safety.Error != ""
}

// Engine is the scoring engine. It is stateless and safe for
// concurrent use; every invocation is a deterministic computation over
// its inputs with no I/O.
type Engine struct {
	cfg   Config
	rules []Rule
	log   zerolog.Logger
}

// New constructs an engine, validating the injected factor tables.
// A configuration failure here is fatal, never per-request.
func New(cfg Config, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, rules: factorChain(), log: log}, nil
}

// Score produces a recommendation for req, quoting at the current time
// when the request carries no quote_time.
func (e *Engine) Score(req Request) (*Result, error) {
	return e.ScoreAt(req, time.Now().UTC())
}

// ScoreAt is Score with an explicit "now", which pins lead-day math
// for reproducible runs. It returns an error only for InvalidInput;
// every computation failure is converted into the degraded result.
func (e *Engine) ScoreAt(req Request, now time.Time) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("scoring panicked, serving fallback")
			res = e.fallback(req, newComputationError(ErrCodePanic, "%v", r))
			err = nil
		}
	}()

	ctx, err := newContext(req, now)
	if err != nil {
		if IsInvalidInput(err) {
			return nil, err
		}
		return e.fallback(req, err), nil
	}

	st := stateNormal
	res, err = e.run(ctx)
	if err != nil {
		st = stateFallback
		e.log.Warn().Str("cause", err.Error()).
			Str("property", ctx.Entity.PropertyID).
			Stringer("state", st).
			Msg("scoring failed, serving fallback")
		return e.fallback(req, err), nil
	}
	return res, nil
}

// run executes the normal path: factor chain, bounds, variants. Any
// error discards all partial state at the caller.
func (e *Engine) run(ctx *Context) (*Result, error) {
	reasons := append([]string(nil), ctx.validationReasons...)

	price := 0.0
	for _, rule := range e.rules {
		next, reason, err := rule.Apply(price, ctx, &e.cfg)
		if err != nil {
			return nil, err
		}
		price = next
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, newComputationError(ErrCodeNonFinitePrice, "pipeline produced non-finite price %v", price)
	}

	final, _, _, boundReasons := enforceBounds(price, ctx, &e.cfg)
	reasons = append(reasons, boundReasons...)

	grid, band := buildVariants(final)

	occ, err := occupancyRate(ctx)
	if err != nil {
		return nil, err
	}
	base, _ := basePrice(ctx, &e.cfg)

	return &Result{
		Price:     grid[len(grid)/2],
		PriceGrid: grid,
		ConfBand:  band,
		Expected: Expected{
			OccNow:       occ,
			OccEndBucket: money.Clamp01(occ + (1-occ)*e.cfg.pickupFactor(ctx.LeadDays)),
		},
		Reasons: reasons,
		Safety: Safety{
			BasePriceUsed: base,
			OccupancyRate: occ,
			LeadDays:      ctx.LeadDays,
			Season:        ctx.Season,
			DayOfWeek:     ctx.Weekday.String(),
		},
	}, nil
}

// fallback builds the fixed degraded result: base price unchanged, a
// 3-point grid at ±10%, a ±20% band, and the failure cause in safety.
// Inputs are resolved best-effort from the raw request since the
// normalized context may not exist.
func (e *Engine) fallback(req Request, cause error) *Result {
	base := e.cfg.DefaultBasePrice
	if req.Toggles.UseCompetitors && req.Market != nil &&
		req.Market.CompPriceP50 != nil && *req.Market.CompPriceP50 > 0 {
		base = *req.Market.CompPriceP50
	}

	season, _ := parseSeason(req.Context.Season)
	day := ""
	if d, ok, err := parseWeekday(req.Context.DayOfWeek); err == nil && ok {
		day = d.String()
	}

	return &Result{
		Price: money.Round2(base),
		PriceGrid: []float64{
			money.Round2(base * (1 - bandRatio)),
			money.Round2(base),
			money.Round2(base * (1 + bandRatio)),
		},
		ConfBand: Band{
			Lower: money.Round2(base * (1 - fallbackBandRatio)),
			Upper: money.Round2(base * (1 + fallbackBandRatio)),
		},
		Expected: Expected{},
		Reasons:  []string{reasonFallback},
		Safety: Safety{
			BasePriceUsed: base,
			Season:        season,
			DayOfWeek:     day,
			Error:         fmt.Sprintf("%v", AsError(cause)),
		},
	}
}
