package pricing

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	return e
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

// neutralRequest builds a request where every factor sits at its
// neutral case: no competitor data, 30-day lead, zero occupancy,
// refundable, single night, Monday, seasonality off.
func neutralRequest() Request {
	return Request{
		Entity:    Entity{UserID: "u-1", PropertyID: "prop-1"},
		StayDate:  "2026-07-01",
		QuoteTime: "2026-06-01",
		Product:   Product{Type: "standard", LengthOfStay: 1},
		Inventory: Inventory{Capacity: 10, Remaining: 10},
		Context:   RequestContext{Season: "spring", DayOfWeek: []byte(`"monday"`)},
	}
}

func TestScoreWorkedExample(t *testing.T) {
	e := newTestEngine(t)

	req := neutralRequest()
	req.StayDate = "2026-06-15" // 14 days out: inside the neutral lead window
	req.Context.Season = "summer"
	req.Context.DayOfWeek = []byte(`"saturday"`)
	req.Inventory = Inventory{Capacity: 10, Remaining: 2} // occupancy 0.8
	req.Market = &Market{CompPriceP50: floatPtr(200)}
	req.Toggles = Toggles{UseCompetitors: true, ApplySeasonality: true}

	res, err := e.ScoreAt(req, testNow)
	require.NoError(t, err)
	require.False(t, res.Fallback())

	// 200 ×1.3 ×1.25 ×1.4 = 455
	assert.Equal(t, 455.0, res.Price)
	assert.Equal(t, []float64{409.5, 432.25, 455, 477.75, 500.5}, res.PriceGrid)
	assert.Equal(t, Band{Lower: 409.5, Upper: 500.5}, res.ConfBand)
	assert.Equal(t, []string{
		"Base price from competitor median",
		"Seasonal adjustment (summer)",
		"Weekend premium",
		"High demand",
		"Premium pricing vs competitors",
	}, res.Reasons)

	assert.Equal(t, 200.0, res.Safety.BasePriceUsed)
	assert.InDelta(t, 0.8, res.Safety.OccupancyRate, 1e-12)
	assert.Equal(t, 14, res.Safety.LeadDays)
	assert.Equal(t, Summer, res.Safety.Season)
	assert.Equal(t, "Saturday", res.Safety.DayOfWeek)
	assert.Empty(t, res.Safety.Error)
}

func TestScoreIdempotent(t *testing.T) {
	e := newTestEngine(t)

	req := neutralRequest()
	req.Context.DayOfWeek = []byte(`"saturday"`)
	req.Inventory = Inventory{Capacity: 20, Remaining: 3}
	req.Market = &Market{CompPriceP10: floatPtr(90), CompPriceP50: floatPtr(140), CompPriceP90: floatPtr(210)}
	req.Toggles = Toggles{UseCompetitors: true, ApplySeasonality: true, Aggressive: true}

	first, err := e.ScoreAt(req, testNow)
	require.NoError(t, err)
	second, err := e.ScoreAt(req, testNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScoreWeekendPremium(t *testing.T) {
	e := newTestEngine(t)

	req := neutralRequest()
	req.Context.DayOfWeek = []byte(`"saturday"`)

	res, err := e.ScoreAt(req, testNow)
	require.NoError(t, err)

	assert.Greater(t, res.Price, DefaultConfig().DefaultBasePrice)
	assert.Contains(t, res.Reasons, "Weekend premium")
	assert.Equal(t, 125.0, res.Price)
}

func TestScoreGridInvariants(t *testing.T) {
	e := newTestEngine(t)

	req := neutralRequest()
	req.Context.DayOfWeek = []byte(`"friday"`)
	req.Inventory = Inventory{Capacity: 7, Remaining: 3}

	res, err := e.ScoreAt(req, testNow)
	require.NoError(t, err)

	require.Len(t, res.PriceGrid, 5)
	for i := 1; i < len(res.PriceGrid); i++ {
		assert.GreaterOrEqual(t, res.PriceGrid[i], res.PriceGrid[i-1])
	}
	assert.Equal(t, res.Price, res.PriceGrid[2])
	assert.LessOrEqual(t, res.ConfBand.Lower, res.Price)
	assert.GreaterOrEqual(t, res.ConfBand.Upper, res.Price)
}

func TestScoreBoundsClamp(t *testing.T) {
	e := newTestEngine(t)

	t.Run("floor from comp p10", func(t *testing.T) {
		req := neutralRequest()
		req.Market = &Market{
			CompPriceP10: floatPtr(500),
			CompPriceP50: floatPtr(600),
			CompPriceP90: floatPtr(700),
		}

		res, err := e.ScoreAt(req, testNow)
		require.NoError(t, err)

		// Raw price 100 clamps up to 500*0.8.
		assert.Equal(t, 400.0, res.Price)
		assert.Contains(t, res.Reasons, "Competitive pricing vs market")
	})

	t.Run("ceiling from comp p90", func(t *testing.T) {
		req := neutralRequest()
		req.Context.DayOfWeek = []byte(`"saturday"`)
		req.Inventory = Inventory{Capacity: 10, Remaining: 0}
		req.Market = &Market{
			CompPriceP50: floatPtr(40),
			CompPriceP90: floatPtr(50),
		}

		res, err := e.ScoreAt(req, testNow)
		require.NoError(t, err)

		// Raw 100*1.25*1.5 = 187.5 clamps down to 50*2.
		assert.Equal(t, 100.0, res.Price)
		assert.Contains(t, res.Reasons, "Premium pricing vs competitors")
	})

	t.Run("no market data uses raw ratios", func(t *testing.T) {
		req := neutralRequest()
		res, err := e.ScoreAt(req, testNow)
		require.NoError(t, err)
		assert.Equal(t, 100.0, res.Price)
		assert.NotContains(t, res.Reasons, "Premium pricing vs competitors")
		assert.NotContains(t, res.Reasons, "Competitive pricing vs market")
	})
}

func TestScoreToggleConflict(t *testing.T) {
	e := newTestEngine(t)

	req := neutralRequest()
	req.Toggles = Toggles{Aggressive: true, Conservative: true}

	res, err := e.ScoreAt(req, testNow)
	require.NoError(t, err)

	// Aggressive wins; the conflict resolution is recorded first.
	assert.Equal(t, 110.0, res.Price)
	require.NotEmpty(t, res.Reasons)
	assert.Equal(t, reasonToggleConflict, res.Reasons[0])
	assert.Contains(t, res.Reasons, reasonAggressive)
	assert.NotContains(t, res.Reasons, reasonConservative)
}

func TestScoreFallbackOnDegenerateInventory(t *testing.T) {
	e := newTestEngine(t)

	for _, capacity := range []int{0, -3} {
		req := neutralRequest()
		req.Inventory = Inventory{Capacity: capacity, Remaining: 5}

		res, err := e.ScoreAt(req, testNow)
		require.NoError(t, err, "degenerate inventory must never raise to the caller")
		require.NotNil(t, res)

		assert.Equal(t, []string{"Fallback pricing due to calculation error"}, res.Reasons)
		assert.NotEmpty(t, res.Safety.Error)
		assert.Contains(t, res.Safety.Error, ErrCodeOccupancyDivZero)

		// Degraded shape: base unchanged, 3-point ±10% grid, ±20% band.
		assert.Equal(t, 100.0, res.Price)
		assert.Equal(t, []float64{90, 100, 110}, res.PriceGrid)
		assert.Equal(t, Band{Lower: 80, Upper: 120}, res.ConfBand)
	}
}

func TestScoreFallbackKeepsCompetitorBase(t *testing.T) {
	e := newTestEngine(t)

	req := neutralRequest()
	req.Inventory = Inventory{Capacity: 0, Remaining: 0}
	req.Market = &Market{CompPriceP50: floatPtr(200)}
	req.Toggles = Toggles{UseCompetitors: true}

	res, err := e.ScoreAt(req, testNow)
	require.NoError(t, err)

	assert.Equal(t, 200.0, res.Price)
	assert.Equal(t, []float64{180, 200, 220}, res.PriceGrid)
	assert.Equal(t, Band{Lower: 160, Upper: 240}, res.ConfBand)
	assert.Equal(t, 200.0, res.Safety.BasePriceUsed)
}

func TestScoreInvalidInput(t *testing.T) {
	e := newTestEngine(t)

	cases := []struct {
		name   string
		mutate func(*Request)
		code   string
	}{
		{"stay date in the past", func(r *Request) { r.StayDate = "2026-05-20" }, ErrCodeNegativeLeadTime},
		{"unparseable stay date", func(r *Request) { r.StayDate = "soon" }, ErrCodeBadStayDate},
		{"unparseable quote time", func(r *Request) { r.QuoteTime = "yesterday" }, ErrCodeBadQuoteTime},
		{"zero length of stay", func(r *Request) { r.Product.LengthOfStay = 0 }, ErrCodeBadLengthOfStay},
		{"negative length of stay", func(r *Request) { r.Product.LengthOfStay = -2 }, ErrCodeBadLengthOfStay},
		{"unknown season", func(r *Request) { r.Context.Season = "monsoon" }, ErrCodeBadSeason},
		{"weekday index out of range", func(r *Request) { r.Context.DayOfWeek = []byte(`7`) }, ErrCodeBadDayOfWeek},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := neutralRequest()
			tc.mutate(&req)

			res, err := e.ScoreAt(req, testNow)
			require.Error(t, err)
			assert.Nil(t, res, "a rejected request surfaces no result at all")
			assert.True(t, IsInvalidInput(err))
			assert.Equal(t, tc.code, AsError(err).Code)
		})
	}
}

func TestScoreExpectedOccupancy(t *testing.T) {
	e := newTestEngine(t)

	req := neutralRequest()
	req.Inventory = Inventory{Capacity: 10, Remaining: 5}

	res, err := e.ScoreAt(req, testNow)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.Expected.OccNow, 1e-12)
	// 30-day lead falls in the <90d bucket: 0.5 + 0.5*0.25
	assert.InDelta(t, 0.625, res.Expected.OccEndBucket, 1e-12)
	assert.GreaterOrEqual(t, res.Expected.OccEndBucket, res.Expected.OccNow)
	assert.LessOrEqual(t, res.Expected.OccEndBucket, 1.0)
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Run("missing base price", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DefaultBasePrice = 0
		_, err := New(cfg, zerolog.Nop())
		require.Error(t, err)
		assert.False(t, IsInvalidInput(err))
		assert.Equal(t, ErrCodeMissingBasePrice, AsError(err).Code)
	})

	t.Run("incomplete seasonal table", func(t *testing.T) {
		cfg := DefaultConfig()
		delete(cfg.Seasonal, Summer)
		_, err := New(cfg, zerolog.Nop())
		require.Error(t, err)
		assert.Equal(t, ErrCodeBadFactorTable, AsError(err).Code)
	})

	t.Run("unordered LOS tiers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LOSTiers = []LOSTier{
			{MinNights: 7, Multiplier: 0.9},
			{MinNights: 30, Multiplier: 0.8},
		}
		_, err := New(cfg, zerolog.Nop())
		require.Error(t, err)
	})
}
