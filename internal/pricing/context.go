package pricing

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Request is the wire shape accepted by /score and the CLI.
type Request struct {
	Entity           Entity         `json:"entity"`
	StayDate         string         `json:"stay_date"`
	QuoteTime        string         `json:"quote_time,omitempty"`
	Product          Product        `json:"product"`
	Inventory        Inventory      `json:"inventory"`
	Market           *Market        `json:"market,omitempty"`
	Context          RequestContext `json:"context"`
	Toggles          Toggles        `json:"toggles"`
	AllowedPriceGrid []float64      `json:"allowed_price_grid,omitempty"`
}

type Entity struct {
	UserID     string `json:"userId"`
	PropertyID string `json:"propertyId"`
}

type Product struct {
	Type string `json:"type"`
	// Refundable defaults to true when omitted; the non-refundable
	// discount must never apply silently.
	Refundable   *bool `json:"refundable,omitempty"`
	LengthOfStay int   `json:"los"`
}

type Inventory struct {
	Capacity      int `json:"capacity"`
	Remaining     int `json:"remaining"`
	OverbookLimit int `json:"overbook_limit"`
}

// Market carries competitor percentile prices. All optional; an absent
// percentile disables the corresponding bound or base substitution.
type Market struct {
	CompPriceP10 *float64 `json:"comp_price_p10,omitempty"`
	CompPriceP50 *float64 `json:"comp_price_p50,omitempty"`
	CompPriceP90 *float64 `json:"comp_price_p90,omitempty"`
}

// RequestContext holds pre-enriched contextual signals. DayOfWeek
// accepts either a weekday name or the upstream zero-indexed
// Sunday-start integer; both normalize to time.Weekday.
type RequestContext struct {
	Season    string          `json:"season"`
	DayOfWeek json.RawMessage `json:"day_of_week,omitempty"`
	Weather   string          `json:"weather,omitempty"`
}

type Toggles struct {
	Aggressive       bool `json:"aggressive,omitempty"`
	Conservative     bool `json:"conservative,omitempty"`
	UseCompetitors   bool `json:"use_competitors,omitempty"`
	ApplySeasonality bool `json:"apply_seasonality,omitempty"`
}

// Context is the immutable normalized input the pipeline runs over.
// It is constructed once per request by newContext and never mutated.
type Context struct {
	Entity Entity

	StayDate  time.Time
	QuoteTime time.Time
	LeadDays  int

	ProductType  string
	Refundable   bool
	LengthOfStay int

	Capacity      int
	Remaining     int
	OverbookLimit int

	CompPriceP10 *float64
	CompPriceP50 *float64
	CompPriceP90 *float64

	Season  Season
	Weekday time.Weekday
	Weather string

	Aggressive       bool
	Conservative     bool
	UseCompetitors   bool
	ApplySeasonality bool

	// Accepted from the caller but not honored by this core.
	AllowedPriceGrid []float64

	// Reasons recorded during validation, ahead of any pipeline stage.
	validationReasons []string
}

const reasonToggleConflict = "Conflicting strategy toggles: aggressive takes precedence over conservative"

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// wholeDays returns the whole-day difference between two instants,
// comparing calendar dates in UTC.
func wholeDays(from, to time.Time) int {
	f := from.UTC()
	t := to.UTC()
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(td.Sub(fd) / (24 * time.Hour))
}

func parseSeason(s string) (Season, bool) {
	switch Season(strings.ToLower(strings.TrimSpace(s))) {
	case Winter:
		return Winter, true
	case Spring:
		return Spring, true
	case Summer:
		return Summer, true
	case Fall, Season("autumn"):
		return Fall, true
	}
	return "", false
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// parseWeekday normalizes the wire day_of_week. Upstream producers use
// a zero-indexed Sunday-start integer convention; names are accepted
// as well. The canonical form past this boundary is time.Weekday.
func parseWeekday(raw json.RawMessage) (time.Weekday, bool, error) {
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 || trimmed == "null" {
		return 0, false, nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
			return d, true, nil
		}
		return 0, false, newInvalidInput(ErrCodeBadDayOfWeek, "context.day_of_week", "unknown weekday %q", name)
	}

	if n, err := strconv.Atoi(trimmed); err == nil {
		if n < 0 || n > 6 {
			return 0, false, newInvalidInput(ErrCodeBadDayOfWeek, "context.day_of_week", "weekday index %d out of range [0,6]", n)
		}
		return time.Weekday(n), true, nil
	}

	return 0, false, newInvalidInput(ErrCodeBadDayOfWeek, "context.day_of_week", "expected weekday name or index, got %s", trimmed)
}

// newContext validates and normalizes a raw request. It either returns
// an immutable Context or an InvalidInput error; the only silent
// adjustments are the documented tolerances (inventory clamping and
// toggle conflict resolution).
func newContext(req Request, now time.Time) (*Context, error) {
	stay, ok := parseTimestamp(req.StayDate)
	if !ok {
		return nil, newInvalidInput(ErrCodeBadStayDate, "stay_date", "unparseable stay date %q", req.StayDate)
	}

	quote := now
	if req.QuoteTime != "" {
		quote, ok = parseTimestamp(req.QuoteTime)
		if !ok {
			return nil, newInvalidInput(ErrCodeBadQuoteTime, "quote_time", "unparseable quote time %q", req.QuoteTime)
		}
	}

	leadDays := wholeDays(quote, stay)
	if leadDays < 0 {
		return nil, newInvalidInput(ErrCodeNegativeLeadTime, "stay_date", "stay date is %d day(s) in the past", -leadDays)
	}

	if req.Product.LengthOfStay <= 0 {
		return nil, newInvalidInput(ErrCodeBadLengthOfStay, "product.los", "length of stay must be a positive integer, got %d", req.Product.LengthOfStay)
	}

	season, ok := parseSeason(req.Context.Season)
	if !ok {
		return nil, newInvalidInput(ErrCodeBadSeason, "context.season", "unknown season %q", req.Context.Season)
	}

	weekday, haveWeekday, err := parseWeekday(req.Context.DayOfWeek)
	if err != nil {
		return nil, err
	}
	if !haveWeekday {
		weekday = stay.UTC().Weekday()
	}

	ctx := &Context{
		Entity:           req.Entity,
		StayDate:         stay,
		QuoteTime:        quote,
		LeadDays:         leadDays,
		ProductType:      req.Product.Type,
		Refundable:       req.Product.Refundable == nil || *req.Product.Refundable,
		LengthOfStay:     req.Product.LengthOfStay,
		Capacity:         req.Inventory.Capacity,
		Remaining:        req.Inventory.Remaining,
		OverbookLimit:    req.Inventory.OverbookLimit,
		Season:           season,
		Weekday:          weekday,
		Weather:          req.Context.Weather,
		Aggressive:       req.Toggles.Aggressive,
		Conservative:     req.Toggles.Conservative,
		UseCompetitors:   req.Toggles.UseCompetitors,
		ApplySeasonality: req.Toggles.ApplySeasonality,
		AllowedPriceGrid: req.AllowedPriceGrid,
	}

	// Non-positive competitor percentiles are treated as absent: a
	// broken rate-shop feed disables the stage it feeds, it does not
	// poison the chain.
	if req.Market != nil {
		ctx.CompPriceP10 = positivePrice(req.Market.CompPriceP10)
		ctx.CompPriceP50 = positivePrice(req.Market.CompPriceP50)
		ctx.CompPriceP90 = positivePrice(req.Market.CompPriceP90)
	}

	// Upstream inventory feeds can be transiently stale, so remaining
	// is clamped rather than rejected. Capacity itself is checked by
	// the demand stage, where a degenerate value becomes a
	// computation failure rather than a rejection.
	if ctx.Capacity > 0 {
		if ctx.Remaining < 0 {
			ctx.Remaining = 0
		}
		if ctx.Remaining > ctx.Capacity {
			ctx.Remaining = ctx.Capacity
		}
	}

	// Aggressive wins deterministically; the two are never both applied.
	if ctx.Aggressive && ctx.Conservative {
		ctx.Conservative = false
		ctx.validationReasons = append(ctx.validationReasons, reasonToggleConflict)
	}

	return ctx, nil
}

func positivePrice(p *float64) *float64 {
	if p == nil || *p <= 0 {
		return nil
	}
	return p
}

// occupancyRate computes 1 - remaining/capacity, guarding the division
// so degenerate inventory surfaces as a typed computation failure.
func occupancyRate(ctx *Context) (float64, error) {
	if ctx.Capacity <= 0 {
		return 0, newComputationError(ErrCodeOccupancyDivZero, "occupancy rate undefined for capacity %d", ctx.Capacity)
	}
	occ := 1 - float64(ctx.Remaining)/float64(ctx.Capacity)
	if occ < 0 {
		occ = 0
	}
	if occ > 1 {
		occ = 1
	}
	return occ, nil
}
