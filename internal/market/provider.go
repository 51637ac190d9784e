// Package market provides the competitor rate collaborator: rate-shop
// snapshots stored in ClickHouse, served to the scoring surface as
// percentile prices. The engine never touches this package; percentile
// pre-fetch happens in the caller.
package market

import (
	"context"
	"time"
)

// Percentiles are competitor nightly price percentiles for one market
// and stay date.
type Percentiles struct {
	P10 float64 `json:"comp_price_p10"`
	P50 float64 `json:"comp_price_p50"`
	P90 float64 `json:"comp_price_p90"`
}

// Provider serves pre-fetched competitor price distributions.
type Provider interface {
	// Percentiles returns the distribution for a property and stay
	// date, or nil when no rate-shop data exists.
	Percentiles(ctx context.Context, propertyID string, stayDate time.Time) (*Percentiles, error)

	Ping(ctx context.Context) error
}
