package market

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time rate-shop capture for a property.
type Snapshot struct {
	ID          uuid.UUID `ch:"id"`
	PropertyID  string    `ch:"property_id"`
	Source      string    `ch:"source"`
	CollectedAt time.Time `ch:"collected_at"`
	RateCount   uint64    `ch:"rate_count"`
	CreatedAt   time.Time `ch:"created_at"`
}

// CompetitorRate is one observed competitor nightly price.
type CompetitorRate struct {
	SnapshotID uuid.UUID       `ch:"snapshot_id"`
	PropertyID string          `ch:"property_id"`
	StayDate   time.Time       `ch:"stay_date"`
	Competitor string          `ch:"competitor"`
	Price      decimal.Decimal `ch:"price"`
	Currency   string          `ch:"currency"`
}

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "jengu",
		Username: "default",
		Password: "",
	}
}

// Store implements Provider on ClickHouse. Rate shops are append-only
// and percentile heavy, which is exactly the columnar sweet spot.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore opens a ClickHouse connection.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the rate-shop tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rate_snapshots (
			id UUID,
			property_id String,
			source String,
			collected_at DateTime,
			rate_count UInt64,
			created_at DateTime DEFAULT now()
		) ENGINE = MergeTree ORDER BY (property_id, collected_at)`,
		`CREATE TABLE IF NOT EXISTS competitor_rates (
			snapshot_id UUID,
			property_id String,
			stay_date Date,
			competitor String,
			price Decimal(12, 2),
			currency LowCardinality(String)
		) ENGINE = MergeTree ORDER BY (property_id, stay_date, snapshot_id)`,
	}
	for _, stmt := range stmts {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure rate-shop schema: %w", err)
		}
	}
	return nil
}

// Ingest stores one rate-shop capture as a new snapshot.
func (s *Store) Ingest(ctx context.Context, propertyID, source string, rates []CompetitorRate) (*Snapshot, error) {
	if len(rates) == 0 {
		return nil, fmt.Errorf("refusing to ingest empty rate-shop capture")
	}

	snap := &Snapshot{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		Source:      source,
		CollectedAt: time.Now().UTC(),
		RateCount:   uint64(len(rates)),
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO competitor_rates (snapshot_id, property_id, stay_date, competitor, price, currency)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rate batch: %w", err)
	}
	for _, r := range rates {
		currency := r.Currency
		if currency == "" {
			currency = "USD"
		}
		if err := batch.Append(snap.ID, propertyID, r.StayDate, r.Competitor, r.Price, currency); err != nil {
			return nil, fmt.Errorf("failed to append rate: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("failed to insert rates: %w", err)
	}

	query := `
		INSERT INTO rate_snapshots (id, property_id, source, collected_at, rate_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if err := s.conn.Exec(ctx, query, snap.ID, snap.PropertyID, snap.Source, snap.CollectedAt, snap.RateCount, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return snap, nil
}

// Percentiles computes p10/p50/p90 over the latest snapshot for the
// property and stay date. Returns nil when no rates exist.
func (s *Store) Percentiles(ctx context.Context, propertyID string, stayDate time.Time) (*Percentiles, error) {
	query := `
		SELECT
			count() AS n,
			quantile(0.1)(toFloat64(price)) AS p10,
			quantile(0.5)(toFloat64(price)) AS p50,
			quantile(0.9)(toFloat64(price)) AS p90
		FROM competitor_rates
		WHERE property_id = ?
		  AND stay_date = ?
		  AND snapshot_id = (
			SELECT id FROM rate_snapshots
			WHERE property_id = ?
			ORDER BY collected_at DESC
			LIMIT 1
		  )
	`
	row := s.conn.QueryRow(ctx, query, propertyID, stayDate, propertyID)

	var n uint64
	var p Percentiles
	if err := row.Scan(&n, &p.P10, &p.P50, &p.P90); err != nil {
		return nil, fmt.Errorf("failed to query competitor percentiles: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return &p, nil
}

// ListSnapshots lists rate-shop captures for a property, newest first.
func (s *Store) ListSnapshots(ctx context.Context, propertyID string) ([]*Snapshot, error) {
	query := `
		SELECT id, property_id, source, collected_at, rate_count, created_at
		FROM rate_snapshots
		WHERE property_id = ?
		ORDER BY collected_at DESC
	`
	rows, err := s.conn.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.PropertyID, &snap.Source, &snap.CollectedAt, &snap.RateCount, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}
