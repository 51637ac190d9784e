// Package outcome persists booking-outcome batches posted to /learn.
// The store is write-only with respect to scoring: nothing on the
// pricing path reads it. It exists so the future online-learning
// extension has its training data when it lands.
package outcome

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Outcome is one booking result reported by a caller.
type Outcome struct {
	StayDate    string  `json:"stay_date"`
	QuotedPrice float64 `json:"quoted_price"`
	FinalPrice  float64 `json:"final_price"`
	Booked      bool    `json:"booked"`
	Revenue     float64 `json:"revenue,omitempty"`
	Channel     string  `json:"channel,omitempty"`
}

// Batch is the /learn request body.
type Batch struct {
	PropertyID string    `json:"propertyId"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Store is a Postgres append sink for outcome batches.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the outcome tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS outcome_batches (
			id UUID PRIMARY KEY,
			property_id TEXT NOT NULL,
			received_at TIMESTAMPTZ NOT NULL,
			outcome_count INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS booking_outcomes (
			batch_id UUID NOT NULL REFERENCES outcome_batches (id),
			stay_date DATE NOT NULL,
			quoted_price NUMERIC(12, 2) NOT NULL,
			final_price NUMERIC(12, 2) NOT NULL,
			booked BOOLEAN NOT NULL,
			revenue NUMERIC(12, 2) NOT NULL DEFAULT 0,
			channel TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure outcome schema: %w", err)
		}
	}
	return nil
}

// InsertBatch appends a batch atomically and returns its ID.
func (s *Store) InsertBatch(ctx context.Context, batch Batch) (uuid.UUID, error) {
	id := uuid.New()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outcome_batches (id, property_id, received_at, outcome_count) VALUES ($1, $2, $3, $4)`,
		id, batch.PropertyID, time.Now().UTC(), len(batch.Outcomes),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO booking_outcomes (batch_id, stay_date, quoted_price, final_price, booked, revenue, channel)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range batch.Outcomes {
		if _, err := stmt.ExecContext(ctx, id, o.StayDate, o.QuotedPrice, o.FinalPrice, o.Booked, o.Revenue, o.Channel); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return id, nil
}
