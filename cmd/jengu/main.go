// Jengu CLI - nightly price scoring service
//
// Usage:
//   jengu serve
//   jengu score --request request.json
//   jengu rates ingest --property prop-1 --file rateshop.json
//   jengu rates list --property prop-1
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/eddiguesti/jengu-sub009/api"
	"github.com/eddiguesti/jengu-sub009/internal/market"
	"github.com/eddiguesti/jengu-sub009/internal/outcome"
	"github.com/eddiguesti/jengu-sub009/internal/pricing"
	"github.com/eddiguesti/jengu-sub009/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "jengu",
		Usage:   "Nightly price recommendation engine for hospitality inventory",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"JENGU_LOG_LEVEL"},
			},
			&cli.Float64Flag{
				Name:    "base-price",
				Value:   pricing.DefaultConfig().DefaultBasePrice,
				Usage:   "Default base price when no competitor median applies",
				EnvVars: []string{"JENGU_BASE_PRICE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host for the competitor rate store",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "jengu",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Value:   "",
				Usage:   "Postgres DSN for the booking-outcome sink (optional)",
				EnvVars: []string{"JENGU_POSTGRES_DSN"},
			},
		},

		Commands: []*cli.Command{
			serveCommand(),
			scoreCommand(),
			ratesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func engineConfig(c *cli.Context) pricing.Config {
	cfg := pricing.DefaultConfig()
	cfg.DefaultBasePrice = c.Float64("base-price")
	return cfg
}

func marketConfig(c *cli.Context) *market.Config {
	return &market.Config{
		Host:     c.String("clickhouse-host"),
		Port:     c.Int("clickhouse-port"),
		Database: c.String("clickhouse-database"),
		Username: c.String("clickhouse-user"),
		Password: c.String("clickhouse-password"),
	}
}

// =============================================================================
// SERVE
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the scoring HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Usage:   "Listen address",
				EnvVars: []string{"JENGU_ADDR"},
			},
			&cli.BoolFlag{
				Name:    "with-rate-store",
				Usage:   "Pre-fetch competitor percentiles from ClickHouse",
				EnvVars: []string{"JENGU_WITH_RATE_STORE"},
			},
		},
		Action: func(c *cli.Context) error {
			log := platform.InitLogger(c.String("log-level"))

			engine, err := pricing.New(engineConfig(c), log)
			if err != nil {
				return err
			}

			cfg := api.DefaultConfig()
			cfg.Addr = c.String("addr")
			cfg.RequestTimeout = platform.GetEnvDuration("JENGU_REQUEST_TIMEOUT", cfg.RequestTimeout)

			server := api.NewServer(engine, cfg, log)

			if c.Bool("with-rate-store") {
				store, err := market.NewStore(marketConfig(c))
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.EnsureSchema(context.Background()); err != nil {
					return err
				}
				server.WithMarket(store)
			}

			if dsn := c.String("postgres-dsn"); dsn != "" {
				sink, err := outcome.Open(dsn)
				if err != nil {
					return err
				}
				defer sink.Close()
				if err := sink.EnsureSchema(context.Background()); err != nil {
					return err
				}
				server.WithOutcomes(sink)
			}

			return server.Start()
		},
	}
}

// =============================================================================
// SCORE
// =============================================================================

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score a single request from a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "request",
				Usage:    "Path to the request JSON file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Indent the JSON output",
			},
		},
		Action: func(c *cli.Context) error {
			log := platform.InitLogger(c.String("log-level"))

			engine, err := pricing.New(engineConfig(c), log)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(c.String("request"))
			if err != nil {
				return fmt.Errorf("failed to read request file: %w", err)
			}
			var req pricing.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to parse request file: %w", err)
			}

			result, err := engine.Score(req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			if c.Bool("pretty") {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(result)
		},
	}
}

// =============================================================================
// RATES
// =============================================================================

// rateShopEntry is the rates ingest file format: one observed
// competitor nightly price per entry.
type rateShopEntry struct {
	StayDate   string  `json:"stay_date"`
	Competitor string  `json:"competitor"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency,omitempty"`
}

func ratesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rates",
		Usage: "Manage competitor rate-shop snapshots",
		Subcommands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "Load a rate-shop capture into a new snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "property", Usage: "Property ID", Required: true},
					&cli.StringFlag{Name: "file", Usage: "Rate-shop JSON file", Required: true},
					&cli.StringFlag{Name: "source", Value: "manual", Usage: "Capture source label"},
				},
				Action: func(c *cli.Context) error {
					platform.InitLogger(c.String("log-level"))

					data, err := os.ReadFile(c.String("file"))
					if err != nil {
						return fmt.Errorf("failed to read rate file: %w", err)
					}
					var entries []rateShopEntry
					if err := json.Unmarshal(data, &entries); err != nil {
						return fmt.Errorf("failed to parse rate file: %w", err)
					}

					rates := make([]market.CompetitorRate, 0, len(entries))
					for _, e := range entries {
						stay, err := time.Parse("2006-01-02", e.StayDate)
						if err != nil {
							return fmt.Errorf("bad stay_date %q: %w", e.StayDate, err)
						}
						rates = append(rates, market.CompetitorRate{
							StayDate:   stay,
							Competitor: e.Competitor,
							Price:      decimal.NewFromFloat(e.Price),
							Currency:   e.Currency,
						})
					}

					store, err := market.NewStore(marketConfig(c))
					if err != nil {
						return err
					}
					defer store.Close()

					ctx := context.Background()
					if err := store.EnsureSchema(ctx); err != nil {
						return err
					}
					snap, err := store.Ingest(ctx, c.String("property"), c.String("source"), rates)
					if err != nil {
						return err
					}
					fmt.Printf("Ingested snapshot %s (%d rates)\n", snap.ID, snap.RateCount)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List rate-shop snapshots for a property",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "property", Usage: "Property ID", Required: true},
				},
				Action: func(c *cli.Context) error {
					platform.InitLogger(c.String("log-level"))

					store, err := market.NewStore(marketConfig(c))
					if err != nil {
						return err
					}
					defer store.Close()

					snaps, err := store.ListSnapshots(context.Background(), c.String("property"))
					if err != nil {
						return err
					}
					for _, snap := range snaps {
						fmt.Printf("%s  %s  %-10s  %d rates\n",
							snap.ID, snap.CollectedAt.Format(time.RFC3339), snap.Source, snap.RateCount)
					}
					return nil
				},
			},
		},
	}
}
