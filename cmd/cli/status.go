package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/storage/postgres"
)

func newSummaryCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show total PnL, win rate and average win/loss",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			api := a.client()
			summary, err := api.Summary(ctx)
			if err != nil {
				return fmt.Errorf("fetch summary: %w", err)
			}
			trades, err := api.ListTrades(ctx)
			if err != nil {
				return fmt.Errorf("fetch trades: %w", err)
			}
			renderSummary(a.out, summary, domain.EquityCurve(trades))
			return nil
		},
	}
}

func newHealthCmd(a *cli) *cobra.Command {
	var backend bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the API and, with --backend, PostgreSQL and Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			checks := []healthCheck{{"API " + a.apiURL, func(ctx context.Context) error {
				return a.client().Health(ctx)
			}}}
			if backend {
				checks = append(checks,
					healthCheck{"PostgreSQL", func(ctx context.Context) error {
						db, err := postgres.NewDB(a.cfg)
						if err != nil {
							return err
						}
						defer db.Close()
						return db.HealthCheck(ctx)
					}},
					healthCheck{"Redis", func(ctx context.Context) error {
						rc := connectRedis(a.cfg)
						if rc == nil {
							return fmt.Errorf("not reachable at %s", a.cfg.RedisURL)
						}
						defer rc.Close()
						return rc.HealthCheck(ctx)
					}},
				)
			}

			failed := 0
			for _, check := range checks {
				start := time.Now()
				err := check.run(ctx)
				renderHealth(a.out, check.name, time.Since(start), err)
				if err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(checks))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&backend, "backend", false, "Also check PostgreSQL and Redis directly")
	return cmd
}

type healthCheck struct {
	name string
	run  func(ctx context.Context) error
}
