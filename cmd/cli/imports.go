package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeovahfialho/trade-journal/internal/client"
	"github.com/jeovahfialho/trade-journal/internal/config"
	"github.com/jeovahfialho/trade-journal/internal/ingestion"
	"github.com/jeovahfialho/trade-journal/internal/service"
	"github.com/jeovahfialho/trade-journal/internal/storage/cache"
	"github.com/jeovahfialho/trade-journal/internal/storage/postgres"
)

// uploader imports files through the API's upload endpoint.
type uploader struct {
	api *client.Client
}

func (u uploader) ImportFile(ctx context.Context, path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	res, err := u.api.ImportCSV(ctx, filepath.Base(path), f)
	if err != nil {
		return 0, 0, err
	}
	return res.Imported, res.Skipped, nil
}

func newImportCmd(a *cli) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Upload CSV files to the API",
		Long: `Uploads CSV files through the API. Accepts several files and glob patterns
(e.g. data/*.csv); files are uploaded concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandGlobs(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			fmt.Fprintf(a.out, "Importing %d file(s) into %s\n\n", len(files), a.apiURL)
			results := ingestion.ImportAll(ctx, workers, uploader{api: a.client()}, files)
			return renderImports(a.out, results)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", a.cfg.Workers, "Concurrent uploads")
	return cmd
}

func newLoadCmd(a *cli) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "load [files...]",
		Short: "Load CSV files straight into PostgreSQL",
		Long: `Parses CSV files locally and COPYs them into the trades table, bypassing the API.
Uses DATABASE_URL, and REDIS_URL to drop cached aggregates afterwards.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandGlobs(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			db, err := postgres.NewDB(a.cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return err
			}

			var summaries *service.SummaryService
			if rc := connectRedis(a.cfg); rc != nil {
				defer rc.Close()
				summaries = service.NewSummaryService(db.Pool(), rc, a.cfg.CacheTTL)
			} else {
				summaries = service.NewSummaryService(db.Pool(), nil, a.cfg.CacheTTL)
			}

			imports := service.NewIngestionService(
				ingestion.NewParser(a.cfg.BatchSize, a.cfg.Workers),
				ingestion.NewBulkLoader(db.Pool(), a.cfg.BatchSize),
				summaries.Invalidate,
			)

			fmt.Fprintf(a.out, "Loading %d file(s)...\n\n", len(files))
			return renderImports(a.out, ingestion.ImportAll(ctx, workers, imports, files))
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Files loaded concurrently")
	return cmd
}

// connectRedis returns nil when Redis is unreachable.
func connectRedis(cfg *config.Config) *cache.RedisCache {
	rc, err := cache.NewRedisCache(cfg)
	if err != nil {
		return nil
	}
	return rc
}

// expandGlobs keeps plain paths and expands patterns; a pattern matching nothing is an error.
func expandGlobs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no file matches %q", arg)
		}
		files = append(files, matches...)
	}
	return files, nil
}
