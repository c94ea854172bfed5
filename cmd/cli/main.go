package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeovahfialho/trade-journal/internal/client"
	"github.com/jeovahfialho/trade-journal/internal/config"
	"github.com/jeovahfialho/trade-journal/internal/journal"
	"github.com/jeovahfialho/trade-journal/internal/table"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
)

// cli carries what every command needs. Commands build their coordinator lazily so
// `load` and `health` work without an API.
type cli struct {
	cfg     *config.Config
	in      io.Reader
	out     io.Writer
	apiURL  string
	timeout time.Duration
	now     func() time.Time
}

func (a *cli) client() *client.Client {
	return client.New(a.apiURL)
}

// coordinator returns a coordinator with the trade list already loaded.
func (a *cli) coordinator(ctx context.Context, pageSize int) (*journal.Coordinator, error) {
	coord := journal.NewCoordinator(a.client(), table.NewState(pageSize), journal.WithClock(a.now))
	if err := coord.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("load trades from %s: %w", a.apiURL, err)
	}
	return coord, nil
}

func (a *cli) context(parent context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.timeout)
}

func newRootCmd(a *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal CLI",
		Long: `Command-line front end for the trade journal API.
Lists, filters, sorts and exports trades, records new ones and imports CSV files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(a.in)
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.out)

	rootCmd.PersistentFlags().StringVar(&a.apiURL, "api", a.cfg.APIURL, "Trade journal API base URL")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "Timeout for the whole command (0 means none)")

	rootCmd.AddCommand(
		newTradesCmd(a),
		newExportCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newImportCmd(a),
		newLoadCmd(a),
		newSummaryCmd(a),
		newHealthCmd(a),
	)
	return rootCmd
}

func main() {
	cfg := config.Load()
	if err := logger.Init(cfg.LogLevel, cfg.Development(), logger.ToStderr()); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &cli{cfg: cfg, in: os.Stdin, out: os.Stdout, now: time.Now}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
