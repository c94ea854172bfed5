package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeovahfialho/trade-journal/internal/export"
	"github.com/jeovahfialho/trade-journal/internal/journal"
	"github.com/jeovahfialho/trade-journal/internal/table"
)

// viewFlags mirror the table controls of the dashboard.
type viewFlags struct {
	query    string
	strategy string
	sort     string
	dir      string
	toggle   []string
	page     int
	perPage  int
}

func (f *viewFlags) bind(cmd *cobra.Command, withPaging bool) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Search symbol, strategy and notes")
	cmd.Flags().StringVar(&f.strategy, "strategy", table.AllStrategies, "Only trades with this strategy")
	cmd.Flags().StringVar(&f.sort, "sort", string(table.DefaultSort.Key), "Sort column (none to keep fetch order)")
	cmd.Flags().StringVar(&f.dir, "dir", table.DefaultSort.Dir.String(), "Sort direction: asc, desc or none")
	cmd.Flags().StringSliceVar(&f.toggle, "toggle", nil, "Header clicks applied in order after --sort, e.g. --toggle pnl,pnl")
	if withPaging {
		cmd.Flags().IntVar(&f.page, "page", 1, "Page number")
		cmd.Flags().IntVar(&f.perPage, "per-page", 0, "Rows per page (10, 20 or 50)")
	}
}

func (f *viewFlags) apply(s *table.State) error {
	key, ok := table.ParseSortKey(f.sort)
	if !ok {
		return fmt.Errorf("unknown sort column %q", f.sort)
	}
	dir, ok := table.ParseSortDir(f.dir)
	if !ok {
		return fmt.Errorf("unknown sort direction %q", f.dir)
	}

	s.SetQuery(f.query)
	s.SetStrategy(f.strategy)
	if f.perPage > 0 {
		s.SetPageSize(f.perPage)
	}
	s.SetSort(table.Sort{Key: key, Dir: dir})
	for _, raw := range f.toggle {
		k, ok := table.ParseSortKey(raw)
		if !ok {
			return fmt.Errorf("unknown sort column %q", raw)
		}
		s.ToggleSort(k)
	}
	if f.page > 0 {
		s.SetPage(f.page)
	}
	return nil
}

func newTradesCmd(a *cli) *cobra.Command {
	var flags viewFlags
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List trades with search, filter, sort and pagination",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			coord, err := a.coordinator(ctx, a.cfg.DefaultPageSize)
			if err != nil {
				return err
			}
			if err := flags.apply(coord.View()); err != nil {
				return err
			}
			renderTrades(a.out, coord.View())
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newExportCmd(a *cli) *cobra.Command {
	var (
		flags  viewFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered and sorted trades to CSV",
		Long: `Exports every trade matching the search and strategy filter, in the chosen order,
ignoring pagination. Use --output - to write to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			coord, err := a.coordinator(ctx, a.cfg.DefaultPageSize)
			if err != nil {
				return err
			}
			if err := flags.apply(coord.View()); err != nil {
				return err
			}
			rows := coord.View().View().Filtered

			if output == "-" {
				return export.WriteCSV(a.out, rows)
			}
			if output == "" {
				output = export.Filename(a.now())
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := export.WriteCSV(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, successStyle.Render(fmt.Sprintf("Exported %d trades to %s", len(rows), output)))
			return nil
		},
	}
	flags.bind(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default trades_export_<date>.csv)")
	return cmd
}

// formFlags maps command-line flags onto the manual-entry form.
var formFlags = []struct {
	name  string
	usage string
	field func(*journal.Form) *string
}{
	{"symbol", "Instrument symbol", func(f *journal.Form) *string { return &f.Symbol }},
	{"direction", "buy or sell", func(f *journal.Form) *string { return &f.Direction }},
	{"entry", "Entry price", func(f *journal.Form) *string { return &f.EntryPrice }},
	{"exit", "Exit price", func(f *journal.Form) *string { return &f.ExitPrice }},
	{"qty", "Position size", func(f *journal.Form) *string { return &f.Size }},
	{"fees", "Fees paid", func(f *journal.Form) *string { return &f.Fees }},
	{"strategy", "Strategy label", func(f *journal.Form) *string { return &f.Strategy }},
	{"notes", "Free-text notes", func(f *journal.Form) *string { return &f.Notes }},
}

func bindForm(cmd *cobra.Command) {
	for _, ff := range formFlags {
		cmd.Flags().String(ff.name, "", ff.usage)
	}
}

// overlayForm copies every flag the user set onto form.
func overlayForm(cmd *cobra.Command, form *journal.Form) {
	for _, ff := range formFlags {
		if cmd.Flags().Changed(ff.name) {
			v, _ := cmd.Flags().GetString(ff.name)
			*ff.field(form) = v
		}
	}
}

func newAddCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Record a trade",
		Example: "  journal add --symbol EURUSD --entry 1.10 --exit 1.12 --qty 1000 --strategy breakout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			coord, err := a.coordinator(ctx, a.cfg.DefaultPageSize)
			if err != nil {
				return err
			}
			form := journal.EmptyForm()
			overlayForm(cmd, &form)

			created, err := coord.Create(ctx, form)
			renderStatus(a.out, coord.Status())
			if err != nil {
				return err
			}
			if created != nil {
				fmt.Fprintf(a.out, "id %d  pnl %s\n", created.ID, created.PnL.String())
			}
			return nil
		},
	}
	bindForm(cmd)
	return cmd
}

func newEditCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a trade; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			coord, err := a.coordinator(ctx, a.cfg.DefaultPageSize)
			if err != nil {
				return err
			}
			current, err := coord.Edit(id)
			if err != nil {
				return fmt.Errorf("trade %d: %w", id, err)
			}

			form := journal.FormFrom(current)
			overlayForm(cmd, &form)
			patch, err := journal.PatchFrom(id, form)
			if err != nil {
				return err
			}

			_, err = coord.Update(ctx, patch)
			renderStatus(a.out, coord.Status())
			return err
		},
	}
	bindForm(cmd)
	return cmd
}

func newDeleteCmd(a *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a trade after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			coord, err := a.coordinator(ctx, a.cfg.DefaultPageSize)
			if err != nil {
				return err
			}

			var confirm journal.Confirmer = journal.Approve
			if !yes {
				confirm = prompt(a)
			}
			deleted, err := coord.Delete(ctx, id, confirm)
			if !deleted && err == nil {
				fmt.Fprintln(a.out, mutedStyle.Render("Cancelled."))
				return nil
			}
			renderStatus(a.out, coord.Status())
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// prompt asks on the command's input; anything but y/yes declines.
func prompt(a *cli) journal.Confirmer {
	return journal.ConfirmFunc(func(question string) bool {
		fmt.Fprintf(a.out, "%s [y/N]: ", question)
		scanner := bufio.NewScanner(a.in)
		if !scanner.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return answer == "y" || answer == "yes"
	})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid trade id %q", raw)
	}
	return id, nil
}
