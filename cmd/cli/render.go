package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/jeovahfialho/trade-journal/internal/client"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/ingestion"
	"github.com/jeovahfialho/trade-journal/internal/journal"
	"github.com/jeovahfialho/trade-journal/internal/table"
)

var (
	profitColor = lipgloss.Color("#00B37E")
	lossColor   = lipgloss.Color("#E94090")
	mutedColor  = lipgloss.Color("#858392")

	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(mutedColor).Width(14)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Foreground(profitColor)
	errorStyle   = lipgloss.NewStyle().Foreground(lossColor).Bold(true)
)

var tradeHeaders = []string{"ID", "Symbol", "Side", "Entry", "Exit", "Size", "Fees", "PnL", "Strategy", "Exit time"}

const pnlColumn = 7

func pnlStyle(d decimal.Decimal) lipgloss.Style {
	switch d.Sign() {
	case 1:
		return cellStyle.Foreground(profitColor)
	case -1:
		return cellStyle.Foreground(lossColor)
	default:
		return cellStyle
	}
}

func stamp(ts *time.Time) string {
	if ts == nil {
		return "-"
	}
	return ts.UTC().Format("2006-01-02 15:04")
}

func renderTrades(w io.Writer, state *table.State) {
	v := state.View()
	c := state.Controls()

	if v.Total == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No trades match."))
		return
	}

	rows := make([][]string, 0, len(v.Rows))
	for _, t := range v.Rows {
		strategy := t.StrategyValue()
		if strategy == "" {
			strategy = "-"
		}
		rows = append(rows, []string{
			fmt.Sprint(t.ID),
			t.Symbol,
			t.Direction.String(),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Size.String(),
			t.Fees.String(),
			t.PnL.StringFixed(2),
			strategy,
			stamp(t.ExitTime),
		})
	}

	tbl := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(tradeHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			if col == pnlColumn && row >= 0 && row < len(v.Rows) {
				return pnlStyle(v.Rows[row].PnL)
			}
			return cellStyle
		})
	fmt.Fprintln(w, tbl.Render())

	sortDesc := "fetch order"
	if c.Sort.Active() {
		sortDesc = fmt.Sprintf("%s %s", c.Sort.Key, c.Sort.Dir)
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Page %d of %d  ·  %d trades  ·  %d per page  ·  sorted by %s",
		v.Page, v.TotalPages, v.Total, v.PageSize, sortDesc)))
}

func renderStatus(w io.Writer, s journal.Status) {
	switch s.Kind {
	case journal.StatusSuccess:
		fmt.Fprintln(w, successStyle.Render(s.Message))
	case journal.StatusError:
		fmt.Fprintln(w, errorStyle.Render(s.Message))
	}
}

func renderSummary(w io.Writer, s *domain.Summary, curve []domain.EquityPoint) {
	line := func(label, value string, style lipgloss.Style) {
		fmt.Fprintln(w, labelStyle.Render(label)+style.Render(value))
	}
	plain := lipgloss.NewStyle()

	line("Total PnL", s.TotalPnL.StringFixed(2), pnlStyle(s.TotalPnL).UnsetPadding())
	line("Trades", fmt.Sprint(s.NumTrades), plain)
	line("Win rate", s.WinRate.StringFixed(2)+"%", plain)
	line("Avg win", s.AvgWin.StringFixed(2), successStyle)
	line("Avg loss", s.AvgLoss.StringFixed(2), errorStyle.UnsetBold())

	if len(curve) > 0 {
		peak, trough := curve[0].Equity, curve[0].Equity
		for _, p := range curve[1:] {
			peak = decimal.Max(peak, p.Equity)
			trough = decimal.Min(trough, p.Equity)
		}
		last := curve[len(curve)-1]
		line("Equity", fmt.Sprintf("%s (peak %s, low %s) over %d closed trades",
			last.Equity.StringFixed(2), peak.StringFixed(2), trough.StringFixed(2), len(curve)), plain)
	}
}

func renderHealth(w io.Writer, name string, took time.Duration, err error) {
	if err != nil {
		fmt.Fprintln(w, labelStyle.Width(0).Render(name+": ")+errorStyle.Render("FAIL ")+err.Error())
		return
	}
	fmt.Fprintln(w, labelStyle.Width(0).Render(name+": ")+successStyle.Render("OK ")+mutedStyle.Render(took.Round(time.Millisecond).String()))
}

// renderImports reports every file and fails when any file failed.
func renderImports(w io.Writer, results []ingestion.JobResult) error {
	var imported, skipped, failed int
	for _, r := range results {
		name := filepath.Base(r.FilePath)
		if r.Error != nil {
			failed++
			fmt.Fprintln(w, errorStyle.Render("✗ "+name)+" "+client.Message(r.Error, r.Error.Error()))
			continue
		}
		imported += r.Imported
		skipped += r.Skipped
		msg := fmt.Sprintf("✓ %s: %d imported", name, r.Imported)
		if r.Skipped > 0 {
			msg += fmt.Sprintf(", %d skipped", r.Skipped)
		}
		fmt.Fprintln(w, successStyle.Render(msg))
	}

	fmt.Fprintf(w, "\nTotal: %d imported, %d skipped, %d file(s) failed\n", imported, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
