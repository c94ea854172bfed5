package dashboard

import (
	"context"
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/journal"
	"github.com/jeovahfialho/trade-journal/internal/table"
	"github.com/jeovahfialho/trade-journal/pkg/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// SummarySource serves the aggregate cards. *client.Client satisfies it.
type SummarySource interface {
	Summary(ctx context.Context) (*domain.Summary, error)
}

// Server is the browser front end over one table instance.
type Server struct {
	coord     *journal.Coordinator
	summaries SummarySource
	page      *template.Template
	now       func() time.Time
}

func New(coord *journal.Coordinator, summaries SummarySource) *Server {
	page := template.Must(template.New("index.html").Funcs(funcs).ParseFS(templateFS, "templates/index.html"))
	return &Server{
		coord:     coord,
		summaries: summaries,
		page:      page,
		now:       time.Now,
	}
}

// AppConfig is the fiber configuration the dashboard expects. Form drafts and table
// controls are kept across requests, so request strings must not alias fiber's buffers.
func AppConfig() fiber.Config {
	return fiber.Config{
		AppName:   "Trade Journal Dashboard",
		BodyLimit: 10 * 1024 * 1024,
		Immutable: true,
	}
}

// Routes registers the page and the /view endpoints on app.
func (s *Server) Routes(app *fiber.App) {
	app.Use(middleware.RequestID())
	app.Use(middleware.ErrorHandler())
	app.Use(middleware.Prometheus())

	app.Get("/", s.Index)

	view := app.Group("/view")
	view.Get("/trades", s.Trades)
	view.Get("/trades/:id", s.OpenTrade)
	view.Get("/trades/:id/edit", s.EditTrade)
	view.Get("/export.csv", s.Export)
	view.Get("/summary", s.Summary)
	view.Post("/trades", s.CreateTrade)
	view.Post("/trades/:id", s.UpdateTrade)
	view.Post("/trades/:id/delete", s.DeleteTrade)
	view.Post("/upload", s.Upload)
	view.Post("/reset", s.Reset)
	view.Post("/modals/close", s.CloseModals)
	view.Post("/refresh", s.Refresh)
}

var funcs = template.FuncMap{
	"stamp": func(ts *time.Time) string {
		if ts == nil {
			return ""
		}
		return ts.UTC().Format("2006-01-02 15:04")
	},
	"lower": strings.ToLower,
	"arrow": func(s table.Sort, key string) string {
		if string(s.Key) != key {
			return ""
		}
		switch s.Dir {
		case table.DirAsc:
			return "▲"
		case table.DirDesc:
			return "▼"
		}
		return ""
	},
	"sign": func(t domain.Trade) string {
		switch {
		case t.PnL.IsPositive():
			return "win"
		case t.PnL.IsNegative():
			return "loss"
		}
		return "flat"
	},
	"add": func(a, b int) int { return a + b },
}
