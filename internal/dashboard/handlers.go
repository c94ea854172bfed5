package dashboard

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/jeovahfialho/trade-journal/internal/client"
	"github.com/jeovahfialho/trade-journal/internal/domain"
	"github.com/jeovahfialho/trade-journal/internal/export"
	"github.com/jeovahfialho/trade-journal/internal/journal"
	"github.com/jeovahfialho/trade-journal/internal/table"
	"github.com/jeovahfialho/trade-journal/pkg/logger"
	"github.com/jeovahfialho/trade-journal/pkg/middleware"
	"go.uber.org/zap"
)

type column struct {
	Key   string
	Label string
}

var columns = []column{
	{"id", "ID"},
	{"symbol", "Symbol"},
	{"direction", "Side"},
	{"entry_price", "Entry"},
	{"exit_price", "Exit"},
	{"size", "Size"},
	{"fees", "Fees"},
	{"pnl", "PnL"},
	{"strategy", "Strategy"},
	{"exit_time", "Closed"},
}

// TradesResponse is the JSON form of one rendered table page.
type TradesResponse struct {
	Rows       []domain.Trade `json:"rows"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	PageSize   int            `json:"page_size"`
	Query      string         `json:"q"`
	Strategy   string         `json:"strategy"`
	SortKey    string         `json:"sort"`
	SortDir    string         `json:"dir"`
	Strategies []string       `json:"strategies"`
	PageSizes  []int          `json:"page_sizes"`
	Busy       bool           `json:"busy"`
	Status     journal.Status `json:"status"`
}

type SummaryResponse struct {
	Summary *domain.Summary      `json:"summary"`
	Equity  []domain.EquityPoint `json:"equity"`
}

type pageData struct {
	View       table.View
	Controls   table.Controls
	Strategies []string
	PageSizes  []int
	Columns    []column
	Status     journal.Status
	Busy       bool
	Form       journal.Form
	Selected   *domain.Trade
	Editing    *domain.Trade
	EditForm   journal.Form
	Summary    *domain.Summary
	SummaryErr string
	Chart      *Chart
}

// Index re-fetches the list and renders the whole page, like a fresh mount.
func (s *Server) Index(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := s.coord.Refresh(ctx); err != nil {
		logger.WithContext(ctx).Warn("refresh failed", zap.Error(err))
	}
	if err := s.applyControls(c); err != nil {
		return err
	}
	if id := c.QueryInt("open", 0); id > 0 {
		_, _ = s.coord.Open(int64(id))
	}
	if id := c.QueryInt("edit", 0); id > 0 {
		_, _ = s.coord.Edit(int64(id))
	}

	st := s.coord.View()
	data := pageData{
		View:       st.View(),
		Controls:   st.Controls(),
		Strategies: st.Strategies(),
		PageSizes:  table.PageSizes,
		Columns:    columns,
		Status:     s.coord.TakeStatus(),
		Busy:       s.coord.Busy(),
		Form:       s.coord.Form(),
		Chart:      equityChart(domain.EquityCurve(st.Trades())),
	}
	if t, ok := s.coord.Selected(); ok {
		data.Selected = &t
	}
	if t, ok := s.coord.Editing(); ok {
		data.Editing = &t
		data.EditForm = journal.FormFrom(t)
	}

	if s.summaries != nil {
		summary, err := s.summaries.Summary(ctx)
		if err != nil {
			data.SummaryErr = client.Message(err, "Summary unavailable.")
		} else {
			data.Summary = summary
		}
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		logger.WithContext(ctx).Error("render page", zap.Error(err))
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

// Trades applies any control changes in the query string and returns the page.
func (s *Server) Trades(c *fiber.Ctx) error {
	if err := s.applyControls(c); err != nil {
		return err
	}
	return c.JSON(s.tradesResponse())
}

func (s *Server) OpenTrade(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "invalid id", "")
	}
	t, err := s.coord.Open(int64(id))
	if err != nil {
		return middleware.Fail(c, fiber.StatusNotFound, err.Error(), "")
	}
	return c.JSON(t)
}

func (s *Server) EditTrade(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "invalid id", "")
	}
	t, err := s.coord.Edit(int64(id))
	if err != nil {
		return middleware.Fail(c, fiber.StatusNotFound, err.Error(), "")
	}
	return c.JSON(fiber.Map{"trade": t, "form": journal.FormFrom(t)})
}

// Export downloads every row matching the current search and filter, in display order.
func (s *Server) Export(c *fiber.Ctx) error {
	v := s.coord.View().View()
	data, err := export.Render(v.Filtered)
	if err != nil {
		return err
	}
	c.Attachment(export.Filename(s.now()))
	c.Set(fiber.HeaderContentType, export.ContentType)
	return c.Send(data)
}

func (s *Server) Summary(c *fiber.Ctx) error {
	resp := SummaryResponse{Equity: domain.EquityCurve(s.coord.View().Trades())}
	if s.summaries != nil {
		summary, err := s.summaries.Summary(c.UserContext())
		if err != nil {
			return middleware.Fail(c, fiber.StatusBadGateway, "summary unavailable", client.Message(err, ""))
		}
		resp.Summary = summary
	}
	return c.JSON(resp)
}

func (s *Server) CreateTrade(c *fiber.Ctx) error {
	var form journal.Form
	if err := c.BodyParser(&form); err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "invalid form", err.Error())
	}
	created, err := s.coord.Create(c.UserContext(), form)
	return s.finish(c, fiber.StatusCreated, fiber.Map{"trade": created}, err)
}

func (s *Server) UpdateTrade(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "invalid id", "")
	}
	var form journal.Form
	if err := c.BodyParser(&form); err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "invalid form", err.Error())
	}
	patch, err := journal.PatchFrom(int64(id), form)
	if err != nil {
		return s.finish(c, fiber.StatusOK, nil, err)
	}
	updated, err := s.coord.Update(c.UserContext(), patch)
	return s.finish(c, fiber.StatusOK, fiber.Map{"trade": updated}, err)
}

// DeleteTrade only deletes when the form carries confirm=yes; anything else is a decline.
func (s *Server) DeleteTrade(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "invalid id", "")
	}
	confirmed := c.FormValue("confirm") == "yes"
	deleted, err := s.coord.Delete(c.UserContext(), int64(id), journal.ConfirmFunc(func(string) bool {
		return confirmed
	}))
	return s.finish(c, fiber.StatusOK, fiber.Map{"deleted": deleted}, err)
}

func (s *Server) Upload(c *fiber.Ctx) error {
	ctx := c.UserContext()

	fh, err := c.FormFile("file")
	if err != nil {
		_, err = s.coord.Import(ctx, "", nil)
		return s.finish(c, fiber.StatusOK, nil, err)
	}
	f, err := fh.Open()
	if err != nil {
		return middleware.Fail(c, fiber.StatusBadRequest, "unreadable upload", err.Error())
	}
	defer f.Close()

	res, err := s.coord.Import(ctx, fh.Filename, f)
	return s.finish(c, fiber.StatusOK, fiber.Map{"result": res}, err)
}

func (s *Server) Reset(c *fiber.Ctx) error {
	s.coord.View().Reset()
	return s.finish(c, fiber.StatusOK, fiber.Map{}, nil)
}

func (s *Server) CloseModals(c *fiber.Ctx) error {
	s.coord.CloseModals()
	return s.finish(c, fiber.StatusOK, fiber.Map{}, nil)
}

func (s *Server) Refresh(c *fiber.Ctx) error {
	err := s.coord.Refresh(c.UserContext())
	return s.finish(c, fiber.StatusOK, fiber.Map{}, err)
}

func (s *Server) tradesResponse() TradesResponse {
	st := s.coord.View()
	v := st.View()
	ctl := st.Controls()
	return TradesResponse{
		Rows:       v.Rows,
		Total:      v.Total,
		Page:       v.Page,
		TotalPages: v.TotalPages,
		PageSize:   v.PageSize,
		Query:      ctl.Query,
		Strategy:   ctl.Strategy,
		SortKey:    string(ctl.Sort.Key),
		SortDir:    ctl.Sort.Dir.String(),
		Strategies: st.Strategies(),
		PageSizes:  table.PageSizes,
		Busy:       s.coord.Busy(),
		Status:     s.coord.TakeStatus(),
	}
}

// applyControls reads q, strategy, per_page, sort+dir, toggle and page from the query
// string. Only values that differ from the current controls are applied, so resubmitting
// an unchanged search does not reset the page.
func (s *Server) applyControls(c *fiber.Ctx) error {
	st := s.coord.View()
	cur := st.Controls()
	args := c.Context().QueryArgs()

	// Query values alias fiber's request buffer; the table state outlives the request.
	if args.Has("q") {
		if q := c.Query("q"); q != cur.Query {
			st.SetQuery(utils.CopyString(q))
		}
	}
	if args.Has("strategy") {
		if strategy := c.Query("strategy", table.AllStrategies); strategy != cur.Strategy {
			st.SetStrategy(utils.CopyString(strategy))
		}
	}
	if args.Has("per_page") {
		if n := c.QueryInt("per_page", 0); n != cur.PageSize {
			st.SetPageSize(n)
		}
	}
	if args.Has("sort") {
		key, ok := table.ParseSortKey(c.Query("sort"))
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown sort key")
		}
		dir, ok := table.ParseSortDir(c.Query("dir", "asc"))
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown sort direction")
		}
		st.SetSort(table.Sort{Key: key, Dir: dir})
	}
	if args.Has("toggle") {
		key, ok := table.ParseSortKey(c.Query("toggle"))
		if !ok || key == table.KeyNone {
			return fiber.NewError(fiber.StatusBadRequest, "unknown sort key")
		}
		st.ToggleSort(key)
	}
	if args.Has("page") {
		st.SetPage(c.QueryInt("page", 1))
	}
	return nil
}

// finish answers a mutation: JSON for API callers, a redirect back to the page for forms.
func (s *Server) finish(c *fiber.Ctx, code int, payload fiber.Map, err error) error {
	if !wantsJSON(c) {
		// The page picks the message up after the redirect.
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	status := s.coord.TakeStatus()
	if err != nil {
		return middleware.Fail(c, errorStatus(err), client.Message(err, "request failed"), "")
	}
	if payload == nil {
		payload = fiber.Map{}
	}
	payload["status"] = status
	return c.Status(code).JSON(payload)
}

func wantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

func errorStatus(err error) int {
	var verr *journal.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &verr), errors.Is(err, journal.ErrNoFile):
		return fiber.StatusBadRequest
	case errors.Is(err, journal.ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, journal.ErrNotLoaded), client.IsNotFound(err):
		return fiber.StatusNotFound
	case errors.As(err, &apiErr) && apiErr.Status < 500:
		return apiErr.Status
	default:
		return fiber.StatusBadGateway
	}
}
