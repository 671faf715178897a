package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ludotheque/ludo-api/internal/api/handler/v1/response"
	"github.com/ludotheque/ludo-api/internal/domain"
)

type StatsService interface {
	Day(ctx context.Context, operator domain.Identity, day time.Time) (domain.DayStats, error)
	Series(ctx context.Context, operator domain.Identity) ([]domain.DayStats, error)
}

type LedgerService interface {
	List(ctx context.Context, operator domain.Identity, filter domain.LedgerFilter) ([]domain.LedgerEntry, error)
	Summary(ctx context.Context, operator domain.Identity, filter domain.LedgerFilter) (domain.LedgerSummary, error)
}

type OpeningService interface {
	NextOpening(ctx context.Context, now time.Time) time.Time
	Location() *time.Location
}

// StatsHandler serves the reporting side of the library: activity figures,
// the cash ledger and the opening calendar.
type StatsHandler struct {
	stats   StatsService
	ledger  LedgerService
	opening OpeningService
	now     func() time.Time
}

func NewStatsHandler(stats StatsService, ledger LedgerService, opening OpeningService) *StatsHandler {
	return &StatsHandler{
		stats:   stats,
		ledger:  ledger,
		opening: opening,
		now:     time.Now,
	}
}

// HandleGetStats godoc
// @Summary      Activity of a day
// @Tags         stats
// @Produce      json
// @Param        day  query     string  false  "YYYY-MM-DD, today by default"
// @Success      200  {object}  domain.DayStats
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /stats [get]
// @Security BearerAuth
func (h *StatsHandler) HandleGetStats(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	day, respErr := queryDate(ctx, "day")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if day == nil {
		today := domain.Today(h.now(), h.opening.Location())
		day = &today
	}

	stats, err := h.stats.Day(ctx.Request.Context(), operator, *day)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetStats -> h.stats.Day", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

// HandleGetSeries godoc
// @Summary      Weekly activity
// @Description  One point per opening weekday over the last months, oldest first.
// @Tags         stats
// @Produce      json
// @Success      200  {array}   domain.DayStats
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /stats/series [get]
// @Security BearerAuth
func (h *StatsHandler) HandleGetSeries(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	series, err := h.stats.Series(ctx.Request.Context(), operator)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetSeries -> h.stats.Series", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, series)
}

// HandleListLedger godoc
// @Summary      Ledger entries
// @Tags         ledger
// @Produce      json
// @Param        from  query     string  false  "first day, YYYY-MM-DD"
// @Param        to    query     string  false  "last day, YYYY-MM-DD"
// @Param        user  query     int     false  "user id"
// @Success      200   {array}   domain.LedgerEntry
// @Failure      400   {object}  response.Err
// @Failure      401   {object}  response.Err
// @Failure      403   {object}  response.Err
// @Failure      500   {object}  response.Err
// @Router       /ledger [get]
// @Security BearerAuth
func (h *StatsHandler) HandleListLedger(ctx *gin.Context) {
	operator, filter, ok := ledgerQuery(ctx)
	if !ok {
		return
	}

	entries, err := h.ledger.List(ctx.Request.Context(), operator, filter)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListLedger -> h.ledger.List", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, entries)
}

// HandleLedgerSummary godoc
// @Summary      Ledger totals
// @Tags         ledger
// @Produce      json
// @Param        from  query     string  false  "first day, YYYY-MM-DD"
// @Param        to    query     string  false  "last day, YYYY-MM-DD"
// @Param        user  query     int     false  "user id"
// @Success      200   {object}  domain.LedgerSummary
// @Failure      400   {object}  response.Err
// @Failure      401   {object}  response.Err
// @Failure      403   {object}  response.Err
// @Failure      500   {object}  response.Err
// @Router       /ledger/summary [get]
// @Security BearerAuth
func (h *StatsHandler) HandleLedgerSummary(ctx *gin.Context) {
	operator, filter, ok := ledgerQuery(ctx)
	if !ok {
		return
	}

	summary, err := h.ledger.Summary(ctx.Request.Context(), operator, filter)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleLedgerSummary -> h.ledger.Summary", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, summary)
}

// HandleNextOpening godoc
// @Summary      Next opening day
// @Tags         opening
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /opening/next [get]
func (h *StatsHandler) HandleNextOpening(ctx *gin.Context) {
	next := h.opening.NextOpening(ctx.Request.Context(), h.now())

	ctx.JSON(http.StatusOK, gin.H{"next": next.Format(domain.DateLayout)})
}

func ledgerQuery(ctx *gin.Context) (domain.Identity, domain.LedgerFilter, bool) {
	var filter domain.LedgerFilter

	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return operator, filter, false
	}
	if filter.From, respErr = queryDate(ctx, "from"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return operator, filter, false
	}
	if filter.To, respErr = queryDate(ctx, "to"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return operator, filter, false
	}
	if filter.UserID, respErr = queryUint(ctx, "user"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return operator, filter, false
	}

	return operator, filter, true
}
