package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ludotheque/ludo-api/internal/api/handler/v1/response"
	"github.com/ludotheque/ludo-api/internal/domain"
)

const defaultLogLimit = 100

type CacheClearer interface {
	ClearCache(ctx context.Context) error
}

type EventLogService interface {
	Logs(ctx context.Context, operator domain.Identity, limit int) ([]domain.EventLog, error)
}

type SystemHandler struct {
	caches []CacheClearer
	logs   EventLogService
}

func NewSystemHandler(logs EventLogService, caches ...CacheClearer) *SystemHandler {
	return &SystemHandler{
		caches: caches,
		logs:   logs,
	}
}

// HandleClearCache godoc
// @Summary      Drop cached identities and statistics
// @Tags         system
// @Success      204
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /system/cache [delete]
// @Security BearerAuth
func (h *SystemHandler) HandleClearCache(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := operator.Require(domain.CapSystem); err != nil {
		renderServiceErr(ctx, "v1.HandleClearCache", err, "", nil)
		return
	}

	for _, c := range h.caches {
		if err := c.ClearCache(ctx.Request.Context()); err != nil {
			response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("v1.HandleClearCache -> c.ClearCache -> %w", err)))
			return
		}
	}
	zap.L().Info("caches cleared", zap.Uint("operator", operator.UserID))

	ctx.Status(http.StatusNoContent)
}

// HandleListLogs godoc
// @Summary      Latest audit log entries
// @Tags         system
// @Produce      json
// @Param        limit  query     int  false  "number of entries"
// @Success      200    {array}   domain.EventLog
// @Failure      400    {object}  response.Err
// @Failure      401    {object}  response.Err
// @Failure      403    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /system/logs [get]
// @Security BearerAuth
func (h *SystemHandler) HandleListLogs(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	limit, respErr := queryUint(ctx, "limit")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	n := defaultLogLimit
	if limit != nil && *limit > 0 {
		n = int(*limit)
	}

	logs, err := h.logs.Logs(ctx.Request.Context(), operator, n)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListLogs -> h.logs.Logs", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, logs)
}
