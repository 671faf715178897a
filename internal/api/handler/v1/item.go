package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ludotheque/ludo-api/internal/api/handler/v1/request"
	"github.com/ludotheque/ludo-api/internal/api/handler/v1/response"
	"github.com/ludotheque/ludo-api/internal/domain"
)

type ItemService interface {
	Create(ctx context.Context, operator domain.Identity, patch domain.ItemPatch) (domain.Item, error)
	Update(ctx context.Context, operator domain.Identity, id uint, patch domain.ItemPatch) (domain.Item, error)
	Delete(ctx context.Context, operator domain.Identity, id uint) error
	Get(ctx context.Context, id uint) (domain.Item, error)
	List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	NotSeenSince(ctx context.Context, operator domain.Identity, days int) ([]domain.Item, error)
	LeastLoaned(ctx context.Context, operator domain.Identity) ([]domain.ItemLoans, error)
}

type ItemHandler struct {
	svc ItemService
}

func NewItemHandler(svc ItemService) *ItemHandler {
	return &ItemHandler{
		svc: svc,
	}
}

// HandleListItems godoc
// @Summary      Catalogue
// @Tags         items
// @Produce      json
// @Param        q        query     string  false  "search in names and descriptions"
// @Param        enabled  query     bool    false  "enabled only"
// @Param        big      query     bool    false  "big games"
// @Param        outside  query     bool    false  "outdoor games"
// @Param        players  query     int     false  "playable with this many players"
// @Success      200      {array}   domain.Item
// @Failure      400      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /items [get]
func (h *ItemHandler) HandleListItems(ctx *gin.Context) {
	filter := domain.ItemFilter{Search: ctx.Query("q")}

	var respErr *response.Err
	if filter.Enabled, respErr = queryBool(ctx, "enabled"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if filter.Big, respErr = queryBool(ctx, "big"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if filter.Outside, respErr = queryBool(ctx, "outside"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	players, respErr := queryUint(ctx, "players")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if players != nil {
		filter.Players = int(*players)
	}

	items, err := h.svc.List(ctx.Request.Context(), filter)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListItems -> h.svc.List", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// HandleGetItem godoc
// @Summary      Get an item
// @Tags         items
// @Produce      json
// @Param        itemID  path      int  true  "item id"
// @Success      200     {object}  domain.Item
// @Failure      400     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /items/{itemID} [get]
func (h *ItemHandler) HandleGetItem(ctx *gin.Context) {
	itemID, respErr := paramID(ctx, "itemID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	item, err := h.svc.Get(ctx.Request.Context(), itemID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetItem -> h.svc.Get", err, "id", itemID)
		return
	}

	ctx.JSON(http.StatusOK, item)
}

// HandleNotSeenItems godoc
// @Summary      Items to check during inventory
// @Description  Enabled shelf items not brought back for more than days, oldest first.
// @Tags         items
// @Produce      json
// @Param        days  query     int  false  "days since last seen, 365 by default"
// @Success      200   {array}   domain.Item
// @Failure      400   {object}  response.Err
// @Failure      401   {object}  response.Err
// @Failure      403   {object}  response.Err
// @Failure      500   {object}  response.Err
// @Router       /items/lastseen [get]
// @Security BearerAuth
func (h *ItemHandler) HandleNotSeenItems(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	days := domain.DefaultNotSeenDays
	n, respErr := queryUint(ctx, "days")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if n != nil {
		days = int(*n)
	}

	items, err := h.svc.NotSeenSince(ctx.Request.Context(), operator, days)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleNotSeenItems -> h.svc.NotSeenSince", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// HandleLeastLoanedItems godoc
// @Summary      Least loaned items
// @Tags         items
// @Produce      json
// @Success      200  {array}   domain.ItemLoans
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /items/nbloans [get]
// @Security BearerAuth
func (h *ItemHandler) HandleLeastLoanedItems(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	items, err := h.svc.LeastLoaned(ctx.Request.Context(), operator)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleLeastLoanedItems -> h.svc.LeastLoaned", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// HandleCreateItem godoc
// @Summary      Add an item to the catalogue
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        request  body      request.ItemRequest  true  "request body"
// @Success      201      {object}  domain.Item
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /items [post]
// @Security BearerAuth
func (h *ItemHandler) HandleCreateItem(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	req, ok := bindItem(ctx)
	if !ok {
		return
	}

	item, err := h.svc.Create(ctx.Request.Context(), operator, req.Patch())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCreateItem -> h.svc.Create", err, "", nil)
		return
	}

	ctx.JSON(http.StatusCreated, item)
}

// HandleUpdateItem godoc
// @Summary      Update an item
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        itemID   path      int                  true  "item id"
// @Param        request  body      request.ItemRequest  true  "request body"
// @Success      200      {object}  domain.Item
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /items/{itemID} [patch]
// @Security BearerAuth
func (h *ItemHandler) HandleUpdateItem(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	itemID, respErr := paramID(ctx, "itemID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	req, ok := bindItem(ctx)
	if !ok {
		return
	}

	item, err := h.svc.Update(ctx.Request.Context(), operator, itemID, req.Patch())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateItem -> h.svc.Update", err, "id", itemID)
		return
	}

	ctx.JSON(http.StatusOK, item)
}

// HandleDeleteItem godoc
// @Summary      Remove an item
// @Description  Its loans and bookings are removed with it.
// @Tags         items
// @Param        itemID  path  int  true  "item id"
// @Success      204
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /items/{itemID} [delete]
// @Security BearerAuth
func (h *ItemHandler) HandleDeleteItem(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	itemID, respErr := paramID(ctx, "itemID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), operator, itemID); err != nil {
		renderServiceErr(ctx, "v1.HandleDeleteItem -> h.svc.Delete", err, "id", itemID)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func bindItem(ctx *gin.Context) (request.ItemRequest, bool) {
	var req request.ItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return req, false
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return req, false
	}

	return req, true
}
