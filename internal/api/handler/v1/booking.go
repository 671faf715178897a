package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ludotheque/ludo-api/internal/api/handler/v1/request"
	"github.com/ludotheque/ludo-api/internal/api/handler/v1/response"
	"github.com/ludotheque/ludo-api/internal/domain"
)

type BookingService interface {
	Book(ctx context.Context, id domain.Identity, itemID uint) (domain.Booking, error)
	Unbook(ctx context.Context, id domain.Identity, bookingID uint) error
	ListMine(ctx context.Context, id domain.Identity) ([]domain.Booking, error)
	ListAll(ctx context.Context, id domain.Identity) ([]domain.Booking, error)
}

type BookingHandler struct {
	svc BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{
		svc: svc,
	}
}

// HandleBook godoc
// @Summary      Book an item
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request  body      request.BookRequest  true  "request body"
// @Success      201      {object}  domain.Booking
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err  "booking quota reached"
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /bookings [post]
// @Security BearerAuth
func (h *BookingHandler) HandleBook(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.BookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	booking, err := h.svc.Book(ctx.Request.Context(), operator, req.Item)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleBook -> h.svc.Book", err, "id", req.Item)
		return
	}

	ctx.JSON(http.StatusCreated, booking)
}

// HandleUnbook godoc
// @Summary      Cancel one of my bookings
// @Tags         bookings
// @Param        bookingID  path  int  true  "booking id"
// @Success      204
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /bookings/{bookingID} [delete]
// @Security BearerAuth
func (h *BookingHandler) HandleUnbook(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	bookingID, respErr := paramID(ctx, "bookingID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.Unbook(ctx.Request.Context(), operator, bookingID); err != nil {
		renderServiceErr(ctx, "v1.HandleUnbook -> h.svc.Unbook", err, "id", bookingID)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleListBookings godoc
// @Summary      List bookings
// @Description  Mine by default, everybody's with all=true.
// @Tags         bookings
// @Produce      json
// @Param        all  query     bool  false  "every user"
// @Success      200  {array}   domain.Booking
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /bookings [get]
// @Security BearerAuth
func (h *BookingHandler) HandleListBookings(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	all, respErr := queryBool(ctx, "all")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var (
		bookings []domain.Booking
		err      error
	)
	if all != nil && *all {
		bookings, err = h.svc.ListAll(ctx.Request.Context(), operator)
	} else {
		bookings, err = h.svc.ListMine(ctx.Request.Context(), operator)
	}
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListBookings", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, bookings)
}
