package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ludotheque/ludo-api/internal/api/handler/v1/response"
	"github.com/ludotheque/ludo-api/internal/api/middleware"
	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/service"
)

// HandleHealthcheck godoc
// @Summary      Healthcheck
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func getIdentity(ctx *gin.Context) (domain.Identity, *response.Err) {
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		return domain.Identity{}, response.ErrUnauthenticated()
	}

	return id, nil
}

func paramID(ctx *gin.Context, name string) (uint, *response.Err) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid %s: %q", name, ctx.Param(name)))
	}

	return uint(id), nil
}

func queryUint(ctx *gin.Context, name string) (*uint, *response.Err) {
	raw, ok := ctx.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, response.ErrBadRequest(fmt.Errorf("invalid %s: %q", name, raw))
	}
	u := uint(v)

	return &u, nil
}

func queryBool(ctx *gin.Context, name string) (*bool, *response.Err) {
	raw, ok := ctx.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, response.ErrBadRequest(fmt.Errorf("invalid %s: %q", name, raw))
	}

	return &v, nil
}

func queryDate(ctx *gin.Context, name string) (*time.Time, *response.Err) {
	raw, ok := ctx.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}

	d, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return nil, response.ErrBadRequest(fmt.Errorf("invalid %s, expected YYYY-MM-DD: %q", name, raw))
	}

	return &d, nil
}

var notFoundResources = []struct {
	err      error
	resource string
}{
	{service.ErrUserNotFound, "user"},
	{service.ErrItemNotFound, "item"},
	{service.ErrLoanNotFound, "loan"},
	{service.ErrBookingNotFound, "booking"},
}

// Errors whose message is meant for the caller.
var rejections = []error{
	domain.ErrNoItems,
	domain.ErrUnknownSpecial,
	domain.ErrDuplicateEntry,
	domain.ErrInvalidCredit,
	domain.ErrInvalidRole,
	service.ErrDuplicateLoan,
	service.ErrAlreadyClosed,
	service.ErrMaxExtensions,
	service.ErrAlreadyBooked,
	service.ErrUserEmailExists,
	service.ErrNameRequired,
	service.ErrInvalidPlayers,
	service.ErrInvalidDays,
	service.ErrTooFrequentEmails,
	service.ErrNoEmail,
	service.ErrNoLateLoan,
}

// renderServiceErr maps a service failure to its response. key and value
// name the looked up resource in not found messages, an empty key falls back
// to the error text.
func renderServiceErr(ctx *gin.Context, op string, err error, key string, value any) {
	var forbidden *domain.ForbiddenError
	if errors.As(err, &forbidden) {
		response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("%s -> %w", op, err)))
		return
	}
	if errors.Is(err, service.ErrTooManyBookings) {
		response.RenderErr(ctx, response.ErrQuota(service.ErrTooManyBookings))
		return
	}

	for _, nf := range notFoundResources {
		if !errors.Is(err, nf.err) {
			continue
		}
		if key == "" {
			response.RenderErr(ctx, response.ErrMissing(nf.err))
			return
		}
		response.RenderErr(ctx, response.ErrNotFound(nf.resource, key, value))
		return
	}

	for _, r := range rejections {
		if errors.Is(err, r) {
			response.RenderErr(ctx, response.ErrBadRequest(r))
			return
		}
	}

	var invalid validation.Errors
	if errors.As(err, &invalid) {
		response.RenderErr(ctx, response.ErrBadRequest(invalid))
		return
	}

	response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err)))
}
