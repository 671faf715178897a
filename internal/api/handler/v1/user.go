package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ludotheque/ludo-api/internal/api/handler/v1/request"
	"github.com/ludotheque/ludo-api/internal/api/handler/v1/response"
	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/service"
)

type UserService interface {
	Create(ctx context.Context, operator domain.Identity, patch domain.UserPatch) (domain.User, error)
	Update(ctx context.Context, operator domain.Identity, id uint, patch domain.UserPatch) (domain.User, error)
	Delete(ctx context.Context, operator domain.Identity, id uint) error
	Get(ctx context.Context, operator domain.Identity, id uint) (domain.User, error)
	Search(ctx context.Context, operator domain.Identity, filter domain.UserFilter) ([]domain.User, error)
	History(ctx context.Context, operator domain.Identity, id uint) ([]domain.Loan, error)
	RotateAPIKey(ctx context.Context, operator domain.Identity, id uint) (string, error)
}

type ReminderService interface {
	Prepare(ctx context.Context, operator domain.Identity, userID uint, send bool) (service.Reminder, error)
}

type UserHandler struct {
	svc       UserService
	reminders ReminderService
}

func NewUserHandler(svc UserService, reminders ReminderService) *UserHandler {
	return &UserHandler{
		svc:       svc,
		reminders: reminders,
	}
}

// HandleMe godoc
// @Summary      Who am I
// @Tags         users
// @Produce      json
// @Success      200  {object}  response.Me
// @Failure      401  {object}  response.Err
// @Router       /users/me [get]
// @Security BearerAuth
func (h *UserHandler) HandleMe(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ctx.JSON(http.StatusOK, response.Me{
		Identity:     operator,
		Capabilities: domain.CapabilitiesOf(operator.Role),
	})
}

// HandleCreateUser godoc
// @Summary      Create a user
// @Description  The new user gets the lowest unused id.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body      request.UserRequest  true  "request body"
// @Success      201      {object}  domain.User
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /users [post]
// @Security BearerAuth
func (h *UserHandler) HandleCreateUser(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.UserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	user, err := h.svc.Create(ctx.Request.Context(), operator, req.Patch())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCreateUser -> h.svc.Create", err, "", nil)
		return
	}

	ctx.JSON(http.StatusCreated, user)
}

// HandleSearchUsers godoc
// @Summary      Search users
// @Description  q matches names, emails and ids, ignoring case and accents.
// @Tags         users
// @Produce      json
// @Param        q        query     string  false  "search"
// @Param        enabled  query     bool    false  "enabled only"
// @Param        role     query     string  false  "role"
// @Success      200      {array}   domain.User
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /users [get]
// @Security BearerAuth
func (h *UserHandler) HandleSearchUsers(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	filter := domain.UserFilter{Search: ctx.Query("q")}
	if filter.Enabled, respErr = queryBool(ctx, "enabled"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if raw := ctx.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
		filter.Role = &role
	}

	users, err := h.svc.Search(ctx.Request.Context(), operator, filter)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleSearchUsers -> h.svc.Search", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, users)
}

// HandleGetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        userID  path      int  true  "user id"
// @Success      200     {object}  domain.User
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /users/{userID} [get]
// @Security BearerAuth
func (h *UserHandler) HandleGetUser(ctx *gin.Context) {
	operator, userID, ok := h.target(ctx)
	if !ok {
		return
	}

	user, err := h.svc.Get(ctx.Request.Context(), operator, userID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetUser -> h.svc.Get", err, "id", userID)
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// HandleUpdateUser godoc
// @Summary      Update a user
// @Description  Only the fields present in the body change. Changing the role needs the system capability.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        userID   path      int                  true  "user id"
// @Param        request  body      request.UserRequest  true  "request body"
// @Success      200      {object}  domain.User
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /users/{userID} [patch]
// @Security BearerAuth
func (h *UserHandler) HandleUpdateUser(ctx *gin.Context) {
	operator, userID, ok := h.target(ctx)
	if !ok {
		return
	}

	var req request.UserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	user, err := h.svc.Update(ctx.Request.Context(), operator, userID, req.Patch())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateUser -> h.svc.Update", err, "id", userID)
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// HandleDeleteUser godoc
// @Summary      Delete a user
// @Description  Emails and bookings go with the user, past loans stay without a borrower.
// @Tags         users
// @Param        userID  path  int  true  "user id"
// @Success      204
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /users/{userID} [delete]
// @Security BearerAuth
func (h *UserHandler) HandleDeleteUser(ctx *gin.Context) {
	operator, userID, ok := h.target(ctx)
	if !ok {
		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), operator, userID); err != nil {
		renderServiceErr(ctx, "v1.HandleDeleteUser -> h.svc.Delete", err, "id", userID)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleUserHistory godoc
// @Summary      Loans of a user
// @Tags         users
// @Produce      json
// @Param        userID  path      int  true  "user id"
// @Success      200     {array}   domain.Loan
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /users/{userID}/history [get]
// @Security BearerAuth
func (h *UserHandler) HandleUserHistory(ctx *gin.Context) {
	operator, userID, ok := h.target(ctx)
	if !ok {
		return
	}

	loans, err := h.svc.History(ctx.Request.Context(), operator, userID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUserHistory -> h.svc.History", err, "id", userID)
		return
	}

	ctx.JSON(http.StatusOK, loans)
}

// HandleRotateAPIKey godoc
// @Summary      Issue a new API key
// @Description  The key is shown once. The previous key stops working.
// @Tags         users
// @Produce      json
// @Param        userID  path      int  true  "user id"
// @Success      201     {object}  response.APIKey
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      403     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /users/{userID}/apikey [post]
// @Security BearerAuth
func (h *UserHandler) HandleRotateAPIKey(ctx *gin.Context) {
	operator, userID, ok := h.target(ctx)
	if !ok {
		return
	}

	key, err := h.svc.RotateAPIKey(ctx.Request.Context(), operator, userID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleRotateAPIKey -> h.svc.RotateAPIKey", err, "id", userID)
		return
	}

	ctx.JSON(http.StatusCreated, response.APIKey{Key: key})
}

// HandleReminder godoc
// @Summary      Late return reminder
// @Description  Builds the reminder email of a user. It is only sent with send=true.
// @Tags         users
// @Produce      json
// @Param        userID  path      int   true   "user id"
// @Param        send    query     bool  false  "send the email"
// @Success      200     {object}  service.Reminder
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      403     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /users/{userID}/email [post]
// @Security BearerAuth
func (h *UserHandler) HandleReminder(ctx *gin.Context) {
	operator, userID, ok := h.target(ctx)
	if !ok {
		return
	}

	send, respErr := queryBool(ctx, "send")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	reminder, err := h.reminders.Prepare(ctx.Request.Context(), operator, userID, send != nil && *send)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleReminder -> h.reminders.Prepare", err, "id", userID)
		return
	}

	ctx.JSON(http.StatusOK, reminder)
}

// target reads the caller and the userID path parameter. It renders the
// failure itself.
func (h *UserHandler) target(ctx *gin.Context) (domain.Identity, uint, bool) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return domain.Identity{}, 0, false
	}

	userID, respErr := paramID(ctx, "userID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return domain.Identity{}, 0, false
	}

	return operator, userID, true
}
