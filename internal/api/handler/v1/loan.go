package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ludotheque/ludo-api/internal/api/handler/v1/request"
	"github.com/ludotheque/ludo-api/internal/api/handler/v1/response"
	"github.com/ludotheque/ludo-api/internal/domain"
)

type LoanService interface {
	CreateLoan(ctx context.Context, operator domain.Identity, req domain.LoanRequest) (domain.Receipt, error)
	CloseLoan(ctx context.Context, operator domain.Identity, loanID uint) (domain.Loan, error)
	ExtendLoan(ctx context.Context, operator domain.Identity, loanID uint) (domain.Loan, error)
	DeleteLoan(ctx context.Context, operator domain.Identity, loanID uint) error
	GetLoan(ctx context.Context, operator domain.Identity, loanID uint) (domain.Loan, error)
	ListLoans(ctx context.Context, operator domain.Identity, filter domain.LoanFilter) ([]domain.Loan, error)
	ListLateLoans(ctx context.Context, operator domain.Identity) ([]domain.Loan, error)
	Pricing() domain.Pricing
}

type LoanHandler struct {
	svc LoanService
}

func NewLoanHandler(svc LoanService) *LoanHandler {
	return &LoanHandler{
		svc: svc,
	}
}

// HandleCreateLoan godoc
// @Summary      Lend items to a user
// @Description  Prices the requested items, subscription (-1) and card (-2), charges the user and opens the loans. With simulation set nothing is written.
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        request  body      request.CreateLoanRequest  true  "request body"
// @Success      201      {object}  domain.Receipt
// @Success      200      {object}  domain.Receipt  "simulation"
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /loans [post]
// @Security BearerAuth
func (h *LoanHandler) HandleCreateLoan(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CreateLoanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	receipt, err := h.svc.CreateLoan(ctx.Request.Context(), operator, req.LoanRequest())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCreateLoan -> h.svc.CreateLoan", err, "", nil)
		return
	}

	status := http.StatusCreated
	if req.Simulation {
		status = http.StatusOK
	}
	ctx.JSON(status, receipt)
}

// HandleListLoans godoc
// @Summary      List loans
// @Description  Users without the user_view capability only see their own loans.
// @Tags         loans
// @Produce      json
// @Param        user    query     int     false  "borrower id"
// @Param        item    query     int     false  "item id"
// @Param        status  query     string  false  "out or in"
// @Success      200     {array}   domain.Loan
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /loans [get]
// @Security BearerAuth
func (h *LoanHandler) HandleListLoans(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var filter domain.LoanFilter
	if filter.UserID, respErr = queryUint(ctx, "user"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if filter.ItemID, respErr = queryUint(ctx, "item"); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if raw := ctx.Query("status"); raw != "" {
		status := domain.LoanStatus(raw)
		if status != domain.LoanOut && status != domain.LoanIn {
			response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid status: %q", raw)))
			return
		}
		filter.Status = &status
	}

	loans, err := h.svc.ListLoans(ctx.Request.Context(), operator, filter)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListLoans -> h.svc.ListLoans", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, loans)
}

// HandleListLateLoans godoc
// @Summary      List loans past their due date
// @Tags         loans
// @Produce      json
// @Success      200  {array}   domain.Loan
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /loans/late [get]
// @Security BearerAuth
func (h *LoanHandler) HandleListLateLoans(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	loans, err := h.svc.ListLateLoans(ctx.Request.Context(), operator)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListLateLoans -> h.svc.ListLateLoans", err, "", nil)
		return
	}

	ctx.JSON(http.StatusOK, loans)
}

// HandleGetLoan godoc
// @Summary      Get a loan
// @Tags         loans
// @Produce      json
// @Param        loanID  path      int  true  "loan id"
// @Success      200     {object}  domain.Loan
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) HandleGetLoan(ctx *gin.Context) {
	h.withLoan(ctx, "v1.HandleGetLoan -> h.svc.GetLoan", h.svc.GetLoan)
}

// HandleCloseLoan godoc
// @Summary      Return a loan
// @Tags         loans
// @Produce      json
// @Param        loanID  path      int  true  "loan id"
// @Success      200     {object}  domain.Loan
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      403     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /loans/{loanID}/close [post]
// @Security BearerAuth
func (h *LoanHandler) HandleCloseLoan(ctx *gin.Context) {
	h.withLoan(ctx, "v1.HandleCloseLoan -> h.svc.CloseLoan", h.svc.CloseLoan)
}

// HandleExtendLoan godoc
// @Summary      Push back the due date of a loan
// @Tags         loans
// @Produce      json
// @Param        loanID  path      int  true  "loan id"
// @Success      200     {object}  domain.Loan
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      403     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /loans/{loanID}/extend [post]
// @Security BearerAuth
func (h *LoanHandler) HandleExtendLoan(ctx *gin.Context) {
	h.withLoan(ctx, "v1.HandleExtendLoan -> h.svc.ExtendLoan", h.svc.ExtendLoan)
}

func (h *LoanHandler) withLoan(ctx *gin.Context, op string, fn func(context.Context, domain.Identity, uint) (domain.Loan, error)) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	loanID, respErr := paramID(ctx, "loanID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	loan, err := fn(ctx.Request.Context(), operator, loanID)
	if err != nil {
		renderServiceErr(ctx, op, err, "id", loanID)
		return
	}

	ctx.JSON(http.StatusOK, loan)
}

// HandleDeleteLoan godoc
// @Summary      Delete a loan
// @Tags         loans
// @Param        loanID  path      int  true  "loan id"
// @Success      204
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      403     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /loans/{loanID} [delete]
// @Security BearerAuth
func (h *LoanHandler) HandleDeleteLoan(ctx *gin.Context) {
	operator, respErr := getIdentity(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	loanID, respErr := paramID(ctx, "loanID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.DeleteLoan(ctx.Request.Context(), operator, loanID); err != nil {
		renderServiceErr(ctx, "v1.HandleDeleteLoan -> h.svc.DeleteLoan", err, "id", loanID)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// HandleGetPricing godoc
// @Summary      Current price list
// @Tags         loans
// @Produce      json
// @Success      200  {object}  domain.Pricing
// @Router       /pricing [get]
func (h *LoanHandler) HandleGetPricing(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.svc.Pricing())
}
