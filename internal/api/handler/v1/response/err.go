package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Err is the body of every failed request.
type Err struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
}

func (e *Err) Error() string {
	if e.Err == nil {
		return e.StatusText
	}

	return e.Err.Error()
}

// RenderErr aborts the request with e. Server errors are logged and their
// cause is not sent to the client.
func RenderErr(ctx *gin.Context, e *Err) {
	fields := []zap.Field{
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.Int("status", e.HTTPStatusCode),
		zap.Error(e.Err),
	}

	switch {
	case e.HTTPStatusCode >= http.StatusInternalServerError:
		zap.L().Error("request failed", fields...)
	case e.HTTPStatusCode == http.StatusForbidden:
		zap.L().Warn("request denied", fields...)
	default:
		zap.L().Debug("request rejected", fields...)
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func ErrBadRequest(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Bad request",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthenticated() *Err {
	return &Err{
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthenticated",
		ErrorText:      "missing or invalid credentials",
	}
}

// ErrPermissionDenied keeps err for the logs and answers a generic denial.
func ErrPermissionDenied(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Forbidden",
		ErrorText:      "permission denied",
	}
}

// ErrQuota is a 403 whose reason is shown to the caller.
func ErrQuota(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Forbidden",
		ErrorText:      err.Error(),
	}
}

func ErrNotFound(resource, key string, value any) *Err {
	err := fmt.Errorf("%s with %s %v does not exist", resource, key, value)

	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusNotFound,
		StatusText:     "Resource not found",
		ErrorText:      err.Error(),
	}
}

func ErrMissing(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusNotFound,
		StatusText:     "Resource not found",
		ErrorText:      err.Error(),
	}
}

func ErrInternalServerError(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error",
		ErrorText:      "something went wrong, please retry later",
	}
}
