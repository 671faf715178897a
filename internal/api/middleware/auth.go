package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ludotheque/ludo-api/internal/api/handler/v1/response"
	"github.com/ludotheque/ludo-api/internal/domain"
)

const identityKey = "identity"

type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) (domain.Identity, bool)
}

type Authenticator struct {
	resolver IdentityResolver
}

func NewAuthenticator(resolver IdentityResolver) *Authenticator {
	return &Authenticator{
		resolver: resolver,
	}
}

// RequireIdentity resolves the Authorization header before the handler runs
// and rejects the request when nobody matches it.
func (a *Authenticator) RequireIdentity() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, ok := a.resolver.Resolve(ctx.Request.Context(), ctx.GetHeader("Authorization"))
		if !ok {
			response.RenderErr(ctx, response.ErrUnauthenticated())
			return
		}

		zap.L().Debug("identity resolved", zap.Uint("user", id.UserID), zap.String("role", string(id.Role)))
		ctx.Set(identityKey, id)
		ctx.Next()
	}
}

func IdentityFrom(ctx *gin.Context) (domain.Identity, bool) {
	v, ok := ctx.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)

	return id, ok
}

// WithIdentity stores id as if RequireIdentity had resolved it.
func WithIdentity(ctx *gin.Context, id domain.Identity) {
	ctx.Set(identityKey, id)
}
