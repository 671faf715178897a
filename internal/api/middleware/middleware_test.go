package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ludotheque/ludo-api/internal/domain"
)

type staticResolver map[string]domain.Identity

func (r staticResolver) Resolve(_ context.Context, authorization string) (domain.Identity, bool) {
	id, ok := r[authorization]
	return id, ok
}

func TestRequireIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	auth := NewAuthenticator(staticResolver{
		"Bearer good": {UserID: 3, Role: domain.RoleBenevole},
	})

	var seen domain.Identity
	r := gin.New()
	r.GET("/", auth.RequireIdentity(), func(ctx *gin.Context) {
		seen, _ = IdentityFrom(ctx)
		ctx.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "resolved", header: "Bearer good", want: http.StatusNoContent},
		{name: "unknown", header: "Bearer bad", want: http.StatusUnauthorized},
		{name: "missing", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}

	assert.Equal(t, domain.Identity{UserID: 3, Role: domain.RoleBenevole}, seen)
}

func TestConfigCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ConfigCORS([]string{"http://localhost:5173"}))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
