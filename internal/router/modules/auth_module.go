package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/container"
	handlers "github.com/oksasatya/go-ddd-auth-scaffold/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
)

// AuthModule wires account endpoints under /auth.
// Public: register, login, refresh, confirm-email, confirm-email/resend, password/forgot, password/reset
// Protected: logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	credentialLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil) // 10 req/min per IP and route
	emailLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	tokenLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)

	g := rg.Group("/auth")
	g.POST("/register", credentialLimiter, m.Handler.Register)
	g.POST("/login", credentialLimiter, m.Handler.Login)
	g.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	g.POST("/confirm-email", tokenLimiter, m.Handler.ConfirmEmail)
	g.POST("/confirm-email/resend", emailLimiter, m.Handler.ResendConfirmation)
	g.POST("/password/forgot", emailLimiter, m.Handler.ForgotPassword)
	g.POST("/password/reset", tokenLimiter, m.Handler.ResetPassword)

	g.POST("/logout", middleware.Auth(rdb, m.JWT), m.Handler.Logout)
}
