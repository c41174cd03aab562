package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/container"
	handlers "github.com/oksasatya/go-ddd-auth-scaffold/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
)

// AdminModule exposes role management to users holding AdminRole.
type AdminModule struct {
	Handler   *handlers.AdminHandler
	JWT       *helpers.JWTManager
	AdminRole string
}

func NewAdminModule(h *handlers.AdminHandler, jwt *helpers.JWTManager, adminRole string) *AdminModule {
	return &AdminModule{Handler: h, JWT: jwt, AdminRole: adminRole}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	admin := rg.Group("/admin")
	admin.Use(
		middleware.Auth(rdb, m.JWT),
		middleware.RequireRoles(m.AdminRole),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		admin.GET("/roles", m.Handler.ListRoles)
		admin.GET("/users", m.Handler.ListUsers)
		admin.GET("/users/search", m.Handler.SearchUsers)
		admin.POST("/users/:id/roles", m.Handler.AssignRole)
		admin.DELETE("/users/:id/roles/:role", m.Handler.UnassignRole)
	}
}
