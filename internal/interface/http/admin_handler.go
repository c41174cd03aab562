package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/response"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/validation"
)

// AdminHandler serves role and membership management for holders of the admin role.
type AdminHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAdminHandler(svc *application.Service, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Svc: svc, Logger: logger}
}

type assignRoleRequest struct {
	Role string `json:"role" binding:"required,rolename"`
}

func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.Svc.ListRoles(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	out := make([]gin.H, 0, len(roles))
	for _, r := range roles {
		out = append(out, gin.H{"id": r.ID, "name": r.Name, "created_at": r.CreatedAt})
	}
	response.OK(c, http.StatusOK, out, "roles", nil)
}

// ListUsers GET /api/admin/users?limit=&offset=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	users, err := h.Svc.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, users, "users", map[string]any{"limit": limit, "offset": offset, "count": len(users)})
}

// SearchUsers GET /api/admin/users/search?q=&size=
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Fail(c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("q", q).Warn("user search failed")
		}
		response.Fail(c, http.StatusBadGateway, "search failed", nil)
		return
	}
	response.OK(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}

// AssignRole POST /api/admin/users/:id/roles
func (h *AdminHandler) AssignRole(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.AssignRole(c.Request.Context(), c.Param("id"), req.Role); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.OK[any](c, http.StatusOK, gin.H{"user_id": c.Param("id"), "role": req.Role}, "role assigned", nil)
}

// UnassignRole DELETE /api/admin/users/:id/roles/:role
func (h *AdminHandler) UnassignRole(c *gin.Context) {
	if err := h.Svc.UnassignRole(c.Request.Context(), c.Param("id"), c.Param("role")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.OK[any](c, http.StatusOK, gin.H{"user_id": c.Param("id"), "role": c.Param("role")}, "role removed", nil)
}
