package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/response"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/validation"
)

const maxAvatarBytes = 5 << 20

type ProfileHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewProfileHandler(svc *application.Service, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{Svc: svc, Logger: logger}
}

type updateProfileRequest struct {
	Name      string `json:"name" binding:"displayname"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,pwd,nefield=CurrentPassword"`
}

func profileView(u *entity.User, roles []string) gin.H {
	return gin.H{
		"id":              u.ID,
		"user_name":       u.UserName,
		"email":           u.Email,
		"email_confirmed": u.EmailConfirmed,
		"name":            u.Name,
		"avatar_url":      u.AvatarURL,
		"roles":           roles,
		"created_at":      u.CreatedAt,
		"updated_at":      u.UpdatedAt,
	}
}

// GetProfile GET /api/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	u, roles, err := h.Svc.GetProfile(c.Request.Context(), c.GetString(middleware.CtxUserID))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, profileView(u, roles), "profile", nil)
}

// UpdateProfile PUT /api/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString(middleware.CtxUserID), application.UpdateProfileInput{Name: req.Name, AvatarURL: req.AvatarURL})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, profileView(u, middleware.Roles(c)), "profile updated", nil)
}

// UploadAvatar POST /api/profile/avatar (multipart field "file")
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+1024)
	fh, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, "file too large", nil)
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Fail(c, http.StatusBadRequest, "only image uploads are allowed", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "unreadable file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString(middleware.CtxUserID), f, fh.Filename, contentType)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar updated", nil)
}

// ChangePassword POST /api/profile/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), c.GetString(middleware.CtxUserID), req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.OK[any](c, http.StatusOK, gin.H{"changed": true}, "password changed", nil)
}
