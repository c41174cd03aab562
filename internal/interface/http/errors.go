package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/response"
)

// fail maps service errors onto the response envelope. Unexpected errors are
// logged and hidden from the client.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	if details := application.ErrorMap(err); details != nil {
		response.Fail(c, http.StatusBadRequest, "request rejected", details)
		return
	}
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, application.ErrInvalidToken):
		response.Fail(c, http.StatusBadRequest, "invalid or expired token", nil)
	case errors.Is(err, application.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, application.ErrRoleNotFound):
		response.Fail(c, http.StatusNotFound, "role not found", nil)
	case errors.Is(err, application.ErrUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, "feature unavailable", nil)
	default:
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.FullPath(),
			}).Error("request failed")
		}
		response.Fail(c, http.StatusInternalServerError, "internal error", nil)
	}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func requestMeta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
}
