package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	os.Exit(m.Run())
}

type envelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

type server struct {
	t       *testing.T
	engine  *gin.Engine
	svc     *application.Service
	mr      *miniredis.Miniredis
	cookies []*http.Cookie
}

func newServer(t *testing.T) *server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger, _ := test.NewNullLogger()
	rr := memory.NewRoleRepository()
	roles := application.NewRoleManager(rr, logger)
	users := application.NewUserManager(memory.NewUserRepository(rr), roles, application.DefaultPasswordPolicy(), logger)
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	svc := application.NewService(users, roles, jwt, rdb, logger, nil)
	require.NoError(t, roles.CreateRole(context.Background(), "Employee"))

	auth := NewAuthHandler(svc, logger, helpers.NewCookie("", false))
	profile := NewProfileHandler(svc, logger)
	admin := NewAdminHandler(svc, logger)
	requireAuth := middleware.Auth(rdb, jwt)

	r := gin.New()
	g := r.Group("/api/auth")
	g.POST("/register", auth.Register)
	g.POST("/login", auth.Login)
	g.POST("/refresh", auth.Refresh)
	g.POST("/logout", requireAuth, auth.Logout)
	g.POST("/confirm-email", auth.ConfirmEmail)
	g.POST("/password/forgot", auth.ForgotPassword)
	g.POST("/password/reset", auth.ResetPassword)
	p := r.Group("/api/profile", requireAuth)
	p.GET("", profile.GetProfile)
	p.PUT("", profile.UpdateProfile)
	p.POST("/avatar", profile.UploadAvatar)
	a := r.Group("/api/admin", requireAuth, middleware.RequireRoles("Employee"))
	a.GET("/roles", admin.ListRoles)
	a.GET("/users", admin.ListUsers)
	a.POST("/users/:id/roles", admin.AssignRole)

	return &server{t: t, engine: r, svc: svc, mr: mr}
}

func (s *server) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if set := w.Result().Cookies(); len(set) > 0 {
		s.cookies = s.cookies[:0]
		for _, c := range set {
			if c.MaxAge >= 0 && c.Value != "" {
				s.cookies = append(s.cookies, c)
			}
		}
	}
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *server) registerAndLogin(email string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/auth/register", gin.H{"email": email, "password": "Secret1", "name": "Jane"})
	require.Equal(s.t, http.StatusCreated, w.Code, env.Message)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &created))

	w, _ = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": "Secret1"})
	require.Equal(s.t, http.StatusOK, w.Code)
	return created.ID
}

func TestRegister_Validation(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodPost, "/api/auth/register", gin.H{"email": "nope", "password": "Secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "must be a valid email", env.Error["email"])

	w, env = s.do(http.MethodPost, "/api/auth/register", gin.H{"email": "a@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request rejected", env.Message)
	assert.Contains(t, env.Error, application.CodePasswordRequiresUpper)

	w, _ = s.do(http.MethodPost, "/api/auth/register", gin.H{"email": "a@example.com", "password": "Secret1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w, env = s.do(http.MethodPost, "/api/auth/register", gin.H{"email": "A@example.com", "password": "Secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, application.CodeDuplicateEmail)
}

func TestRegister_LongPasswords(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodPost, "/api/auth/register", gin.H{"email": "a@example.com", "password": "Aa1" + strings.Repeat("x", 77)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "max length 72", env.Error["password"])

	// fits the character cap but exceeds what bcrypt can hash
	w, env = s.do(http.MethodPost, "/api/auth/register", gin.H{"email": "a@example.com", "password": "Aa1" + strings.Repeat("é", 35)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request rejected", env.Message)
	assert.Contains(t, env.Error, application.CodePasswordTooLong)

	w, _ = s.do(http.MethodPost, "/api/auth/register", gin.H{"email": "a@example.com", "password": "Aa1" + strings.Repeat("x", 69)})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLogin_SetsCookiesAndSession(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ghost@example.com", "password": "Secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	uid := s.registerAndLogin("jane@example.com")
	assert.Len(t, s.cookies, 2)
	assert.True(t, s.mr.Exists(application.SessionKey(uid)))

	w, env := s.do(http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"email":"jane@example.com"`)

	w, _ = s.do(http.MethodPost, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusOK, w.Code, "rotated cookies stay valid")

	w, _ = s.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, s.mr.Exists(application.SessionKey(uid)))
	w, _ = s.do(http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_RequiresRole(t *testing.T) {
	s := newServer(t)
	uid := s.registerAndLogin("jane@example.com")

	w, _ := s.do(http.MethodGet, "/api/admin/roles", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, s.svc.AssignRole(context.Background(), uid, "Employee"))
	w, env := s.do(http.MethodGet, "/api/admin/roles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"name":"Employee"`)

	w, env = s.do(http.MethodPost, "/api/admin/users/"+uid+"/roles", gin.H{"role": "Adjuster"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, application.CodeRoleNotFound)

	w, _ = s.do(http.MethodPost, "/api/admin/users/"+uid+"/roles", gin.H{"role": "Employee"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "already in role")
}

func TestAccountTokens(t *testing.T) {
	s := newServer(t)
	s.registerAndLogin("jane@example.com")

	w, env := s.do(http.MethodPost, "/api/auth/password/forgot", gin.H{"email": "unknown@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, _ = s.do(http.MethodPost, "/api/auth/confirm-email", gin.H{"token": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodPost, "/api/auth/password/reset", gin.H{"token": "bogus", "new_password": "Newpass9"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid or expired token", env.Message)
}

func TestUploadAvatar_WithoutStorage(t *testing.T) {
	s := newServer(t)
	s.registerAndLogin("jane@example.com")

	w, _ := s.do(http.MethodPost, "/api/profile/avatar", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "multipart body is required")

	upload := func(contentType string) int {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="a.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		for _, c := range s.cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		s.engine.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusBadRequest, upload("text/plain"))
	assert.Equal(t, http.StatusServiceUnavailable, upload("image/png"))
}
