package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testJWT() *helpers.JWTManager {
	return helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
}

func seedSession(t *testing.T, rdb *redis.Client, uid, sid, roles string) {
	t.Helper()
	require.NoError(t, rdb.HSet(context.Background(), application.SessionKey(uid), map[string]any{
		"user_id": uid,
		"email":   uid + "@example.com",
		"name":    "User " + uid,
		"roles":   roles,
		"sid":     sid,
	}).Err())
}

func protected(rdb *redis.Client, jwt *helpers.JWTManager, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{Auth(rdb, jwt)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.GetString(CtxUserID), "roles": Roles(c)})
	})
	r.GET("/p", chain...)
	return r
}

func TestAuth_CookieAndSession(t *testing.T) {
	_, rdb := newRedis(t)
	jwt := testJWT()
	seedSession(t, rdb, "u1", "s1", "Employee")
	tok, _, err := jwt.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: tok})
	w := httptest.NewRecorder()
	protected(rdb, jwt).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u1","roles":["Employee"]}`, w.Body.String())
}

func TestAuth_BearerHeader(t *testing.T) {
	_, rdb := newRedis(t)
	jwt := testJWT()
	seedSession(t, rdb, "u1", "s1", "")
	tok, _, _ := jwt.GenerateAccessToken("u1", "s1")

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	protected(rdb, jwt).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_Rejections(t *testing.T) {
	_, rdb := newRedis(t)
	jwt := testJWT()
	seedSession(t, rdb, "u1", "s1", "")
	stale, _, _ := jwt.GenerateAccessToken("u1", "old")
	orphan, _, _ := jwt.GenerateAccessToken("u2", "s2")

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"no session":   orphan,
		"rotated away": stale,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tok != "" {
				req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: tok})
			}
			w := httptest.NewRecorder()
			protected(rdb, jwt).ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	_, rdb := newRedis(t)
	jwt := testJWT()
	seedSession(t, rdb, "admin", "s1", "Employee,Adjuster")
	seedSession(t, rdb, "plain", "s2", "")
	adminTok, _, _ := jwt.GenerateAccessToken("admin", "s1")
	plainTok, _, _ := jwt.GenerateAccessToken("plain", "s2")
	r := protected(rdb, jwt, RequireRoles("employee"))

	for tok, want := range map[string]int{adminTok: http.StatusOK, plainTok: http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: tok})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	_, rdb := newRedis(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RealIP())
	r.GET("/x", RateLimit(rdb, 2, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	var codes []int
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_PrivateIPBypass(t *testing.T) {
	_, rdb := newRedis(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RealIP())
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), AllowPrivateIP()), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Forwarded-For", "10.1.2.3")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRateLimit_FailsOpenWithoutRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", w.Body.String())
}
