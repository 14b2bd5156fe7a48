package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata-violations/internal/auth"
	"strata-violations/internal/metrics"
	"strata-violations/internal/model"
	dbtest "strata-violations/internal/testutil"
)

const secret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m, err := metrics.New()
	require.NoError(t, err)

	router := gin.New()
	router.POST("/code", RateLimit(client, RateLimitConfig{RequestsPerMinute: 3, KeyPrefix: "test:"}, m, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		w := serve(router, http.MethodPost, "/code", "")
		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := serve(router, http.MethodPost, "/code", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitedRequests))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	router := gin.New()
	router.POST("/code", RateLimit(client, RateLimitConfig{RequestsPerMinute: 1, KeyPrefix: "test:"}, nil, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPost, "/code", "").Code)
	}
}

func TestRateLimit_DisabledWithoutClient(t *testing.T) {
	router := gin.New()
	router.POST("/code", RateLimit(nil, RateLimitConfig{RequestsPerMinute: 1}, nil, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(router, http.MethodPost, "/code", "").Code)
	}
}

func TestAuth(t *testing.T) {
	parser := auth.NewParser(secret)
	principal := model.Principal{UserID: 7, Email: "council@example.com", Role: model.UserRoleCouncil}

	router := gin.New()
	router.GET("/staff", Auth(parser), func(c *gin.Context) {
		got, ok := MustPrincipal(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"uid": got.UserID, "role": got.Role})
	})
	router.GET("/admin", Auth(parser), RequireRoles(model.UserRoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token := dbtest.StaffToken(t, secret, principal)

	w := serve(router, http.MethodGet, "/staff", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":7,"role":"council"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/staff", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/staff", dbtest.StaffToken(t, "other", principal)).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/admin", token).Code)

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Token "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOccupantAuth(t *testing.T) {
	parser := auth.NewParser(secret)
	issuer := auth.NewIssuer(secret, time.Hour)

	router := gin.New()
	router.POST("/dispute", OccupantAuth(parser), func(c *gin.Context) {
		session, ok := MustOccupant(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"person": session.PersonID, "violation": session.ViolationID})
	})

	token, _, err := issuer.IssueOccupant(model.OccupantSession{PersonID: 3, ViolationID: 9, LinkToken: "abc"})
	require.NoError(t, err)

	w := serve(router, http.MethodPost, "/dispute", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"person":3,"violation":9}`, w.Body.String())

	staff := dbtest.StaffToken(t, secret, model.Principal{UserID: 1, Role: model.UserRoleAdmin})
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPost, "/dispute", staff).Code)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger(zerolog.Nop()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/ping", "")
	assert.Len(t, w.Header().Get("X-Request-ID"), 8)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get("X-Request-ID"))
}
