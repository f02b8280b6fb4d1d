package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop-service/internal/ratelimit"
	"shop-service/internal/service"
	"shop-service/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingLimiter struct {
	keys  []string
	allow int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string, _ ratelimit.Limit) (*ratelimit.Result, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	ok := len(l.keys) <= l.allow
	return &ratelimit.Result{Allowed: ok, RetryAfter: 1500 * time.Millisecond}, nil
}

func newLimitedEngine(l ratelimit.Limiter, user *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if user != nil {
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(service.WithUserID(c.Request.Context(), *user))
		})
	}
	r.Use(middleware.RateLimit(l, "pay", ratelimit.PerMinute(1), zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	user := uuid.New()
	l := &countingLimiter{allow: 1}
	r := newLimitedEngine(l, &user)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "2", w.Header().Get("Retry-After"))
	require.Equal(t, "pay:u:"+user.String(), l.keys[0])
}

func TestRateLimit_FailsOpenAndFallsBackToIP(t *testing.T) {
	r := newLimitedEngine(&countingLimiter{err: errors.New("redis down")}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusOK, w.Code)

	l := &countingLimiter{allow: 5}
	r = newLimitedEngine(l, nil)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.7:1234"
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, []string{"pay:ip:10.0.0.7"}, l.keys)
}
