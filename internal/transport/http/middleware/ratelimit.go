package middleware

import (
	"math"
	"net/http"
	"strconv"

	"shop-service/internal/ratelimit"
	"shop-service/internal/service"
	"shop-service/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit ограничивает частоту по пользователю, иначе по сессии, иначе по IP.
// Ошибка redis не блокирует запрос.
func RateLimit(l ratelimit.Limiter, name string, limit ratelimit.Limit, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := name + ":" + clientKey(c)
		res, err := l.Allow(c.Request.Context(), key, limit)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewTooManyRequestsError("too many requests"))
			return
		}
		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if uid, ok := service.UserIDFromContext(c.Request.Context()); ok {
		return "u:" + uid.String()
	}
	if sid := SessionID(c); sid != "" {
		return "s:" + sid
	}
	return "ip:" + c.ClientIP()
}
