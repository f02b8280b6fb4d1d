package middleware

import (
	"net/http"
	"time"

	"shop-service/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/nanorand/nanorand"
	"go.uber.org/zap"
)

const (
	SessionCookie = "shop_sid"
	CtxSessionID  = "session_id"

	sessionIDLength = 32
)

type SessionConfig struct {
	Domain string
	Secure bool
	TTL    time.Duration
}

// Session выдаёт покупателю идентификатор сессии (корзина, ссылка на платёж)
func Session(cfg SessionConfig, log *zap.Logger) gin.HandlerFunc {
	maxAge := int(cfg.TTL / time.Second)
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err != nil || !validSessionID(sid) {
			sid, err = nanorand.Gen(sessionIDLength)
			if err != nil {
				log.Error("session id generation failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewInternalError("session"))
				return
			}
		}
		// продлеваем cookie на каждый запрос
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sid, maxAge, "/", cfg.Domain, cfg.Secure, true)
		c.Set(CtxSessionID, sid)
		c.Next()
	}
}

func validSessionID(sid string) bool {
	if len(sid) < 16 || len(sid) > 128 {
		return false
	}
	for _, r := range sid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func SessionID(c *gin.Context) string {
	return c.GetString(CtxSessionID)
}
