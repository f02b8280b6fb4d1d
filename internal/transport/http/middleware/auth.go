package middleware

import (
	"errors"
	"net/http"
	"strings"

	"shop-service/internal/service"
	"shop-service/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccessCookie: cookie с access-токеном для браузерных редиректов шлюза
const AccessCookie = "access_token"

type customClaims struct {
	Sub   string `json:"sub"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenParser проверяет HS256 access-токены, выпущенные сервисом авторизации
type TokenParser struct {
	secret []byte
	issuer string
}

func NewTokenParser(secret, issuer string) *TokenParser {
	return &TokenParser{secret: []byte(secret), issuer: issuer}
}

type Identity struct {
	UserID uuid.UUID
	Role   service.Role
	Email  string
}

func (p *TokenParser) Parse(token string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	uid, err := uuid.Parse(claims.Sub)
	if err != nil {
		return nil, err
	}
	role := service.Role(claims.Role)
	if role == "" {
		role = service.RoleCustomer
	}
	return &Identity{UserID: uid, Role: role, Email: claims.Email}, nil
}

// Authenticate кладёт пользователя в контекст запроса, если токен есть.
// Без токена запрос идёт дальше анонимно, с невалидным токеном получает 401.
func Authenticate(parser *TokenParser, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authz := c.GetHeader("Authorization"); authz != "" {
			t, ok := ExtractBearerToken(authz)
			if !ok || t == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
				return
			}
			token = t
		} else if v, err := c.Cookie(AccessCookie); err == nil {
			token = v
		}
		if token == "" {
			c.Next()
			return
		}

		id, err := parser.Parse(token)
		if err != nil {
			log.Warn("token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		ctx := service.WithUserID(c.Request.Context(), id.UserID)
		ctx = service.WithRole(ctx, id.Role)
		if id.Email != "" {
			ctx = service.WithEmail(ctx, id.Email)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := service.UserIDFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("authentication required"))
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, ok := service.UserIDFromContext(ctx); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("authentication required"))
			return
		}
		if role, _ := service.RoleFromContext(ctx); role != service.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewForbiddenError("admin role required"))
			return
		}
		c.Next()
	}
}

// ExtractBearerToken извлекает токен из заголовка Authorization.
// Допускает кавычки вокруг токена и мусор после запятой или пробела.
func ExtractBearerToken(authz string) (string, bool) {
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return strings.Trim(t, " \"'"), true
}
