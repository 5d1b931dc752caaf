package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/infrastructure/auth"
	"github.com/sellerpulse/backend/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTAuth validates the bearer token and stores the claims in the request
// context. Requests without a valid token are rejected with 401.
func JWTAuth(jwtService *auth.JWTService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			rejectUnauthenticated(c, auth.ErrInvalidToken)
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			rejectUnauthenticated(c, auth.ErrInvalidToken)
			return
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			rejectUnauthenticated(c, auth.ErrInvalidToken)
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			if logger != nil {
				logger.Warn("JWT validation failed",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
			}
			rejectUnauthenticated(c, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context, err error) {
	code := dto.ErrCodeTokenInvalid
	message := "Invalid token"
	if errors.Is(err, auth.ErrExpiredToken) {
		code = dto.ErrCodeTokenExpired
		message = "Token has expired"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// CurrentUserID returns the authenticated user's id from the request
// context. Only meaningful behind JWTAuth.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	claims := GetJWTClaims(c)
	if claims == nil {
		return uuid.Nil, auth.ErrInvalidClaims
	}
	return claims.GetUserUUID()
}
