package devbackend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const clientIDKey contextKey = "authClientID"

// ClientID retrieves the authenticated client subject from context.
func ClientID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if value, ok := ctx.Value(clientIDKey).(string); ok && value != "" {
		return value, true
	}
	return "", false
}

// JWTMiddleware validates HS256 bearer tokens and injects the client identity.
// An empty audience accepts tokens for any audience.
func JWTMiddleware(secret, audience string) gin.HandlerFunc {
	key := []byte(strings.TrimSpace(secret))
	audience = strings.TrimSpace(audience)

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(audience))
	}
	parser := jwt.NewParser(parserOpts...)

	return func(c *gin.Context) {
		if len(key) == 0 {
			unauthorized(c, "missing JWT secret")
			return
		}

		tokenString, err := extractBearerToken(c.Request.Header.Get("Authorization"))
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenInvalidAudience) {
				unauthorized(c, "invalid audience")
				return
			}
			unauthorized(c, "invalid token")
			return
		}
		if claims.Subject == "" {
			unauthorized(c, "missing subject")
			return
		}

		ctx := context.WithValue(c.Request.Context(), clientIDKey, claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(clientIDKey), claims.Subject)

		c.Next()
	}
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header required")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token missing")
	}
	return token, nil
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
