package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

const DefaultTokenTTL = 72 * time.Hour

// UserLoader fetches the profile a token was issued for.
type UserLoader interface {
	GetUserByID(id string) (*model.User, error)
}

// signs a token embedding userID in the “sub” claim.
func GenerateJWT(userID string, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// verifies the JWT and returns the user ID (unexported, only used internally).
func parseToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("invalid sub claim")
	}
	return sub, nil
}

// bearerToken extracts the token of an “Authorization: Bearer <token>” header.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// checks “Authorization: Bearer <token>”, verifies it, loads the profile and
// sets “currentUser” in context. Deactivated profiles are rejected with 403.
func JWTMiddleware(secret string, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abort(c, http.StatusUnauthorized, "missing auth header")
			return
		}
		raw, ok := bearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "invalid auth header")
			return
		}

		userID, err := parseToken(raw, secret)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := users.GetUserByID(userID)
		if err != nil || user == nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("token for unknown profile")
			abort(c, http.StatusUnauthorized, "user not found")
			return
		}
		if !user.IsActive {
			abort(c, http.StatusForbidden, "account is deactivated")
			return
		}
		c.Set("currentUser", user)
		c.Next()
	}
}
