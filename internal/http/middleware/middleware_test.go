package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

const testSecret = "supersecret"

func init() {
	gin.SetMode(gin.TestMode)
}

type users map[string]*model.User

func (u users) GetUserByID(id string) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, errors.New("not found")
}

type screens map[string]model.Screen

func (s screens) GetScreenByDeviceToken(token string) (model.Screen, error) {
	if screen, ok := s[token]; ok {
		return screen, nil
	}
	return model.Screen{}, errors.New("not found")
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func jwtRouter(u UserLoader) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTMiddleware(testSecret, u), func(c *gin.Context) {
		user, ok := GetCurrentUser(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": user.ID})
	})
	return r
}

func get(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	u := users{
		"u-1": {ID: "u-1", IsActive: true},
		"u-2": {ID: "u-2", IsActive: false},
	}
	r := jwtRouter(u)

	valid, err := GenerateJWT("u-1", testSecret, time.Hour)
	require.NoError(t, err)
	inactive, err := GenerateJWT("u-2", testSecret, time.Hour)
	require.NoError(t, err)
	unknown, err := GenerateJWT("u-9", testSecret, time.Hour)
	require.NoError(t, err)
	foreign, err := GenerateJWT("u-1", "other-secret", time.Hour)
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "missing auth header"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "invalid auth header"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "invalid token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "invalid token"},
		{"unknown user", "Bearer " + unknown, http.StatusUnauthorized, "user not found"},
		{"deactivated", "Bearer " + inactive, http.StatusForbidden, "account is deactivated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, "/me", tt.header)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.msg == "" {
				assert.JSONEq(t, `{"id":"u-1"}`, w.Body.String())
				return
			}
			body := decodeError(t, w)
			assert.Equal(t, tt.msg, body.Error)
			assert.Equal(t, CodeFor(tt.status), body.Code)
			_, err := time.Parse(time.RFC3339, body.Timestamp)
			assert.NoError(t, err)
		})
	}
}

func TestGenerateJWTDefaultTTL(t *testing.T) {
	raw, err := GenerateJWT("u-1", testSecret, 0)
	require.NoError(t, err)

	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	exp := time.Unix(int64(claims["exp"].(float64)), 0)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), exp, time.Minute)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
}

func TestDeviceAuth(t *testing.T) {
	s := screens{
		"tok-live": {ID: "scr-1", IsActive: true},
		"tok-off":  {ID: "scr-2", IsActive: false},
	}
	r := gin.New()
	r.GET("/sync", DeviceAuth(s), func(c *gin.Context) {
		screen, _ := GetCurrentScreen(c)
		c.JSON(http.StatusOK, gin.H{"screen_id": screen.ID})
	})

	w := get(r, "/sync", "Bearer tok-live")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"screen_id":"scr-1"}`, w.Body.String())

	w = get(r, "/sync", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing device token", decodeError(t, w).Error)

	w = get(r, "/sync", "Bearer tok-nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/sync", "Bearer tok-off")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodeForbidden, decodeError(t, w).Code)
}

func TestSharedSecret(t *testing.T) {
	handler := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	unset := gin.New()
	unset.GET("/cron", SharedSecret(""), handler)
	w := get(unset, "/cron", "Bearer anything")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, CodeServiceUnavailable, decodeError(t, w).Code)

	r := gin.New()
	r.GET("/cron", SharedSecret("cron-secret"), handler)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/cron", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/cron", "Bearer cron-secreT").Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/cron", "Bearer cron-secret").Code)
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	r := gin.New()
	r.GET("/ping", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	}
	w := get(r, "/ping", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, CodeRateLimited, decodeError(t, w).Code)

	// buckets are per client
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, CodeBadRequest, CodeFor(http.StatusBadRequest))
	assert.Equal(t, CodeBadRequest, CodeFor(http.StatusRequestEntityTooLarge))
	assert.Equal(t, CodeConflict, CodeFor(http.StatusConflict))
	assert.Equal(t, CodeInternal, CodeFor(http.StatusBadGateway))
	assert.Equal(t, "", CodeFor(http.StatusTeapot))
}

func TestAbortWithErrorDetails(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		AbortWithError(c, http.StatusConflict, "", "media asset is in use", "2 playlist items")
	})
	w := get(r, "/x", "")
	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "media asset is in use", body.Error)
	assert.Equal(t, CodeConflict, body.Code)
	assert.Equal(t, "2 playlist items", body.Details)
}
