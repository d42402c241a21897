package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestFromStore(t *testing.T) {
	assert.Nil(t, FromStore(nil, "screen"))

	e := FromStore(fmt.Errorf("get screen: %w", db.ErrNotFound), "screen")
	assert.Equal(t, http.StatusNotFound, e.Code)
	assert.Equal(t, "screen not found", e.Message)

	assert.Equal(t, http.StatusConflict, FromStore(fmt.Errorf("x: %w", db.ErrConflict), "user").Code)
	assert.Equal(t, http.StatusBadRequest, FromStore(fmt.Errorf("x: %w", db.ErrInvalid), "playlist").Code)

	e = FromStore(errors.New("connection refused"), "screen")
	assert.Equal(t, http.StatusInternalServerError, e.Code)
	assert.Equal(t, "internal server error", e.Message)
	assert.Equal(t, "connection refused", e.Details)
}

func TestErrorBody(t *testing.T) {
	r := gin.New()
	r.GET("/boom", ResolveEndpoint(func(ctx *gin.Context) (any, *APIError) {
		return nil, Internal(errors.New("pq: relation does not exist"))
	}))

	SetExposeDetails(true)
	w := serve(r, http.MethodGet, "/boom")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body middleware.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
	assert.Equal(t, middleware.CodeInternal, body.Code)
	assert.Equal(t, "pq: relation does not exist", body.Details)
	assert.NotEmpty(t, body.Timestamp)

	SetExposeDetails(false)
	t.Cleanup(func() { SetExposeDetails(false) })
	w = serve(r, http.MethodGet, "/boom")
	assert.NotContains(t, w.Body.String(), "details")
}

func TestRespond(t *testing.T) {
	r := gin.New()
	r.GET("/ok", ResolveEndpoint(func(ctx *gin.Context) (any, *APIError) {
		return gin.H{"a": 1}, nil
	}))
	r.POST("/created", ResolveEndpoint(func(ctx *gin.Context) (any, *APIError) {
		return Created(gin.H{"id": "x"}), nil
	}))
	r.GET("/cached", ResolveEndpoint(func(ctx *gin.Context) (any, *APIError) {
		ctx.AbortWithStatus(http.StatusNotModified)
		return nil, nil
	}))

	w := serve(r, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"a":1}`, w.Body.String())

	w = serve(r, http.MethodPost, "/created")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"x"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/cached")
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestResolveEndpointWithAuthNeedsUser(t *testing.T) {
	called := false
	r := gin.New()
	r.GET("/me", ResolveEndpointWithAuth(func(ctx *gin.Context, user *model.User) (any, *APIError) {
		called = true
		return nil, nil
	}))

	w := serve(r, http.MethodGet, "/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

type userMap map[string]*model.User

func (u userMap) GetUserByID(id string) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, db.ErrNotFound
}

func TestMountGroup(t *testing.T) {
	users := userMap{"u-1": {ID: "u-1", IsActive: true}}
	r := gin.New()

	MountGroup(r, GroupConfig{Prefix: "/api"}, ModuleFunc(func(c *Controller) {
		c.PUBLIC_GET("/open", func(ctx *gin.Context) (any, *APIError) { return "open", nil })
	}))
	MountGroup(r, GroupConfig{Prefix: "/api", Auth: true, SecretKey: "s", Users: users}, ModuleFunc(func(c *Controller) {
		c.GET("/closed", func(ctx *gin.Context, user *model.User) (any, *APIError) { return user.ID, nil })
	}))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/open").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/closed").Code)

	token, err := middleware.GenerateJWT("u-1", "s", 0)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/closed", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"u-1"`, w.Body.String())
}
