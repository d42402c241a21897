package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/auth/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// AuthPublicModule mounts public auth endpoints (/auth/login)
func AuthPublicModule(jwtSecret string, ttl time.Duration, store db.Store) api.Module {
	ctl := newAccountManager(jwtSecret, ttl, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_POST("/auth/login", ctl.userLogin)
	})
}

// AuthSessionModule mounts private session/profile endpoints (JWT required)
func AuthSessionModule(jwtSecret string, ttl time.Duration, store db.Store) api.Module {
	ctl := newAccountManager(jwtSecret, ttl, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/auth/me", ctl.getCurrentProfile)
		c.PUT("/auth/me", ctl.updateCurrentProfile)
	})
}

type AccountManager struct {
	jwtSecret string
	ttl       time.Duration
	store     db.Store
}

func newAccountManager(secret string, ttl time.Duration, store db.Store) *AccountManager {
	if ttl <= 0 {
		ttl = middleware.DefaultTokenTTL
	}
	return &AccountManager{jwtSecret: secret, ttl: ttl, store: store}
}

func (a *AccountManager) organization(u *model.User) *model.Organization {
	org, err := a.store.GetOrganization(u.OrganizationID)
	if err != nil {
		log.Warn().Err(err).Str("organization_id", u.OrganizationID).Msg("could not load organization for profile")
		return nil
	}
	return &org
}

// POST /api/auth/login
func (a *AccountManager) userLogin(ctx *gin.Context) (any, *api.APIError) {
	var request packets.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid request body", Details: err.Error()}
	}

	user, err := a.store.GetUserByEmail(request.Email)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, api.Internal(err)
	}
	if user == nil || !middleware.CheckPassword(user.HashedPassword, request.Password) {
		log.Warn().Str("email", request.Email).Msg("failed login attempt")
		return nil, api.Unauthorized(middleware.ErrInvalidCredentials.Error())
	}
	if !user.IsActive {
		return nil, api.Forbidden("account is deactivated")
	}

	token, err := middleware.GenerateJWT(user.ID, a.jwtSecret, a.ttl)
	if err != nil {
		return nil, api.Internal(err)
	}

	log.Info().Str("user_id", user.ID).Msg("user logged in")
	return packets.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(a.ttl).UTC().Format(time.RFC3339),
		Profile:   packets.NewProfileResponse(user, a.organization(user)),
	}, nil
}

// GET /api/auth/me
func (a *AccountManager) getCurrentProfile(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	return packets.NewProfileResponse(user, a.organization(user)), nil
}

// PUT /api/auth/me
func (a *AccountManager) updateCurrentProfile(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.UpdateCurrentProfileRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid request body", Details: err.Error()}
	}

	patch := db.UserPatch{FullName: request.FullName}
	if request.NewPassword != "" {
		if !middleware.CheckPassword(user.HashedPassword, request.CurrentPassword) {
			return nil, api.BadRequest("current password is incorrect")
		}
		hashed, err := middleware.HashPassword(request.NewPassword)
		if err != nil {
			return nil, api.Internal(err)
		}
		patch.HashedPassword = &hashed
	}

	if err := a.store.UpdateUser(user.ID, patch); err != nil {
		return nil, api.FromStore(err, "profile")
	}
	updated, err := a.store.GetUserByID(user.ID)
	if err != nil {
		return nil, api.FromStore(err, "profile")
	}
	return packets.NewProfileResponse(updated, a.organization(updated)), nil
}
