package endpoints

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/access"
	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type UserController struct {
	store db.Store
}

func newUserController(store db.Store) *UserController {
	return &UserController{store: store}
}

// UserModule mounts the /users endpoints. Only super admins write.
func UserModule(store db.Store) api.Module {
	ctl := newUserController(store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/users", ctl.listUsers)
		c.POST("/users", ctl.createUser)
		c.GET("/users/:id", ctl.getUser)
		c.PUT("/users/:id", ctl.updateUser)
		c.DELETE("/users/:id", ctl.deactivateUser)
	})
}

// GET /api/users
func (u *UserController) listUsers(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	users, err := u.store.ListUsers(access.ListScope(user))
	if err != nil {
		return nil, api.FromStore(err, "users")
	}
	out := make([]packets.UserResponse, 0, len(users))
	for _, x := range users {
		out = append(out, packets.NewUserResponse(x))
	}
	return out, nil
}

// assignment resolves the district/location a profile is attached to for its
// role, filling the district from the location when only the latter is given.
func (u *UserController) assignment(orgID string, role model.Role, districtID, locationID *string) (*string, *string, *api.APIError) {
	districtID, locationID = emptyToNil(districtID), emptyToNil(locationID)

	if locationID != nil {
		l, err := u.store.GetLocation(*locationID)
		if err != nil || l.OrganizationID != orgID {
			return nil, nil, api.BadRequest("location not found in organization")
		}
		if districtID != nil && *districtID != l.DistrictID {
			return nil, nil, api.BadRequest("location does not belong to district")
		}
		districtID = &l.DistrictID
	} else if districtID != nil {
		d, err := u.store.GetDistrict(*districtID)
		if err != nil || d.OrganizationID != orgID {
			return nil, nil, api.BadRequest("district not found in organization")
		}
	}

	switch role {
	case model.RoleDistrictManager:
		if districtID == nil {
			return nil, nil, api.BadRequest("district managers need a district_id")
		}
	case model.RoleLocationManager:
		if locationID == nil {
			return nil, nil, api.BadRequest("location managers need a location_id")
		}
	}
	return districtID, locationID, nil
}

// POST /api/users
func (u *UserController) createUser(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if !access.CanWrite(user, access.OrgTarget(user.OrganizationID), model.RoleSuperAdmin) {
		return nil, api.Forbidden("only super admins can manage users")
	}
	var req packets.CreateUserRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	districtID, locationID, e := u.assignment(user.OrganizationID, req.Role, req.DistrictID, req.LocationID)
	if e != nil {
		return nil, e
	}

	if existing, err := u.store.GetUserByEmail(req.Email); err == nil && existing != nil {
		return nil, api.Conflict("email already registered")
	} else if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, api.Internal(err)
	}

	hashed, err := middleware.HashPassword(req.Password)
	if err != nil {
		return nil, api.Internal(err)
	}
	created, err := u.store.CreateUser(model.User{
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		HashedPassword: hashed,
		FullName:       req.FullName,
		Role:           req.Role,
		OrganizationID: user.OrganizationID,
		DistrictID:     districtID,
		LocationID:     locationID,
	})
	if err != nil {
		return nil, api.FromStore(err, "user")
	}
	log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Str("created_by", user.ID).
		Msg("user created")
	return api.Created(packets.NewUserResponse(created)), nil
}

func (u *UserController) loadUser(ctx *gin.Context, user *model.User) (*model.User, *api.APIError) {
	target, err := u.store.GetUserByID(ctx.Param("id"))
	if err != nil {
		return nil, api.FromStore(err, "user")
	}
	if e := sameOrg(user, target.OrganizationID, "user"); e != nil {
		return nil, e
	}
	if target.ID != user.ID && !access.Dominates(user, access.UserTarget(*target)) {
		return nil, api.Forbidden("user is outside your scope")
	}
	return target, nil
}

// GET /api/users/:id
func (u *UserController) getUser(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	target, e := u.loadUser(ctx, user)
	if e != nil {
		return nil, e
	}
	return packets.NewUserResponse(*target), nil
}

// PUT /api/users/:id
func (u *UserController) updateUser(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	target, e := u.loadUser(ctx, user)
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.UserTarget(*target), model.RoleSuperAdmin) {
		return nil, api.Forbidden("only super admins can manage users")
	}
	var req packets.UpdateUserRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if target.ID == user.ID {
		if req.IsActive != nil && !*req.IsActive {
			return nil, api.BadRequest("you cannot deactivate yourself")
		}
		if req.Role != nil && *req.Role != user.Role {
			return nil, api.BadRequest("you cannot change your own role")
		}
	}

	patch := db.UserPatch{FullName: req.FullName, Role: req.Role, IsActive: req.IsActive}
	if req.Role != nil || req.DistrictID != nil || req.LocationID != nil {
		role := target.Role
		if req.Role != nil {
			role = *req.Role
		}
		districtID, locationID := target.DistrictID, target.LocationID
		if req.DistrictID != nil {
			districtID = req.DistrictID
		}
		if req.LocationID != nil {
			locationID = req.LocationID
		}
		d, l, e := u.assignment(target.OrganizationID, role, districtID, locationID)
		if e != nil {
			return nil, e
		}
		patch.DistrictID, patch.LocationID = clearable(d), clearable(l)
	}

	if err := u.store.UpdateUser(target.ID, patch); err != nil {
		return nil, api.FromStore(err, "user")
	}
	updated, err := u.store.GetUserByID(target.ID)
	if err != nil {
		return nil, api.FromStore(err, "user")
	}
	return packets.NewUserResponse(*updated), nil
}

// DELETE /api/users/:id deactivates the profile; rows it created stay.
func (u *UserController) deactivateUser(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	target, e := u.loadUser(ctx, user)
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.UserTarget(*target), model.RoleSuperAdmin) {
		return nil, api.Forbidden("only super admins can manage users")
	}
	if target.ID == user.ID {
		return nil, api.BadRequest("you cannot deactivate yourself")
	}
	inactive := false
	if err := u.store.UpdateUser(target.ID, db.UserPatch{IsActive: &inactive}); err != nil {
		return nil, api.FromStore(err, "user")
	}
	log.Info().Str("user_id", target.ID).Str("by", user.ID).Msg("user deactivated")
	return gin.H{"success": true}, nil
}

// clearable maps nil to "" so the store clears the column.
func clearable(id *string) *string {
	if id == nil {
		empty := ""
		return &empty
	}
	return id
}
