package endpoints

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/access"
	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type HierarchyController struct {
	store db.Store
}

func newHierarchyController(store db.Store) *HierarchyController {
	return &HierarchyController{store: store}
}

// HierarchyModule mounts the /districts and /locations endpoints.
func HierarchyModule(store db.Store) api.Module {
	ctl := newHierarchyController(store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/districts", ctl.listDistricts)
		c.POST("/districts", ctl.createDistrict)
		c.GET("/districts/:id", ctl.getDistrict)
		c.PUT("/districts/:id", ctl.updateDistrict)
		c.DELETE("/districts/:id", ctl.deleteDistrict)

		c.GET("/locations", ctl.listLocations)
		c.POST("/locations", ctl.createLocation)
		c.GET("/locations/:id", ctl.getLocation)
		c.PUT("/locations/:id", ctl.updateLocation)
		c.DELETE("/locations/:id", ctl.deleteLocation)
	})
}

// checkManager makes sure a manager being assigned belongs to the organization.
func (h *HierarchyController) checkManager(orgID string, managerID *string) *api.APIError {
	if managerID == nil || *managerID == "" {
		return nil
	}
	m, err := h.store.GetUserByID(*managerID)
	if err != nil || m.OrganizationID != orgID {
		return api.BadRequest("manager must be a user of the organization")
	}
	return nil
}

// GET /api/districts
func (h *HierarchyController) listDistricts(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	districts, err := h.store.ListDistricts(access.ListScope(user))
	if err != nil {
		return nil, api.FromStore(err, "districts")
	}
	return districts, nil
}

// POST /api/districts
func (h *HierarchyController) createDistrict(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if !access.CanWrite(user, access.OrgTarget(user.OrganizationID), model.RoleSuperAdmin) {
		return nil, api.Forbidden("only super admins can create districts")
	}
	var req packets.CreateDistrictRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if e := h.checkManager(user.OrganizationID, req.ManagerID); e != nil {
		return nil, e
	}

	d, err := h.store.CreateDistrict(model.District{
		OrganizationID: user.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		ManagerID:      emptyToNil(req.ManagerID),
	})
	if err != nil {
		return nil, api.FromStore(err, "district")
	}
	log.Info().Str("district_id", d.ID).Str("user_id", user.ID).Msg("district created")
	return api.Created(d), nil
}

func (h *HierarchyController) loadDistrict(ctx *gin.Context, user *model.User) (model.District, *api.APIError) {
	d, err := h.store.GetDistrict(ctx.Param("id"))
	if err != nil {
		return d, api.FromStore(err, "district")
	}
	if e := sameOrg(user, d.OrganizationID, "district"); e != nil {
		return d, e
	}
	if !access.Visible(user, access.DistrictTarget(d)) {
		return d, api.Forbidden("district is outside your scope")
	}
	return d, nil
}

// GET /api/districts/:id
func (h *HierarchyController) getDistrict(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	d, e := h.loadDistrict(ctx, user)
	if e != nil {
		return nil, e
	}
	return d, nil
}

// PUT /api/districts/:id
func (h *HierarchyController) updateDistrict(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	d, e := h.loadDistrict(ctx, user)
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.DistrictTarget(d), model.RoleSuperAdmin) {
		return nil, api.Forbidden("only super admins can change districts")
	}
	var req packets.UpdateDistrictRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if e := h.checkManager(d.OrganizationID, req.ManagerID); e != nil {
		return nil, e
	}

	if err := h.store.UpdateDistrict(d.ID, db.DistrictPatch{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
	}); err != nil {
		return nil, api.FromStore(err, "district")
	}
	updated, err := h.store.GetDistrict(d.ID)
	if err != nil {
		return nil, api.FromStore(err, "district")
	}
	return updated, nil
}

// DELETE /api/districts/:id
func (h *HierarchyController) deleteDistrict(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	d, e := h.loadDistrict(ctx, user)
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.DistrictTarget(d), model.RoleSuperAdmin) {
		return nil, api.Forbidden("only super admins can delete districts")
	}
	n, err := h.store.CountLocationsInDistrict(d.ID)
	if err != nil {
		return nil, api.FromStore(err, "district")
	}
	if n > 0 {
		return nil, api.Conflict("district still has locations")
	}
	if err := h.store.DeleteDistrict(d.ID); err != nil {
		return nil, api.FromStore(err, "district")
	}
	log.Info().Str("district_id", d.ID).Str("user_id", user.ID).Msg("district deleted")
	return gin.H{"success": true}, nil
}

// GET /api/locations[?district_id=]
func (h *HierarchyController) listLocations(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	scope := access.ListScope(user)
	if districtID := queryString(ctx, "district_id"); districtID != nil {
		// a narrower district filter only applies inside the caller's scope
		if scope.DistrictID != nil && *scope.DistrictID != *districtID {
			return []model.Location{}, nil
		}
		scope.DistrictID = districtID
	}
	locations, err := h.store.ListLocations(scope)
	if err != nil {
		return nil, api.FromStore(err, "locations")
	}
	return locations, nil
}

// POST /api/locations
func (h *HierarchyController) createLocation(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.CreateLocationRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	d, err := h.store.GetDistrict(req.DistrictID)
	if err != nil || d.OrganizationID != user.OrganizationID {
		return nil, api.BadRequest("district not found in organization")
	}
	if !access.CanWrite(user, access.DistrictTarget(d), model.RoleDistrictManager) {
		return nil, api.Forbidden("district is outside your scope")
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, api.BadRequest("unknown timezone")
		}
	}
	if e := h.checkManager(user.OrganizationID, req.ManagerID); e != nil {
		return nil, e
	}

	l, err := h.store.CreateLocation(model.Location{
		DistrictID: d.ID,
		Name:       req.Name,
		Address:    req.Address,
		Timezone:   req.Timezone,
		ManagerID:  emptyToNil(req.ManagerID),
	})
	if err != nil {
		return nil, api.FromStore(err, "location")
	}
	log.Info().Str("location_id", l.ID).Str("district_id", d.ID).Msg("location created")
	return api.Created(l), nil
}

func (h *HierarchyController) loadLocation(ctx *gin.Context, user *model.User) (model.Location, *api.APIError) {
	l, err := h.store.GetLocation(ctx.Param("id"))
	if err != nil {
		return l, api.FromStore(err, "location")
	}
	if e := sameOrg(user, l.OrganizationID, "location"); e != nil {
		return l, e
	}
	if !access.Visible(user, access.LocationTarget(l)) {
		return l, api.Forbidden("location is outside your scope")
	}
	return l, nil
}

// GET /api/locations/:id
func (h *HierarchyController) getLocation(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	l, e := h.loadLocation(ctx, user)
	if e != nil {
		return nil, e
	}
	return l, nil
}

// PUT /api/locations/:id
func (h *HierarchyController) updateLocation(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	l, e := h.loadLocation(ctx, user)
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.LocationTarget(l), model.RoleDistrictManager) {
		return nil, api.Forbidden("location is outside your scope")
	}
	var req packets.UpdateLocationRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, api.BadRequest("unknown timezone")
		}
	}
	if e := h.checkManager(l.OrganizationID, req.ManagerID); e != nil {
		return nil, e
	}

	if err := h.store.UpdateLocation(l.ID, db.LocationPatch{
		Name:      req.Name,
		Address:   req.Address,
		Timezone:  req.Timezone,
		ManagerID: req.ManagerID,
		IsActive:  req.IsActive,
	}); err != nil {
		return nil, api.FromStore(err, "location")
	}
	updated, err := h.store.GetLocation(l.ID)
	if err != nil {
		return nil, api.FromStore(err, "location")
	}
	return updated, nil
}

// DELETE /api/locations/:id
func (h *HierarchyController) deleteLocation(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	l, e := h.loadLocation(ctx, user)
	if e != nil {
		return nil, e
	}
	if !access.CanWrite(user, access.LocationTarget(l), model.RoleDistrictManager) {
		return nil, api.Forbidden("location is outside your scope")
	}
	n, err := h.store.CountScreensAtLocation(l.ID)
	if err != nil {
		return nil, api.FromStore(err, "location")
	}
	if n > 0 {
		return nil, api.Conflict("location still has screens")
	}
	if err := h.store.DeleteLocation(l.ID); err != nil {
		return nil, api.FromStore(err, "location")
	}
	log.Info().Str("location_id", l.ID).Str("user_id", user.ID).Msg("location deleted")
	return gin.H{"success": true}, nil
}
