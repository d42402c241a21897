package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

func ptr(s string) *string { return &s }

var (
	northLocation = model.Location{ID: "loc-n1", DistrictID: "dist-n", OrganizationID: "org-1"}
	southLocation = model.Location{ID: "loc-s1", DistrictID: "dist-s", OrganizationID: "org-1"}
	northScreen   = model.Screen{ID: "scr-1", LocationID: "loc-n1", DistrictID: "dist-n", OrganizationID: "org-1"}
)

func admin() *model.User {
	return &model.User{ID: "u-admin", Role: model.RoleSuperAdmin, OrganizationID: "org-1", IsActive: true}
}

func districtManager() *model.User {
	return &model.User{ID: "u-dm", Role: model.RoleDistrictManager, OrganizationID: "org-1",
		DistrictID: ptr("dist-n"), IsActive: true}
}

func locationManager() *model.User {
	return &model.User{ID: "u-lm", Role: model.RoleLocationManager, OrganizationID: "org-1",
		DistrictID: ptr("dist-n"), LocationID: ptr("loc-n1"), IsActive: true}
}

func TestAtLeast(t *testing.T) {
	assert.True(t, AtLeast(model.RoleSuperAdmin, model.RoleLocationManager))
	assert.True(t, AtLeast(model.RoleDistrictManager, model.RoleDistrictManager))
	assert.False(t, AtLeast(model.RoleLocationManager, model.RoleDistrictManager))
	assert.False(t, AtLeast(model.Role("guest"), model.RoleLocationManager))
}

func TestDominates(t *testing.T) {
	screen := ScreenTarget(northScreen)

	assert.True(t, Dominates(admin(), screen))
	assert.True(t, Dominates(districtManager(), screen))
	assert.True(t, Dominates(locationManager(), screen))

	south := LocationTarget(southLocation)
	assert.True(t, Dominates(admin(), south))
	assert.False(t, Dominates(districtManager(), south))
	assert.False(t, Dominates(locationManager(), south))
}

func TestDominatesRejectsOtherOrganization(t *testing.T) {
	other := admin()
	other.OrganizationID = "org-2"
	assert.False(t, Dominates(other, ScreenTarget(northScreen)))
	assert.False(t, Visible(other, OrgTarget("org-1")))
}

func TestDominatesRejectsInactive(t *testing.T) {
	u := admin()
	u.IsActive = false
	assert.False(t, Dominates(u, ScreenTarget(northScreen)))
	assert.False(t, Dominates(nil, ScreenTarget(northScreen)))
}

func TestVisibleAncestors(t *testing.T) {
	lm := locationManager()

	assert.True(t, Visible(lm, DistrictTarget(model.District{ID: "dist-n", OrganizationID: "org-1"})))
	assert.False(t, Visible(lm, DistrictTarget(model.District{ID: "dist-s", OrganizationID: "org-1"})))
	assert.False(t, Visible(lm, LocationTarget(model.Location{ID: "loc-n2", DistrictID: "dist-n", OrganizationID: "org-1"})))
	assert.True(t, Visible(lm, OrgTarget("org-1")))
}

func TestCanWrite(t *testing.T) {
	district := DistrictTarget(model.District{ID: "dist-n", OrganizationID: "org-1"})

	assert.True(t, CanWrite(admin(), district, model.RoleSuperAdmin))
	assert.False(t, CanWrite(districtManager(), district, model.RoleSuperAdmin))
	assert.True(t, CanWrite(districtManager(), LocationTarget(northLocation), model.RoleDistrictManager))
	assert.False(t, CanWrite(locationManager(), LocationTarget(northLocation), model.RoleDistrictManager))
	assert.True(t, CanWrite(locationManager(), ScreenTarget(northScreen), model.RoleLocationManager))

	org := OrgTarget("org-1")
	assert.True(t, CanWrite(districtManager(), org, model.RoleDistrictManager))
	assert.False(t, CanWrite(locationManager(), org, model.RoleDistrictManager))
}

func TestListScope(t *testing.T) {
	s := ListScope(admin())
	assert.Equal(t, "org-1", s.OrganizationID)
	assert.Nil(t, s.DistrictID)
	assert.Nil(t, s.LocationID)

	s = ListScope(districtManager())
	require.NotNil(t, s.DistrictID)
	assert.Equal(t, "dist-n", *s.DistrictID)
	assert.Nil(t, s.LocationID)

	s = ListScope(locationManager())
	assert.Nil(t, s.DistrictID)
	require.NotNil(t, s.LocationID)
	assert.Equal(t, "loc-n1", *s.LocationID)
}

func TestListScopeUnassignedManagerSeesNothing(t *testing.T) {
	u := districtManager()
	u.DistrictID = nil

	s := ListScope(u)
	require.NotNil(t, s.DistrictID)
	assert.Equal(t, unassigned, *s.DistrictID)
}
