// Package access decides whether a dashboard user may see or change a row,
// following the role dominance super_admin ⊇ district_manager ⊇ location_manager.
package access

import (
	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// Target is where a row sits in the hierarchy. Org-level rows (media,
// playlists, schedules) leave DistrictID and LocationID nil.
type Target struct {
	OrganizationID string
	DistrictID     *string
	LocationID     *string
}

func OrgTarget(orgID string) Target {
	return Target{OrganizationID: orgID}
}

func DistrictTarget(d model.District) Target {
	return Target{OrganizationID: d.OrganizationID, DistrictID: &d.ID}
}

func LocationTarget(l model.Location) Target {
	return Target{OrganizationID: l.OrganizationID, DistrictID: &l.DistrictID, LocationID: &l.ID}
}

func ScreenTarget(s model.Screen) Target {
	return Target{OrganizationID: s.OrganizationID, DistrictID: &s.DistrictID, LocationID: &s.LocationID}
}

func UserTarget(u model.User) Target {
	return Target{OrganizationID: u.OrganizationID, DistrictID: u.DistrictID, LocationID: u.LocationID}
}

func rank(r model.Role) int {
	switch r {
	case model.RoleSuperAdmin:
		return 3
	case model.RoleDistrictManager:
		return 2
	case model.RoleLocationManager:
		return 1
	}
	return 0
}

// AtLeast reports whether role r is min or above it.
func AtLeast(r, min model.Role) bool {
	return rank(r) > 0 && rank(r) >= rank(min)
}

func same(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// Dominates reports whether the user's own scope covers t.
func Dominates(u *model.User, t Target) bool {
	if u == nil || !u.IsActive || u.OrganizationID != t.OrganizationID {
		return false
	}
	switch u.Role {
	case model.RoleSuperAdmin:
		return true
	case model.RoleDistrictManager:
		return same(u.DistrictID, t.DistrictID)
	case model.RoleLocationManager:
		return same(u.LocationID, t.LocationID)
	}
	return false
}

// Visible reports whether the user may read t: either it dominates t, or t is
// an ancestor of the user's own district/location.
func Visible(u *model.User, t Target) bool {
	if Dominates(u, t) {
		return true
	}
	if u == nil || !u.IsActive || u.OrganizationID != t.OrganizationID {
		return false
	}
	// org-level rows are shared across the organization
	if t.DistrictID == nil && t.LocationID == nil {
		return true
	}
	if t.LocationID == nil && same(u.DistrictID, t.DistrictID) {
		return true
	}
	return false
}

// CanWrite reports whether the user dominates t and holds at least min.
// For org-level targets every role that meets min may write.
func CanWrite(u *model.User, t Target, min model.Role) bool {
	if u == nil || !AtLeast(u.Role, min) {
		return false
	}
	if t.DistrictID == nil && t.LocationID == nil {
		return u.IsActive && u.OrganizationID == t.OrganizationID
	}
	return Dominates(u, t)
}

// matches no row; used when a manager has no assignment yet.
var unassigned = "00000000-0000-0000-0000-000000000000"

func orUnassigned(id *string) *string {
	if id == nil || *id == "" {
		return &unassigned
	}
	return id
}

// ListScope narrows list queries to what the user is allowed to see.
func ListScope(u *model.User) db.Scope {
	scope := db.Scope{OrganizationID: u.OrganizationID}
	switch u.Role {
	case model.RoleDistrictManager:
		scope.DistrictID = orUnassigned(u.DistrictID)
	case model.RoleLocationManager:
		scope.LocationID = orUnassigned(u.LocationID)
	}
	return scope
}
