package endpoints

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/mesophy/internal/access"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// Notifier is told about every mutation a player could care about.
type Notifier interface {
	PlaylistChanged(orgID, playlistID, action string, screenIDs ...string)
	ScheduleChanged(sc model.Schedule, action string)
	MediaChanged(orgID, mediaID, action string)
	ScreenUpdated(screenID, action string)
}

func bindJSON(ctx *gin.Context, dst any) *api.APIError {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		return &api.APIError{Code: http.StatusBadRequest, Message: "invalid request body", Details: err.Error()}
	}
	return nil
}

// sameOrg hides rows of other organizations behind a 404.
func sameOrg(user *model.User, orgID string, what string) *api.APIError {
	if user.OrganizationID != orgID {
		return api.NotFound(what)
	}
	return nil
}

// canWriteOrgLevel guards media, folders, playlists and schedules.
func canWriteOrgLevel(user *model.User) *api.APIError {
	if !access.CanWrite(user, access.OrgTarget(user.OrganizationID), model.RoleDistrictManager) {
		return api.Forbidden("insufficient role")
	}
	return nil
}

func queryString(ctx *gin.Context, key string) *string {
	v := strings.TrimSpace(ctx.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

// queryLimit reads ?limit, clamped to 1..max.
func queryLimit(ctx *gin.Context, def, max int) int {
	n, err := strconv.Atoi(ctx.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// emptyToNil turns a cleared optional field into NULL on insert.
func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
