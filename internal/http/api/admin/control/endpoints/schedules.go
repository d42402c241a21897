package endpoints

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type ScheduleController struct {
	store    db.Store
	notifier Notifier
}

func newScheduleController(store db.Store, notifier Notifier) *ScheduleController {
	return &ScheduleController{store: store, notifier: notifier}
}

func ScheduleModule(store db.Store, notifier Notifier) api.Module {
	ctl := newScheduleController(store, notifier)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/schedules", ctl.listSchedules)
		c.POST("/schedules", ctl.createSchedule)
		c.GET("/schedules/:id", ctl.getSchedule)
		c.PUT("/schedules/:id", ctl.updateSchedule)
		c.DELETE("/schedules/:id", ctl.deleteSchedule)

		// screens the schedule currently targets
		c.GET("/schedules/:id/screens", ctl.listTargetedScreens)
	})
}

// GET /api/schedules[?screen_id=]
func (s *ScheduleController) listSchedules(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	list, err := s.store.ListSchedules(user.OrganizationID, queryString(ctx, "screen_id"))
	if err != nil {
		return nil, api.FromStore(err, "schedules")
	}
	return list, nil
}

// checkRefs makes sure the playlist and pinned screen belong to the organization.
func (s *ScheduleController) checkRefs(orgID, playlistID string, screenID *string) *api.APIError {
	pl, err := s.store.GetPlaylistByID(playlistID)
	if err != nil || pl.OrganizationID != orgID {
		return api.BadRequest("playlist not found in organization")
	}
	if screenID != nil && *screenID != "" {
		screen, err := s.store.GetScreenByID(*screenID)
		if err != nil || screen.OrganizationID != orgID {
			return api.BadRequest("screen not found in organization")
		}
	}
	return nil
}

// checkWindow rejects ranges that could never match. Times are "HH:MM" and
// dates "YYYY-MM-DD", so string order is chronological.
func checkWindow(sc model.Schedule) *api.APIError {
	if sc.EndTime < sc.StartTime {
		return api.BadRequest("end_time must not be before start_time")
	}
	if sc.EndDate != nil && *sc.EndDate < sc.StartDate {
		return api.BadRequest("end_date must not be before start_date")
	}
	return nil
}

// POST /api/schedules
func (s *ScheduleController) createSchedule(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.CreateScheduleRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if e := s.checkRefs(user.OrganizationID, req.PlaylistID, req.ScreenID); e != nil {
		return nil, e
	}

	sc := model.Schedule{
		OrganizationID:    user.OrganizationID,
		Name:              req.Name,
		PlaylistID:        req.PlaylistID,
		ScreenID:          emptyToNil(req.ScreenID),
		TargetScreenTypes: req.TargetScreenTypes,
		StartDate:         req.StartDate,
		EndDate:           emptyToNil(req.EndDate),
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		DaysOfWeek:        req.DaysOfWeek,
		Priority:          req.Priority,
		IsActive:          req.IsActive == nil || *req.IsActive,
		CreatedBy:         user.ID,
	}
	if e := checkWindow(sc); e != nil {
		return nil, e
	}

	created, err := s.store.CreateSchedule(sc)
	if err != nil {
		return nil, api.FromStore(err, "schedule")
	}
	log.Info().Str("schedule_id", created.ID).Str("playlist_id", created.PlaylistID).Msg("schedule created")
	if created.IsActive {
		s.notifier.ScheduleChanged(created, "created")
	}
	return api.Created(created), nil
}

func (s *ScheduleController) loadSchedule(ctx *gin.Context, user *model.User) (model.Schedule, *api.APIError) {
	sc, err := s.store.GetScheduleByID(ctx.Param("id"))
	if err != nil {
		return sc, api.FromStore(err, "schedule")
	}
	return sc, sameOrg(user, sc.OrganizationID, "schedule")
}

// GET /api/schedules/:id
func (s *ScheduleController) getSchedule(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	sc, e := s.loadSchedule(ctx, user)
	if e != nil {
		return nil, e
	}
	return sc, nil
}

// PUT /api/schedules/:id
func (s *ScheduleController) updateSchedule(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	before, e := s.loadSchedule(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.UpdateScheduleRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}

	// validate the merged result before writing
	merged := before
	if req.PlaylistID != nil {
		merged.PlaylistID = *req.PlaylistID
	}
	if req.ScreenID != nil {
		merged.ScreenID = emptyToNil(req.ScreenID)
	}
	if req.StartDate != nil {
		merged.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		merged.EndDate = emptyToNil(req.EndDate)
		if merged.EndDate != nil && !isDate(*merged.EndDate) {
			return nil, api.BadRequest("end_date must be YYYY-MM-DD")
		}
	}
	if req.StartTime != nil {
		merged.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		merged.EndTime = *req.EndTime
	}
	if e := checkWindow(merged); e != nil {
		return nil, e
	}
	if req.PlaylistID != nil || req.ScreenID != nil {
		if e := s.checkRefs(before.OrganizationID, merged.PlaylistID, merged.ScreenID); e != nil {
			return nil, e
		}
	}

	if err := s.store.UpdateSchedule(before.ID, db.SchedulePatch{
		Name:              req.Name,
		PlaylistID:        req.PlaylistID,
		ScreenID:          req.ScreenID,
		TargetScreenTypes: req.TargetScreenTypes,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		DaysOfWeek:        req.DaysOfWeek,
		Priority:          req.Priority,
		IsActive:          req.IsActive,
	}); err != nil {
		return nil, api.FromStore(err, "schedule")
	}
	after, err := s.store.GetScheduleByID(before.ID)
	if err != nil {
		return nil, api.FromStore(err, "schedule")
	}

	s.notifier.ScheduleChanged(after, "updated")
	if retargeted(before, after) {
		// screens that lost the schedule need to hear about it too
		s.notifier.ScheduleChanged(before, "retargeted")
	}
	return after, nil
}

func retargeted(before, after model.Schedule) bool {
	if (before.ScreenID == nil) != (after.ScreenID == nil) {
		return true
	}
	if before.ScreenID != nil && *before.ScreenID != *after.ScreenID {
		return true
	}
	return !slices.Equal(before.TargetScreenTypes, after.TargetScreenTypes)
}

func isDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// DELETE /api/schedules/:id
func (s *ScheduleController) deleteSchedule(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	sc, e := s.loadSchedule(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	if err := s.store.DeleteSchedule(sc.ID); err != nil {
		return nil, api.FromStore(err, "schedule")
	}
	log.Info().Str("schedule_id", sc.ID).Str("user_id", user.ID).Msg("schedule deleted")
	s.notifier.ScheduleChanged(sc, "deleted")
	return gin.H{"success": true}, nil
}

// GET /api/schedules/:id/screens
func (s *ScheduleController) listTargetedScreens(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	sc, e := s.loadSchedule(ctx, user)
	if e != nil {
		return nil, e
	}
	ids, err := s.store.ScreenIDsForSchedule(sc)
	if err != nil {
		return nil, api.FromStore(err, "schedule screens")
	}
	return gin.H{"schedule_id": sc.ID, "screen_ids": ids}, nil
}
