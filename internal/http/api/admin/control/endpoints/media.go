package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/calendar"
	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
	"github.com/Nixie-Tech-LLC/mesophy/internal/storage"
)

// CalendarEvents lists what a calendar asset would display today.
type CalendarEvents interface {
	TodayEvents(ctx context.Context, asset model.MediaAsset) ([]calendar.Event, error)
}

type MediaController struct {
	store     db.Store
	notifier  Notifier
	processor *storage.MediaProcessor
	events    CalendarEvents
}

func newMediaController(store db.Store, notifier Notifier, processor *storage.MediaProcessor, events CalendarEvents) *MediaController {
	return &MediaController{store: store, notifier: notifier, processor: processor, events: events}
}

// MediaModule mounts /media and /media/folders. events may be nil when no
// calendar provider is configured.
func MediaModule(store db.Store, notifier Notifier, processor *storage.MediaProcessor, events CalendarEvents) api.Module {
	ctl := newMediaController(store, notifier, processor, events)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/media", ctl.listMedia)
		c.POST("/media", ctl.uploadMedia)
		c.POST("/media/youtube", ctl.createYouTube)
		c.POST("/media/calendar", ctl.createCalendar)
		c.GET("/media/:id", ctl.getMedia)
		c.PUT("/media/:id", ctl.updateMedia)
		c.DELETE("/media/:id", ctl.deleteMedia)
		c.GET("/media/:id/calendar-events", ctl.calendarEvents)

		c.GET("/media/folders", ctl.listFolders)
		c.POST("/media/folders", ctl.createFolder)
		c.GET("/media/folders/:id", ctl.getFolder)
		c.PUT("/media/folders/:id", ctl.updateFolder)
		c.DELETE("/media/folders/:id", ctl.deleteFolder)
	})
}

// GET /api/media[?folder_id=&media_type=&search=]
func (m *MediaController) listMedia(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	assets, err := m.store.ListMedia(db.MediaFilter{
		OrganizationID: user.OrganizationID,
		FolderID:       queryString(ctx, "folder_id"),
		MediaType:      queryString(ctx, "media_type"),
		Search:         queryString(ctx, "search"),
	})
	if err != nil {
		return nil, api.FromStore(err, "media")
	}
	return assets, nil
}

func (m *MediaController) checkFolder(user *model.User, folderID *string) *api.APIError {
	if folderID == nil || *folderID == "" {
		return nil
	}
	f, err := m.store.GetFolder(*folderID)
	if err != nil || f.OrganizationID != user.OrganizationID {
		return api.BadRequest("folder not found in organization")
	}
	return nil
}

// POST /api/media (multipart: file, name, folder_id, description, duration)
func (m *MediaController) uploadMedia(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		log.Warn().Err(err).Msg("[media] upload without file")
		return nil, api.BadRequest("file is required")
	}

	folderID := emptyToNil(optionalForm(ctx, "folder_id"))
	if e := m.checkFolder(user, folderID); e != nil {
		return nil, e
	}
	var duration *int
	if raw := strings.TrimSpace(ctx.PostForm("duration")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 {
			return nil, api.BadRequest("duration must be a positive number of seconds")
		}
		duration = &d
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, api.BadRequest("could not read upload")
	}
	defer f.Close()

	data, err := m.processor.ReadUpload(f, fileHeader.Size)
	if errors.Is(err, storage.ErrFileTooLarge) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error(),
			Details: "limit is " + strconv.FormatInt(m.processor.MaxBytes()>>20, 10) + " MB"}
	}
	if err != nil {
		return nil, api.Internal(err)
	}

	stored, err := m.processor.Process(ctx, user.OrganizationID, fileHeader.Filename, data,
		fileHeader.Header.Get("Content-Type"))
	if errors.Is(err, storage.ErrUnsupportedType) {
		return nil, api.BadRequest(err.Error())
	}
	if err != nil {
		return nil, api.Internal(err)
	}

	name := strings.TrimSpace(ctx.PostForm("name"))
	if name == "" {
		name = strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	}

	asset, err := m.store.CreateMedia(model.MediaAsset{
		OrganizationID: user.OrganizationID,
		FolderID:       folderID,
		Name:           name,
		Description:    emptyToNil(optionalForm(ctx, "description")),
		FileName:       stored.FileName,
		FilePath:       stored.Key,
		FileURL:        stored.URL,
		FileSize:       stored.Size,
		MimeType:       stored.MimeType,
		MediaType:      stored.MediaType,
		Duration:       duration,
		Width:          stored.Width,
		Height:         stored.Height,
		ThumbnailURL:   stored.ThumbnailURL,
		PreviewURL:     stored.PreviewURL,
		OptimizedURL:   stored.OptimizedURL,
		CreatedBy:      user.ID,
	})
	if err != nil {
		m.processor.Remove(context.WithoutCancel(ctx), stored)
		return nil, api.FromStore(err, "media")
	}

	log.Info().Str("media_id", asset.ID).Str("media_type", asset.MediaType).Int64("size", asset.FileSize).
		Msg("media uploaded")
	return api.Created(asset), nil
}

func optionalForm(ctx *gin.Context, key string) *string {
	v, ok := ctx.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

// POST /api/media/youtube
func (m *MediaController) createYouTube(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.CreateYouTubeRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if !isYouTubeURL(req.URL) {
		return nil, api.BadRequest("youtube_url must point to youtube.com or youtu.be")
	}
	if e := m.checkFolder(user, req.FolderID); e != nil {
		return nil, e
	}

	asset, err := m.store.CreateMedia(model.MediaAsset{
		OrganizationID: user.OrganizationID,
		FolderID:       emptyToNil(req.FolderID),
		Name:           req.Name,
		Description:    req.Description,
		FileName:       req.Name,
		FileURL:        req.URL,
		MimeType:       "video/youtube",
		MediaType:      model.MediaYouTube,
		Duration:       req.Duration,
		YouTubeURL:     &req.URL,
		Tags:           req.Tags,
		CreatedBy:      user.ID,
	})
	if err != nil {
		return nil, api.FromStore(err, "media")
	}
	return api.Created(asset), nil
}

func isYouTubeURL(raw string) bool {
	raw = strings.ToLower(raw)
	for _, host := range []string{"youtube.com/", "youtu.be/", "youtube-nocookie.com/"} {
		if strings.Contains(raw, host) {
			return true
		}
	}
	return false
}

// POST /api/media/calendar
func (m *MediaController) createCalendar(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.CreateCalendarRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if e := m.checkFolder(user, req.FolderID); e != nil {
		return nil, e
	}

	provider := req.Provider
	if provider == "" {
		provider = "microsoft"
	}
	meta, err := json.Marshal(model.CalendarMetadata{
		Provider:       provider,
		CalendarID:     req.CalendarID,
		CalendarName:   req.CalendarName,
		AccessToken:    req.AccessToken,
		RefreshToken:   req.RefreshToken,
		TokenExpiresAt: time.Now().Add(time.Duration(req.ExpiresIn) * time.Second).UTC(),
	})
	if err != nil {
		return nil, api.Internal(err)
	}

	asset, err := m.store.CreateMedia(model.MediaAsset{
		OrganizationID:   user.OrganizationID,
		FolderID:         emptyToNil(req.FolderID),
		Name:             req.Name,
		FileName:         req.Name,
		MimeType:         "application/calendar",
		MediaType:        model.MediaCalendar,
		Duration:         req.Duration,
		CalendarMetadata: meta,
		CreatedBy:        user.ID,
	})
	if err != nil {
		return nil, api.FromStore(err, "media")
	}
	log.Info().Str("media_id", asset.ID).Str("provider", provider).Msg("calendar connected")
	return api.Created(asset), nil
}

func (m *MediaController) loadMedia(ctx *gin.Context, user *model.User) (model.MediaAsset, *api.APIError) {
	asset, err := m.store.GetMediaByID(ctx.Param("id"))
	if err != nil {
		return asset, api.FromStore(err, "media")
	}
	if e := sameOrg(user, asset.OrganizationID, "media"); e != nil {
		return asset, e
	}
	if !asset.IsActive {
		return asset, api.NotFound("media")
	}
	return asset, nil
}

// GET /api/media/:id
func (m *MediaController) getMedia(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	asset, e := m.loadMedia(ctx, user)
	if e != nil {
		return nil, e
	}
	return asset, nil
}

// PUT /api/media/:id
func (m *MediaController) updateMedia(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	asset, e := m.loadMedia(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.UpdateMediaRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if e := m.checkFolder(user, req.FolderID); e != nil {
		return nil, e
	}

	if err := m.store.UpdateMedia(asset.ID, db.MediaPatch{
		Name:        req.Name,
		Description: req.Description,
		FolderID:    req.FolderID,
		Duration:    req.Duration,
		Tags:        req.Tags,
	}); err != nil {
		return nil, api.FromStore(err, "media")
	}
	updated, err := m.store.GetMediaByID(asset.ID)
	if err != nil {
		return nil, api.FromStore(err, "media")
	}
	m.notifier.MediaChanged(asset.OrganizationID, asset.ID, "updated")
	return updated, nil
}

// DELETE /api/media/:id soft-deletes an asset no playlist uses.
func (m *MediaController) deleteMedia(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	asset, e := m.loadMedia(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	n, err := m.store.CountPlaylistItemsForMedia(asset.ID)
	if err != nil {
		return nil, api.FromStore(err, "media")
	}
	if n > 0 {
		return nil, &api.APIError{Code: http.StatusConflict, Message: "media is used in playlists",
			Details: strconv.Itoa(n) + " playlist item(s) reference it"}
	}
	if err := m.store.DeactivateMedia(asset.ID); err != nil {
		return nil, api.FromStore(err, "media")
	}
	log.Info().Str("media_id", asset.ID).Str("user_id", user.ID).Msg("media deactivated")
	return gin.H{"success": true}, nil
}

// GET /api/media/:id/calendar-events
func (m *MediaController) calendarEvents(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if m.events == nil {
		return nil, api.Unavailable("calendar provider is not configured")
	}
	asset, e := m.loadMedia(ctx, user)
	if e != nil {
		return nil, e
	}
	events, err := m.events.TodayEvents(ctx, asset)
	switch {
	case errors.Is(err, calendar.ErrNotCalendar):
		return nil, api.BadRequest(err.Error())
	case errors.Is(err, calendar.ErrNotConnected):
		return nil, api.Conflict(err.Error())
	case err != nil:
		log.Error().Err(err).Str("media_id", asset.ID).Msg("failed to list calendar events")
		return nil, &api.APIError{Code: http.StatusBadGateway, ErrCode: "INTERNAL_ERROR", Message: "calendar provider request failed",
			Details: err.Error()}
	}
	return packets.CalendarEventsResponse{
		MediaID: asset.ID,
		Date:    time.Now().Format("2006-01-02"),
		Events:  events,
	}, nil
}

// GET /api/media/folders[?parent_id=]
func (m *MediaController) listFolders(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	folders, err := m.store.ListFolders(user.OrganizationID, queryString(ctx, "parent_id"))
	if err != nil {
		return nil, api.FromStore(err, "folders")
	}
	return folders, nil
}

// POST /api/media/folders
func (m *MediaController) createFolder(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.CreateFolderRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if e := m.checkFolder(user, req.ParentFolderID); e != nil {
		return nil, e
	}
	f, err := m.store.CreateFolder(model.MediaFolder{
		OrganizationID: user.OrganizationID,
		Name:           req.Name,
		ParentFolderID: emptyToNil(req.ParentFolderID),
		CreatedBy:      user.ID,
	})
	if err != nil {
		return nil, api.FromStore(err, "folder")
	}
	return api.Created(f), nil
}

func (m *MediaController) loadFolder(ctx *gin.Context, user *model.User) (model.MediaFolder, *api.APIError) {
	f, err := m.store.GetFolder(ctx.Param("id"))
	if err != nil {
		return f, api.FromStore(err, "folder")
	}
	return f, sameOrg(user, f.OrganizationID, "folder")
}

// GET /api/media/folders/:id
func (m *MediaController) getFolder(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	f, e := m.loadFolder(ctx, user)
	if e != nil {
		return nil, e
	}
	return f, nil
}

// PUT /api/media/folders/:id
func (m *MediaController) updateFolder(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	f, e := m.loadFolder(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.UpdateFolderRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if req.ParentFolderID != nil && *req.ParentFolderID != "" {
		if e := m.checkFolder(user, req.ParentFolderID); e != nil {
			return nil, e
		}
		if cyclic, err := m.wouldCycle(f.ID, *req.ParentFolderID); err != nil {
			return nil, api.FromStore(err, "folder")
		} else if cyclic {
			return nil, api.BadRequest("a folder cannot be moved into itself")
		}
	}

	if err := m.store.UpdateFolder(f.ID, req.Name, req.ParentFolderID); err != nil {
		return nil, api.FromStore(err, "folder")
	}
	updated, err := m.store.GetFolder(f.ID)
	if err != nil {
		return nil, api.FromStore(err, "folder")
	}
	return updated, nil
}

// wouldCycle walks up from parentID looking for folderID.
func (m *MediaController) wouldCycle(folderID, parentID string) (bool, error) {
	seen := map[string]bool{}
	for id := parentID; id != ""; {
		if id == folderID {
			return true, nil
		}
		if seen[id] {
			return true, nil
		}
		seen[id] = true
		p, err := m.store.GetFolder(id)
		if err != nil {
			return false, err
		}
		if p.ParentFolderID == nil {
			break
		}
		id = *p.ParentFolderID
	}
	return false, nil
}

// DELETE /api/media/folders/:id
func (m *MediaController) deleteFolder(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	f, e := m.loadFolder(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	n, err := m.store.CountFolderDependents(f.ID)
	if err != nil {
		return nil, api.FromStore(err, "folder")
	}
	if n > 0 {
		return nil, api.Conflict("folder is not empty")
	}
	if err := m.store.DeleteFolder(f.ID); err != nil {
		return nil, api.FromStore(err, "folder")
	}
	return gin.H{"success": true}, nil
}
