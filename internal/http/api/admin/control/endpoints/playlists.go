package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type PlaylistController struct {
	store    db.Store
	notifier Notifier
}

func newPlaylistController(store db.Store, notifier Notifier) *PlaylistController {
	return &PlaylistController{store: store, notifier: notifier}
}

// PlaylistModule mounts all authenticated /playlists endpoints.
func PlaylistModule(store db.Store, notifier Notifier) api.Module {
	ctl := newPlaylistController(store, notifier)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/playlists", ctl.listPlaylists)
		c.POST("/playlists", ctl.createPlaylist)
		c.GET("/playlists/:id", ctl.getPlaylist)
		c.PUT("/playlists/:id", ctl.updatePlaylist)
		c.DELETE("/playlists/:id", ctl.deletePlaylist)

		c.GET("/playlists/:id/items", ctl.listItems)
		c.POST("/playlists/:id/items", ctl.addItem)
		c.PUT("/playlists/:id/items", ctl.reorderItems)
		c.PUT("/playlists/:id/items/:item_id", ctl.updateItem)
		c.DELETE("/playlists/:id/items/:item_id", ctl.removeItem)
	})
}

// GET /api/playlists
func (p *PlaylistController) listPlaylists(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	playlists, err := p.store.ListPlaylists(user.OrganizationID)
	if err != nil {
		return nil, api.FromStore(err, "playlists")
	}
	return playlists, nil
}

// POST /api/playlists
func (p *PlaylistController) createPlaylist(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.CreatePlaylistRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	pl, err := p.store.CreatePlaylist(model.Playlist{
		OrganizationID: user.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		LoopMode:       req.LoopMode,
		CreatedBy:      user.ID,
	})
	if err != nil {
		return nil, api.FromStore(err, "playlist")
	}
	log.Info().Str("playlist_id", pl.ID).Str("user_id", user.ID).Msg("playlist created")
	return api.Created(pl), nil
}

// loadPlaylist fetches the playlist with its items.
func (p *PlaylistController) loadPlaylist(ctx *gin.Context, user *model.User) (model.Playlist, *api.APIError) {
	pl, err := p.store.GetPlaylistByID(ctx.Param("id"))
	if err != nil {
		return pl, api.FromStore(err, "playlist")
	}
	return pl, sameOrg(user, pl.OrganizationID, "playlist")
}

// GET /api/playlists/:id
func (p *PlaylistController) getPlaylist(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	pl, e := p.loadPlaylist(ctx, user)
	if e != nil {
		return nil, e
	}
	return pl, nil
}

// PUT /api/playlists/:id
func (p *PlaylistController) updatePlaylist(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	pl, e := p.loadPlaylist(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.UpdatePlaylistRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}
	if err := p.store.UpdatePlaylist(pl.ID, db.PlaylistPatch{
		Name:        req.Name,
		Description: req.Description,
		LoopMode:    req.LoopMode,
		IsActive:    req.IsActive,
	}); err != nil {
		return nil, api.FromStore(err, "playlist")
	}
	updated, err := p.store.GetPlaylistByID(pl.ID)
	if err != nil {
		return nil, api.FromStore(err, "playlist")
	}
	p.notifier.PlaylistChanged(pl.OrganizationID, pl.ID, "updated")
	return updated, nil
}

// DELETE /api/playlists/:id
func (p *PlaylistController) deletePlaylist(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	pl, e := p.loadPlaylist(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	n, err := p.store.CountSchedulesForPlaylist(pl.ID)
	if err != nil {
		return nil, api.FromStore(err, "playlist")
	}
	if n > 0 {
		return nil, api.Conflict("playlist is used by schedules")
	}
	if err := p.store.DeletePlaylist(pl.ID); err != nil {
		return nil, api.FromStore(err, "playlist")
	}
	log.Info().Str("playlist_id", pl.ID).Str("user_id", user.ID).Msg("playlist deleted")
	return gin.H{"success": true}, nil
}

// GET /api/playlists/:id/items
func (p *PlaylistController) listItems(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	pl, e := p.loadPlaylist(ctx, user)
	if e != nil {
		return nil, e
	}
	if pl.Items == nil {
		return []model.PlaylistItem{}, nil
	}
	return pl.Items, nil
}

// POST /api/playlists/:id/items
func (p *PlaylistController) addItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	pl, e := p.loadPlaylist(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.AddPlaylistItemRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}

	asset, err := p.store.GetMediaByID(req.MediaAssetID)
	if err != nil || asset.OrganizationID != pl.OrganizationID || !asset.IsActive {
		return nil, api.BadRequest("media asset not found in organization")
	}

	item, err := p.store.InsertPlaylistItem(model.PlaylistItem{
		PlaylistID:       pl.ID,
		MediaAssetID:     asset.ID,
		DurationOverride: req.DurationOverride,
		TransitionType:   req.TransitionType,
	}, req.Position)
	if err != nil {
		log.Error().Err(err).Str("playlist_id", pl.ID).Msg("[playlist] add item failed")
		return nil, api.FromStore(err, "playlist item")
	}
	item.Media = &asset

	p.notifier.PlaylistChanged(pl.OrganizationID, pl.ID, "item_added")
	return api.Created(item), nil
}

// PUT /api/playlists/:id/items/:item_id
func (p *PlaylistController) updateItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	pl, e := p.loadPlaylist(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	item, err := p.store.GetPlaylistItem(pl.ID, ctx.Param("item_id"))
	if err != nil {
		return nil, api.FromStore(err, "playlist item")
	}
	var req packets.UpdatePlaylistItemRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}

	if err := p.store.UpdatePlaylistItem(item.ID, req.DurationOverride, req.TransitionType); err != nil {
		return nil, api.FromStore(err, "playlist item")
	}
	updated, err := p.store.GetPlaylistItem(pl.ID, item.ID)
	if err != nil {
		return nil, api.FromStore(err, "playlist item")
	}
	p.notifier.PlaylistChanged(pl.OrganizationID, pl.ID, "item_updated")
	return updated, nil
}

// DELETE /api/playlists/:id/items/:item_id
func (p *PlaylistController) removeItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	pl, e := p.loadPlaylist(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	if err := p.store.RemovePlaylistItem(pl.ID, ctx.Param("item_id")); err != nil {
		return nil, api.FromStore(err, "playlist item")
	}
	p.notifier.PlaylistChanged(pl.OrganizationID, pl.ID, "item_removed")
	return gin.H{"success": true}, nil
}

// PUT /api/playlists/:id/items {item_ids}
func (p *PlaylistController) reorderItems(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	pl, e := p.loadPlaylist(ctx, user)
	if e != nil {
		return nil, e
	}
	if e := canWriteOrgLevel(user); e != nil {
		return nil, e
	}
	var req packets.ReorderItemsRequest
	if e := bindJSON(ctx, &req); e != nil {
		return nil, e
	}

	if err := p.store.ReorderPlaylistItems(pl.ID, req.ItemIDs); err != nil {
		log.Error().Err(err).Str("playlist_id", pl.ID).Msg("[playlist] reorder failed")
		if e := api.FromStore(err, "item set"); e.Code == http.StatusBadRequest {
			e.Message = "item_ids must list every item of the playlist exactly once"
			return nil, e
		}
		return nil, api.FromStore(err, "playlist")
	}

	items, err := p.store.ListPlaylistItems(pl.ID)
	if err != nil {
		return nil, api.FromStore(err, "playlist items")
	}
	p.notifier.PlaylistChanged(pl.OrganizationID, pl.ID, "reordered")
	return items, nil
}
