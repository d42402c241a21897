package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type PlaylistPatch struct {
	Name        *string
	Description *string
	LoopMode    *string
	IsActive    *bool
}

const playlistColumns = `id, organization_id, name, description, loop_mode, is_active,
	created_by, created_at, updated_at`

const itemColumns = `id, playlist_id, media_asset_id, order_index, duration_override,
	transition_type, created_at`

// @ PLAYLIST
func (s *pgStore) ListPlaylists(orgID string) ([]model.Playlist, error) {
	out := []model.Playlist{}
	err := s.db.Select(&out, `
		SELECT `+playlistColumns+`
		FROM playlists
		WHERE organization_id = $1
		ORDER BY name`, orgID)
	if err != nil {
		log.Error().Err(err).Str("organization_id", orgID).Msg("failed to list playlists")
		return nil, fmt.Errorf("list playlists: %w", mapError(err))
	}
	return out, nil
}

// GetPlaylistByID loads the playlist with its items and their media.
func (s *pgStore) GetPlaylistByID(id string) (model.Playlist, error) {
	var p model.Playlist
	if err := s.db.Get(&p, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id); err != nil {
		return model.Playlist{}, fmt.Errorf("get playlist: %w", mapError(err))
	}

	items, err := s.ListPlaylistItems(id)
	if err != nil {
		return model.Playlist{}, err
	}
	p.Items = items
	return p, nil
}

func (s *pgStore) CreatePlaylist(p model.Playlist) (model.Playlist, error) {
	var out model.Playlist
	err := s.db.Get(&out, `
		INSERT INTO playlists (organization_id, name, description, loop_mode, created_by)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'loop'), $5)
		RETURNING `+playlistColumns,
		p.OrganizationID, p.Name, p.Description, p.LoopMode, p.CreatedBy)
	if err != nil {
		log.Error().Err(err).Str("organization_id", p.OrganizationID).Msg("failed to insert playlist")
		return model.Playlist{}, fmt.Errorf("create playlist: %w", mapError(err))
	}
	out.Items = []model.PlaylistItem{}
	return out, nil
}

func (s *pgStore) UpdatePlaylist(id string, patch PlaylistPatch) error {
	res, err := s.db.Exec(`
		UPDATE playlists
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    loop_mode   = COALESCE($4, loop_mode),
		    is_active   = COALESCE($5, is_active),
		    updated_at  = now()
		WHERE id = $1`,
		id, patch.Name, patch.Description, patch.LoopMode, patch.IsActive)
	if err != nil {
		log.Error().Err(err).Str("playlist_id", id).Msg("failed to update playlist")
		return fmt.Errorf("update playlist: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) DeletePlaylist(id string) error {
	res, err := s.db.Exec(`DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Str("playlist_id", id).Msg("failed to delete playlist")
		return fmt.Errorf("delete playlist: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) CountSchedulesForPlaylist(id string) (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT count(*) FROM schedules WHERE playlist_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count schedules for playlist: %w", mapError(err))
	}
	return n, nil
}

// @ ITEMS

// ListPlaylistItems returns the items ordered by order_index, each zipped
// with its media asset. Items whose asset row is missing keep a nil Media.
func (s *pgStore) ListPlaylistItems(playlistID string) ([]model.PlaylistItem, error) {
	items := []model.PlaylistItem{}
	err := s.db.Select(&items, `
		SELECT `+itemColumns+`
		FROM playlist_items
		WHERE playlist_id = $1
		ORDER BY order_index`, playlistID)
	if err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Msg("failed to list playlist items")
		return nil, fmt.Errorf("list playlist items: %w", mapError(err))
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MediaAssetID)
	}
	media := []model.MediaAsset{}
	if err := s.db.Select(&media, `
		SELECT `+mediaColumns+`
		FROM media_assets
		WHERE id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Msg("failed to load playlist media")
		return nil, fmt.Errorf("list playlist media: %w", mapError(err))
	}

	byID := make(map[string]*model.MediaAsset, len(media))
	for i := range media {
		byID[media[i].ID] = &media[i]
	}
	for i := range items {
		items[i].Media = byID[items[i].MediaAssetID]
	}
	return items, nil
}

func (s *pgStore) GetPlaylistItem(playlistID, itemID string) (model.PlaylistItem, error) {
	var it model.PlaylistItem
	err := s.db.Get(&it, `
		SELECT `+itemColumns+`
		FROM playlist_items
		WHERE id = $1 AND playlist_id = $2`, itemID, playlistID)
	if err != nil {
		return model.PlaylistItem{}, fmt.Errorf("get playlist item: %w", mapError(err))
	}
	return it, nil
}

// InsertPlaylistItem places the item at position (clamped to the list size)
// shifting later items down, or appends it when position is nil.
func (s *pgStore) InsertPlaylistItem(item model.PlaylistItem, position *int) (model.PlaylistItem, error) {
	var out model.PlaylistItem
	err := s.withTx(func(tx *sqlx.Tx) error {
		var count int
		if err := tx.Get(&count, `
			SELECT count(*) FROM playlist_items WHERE playlist_id = $1`, item.PlaylistID); err != nil {
			return err
		}

		idx := count
		if position != nil && *position >= 0 && *position < count {
			idx = *position
		}
		if idx < count {
			if _, err := tx.Exec(`
				UPDATE playlist_items
				SET order_index = order_index + 1
				WHERE playlist_id = $1 AND order_index >= $2`, item.PlaylistID, idx); err != nil {
				return err
			}
		}

		transition := item.TransitionType
		if transition == "" {
			transition = "fade"
		}
		return tx.Get(&out, `
			INSERT INTO playlist_items
				(playlist_id, media_asset_id, order_index, duration_override, transition_type)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+itemColumns,
			item.PlaylistID, item.MediaAssetID, idx, item.DurationOverride, transition)
	})
	if err != nil {
		log.Error().Err(err).Str("playlist_id", item.PlaylistID).Msg("failed to add item to playlist")
		return model.PlaylistItem{}, fmt.Errorf("insert playlist item: %w", mapError(err))
	}
	return out, nil
}

// UpdatePlaylistItem updates duration override / transition of an item.
func (s *pgStore) UpdatePlaylistItem(itemID string, durationOverride *int, transition *string) error {
	res, err := s.db.Exec(`
		UPDATE playlist_items
		SET duration_override = COALESCE($2, duration_override),
		    transition_type   = COALESCE($3, transition_type)
		WHERE id = $1`, itemID, durationOverride, transition)
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("failed to update playlist item")
		return fmt.Errorf("update playlist item: %w", mapError(err))
	}
	return requireRow(res)
}

// RemovePlaylistItem deletes the item and closes the gap it leaves.
func (s *pgStore) RemovePlaylistItem(playlistID, itemID string) error {
	err := s.withTx(func(tx *sqlx.Tx) error {
		var removed int
		if err := tx.Get(&removed, `
			DELETE FROM playlist_items
			WHERE id = $1 AND playlist_id = $2
			RETURNING order_index`, itemID, playlistID); err != nil {
			return err
		}
		_, err := tx.Exec(`
			UPDATE playlist_items
			SET order_index = order_index - 1
			WHERE playlist_id = $1 AND order_index > $2`, playlistID, removed)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Str("item_id", itemID).
			Msg("failed to remove playlist item")
		return fmt.Errorf("remove playlist item: %w", mapError(err))
	}
	return nil
}

// ReorderPlaylistItems rewrites order_index to 0..N-1 following itemIDs.
// itemIDs must name every item of the playlist exactly once.
func (s *pgStore) ReorderPlaylistItems(playlistID string, itemIDs []string) error {
	err := s.withTx(func(tx *sqlx.Tx) error {
		var existing []string
		if err := tx.Select(&existing, `
			SELECT id FROM playlist_items
			WHERE playlist_id = $1
			FOR UPDATE`, playlistID); err != nil {
			return err
		}
		if !sameSet(existing, itemIDs) {
			return ErrInvalid
		}

		count := len(itemIDs)
		if _, err := tx.Exec(`
			UPDATE playlist_items
			SET order_index = order_index + $1
			WHERE playlist_id = $2`, count, playlistID); err != nil {
			return err
		}

		for idx, itemID := range itemIDs {
			if _, err := tx.Exec(`
				UPDATE playlist_items
				SET order_index = $1
				WHERE id = $2 AND playlist_id = $3`, idx, itemID, playlistID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Msg("failed to reorder playlist items")
		return fmt.Errorf("reorder playlist items: %w", mapError(err))
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

func (s *pgStore) withTx(fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warn().Err(rbErr).Msg("rollback failed")
			}
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}
