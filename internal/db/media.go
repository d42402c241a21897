package db

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type MediaFilter struct {
	OrganizationID string
	FolderID       *string
	MediaType      *string
	Search         *string
}

type MediaPatch struct {
	Name        *string
	Description *string
	FolderID    *string
	Duration    *int
	Tags        []string
}

const mediaColumns = `id, organization_id, folder_id, name, description, file_name, file_path,
	file_url, file_size, mime_type, media_type, duration, width, height, thumbnail_url,
	preview_url, optimized_url, youtube_url, calendar_metadata, tags, is_active,
	created_by, created_at, updated_at`

const folderColumns = `id, organization_id, name, parent_folder_id, created_by, created_at, updated_at`

// @ MEDIA
func (s *pgStore) ListMedia(f MediaFilter) ([]model.MediaAsset, error) {
	out := []model.MediaAsset{}
	err := s.db.Select(&out, `
		SELECT `+mediaColumns+`
		FROM media_assets
		WHERE organization_id = $1
		  AND is_active
		  AND ($2::uuid IS NULL OR folder_id = $2)
		  AND ($3::text IS NULL OR media_type = $3)
		  AND ($4::text IS NULL OR name ILIKE '%' || $4 || '%')
		ORDER BY created_at DESC`,
		f.OrganizationID, f.FolderID, f.MediaType, f.Search)
	if err != nil {
		log.Error().Err(err).Str("organization_id", f.OrganizationID).Msg("failed to list media")
		return nil, fmt.Errorf("list media: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) GetMediaByID(id string) (model.MediaAsset, error) {
	var m model.MediaAsset
	if err := s.db.Get(&m, `SELECT `+mediaColumns+` FROM media_assets WHERE id = $1`, id); err != nil {
		return model.MediaAsset{}, fmt.Errorf("get media: %w", mapError(err))
	}
	return m, nil
}

func (s *pgStore) CreateMedia(m model.MediaAsset) (model.MediaAsset, error) {
	var out model.MediaAsset
	tags := m.Tags
	if tags == nil {
		tags = pq.StringArray{}
	}
	var calendar any
	if len(m.CalendarMetadata) > 0 {
		calendar = m.CalendarMetadata
	}
	err := s.db.Get(&out, `
		INSERT INTO media_assets
			(organization_id, folder_id, name, description, file_name, file_path, file_url,
			 file_size, mime_type, media_type, duration, width, height, thumbnail_url,
			 preview_url, optimized_url, youtube_url, calendar_metadata, tags, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING `+mediaColumns,
		m.OrganizationID, m.FolderID, m.Name, m.Description, m.FileName, m.FilePath, m.FileURL,
		m.FileSize, m.MimeType, m.MediaType, m.Duration, m.Width, m.Height, m.ThumbnailURL,
		m.PreviewURL, m.OptimizedURL, m.YouTubeURL, calendar, tags, m.CreatedBy)
	if err != nil {
		log.Error().Err(err).Str("organization_id", m.OrganizationID).Str("name", m.Name).
			Msg("failed to create media asset")
		return model.MediaAsset{}, fmt.Errorf("create media: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) UpdateMedia(id string, patch MediaPatch) error {
	var tags any
	if patch.Tags != nil {
		tags = pq.StringArray(patch.Tags)
	}
	res, err := s.db.Exec(`
		UPDATE media_assets
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    folder_id   = CASE WHEN $4::text IS NULL THEN folder_id ELSE NULLIF($4, '')::uuid END,
		    duration    = COALESCE($5, duration),
		    tags        = COALESCE($6, tags),
		    updated_at  = now()
		WHERE id = $1 AND is_active`,
		id, patch.Name, patch.Description, patch.FolderID, patch.Duration, tags)
	if err != nil {
		log.Error().Err(err).Str("media_id", id).Msg("failed to update media asset")
		return fmt.Errorf("update media: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) DeactivateMedia(id string) error {
	res, err := s.db.Exec(`
		UPDATE media_assets SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		log.Error().Err(err).Str("media_id", id).Msg("failed to deactivate media asset")
		return fmt.Errorf("deactivate media: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) CountPlaylistItemsForMedia(id string) (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT count(*) FROM playlist_items WHERE media_asset_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count playlist items for media: %w", mapError(err))
	}
	return n, nil
}

func (s *pgStore) ListCalendarMedia() ([]model.MediaAsset, error) {
	out := []model.MediaAsset{}
	err := s.db.Select(&out, `
		SELECT `+mediaColumns+`
		FROM media_assets
		WHERE media_type = 'calendar' AND is_active AND calendar_metadata IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list calendar media: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) UpdateCalendarMetadata(id string, metadata []byte) error {
	res, err := s.db.Exec(`
		UPDATE media_assets SET calendar_metadata = $2, updated_at = now()
		WHERE id = $1`, id, metadata)
	if err != nil {
		return fmt.Errorf("update calendar metadata: %w", mapError(err))
	}
	return requireRow(res)
}

// @ FOLDERS
func (s *pgStore) ListFolders(orgID string, parentID *string) ([]model.MediaFolder, error) {
	out := []model.MediaFolder{}
	err := s.db.Select(&out, `
		SELECT `+folderColumns+`
		FROM media_folders
		WHERE organization_id = $1
		  AND (($2::uuid IS NULL AND parent_folder_id IS NULL) OR parent_folder_id = $2)
		ORDER BY name`, orgID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", mapError(err))
	}
	return out, nil
}

func (s *pgStore) GetFolder(id string) (model.MediaFolder, error) {
	var f model.MediaFolder
	if err := s.db.Get(&f, `SELECT `+folderColumns+` FROM media_folders WHERE id = $1`, id); err != nil {
		return model.MediaFolder{}, fmt.Errorf("get folder: %w", mapError(err))
	}
	return f, nil
}

func (s *pgStore) CreateFolder(f model.MediaFolder) (model.MediaFolder, error) {
	var out model.MediaFolder
	err := s.db.Get(&out, `
		INSERT INTO media_folders (organization_id, name, parent_folder_id, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+folderColumns, f.OrganizationID, f.Name, f.ParentFolderID, f.CreatedBy)
	if err != nil {
		log.Error().Err(err).Str("organization_id", f.OrganizationID).Msg("failed to create folder")
		return model.MediaFolder{}, fmt.Errorf("create folder: %w", mapError(err))
	}
	return out, nil
}

// an empty parentID moves the folder to the root.
func (s *pgStore) UpdateFolder(id string, name *string, parentID *string) error {
	res, err := s.db.Exec(`
		UPDATE media_folders
		SET name             = COALESCE($2, name),
		    parent_folder_id = CASE WHEN $3::text IS NULL THEN parent_folder_id ELSE NULLIF($3, '')::uuid END,
		    updated_at       = now()
		WHERE id = $1`, id, name, parentID)
	if err != nil {
		return fmt.Errorf("update folder: %w", mapError(err))
	}
	return requireRow(res)
}

func (s *pgStore) DeleteFolder(id string) error {
	// soft-deleted assets keep their row but lose the folder
	if _, err := s.db.Exec(`
		UPDATE media_assets SET folder_id = NULL
		WHERE folder_id = $1 AND NOT is_active`, id); err != nil {
		return fmt.Errorf("detach inactive media: %w", mapError(err))
	}
	res, err := s.db.Exec(`DELETE FROM media_folders WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Str("folder_id", id).Msg("failed to delete folder")
		return fmt.Errorf("delete folder: %w", mapError(err))
	}
	return requireRow(res)
}

// counts child folders plus active assets filed in the folder.
func (s *pgStore) CountFolderDependents(id string) (int, error) {
	var n int
	err := s.db.Get(&n, `
		SELECT (SELECT count(*) FROM media_folders WHERE parent_folder_id = $1)
		     + (SELECT count(*) FROM media_assets WHERE folder_id = $1 AND is_active)`, id)
	if err != nil {
		return 0, fmt.Errorf("count folder dependents: %w", mapError(err))
	}
	return n, nil
}
