package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("only image and video files are supported")
)

const (
	thumbnailSize  = 300
	previewWidth   = 800
	optimizedWidth = 1920
	jpegQuality    = 85
)

// StoredMedia describes an uploaded file and the variants derived from it.
type StoredMedia struct {
	Key          string
	FileName     string
	URL          string
	MimeType     string
	MediaType    string
	Size         int64
	Width        *int
	Height       *int
	ThumbnailURL *string
	PreviewURL   *string
	OptimizedURL *string
}

type MediaProcessor struct {
	store    Storage
	maxBytes int64
}

func NewMediaProcessor(store Storage, maxBytes int64) *MediaProcessor {
	return &MediaProcessor{store: store, maxBytes: maxBytes}
}

func (p *MediaProcessor) MaxBytes() int64 {
	return p.maxBytes
}

// ReadUpload reads at most the size limit from r.
func (p *MediaProcessor) ReadUpload(r io.Reader, declaredSize int64) ([]byte, error) {
	if declaredSize > p.maxBytes {
		return nil, ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// DetectType sniffs the content, falling back to the extension and then the
// declared Content-Type, and maps the result onto image or video.
func DetectType(data []byte, filename, declared string) (mimeType, mediaType string, err error) {
	mimeType = http.DetectContentType(data[:min(len(data), 512)])
	if mimeType == "application/octet-stream" || strings.HasPrefix(mimeType, "text/plain") {
		mimeType = ContentTypeFor(filename)
	}
	if mimeType == "application/octet-stream" && declared != "" {
		mimeType = declared
	}
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return mimeType, model.MediaImage, nil
	case strings.HasPrefix(mimeType, "video/"):
		return mimeType, model.MediaVideo, nil
	}
	return "", "", ErrUnsupportedType
}

// Process stores the original under a fresh asset prefix and, for images,
// the thumbnail, preview and optimized variants. A variant failure is logged
// and leaves the variant URLs nil.
func (p *MediaProcessor) Process(ctx context.Context, orgID, filename string, data []byte, declared string) (*StoredMedia, error) {
	if int64(len(data)) > p.maxBytes {
		return nil, ErrFileTooLarge
	}
	mimeType, mediaType, err := DetectType(data, filename, declared)
	if err != nil {
		return nil, err
	}

	prefix := AssetPrefix(orgID)
	key := ObjectKey(prefix, filename)
	url, err := p.store.Save(ctx, key, data, mimeType)
	if err != nil {
		return nil, err
	}

	out := &StoredMedia{
		Key:       key,
		FileName:  normalizeFilename(filename),
		URL:       url,
		MimeType:  mimeType,
		MediaType: mediaType,
		Size:      int64(len(data)),
	}
	if mediaType != model.MediaImage {
		return out, nil
	}

	if err := p.storeVariants(ctx, prefix, data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("image variants not generated")
	}
	return out, nil
}

func (p *MediaProcessor) storeVariants(ctx context.Context, prefix string, data []byte, out *StoredMedia) error {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out.Width, out.Height = &w, &h

	variants := []struct {
		name string
		img  image.Image
		dst  **string
	}{
		{"thumbnail", imaging.Fill(img, thumbnailSize, thumbnailSize, imaging.Center, imaging.Lanczos), &out.ThumbnailURL},
		{"preview", fitWidth(img, previewWidth), &out.PreviewURL},
		{"optimized", fitWidth(img, optimizedWidth), &out.OptimizedURL},
	}
	for _, v := range variants {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, v.img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return fmt.Errorf("failed to encode %s: %w", v.name, err)
		}
		url, err := p.store.Save(ctx, prefix+"/"+v.name+".jpg", buf.Bytes(), "image/jpeg")
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", v.name, err)
		}
		*v.dst = &url
	}
	return nil
}

// fitWidth scales down to width keeping the aspect ratio; smaller images are
// left as they are.
func fitWidth(img image.Image, width int) image.Image {
	if img.Bounds().Dx() <= width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// Remove deletes the original and any variants of an uploaded asset.
func (p *MediaProcessor) Remove(ctx context.Context, m *StoredMedia) {
	keys := []string{m.Key}
	if m.ThumbnailURL != nil || m.PreviewURL != nil || m.OptimizedURL != nil {
		prefix := m.Key[:strings.LastIndex(m.Key, "/")]
		keys = append(keys, prefix+"/thumbnail.jpg", prefix+"/preview.jpg", prefix+"/optimized.jpg")
	}
	for _, k := range keys {
		if err := p.store.Delete(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("failed to remove stored media")
		}
	}
}
