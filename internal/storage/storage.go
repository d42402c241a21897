package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Storage writes blobs under a key and returns the public URL they are served at.
type Storage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type LocalStorage struct {
	uploadDir string
	baseURL   string
}

type SpacesStorage struct {
	client   *s3.S3
	bucket   string
	cdnURL   string
	endpoint string
}

// NewLocalStorage stores files under uploadDir; baseURL is where the router
// serves that directory (for example "/uploads").
func NewLocalStorage(uploadDir, baseURL string) *LocalStorage {
	return &LocalStorage{uploadDir: uploadDir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func NewSpacesStorage(endpoint, region, bucket, cdnURL, accessKey, secretKey string) (*SpacesStorage, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SpacesStorage{
		client:   s3.New(sess),
		bucket:   bucket,
		cdnURL:   cdnURL,
		endpoint: endpoint,
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// normalizeFilename strips everything but alphanumerics, dash and underscore
// from the base name and lowercases the extension.
func normalizeFilename(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	baseName := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))

	baseName = strings.ReplaceAll(baseName, " ", "_")
	baseName = unsafeChars.ReplaceAllString(baseName, "")
	if baseName == "" {
		baseName = "file"
	}
	ext = "." + unsafeChars.ReplaceAllString(strings.TrimPrefix(ext, "."), "")
	if ext == "." {
		ext = ""
	}
	return baseName + ext
}

// AssetPrefix returns a fresh "media/<org>/<uuid>" directory for one asset.
func AssetPrefix(orgID string) string {
	return fmt.Sprintf("media/%s/%s", orgID, uuid.NewString())
}

// ObjectKey places a normalized filename under prefix.
func ObjectKey(prefix, filename string) string {
	return prefix + "/" + normalizeFilename(filename)
}

func (ls *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") || clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(ls.uploadDir, filepath.FromSlash(clean)), nil
}

func (ls *LocalStorage) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	uploadPath, err := ls.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(uploadPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(uploadPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("file stored locally")
	return ls.baseURL + "/" + key, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	p, err := ls.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (ss *SpacesStorage) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}
	_, err := ss.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload file to Spaces")
		return "", fmt.Errorf("failed to upload to Spaces: %w", err)
	}

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(ss.cdnURL, "/"), key), nil
}

func (ss *SpacesStorage) Delete(ctx context.Context, key string) error {
	_, err := ss.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from Spaces: %w", err)
	}
	return nil
}

// ContentTypeFor guesses a MIME type from the file extension.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
