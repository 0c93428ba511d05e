// Package archive stores raw fetched payloads in MinIO object storage and
// issues presigned URLs so browsers can retrieve snapshots without proxying
// bytes through the application.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jonesrussell/regintake/internal/logger"
)

// DefaultPresignExpiry bounds presigned upload/download URLs.
const DefaultPresignExpiry = 3600 * time.Second

// contentTypePDF selects the .pdf object suffix.
const contentTypePDF = "application/pdf"

// Config holds MinIO connection settings for the snapshot store.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PresignExpiry time.Duration
}

// ObjectInfo describes a stored snapshot.
type ObjectInfo struct {
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
}

// SnapshotStore persists raw feed-item snapshots. Refs are "bucket/key".
type SnapshotStore struct {
	client *miniogo.Client
	config Config
	logger logger.Interface
}

// NewSnapshotStore creates a snapshot store backed by MinIO.
func NewSnapshotStore(cfg Config, log logger.Interface) (*SnapshotStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("snapshot bucket is required")
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = DefaultPresignExpiry
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	log.Info("snapshot store initialized",
		"endpoint", cfg.Endpoint,
		"bucket", cfg.Bucket,
	)

	return &SnapshotStore{client: client, config: cfg, logger: log}, nil
}

// Put uploads a snapshot and returns its ref.
// Keys follow raw/{feed}/{year}/{month}/{day}/{dedupeKey}.{ext}.
func (s *SnapshotStore) Put(
	ctx context.Context,
	feedID, dedupeKey string,
	body []byte,
	contentType string,
) (string, error) {
	key := s.objectKey(feedID, dedupeKey, contentType, time.Now().UTC())

	_, err := s.client.PutObject(
		ctx,
		s.config.Bucket,
		key,
		bytes.NewReader(body),
		int64(len(body)),
		miniogo.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"feed-id":    feedID,
				"dedupe-key": dedupeKey,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	s.logger.Debug("snapshot stored",
		"bucket", s.config.Bucket,
		"key", key,
		"size", len(body),
	)

	return s.config.Bucket + "/" + key, nil
}

// Head returns metadata for the snapshot at ref, or nil when absent.
func (s *SnapshotStore) Head(ctx context.Context, ref string) (*ObjectInfo, error) {
	bucket, key, err := splitRef(ref)
	if err != nil {
		return nil, err
	}

	stat, err := s.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		if miniogo.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	return &ObjectInfo{
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ETag:        stat.ETag,
	}, nil
}

// GetStream opens the snapshot at ref for reading. The caller closes it.
func (s *SnapshotStore) GetStream(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, key, err := splitRef(ref)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	return obj, nil
}

// PresignGet issues a time-bounded download URL for the snapshot at ref.
func (s *SnapshotStore) PresignGet(ctx context.Context, ref string) (string, error) {
	bucket, key, err := splitRef(ref)
	if err != nil {
		return "", err
	}

	u, err := s.client.PresignedGetObject(ctx, bucket, key, s.config.PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}

	return u.String(), nil
}

// PresignPut issues a time-bounded upload URL for an object key in the
// snapshot bucket.
func (s *SnapshotStore) PresignPut(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.config.Bucket, key, s.config.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}

	return u.String(), nil
}

// objectKey builds the structured object key for a snapshot.
func (s *SnapshotStore) objectKey(feedID, dedupeKey, contentType string, now time.Time) string {
	ext := ".html"
	if strings.HasPrefix(contentType, contentTypePDF) {
		ext = ".pdf"
	}

	return fmt.Sprintf("raw/%s/%s/%s/%s/%s%s",
		sanitizeFeedID(feedID),
		now.Format("2006"), now.Format("01"), now.Format("02"),
		dedupeKey, ext,
	)
}

// splitRef parses a "bucket/key" ref.
func splitRef(ref string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(ref, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed snapshot ref %q", ref)
	}
	return bucket, key, nil
}

// invalidKeyChars matches characters that are problematic in S3-style object
// names: control chars, \, ?, *, |, <, >, :, "
var invalidKeyChars = regexp.MustCompile(`[\\?*|<>:"\x00-\x1F]`)

// sanitizeFeedID makes a feed id safe for use inside an object key.
func sanitizeFeedID(feedID string) string {
	if feedID == "" {
		return "unknown"
	}

	normalized := strings.ToLower(feedID)
	normalized = invalidKeyChars.ReplaceAllString(normalized, "_")
	normalized = strings.ReplaceAll(normalized, "/", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	return strings.Trim(normalized, "_")
}
