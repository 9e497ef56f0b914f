package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Config holds object-store connection settings.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket" default:"dailyclose"`
	UseSSL    bool   `yaml:"useSSL" default:"true"`
}

// Config validation errors.
var (
	ErrEndpointRequired    = errors.New("filestore endpoint is required")
	ErrCredentialsRequired = errors.New("filestore access key and secret key are required")
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrEndpointRequired
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return ErrCredentialsRequired
	}

	return nil
}

// MinioStore implements Store on an S3-compatible object store. Folder IDs
// are key prefixes ending in "/"; file IDs are object keys. A folder exists
// when at least one object lives under its prefix (folders carry a zero-byte
// marker object at the prefix itself).
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates a minio-backed store.
func NewMinioStore(cfg *Config) (*MinioStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// FindChildFolder returns the child folder of the given name, or nil when
// nothing lives under its prefix.
func (s *MinioStore) FindChildFolder(ctx context.Context, parentID, name string) (*Folder, error) {
	prefix := childPrefix(parentID, name)

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:  prefix,
		MaxKeys: 1,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}

		return &Folder{ID: prefix, Name: name}, nil
	}

	return nil, nil
}

// ListChildren lists the direct children of a folder. Sub-prefixes appear as
// folder entries; the folder's own marker object is skipped.
func (s *MinioStore) ListChildren(ctx context.Context, folderID string) ([]Entry, error) {
	prefix := normalizeFolderID(folderID)

	var entries []Entry
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix: prefix,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		if obj.Key == prefix {
			continue
		}

		rest := strings.TrimPrefix(obj.Key, prefix)
		if isFolder := strings.HasSuffix(rest, "/"); isFolder || strings.Contains(rest, "/") {
			// Non-recursive listing still surfaces nested markers when the
			// server ignores delimiters; collapse them to folder entries.
			child := strings.SplitN(rest, "/", 2)[0]
			entries = appendFolderEntry(entries, prefix+child+"/", child)

			continue
		}

		entries = append(entries, Entry{
			ID:           obj.Key,
			Name:         rest,
			ModifiedTime: obj.LastModified,
		})
	}

	return entries, nil
}

// Download fetches the full contents of a file.
func (s *MinioStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, fileID, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fileID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", fileID, err)
	}

	return data, nil
}

// Upsert writes a file under the folder, overwriting in place. The reported
// mode distinguishes a first write from an overwrite.
func (s *MinioStore) Upsert(ctx context.Context, folderID, filename string, data []byte) (*UpsertResult, error) {
	key := normalizeFolderID(folderID) + filename

	mode := UpsertUpdated
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code != "NoSuchKey" {
			return nil, fmt.Errorf("failed to stat %s: %w", key, err)
		}
		mode = UpsertCreated
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	modified := info.LastModified
	if modified.IsZero() {
		modified = time.Now().UTC()
	}

	return &UpsertResult{Mode: mode, ID: key, ModifiedTime: modified}, nil
}

// EnsureFolder creates the child folder marker when absent and returns the
// folder either way.
func (s *MinioStore) EnsureFolder(ctx context.Context, parentID, name string) (*Folder, error) {
	folder, err := s.FindChildFolder(ctx, parentID, name)
	if err != nil {
		return nil, err
	}
	if folder != nil {
		return folder, nil
	}

	prefix := childPrefix(parentID, name)
	if _, err := s.client.PutObject(ctx, s.bucket, prefix, bytes.NewReader(nil), 0, minio.PutObjectOptions{}); err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", prefix, err)
	}

	return &Folder{ID: prefix, Name: name}, nil
}

func childPrefix(parentID, name string) string {
	return normalizeFolderID(path.Join(strings.TrimSuffix(parentID, "/"), name))
}

func normalizeFolderID(folderID string) string {
	if folderID == "" || strings.HasSuffix(folderID, "/") {
		return folderID
	}

	return folderID + "/"
}

func appendFolderEntry(entries []Entry, id, name string) []Entry {
	for _, e := range entries {
		if e.ID == id {
			return entries
		}
	}

	return append(entries, Entry{ID: id, Name: name, IsFolder: true})
}

var _ Store = (*MinioStore)(nil)
