package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
)

// MinioSource serves documents from an S3-compatible bucket prefix.
type MinioSource struct {
	client *minio.Client
	bucket string
	prefix string
	log    *slog.Logger
}

var _ Source = (*MinioSource)(nil)

func NewMinioClient(cfg common.StorageConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, common.NewAppError("STORAGE_ERROR", "init minio client", err)
	}
	return client, nil
}

func NewMinioSource(client *minio.Client, bucket, prefix string, logger *slog.Logger) *MinioSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &MinioSource{client: client, bucket: bucket, prefix: prefix, log: logger}
}

func (s *MinioSource) Name() string { return "minio" }

// Read fetches one object by key. A full "s3://bucket/key" locator is also accepted.
func (s *MinioSource) Read(ctx context.Context, locator string) ([]byte, error) {
	key := s.objectKey(locator)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		s.log.Error("ingest.minio.get_error", "bucket", s.bucket, "key", key, "error", err)
		return nil, fmt.Errorf("get object %s/%s: %w", s.bucket, key, err)
	}
	defer func(obj *minio.Object) {
		if err := obj.Close(); err != nil {
			s.log.Warn("ingest.minio.close_error", "key", key, "error", err)
		}
	}(obj)

	data, err := io.ReadAll(obj)
	if err != nil {
		s.log.Error("ingest.minio.read_error", "bucket", s.bucket, "key", key, "error", err)
		return nil, fmt.Errorf("read object %s/%s: %w", s.bucket, key, err)
	}
	s.log.Debug("ingest.minio.read_ok", "bucket", s.bucket, "key", key, "bytes", len(data))
	return data, nil
}

func (s *MinioSource) List(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			s.log.Error("ingest.minio.list_error", "bucket", s.bucket, "prefix", s.prefix, "error", obj.Err)
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, s.prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") || IsHidden(obj.Key) || !AllowedExt(path.Ext(obj.Key)) {
			continue
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	s.log.Info("ingest.minio.list_ok", "bucket", s.bucket, "prefix", s.prefix, "matched", len(keys))
	return keys, nil
}

func (s *MinioSource) objectKey(locator string) string {
	if rest, ok := strings.CutPrefix(locator, "s3://"+s.bucket+"/"); ok {
		return rest
	}
	return locator
}
