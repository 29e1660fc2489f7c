package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("gallery-service/s3-store")

const (
	keyPrefix     = "uploads/"
	metaObjectID  = "object-id"
	metaGroupID   = "group-id"
	amzMetaPrefix = "x-amz-meta-"
)

// Store keeps images in an S3 compatible bucket. The listing record travels
// as user metadata on each object.
type Store struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

func NewStore(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, log *logger.Logger) (*Store, error) {
	log.Info("Initializing S3 store", zap.String("endpoint", endpoint), zap.String("bucket", bucketName), zap.Bool("use_ssl", useSSL))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
		}
		log.Info("S3 bucket created", zap.String("bucket", bucketName))
	}

	return &Store{client: client, bucket: bucketName, logger: log.Named("S3Store")}, nil
}

func (s *Store) Put(ctx context.Context, obj domain.StoredObject, payload io.Reader) error {
	ctx, span := tracer.Start(ctx, "S3.Put")
	defer span.End()

	size := obj.Length
	if size <= 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.bucket, keyPrefix+obj.Filename, payload, size, minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: encodeMetadata(obj),
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("PutObject failed", zap.String("key", keyPrefix+obj.Filename), zap.Error(err))
		return fmt.Errorf("failed to upload %s: %w", obj.Filename, err)
	}
	s.logger.Debug("object stored", zap.String("key", info.Key), zap.Int64("size", info.Size))
	return nil
}

func (s *Store) Find(ctx context.Context, filter domain.ObjectFilter) ([]domain.StoredObject, error) {
	ctx, span := tracer.Start(ctx, "S3.Find")
	defer span.End()

	out := make([]domain.StoredObject, 0)
	opts := minio.ListObjectsOptions{Prefix: keyPrefix, Recursive: true, WithMetadata: true}
	err := walk(ctx, s.client, s.bucket, opts, func(info minio.ObjectInfo) (bool, error) {
		meta := info.UserMetadata
		if len(meta) == 0 {
			// servers without the metadata listing extension need a stat per object
			stat, err := s.client.StatObject(ctx, s.bucket, info.Key, minio.StatObjectOptions{})
			if err != nil {
				return false, fmt.Errorf("failed to stat %s: %w", info.Key, err)
			}
			meta = stat.UserMetadata
			info.ContentType = stat.ContentType
		}
		obj := toStoredObject(info, meta)
		if filter.GroupID != "" && obj.Metadata.GroupID != filter.GroupID {
			return true, nil
		}
		if filter.Attribute != nil && absent(obj.Metadata, filter.Attribute.Field) {
			return true, nil
		}
		if filter.Matches(obj) {
			out = append(out, obj)
		}
		return true, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) OpenReadStream(ctx context.Context, filename string) (*domain.Asset, error) {
	ctx, span := tracer.Start(ctx, "S3.OpenReadStream")
	defer span.End()

	key := keyPrefix + filename
	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, domain.ErrAssetNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	body, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return &domain.Asset{
		Filename:    filename,
		ContentType: stat.ContentType,
		Length:      stat.Size,
		Body:        body,
	}, nil
}

func (s *Store) Delete(ctx context.Context, objectID string) error {
	ctx, span := tracer.Start(ctx, "S3.Delete")
	defer span.End()

	var key string
	opts := minio.ListObjectsOptions{Prefix: keyPrefix + objectID + "-", Recursive: true}
	err := walk(ctx, s.client, s.bucket, opts, func(info minio.ObjectInfo) (bool, error) {
		key = info.Key
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("failed to locate object %s: %w", objectID, err)
	}
	if key == "" {
		return fmt.Errorf("object %s: %w", objectID, domain.ErrAssetNotFound)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// objectLister is the listing half of *minio.Client.
type objectLister interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// walk feeds listed objects to visit until it returns false or an error.
// The listing context is cancelled on return, which stops minio's producer
// goroutine when the walk ends early.
func walk(ctx context.Context, l objectLister, bucket string, opts minio.ListObjectsOptions, visit func(minio.ObjectInfo) (bool, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for info := range l.ListObjects(ctx, bucket, opts) {
		if info.Err != nil {
			return fmt.Errorf("failed to list objects: %w", info.Err)
		}
		more, err := visit(info)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// encodeMetadata escapes values since S3 user metadata must be ASCII.
func encodeMetadata(obj domain.StoredObject) map[string]string {
	meta := map[string]string{
		metaObjectID: obj.ID,
		metaGroupID:  obj.Metadata.GroupID,
	}
	for _, name := range domain.AttributeNames {
		v, _ := obj.Metadata.Attributes.Get(name)
		meta[strings.ToLower(name)] = url.QueryEscape(v)
	}
	return meta
}

func decodeMetadata(raw map[string]string) (string, domain.Metadata) {
	norm := make(map[string]string, len(raw))
	for k, v := range raw {
		norm[strings.TrimPrefix(strings.ToLower(k), amzMetaPrefix)] = v
	}

	var md domain.Metadata
	md.GroupID = norm[metaGroupID]
	for _, name := range domain.AttributeNames {
		v, ok := norm[strings.ToLower(name)]
		if !ok {
			md.Absent = append(md.Absent, name)
			continue
		}
		if unescaped, err := url.QueryUnescape(v); err == nil {
			v = unescaped
		}
		md.Attributes.Set(name, v)
	}
	return norm[metaObjectID], md
}

func toStoredObject(info minio.ObjectInfo, meta map[string]string) domain.StoredObject {
	filename := strings.TrimPrefix(info.Key, keyPrefix)
	id, md := decodeMetadata(meta)
	if id == "" {
		id, _, _ = strings.Cut(filename, "-")
	}
	return domain.StoredObject{
		ID:          id,
		Filename:    filename,
		ContentType: info.ContentType,
		Length:      info.Size,
		UploadedAt:  info.LastModified,
		Metadata:    md,
	}
}

func absent(md domain.Metadata, field string) bool {
	for _, name := range md.Absent {
		if name == field {
			return true
		}
	}
	return false
}
