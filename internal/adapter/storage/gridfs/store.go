package gridfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("gallery-service/gridfs-store")

// Store keeps images in a GridFS bucket with the listing record in each
// file's metadata document.
type Store struct {
	bucket *gridfs.Bucket
	logger *logger.Logger
}

func NewStore(db *mongo.Database, bucketName string, chunkSize int32, log *logger.Logger) (*Store, error) {
	opts := options.GridFSBucket().SetName(bucketName)
	if chunkSize > 0 {
		opts.SetChunkSizeBytes(chunkSize)
	}
	bucket, err := gridfs.NewBucket(db, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket %s: %w", bucketName, err)
	}
	log.Info("GridFS store ready", zap.String("database", db.Name()), zap.String("bucket", bucketName))
	return &Store{bucket: bucket, logger: log.Named("GridFSStore")}, nil
}

func (s *Store) Put(ctx context.Context, obj domain.StoredObject, payload io.Reader) error {
	ctx, span := tracer.Start(ctx, "GridFS.Put")
	defer span.End()
	span.SetAttributes(attribute.String("gallery.group_id", obj.Metadata.GroupID), attribute.String("gallery.filename", obj.Filename))

	id, err := primitive.ObjectIDFromHex(obj.ID)
	if err != nil {
		return fmt.Errorf("invalid object id %q: %w", obj.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := options.GridFSUpload().SetMetadata(encodeMetadata(obj))
	if err := s.bucket.UploadFromStreamWithID(id, obj.Filename, payload, opts); err != nil {
		span.RecordError(err)
		s.logger.Error("failed to upload file", zap.String("filename", obj.Filename), zap.Error(err))
		return fmt.Errorf("failed to store %s: %w", obj.Filename, err)
	}
	s.logger.Debug("file stored", zap.String("object_id", obj.ID), zap.String("group_id", obj.Metadata.GroupID))
	return nil
}

func (s *Store) Find(ctx context.Context, filter domain.ObjectFilter) ([]domain.StoredObject, error) {
	ctx, span := tracer.Start(ctx, "GridFS.Find")
	defer span.End()

	opts := options.GridFSFind().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.bucket.FindContext(ctx, buildFilter(filter), opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]domain.StoredObject, 0)
	for cursor.Next(ctx) {
		var file fileDocument
		if err := cursor.Decode(&file); err != nil {
			s.logger.Warn("skipping undecodable file document", zap.Error(err))
			continue
		}
		out = append(out, toStoredObject(file))
	}
	if err := cursor.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}
	span.SetAttributes(attribute.Int("gallery.objects", len(out)))
	return out, nil
}

func (s *Store) OpenReadStream(ctx context.Context, filename string) (*domain.Asset, error) {
	_, span := tracer.Start(ctx, "GridFS.OpenReadStream")
	defer span.End()

	stream, err := s.bucket.OpenDownloadStreamByName(filename)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, domain.ErrAssetNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	file := stream.GetFile()
	_, contentType := decodeMetadata(file.Metadata)
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	return &domain.Asset{
		Filename:    file.Name,
		ContentType: contentType,
		Length:      file.Length,
		Body:        stream,
	}, nil
}

func (s *Store) Delete(ctx context.Context, objectID string) error {
	ctx, span := tracer.Start(ctx, "GridFS.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("gallery.object_id", objectID))

	id, err := primitive.ObjectIDFromHex(objectID)
	if err != nil {
		return fmt.Errorf("invalid object id %q: %w", objectID, err)
	}
	if err := s.bucket.DeleteContext(ctx, id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("object %s: %w", objectID, domain.ErrAssetNotFound)
		}
		span.RecordError(err)
		return fmt.Errorf("failed to delete %s: %w", objectID, err)
	}
	return nil
}

// fileDocument is a files collection entry. Metadata stays raw so that a null
// or malformed value does not fail the whole query.
type fileDocument struct {
	ID         interface{}   `bson:"_id"`
	Length     int64         `bson:"length"`
	UploadDate time.Time     `bson:"uploadDate"`
	Name       string        `bson:"filename"`
	Metadata   bson.RawValue `bson:"metadata"`
}

func toStoredObject(file fileDocument) domain.StoredObject {
	var doc bson.Raw
	if file.Metadata.Type == bsontype.EmbeddedDocument {
		doc = file.Metadata.Document()
	}
	md, contentType := decodeMetadata(doc)
	id := fmt.Sprint(file.ID)
	if oid, ok := file.ID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	return domain.StoredObject{
		ID:          id,
		Filename:    file.Name,
		ContentType: contentType,
		Length:      file.Length,
		UploadedAt:  file.UploadDate,
		Metadata:    md,
	}
}
