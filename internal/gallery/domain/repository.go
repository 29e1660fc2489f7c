package domain

import (
	"context"
	"io"
	"time"
)

// BlobStore persists images together with their metadata records.
type BlobStore interface {
	Put(ctx context.Context, obj StoredObject, payload io.Reader) error
	// Find returns matching objects ordered by object id.
	Find(ctx context.Context, filter ObjectFilter) ([]StoredObject, error)
	OpenReadStream(ctx context.Context, filename string) (*Asset, error)
	Delete(ctx context.Context, objectID string) error
}

// ListingCache stores serialized reconstruction results. Every entry belongs
// to a generation and only entries of the current generation are served.
type ListingCache interface {
	// Get returns the value cached for key and the generation it was looked
	// up in. The generation is also returned with ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, int64, error)
	// Set stores value under key for generation gen. Writes for a generation
	// that has already been invalidated are never served.
	Set(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) error
	// Invalidate starts a new generation.
	Invalidate(ctx context.Context) error
}

// EventPublisher announces listing lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

const (
	SubjectListingUploaded = "gallery.listing.uploaded"
	SubjectListingDeleted  = "gallery.listing.deleted"
)
