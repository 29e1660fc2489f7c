package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
)

type entry struct {
	obj     domain.StoredObject
	payload []byte
}

// Store keeps objects in process memory. Used by the memory backend and tests.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*entry
	byFilename map[string]*entry
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		byID:       make(map[string]*entry),
		byFilename: make(map[string]*entry),
		now:        time.Now,
	}
}

func (s *Store) Put(ctx context.Context, obj domain.StoredObject, payload io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(payload)
	if err != nil {
		return fmt.Errorf("memory: read payload for %s: %w", obj.Filename, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[obj.ID]; exists {
		return fmt.Errorf("memory: object %s already exists", obj.ID)
	}
	obj.Length = int64(len(data))
	if obj.UploadedAt.IsZero() {
		obj.UploadedAt = s.now().UTC()
	}
	e := &entry{obj: obj, payload: data}
	s.byID[obj.ID] = e
	s.byFilename[obj.Filename] = e
	return nil
}

func (s *Store) Find(ctx context.Context, filter domain.ObjectFilter) ([]domain.StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.StoredObject, 0)
	for _, e := range s.byID {
		if filter.Matches(e.obj) {
			out = append(out, e.obj)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) OpenReadStream(ctx context.Context, filename string) (*domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.byFilename[filename]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return &domain.Asset{
		Filename:    e.obj.Filename,
		ContentType: e.obj.ContentType,
		Length:      int64(len(e.payload)),
		Body:        io.NopCloser(bytes.NewReader(e.payload)),
	}, nil
}

func (s *Store) Delete(ctx context.Context, objectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[objectID]
	if !ok {
		return fmt.Errorf("memory: object %s: %w", objectID, domain.ErrAssetNotFound)
	}
	delete(s.byID, objectID)
	delete(s.byFilename, e.obj.Filename)
	return nil
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
