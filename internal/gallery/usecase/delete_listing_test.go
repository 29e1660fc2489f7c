package usecase

import (
	"context"
	"sync"
	"testing"

	rediscache "github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/repository/cache"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/storage/memory"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// interleavingStore runs afterScan once, right after the next unfiltered Find
// has taken its snapshot and before that snapshot is returned.
type interleavingStore struct {
	*memory.Store
	mu        sync.Mutex
	afterScan func()
}

func (s *interleavingStore) Find(ctx context.Context, filter domain.ObjectFilter) ([]domain.StoredObject, error) {
	objects, err := s.Store.Find(ctx, filter)

	var hook func()
	if filter.GroupID == "" && filter.Attribute == nil {
		s.mu.Lock()
		hook, s.afterScan = s.afterScan, nil
		s.mu.Unlock()
	}
	if hook != nil {
		hook()
	}
	return objects, err
}

func redisListingCache(t *testing.T) domain.ListingCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return rediscache.NewListingCacheFromClient(client)
}

func listingCaches() map[string]func(*testing.T) domain.ListingCache {
	return map[string]func(*testing.T) domain.ListingCache{
		"no cache":  func(*testing.T) domain.ListingCache { return nil },
		"map cache": func(*testing.T) domain.ListingCache { return newMapCache() },
		"redis":     redisListingCache,
	}
}

func groupIDs(page domain.ListingPage) []string {
	ids := make([]string, 0, len(page.Listings))
	for _, l := range page.Listings {
		ids = append(ids, l.GroupID)
	}
	return ids
}

func TestDeleteGroup_GroupDisappearsFromReconstructions(t *testing.T) {
	for name, newCache := range listingCaches() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewStore()
			uc := NewGalleryUsecase(store, newCache(t), nil, nil, logger.NewNop(), testOptions())

			doomed, err := uc.Upload(ctx, car("Toyota", "suv"), files("a.jpg", "b.jpg", "c.jpg"))
			require.NoError(t, err)
			kept, err := uc.Upload(ctx, car("Honda", "sedan"), files("d.jpg"))
			require.NoError(t, err)

			// warm every read path before the delete
			before, err := uc.ListAll(ctx, 1)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{doomed.GroupID, kept.GroupID}, groupIDs(before))
			_, err = uc.ListByBodyType(ctx, "suv")
			require.NoError(t, err)
			_, err = uc.Featured(ctx)
			require.NoError(t, err)

			_, err = uc.DeleteGroup(ctx, doomed.GroupID)
			require.NoError(t, err)

			after, err := uc.ListAll(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, []string{kept.GroupID}, groupIDs(after))

			_, err = uc.ListByBodyType(ctx, "suv")
			assert.ErrorIs(t, err, domain.ErrNoListings)
			_, err = uc.SearchBrand(ctx, "toyota")
			assert.ErrorIs(t, err, domain.ErrNoListings)
			_, err = uc.GetGroup(ctx, doomed.GroupID)
			assert.ErrorIs(t, err, domain.ErrGroupNotFound)
		})
	}
}

func TestListings_ReadOverlappingDeleteIsNotServedLater(t *testing.T) {
	for name, newCache := range listingCaches() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := &interleavingStore{Store: memory.NewStore()}
			uc := NewGalleryUsecase(store, newCache(t), nil, nil, logger.NewNop(), testOptions())

			doomed, err := uc.Upload(ctx, car("Toyota", "suv"), files("a.jpg", "b.jpg"))
			require.NoError(t, err)
			kept, err := uc.Upload(ctx, car("Honda", "sedan"), files("c.jpg"))
			require.NoError(t, err)

			store.afterScan = func() {
				_, err := uc.DeleteGroup(ctx, doomed.GroupID)
				assert.NoError(t, err)
			}

			overlapping, err := uc.ListAll(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, overlapping.Listings, 2)

			left, err := store.Store.Find(ctx, domain.ObjectFilter{})
			require.NoError(t, err)
			require.Len(t, left, 1)

			later, err := uc.ListAll(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, []string{kept.GroupID}, groupIDs(later))
		})
	}
}

func TestListings_PartiallyDeletedGroupIsListedOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newTestUsecase(store)

	res, err := uc.Upload(ctx, car("Toyota", "suv"), files("a.jpg", "b.jpg", "c.jpg"))
	require.NoError(t, err)
	require.Len(t, res.Stored, 3)

	// the representative goes first
	require.NoError(t, store.Delete(ctx, res.Stored[0].ID))

	page, err := uc.ListAll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	assert.Equal(t, res.GroupID, page.Listings[0].GroupID)
	assert.Equal(t, testURL(res.Stored[1].Filename), page.Listings[0].URL)
	assert.Equal(t, 1, page.TotalPages)

	detail, err := uc.GetGroup(ctx, res.GroupID)
	require.NoError(t, err)
	assert.Len(t, detail.Objects, 2)

	report, err := uc.DeleteGroup(ctx, res.GroupID)
	require.NoError(t, err)
	assert.Len(t, report.Deleted, 2)
	_, err = uc.ListAll(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNoListings)
}
