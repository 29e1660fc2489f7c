package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FeaturedBodyTypes is the allow-list for the featured view. Matching is
// case-sensitive, both spellings seen in stored data are listed.
var FeaturedBodyTypes = []string{
	"Sedan", "Suv", "Truck", "Mini-Van", "Hatchback",
	"hatchback", "suv", "sedan", "truck", "mini-van",
}

// Options tunes the read paths and write limits.
type Options struct {
	PageSize          int
	BrandPageSize     int
	FeaturedLimit     int
	MaxFilesPerBatch  int
	DeleteConcurrency int
	CacheTTL          time.Duration
	URL               URLBuilder
}

type GalleryUsecase struct {
	store   domain.BlobStore
	cache   domain.ListingCache
	events  domain.EventPublisher
	metrics *metrics.MetricsManager
	logger  *logger.Logger
	opts    Options
}

// NewGalleryUsecase wires the engine. cache, events and m may be nil.
func NewGalleryUsecase(
	store domain.BlobStore,
	cache domain.ListingCache,
	events domain.EventPublisher,
	m *metrics.MetricsManager,
	log *logger.Logger,
	opts Options,
) *GalleryUsecase {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.BrandPageSize <= 0 {
		opts.BrandPageSize = 25
	}
	if opts.FeaturedLimit <= 0 {
		opts.FeaturedLimit = 10
	}
	if opts.DeleteConcurrency <= 0 {
		opts.DeleteConcurrency = 4
	}
	if opts.URL == nil {
		opts.URL = func(filename string) string { return filename }
	}
	return &GalleryUsecase{
		store:   store,
		cache:   cache,
		events:  events,
		metrics: m,
		logger:  log.Named("GalleryUsecase"),
		opts:    opts,
	}
}

// Upload stores every file of one batch under a freshly minted group id.
// Files are written one after another; a failed file does not undo the ones
// already stored. When some files fail the result is returned together with
// ErrPartialBatch so the caller can retry or delete the group.
func (uc *GalleryUsecase) Upload(ctx context.Context, attrs domain.Attributes, files []domain.UploadFile) (*domain.UploadResult, error) {
	if len(files) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if uc.opts.MaxFilesPerBatch > 0 && len(files) > uc.opts.MaxFilesPerBatch {
		return nil, fmt.Errorf("%w: %d files, limit %d", domain.ErrBatchTooLarge, len(files), uc.opts.MaxFilesPerBatch)
	}

	batch := newUploadBatch(attrs)
	uc.logger.Info("Upload: storing batch", zap.String("group_id", batch.groupID), zap.Int("files", len(files)), zap.String("brand", attrs.Brand))

	result := &domain.UploadResult{GroupID: batch.groupID}
	var firstErr error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, domain.UploadFailure{OriginalName: file.OriginalName, Reason: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		obj := batch.object(file)
		if err := uc.store.Put(ctx, obj, file.Content); err != nil {
			uc.logger.Error("Upload: failed to store file", zap.String("group_id", batch.groupID), zap.String("original_name", file.OriginalName), zap.Error(err))
			result.Failed = append(result.Failed, domain.UploadFailure{OriginalName: file.OriginalName, Reason: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Stored = append(result.Stored, obj)
	}
	uc.metrics.ObserveUpload(len(result.Stored), len(result.Failed))

	if len(result.Stored) > 0 {
		uc.invalidate(ctx)
		ids := make([]string, 0, len(result.Stored))
		for _, obj := range result.Stored {
			ids = append(ids, obj.ID)
		}
		uc.publish(ctx, domain.SubjectListingUploaded, map[string]interface{}{
			"groupId":   batch.groupID,
			"objectIds": ids,
			"brand":     attrs.Brand,
			"bodyType":  attrs.BodyType,
		})
	}

	switch {
	case len(result.Failed) == 0:
		uc.logger.Info("Upload: batch stored", zap.String("group_id", batch.groupID), zap.Int("stored", len(result.Stored)))
		return result, nil
	case len(result.Stored) == 0:
		return result, fmt.Errorf("upload batch %s: storage failure: %w", batch.groupID, firstErr)
	default:
		uc.logger.Warn("Upload: batch partially stored", zap.String("group_id", batch.groupID), zap.Int("stored", len(result.Stored)), zap.Int("failed", len(result.Failed)))
		return result, fmt.Errorf("%w: %d of %d files failed for group %s", domain.ErrPartialBatch, len(result.Failed), len(files), batch.groupID)
	}
}

// Listings runs one reconstruction. view names the read path for logs and metrics.
func (uc *GalleryUsecase) Listings(ctx context.Context, view string, q domain.Query) (domain.ListingPage, error) {
	if err := q.Validate(); err != nil {
		return domain.ListingPage{}, err
	}

	key := "listings:" + q.Key()
	cachedPage, gen, hit := uc.cached(ctx, key)
	if hit {
		return cachedPage, nil
	}

	objects, err := uc.store.Find(ctx, domain.ObjectFilter{Attribute: q.Filter})
	if err != nil {
		uc.logger.Error("Listings: failed to fetch objects", zap.String("view", view), zap.Error(err))
		return domain.ListingPage{}, fmt.Errorf("fetch objects for %s: %w", view, err)
	}

	page := Reconstruct(objects, q, uc.opts.URL)
	uc.metrics.ObserveReconstruction(view, len(page.Listings), page.Discarded)
	if page.Discarded > 0 {
		uc.logger.Debug("Listings: skipped objects with incomplete metadata", zap.String("view", view), zap.Int("discarded", page.Discarded))
	}
	if page.Total == 0 {
		return domain.ListingPage{}, domain.ErrNoListings
	}

	uc.remember(ctx, key, gen, page)
	return page, nil
}

func (uc *GalleryUsecase) ListByBodyType(ctx context.Context, bodyType string) (domain.ListingPage, error) {
	if strings.TrimSpace(bodyType) == "" {
		return domain.ListingPage{}, fmt.Errorf("%w: empty bodyType", domain.ErrInvalidQuery)
	}
	return uc.Listings(ctx, "body_type", domain.Query{
		Filter: &domain.AttributeFilter{Field: domain.AttrBodyType, Value: bodyType, Mode: domain.MatchExact},
	})
}

func (uc *GalleryUsecase) Featured(ctx context.Context) (domain.ListingPage, error) {
	return uc.Listings(ctx, "featured", domain.Query{
		AllowedBodyTypes: FeaturedBodyTypes,
		Limit:            uc.opts.FeaturedLimit,
	})
}

func (uc *GalleryUsecase) ListAll(ctx context.Context, page int) (domain.ListingPage, error) {
	if page < 1 {
		page = 1
	}
	return uc.Listings(ctx, "all", domain.Query{Page: page, PageSize: uc.opts.PageSize})
}

// SearchBrand returns the first listing whose brand contains query, ignoring case.
func (uc *GalleryUsecase) SearchBrand(ctx context.Context, query string) (domain.ListingPage, error) {
	if strings.TrimSpace(query) == "" {
		return domain.ListingPage{}, fmt.Errorf("%w: empty brand", domain.ErrInvalidQuery)
	}
	return uc.Listings(ctx, "brand_search", domain.Query{
		Filter: &domain.AttributeFilter{Field: domain.AttrBrand, Value: query, Mode: domain.MatchSubstring},
		Limit:  1,
	})
}

func (uc *GalleryUsecase) ListByBrand(ctx context.Context, brand string, page int) (domain.ListingPage, error) {
	if strings.TrimSpace(brand) == "" {
		return domain.ListingPage{}, fmt.Errorf("%w: empty brand", domain.ErrInvalidQuery)
	}
	if page < 1 {
		page = 1
	}
	return uc.Listings(ctx, "brand", domain.Query{
		Filter:   &domain.AttributeFilter{Field: domain.AttrBrand, Value: brand, Mode: domain.MatchExact},
		Page:     page,
		PageSize: uc.opts.BrandPageSize,
	})
}

// GetGroup returns the listing of one group and all of its images.
func (uc *GalleryUsecase) GetGroup(ctx context.Context, groupID string) (*domain.GroupDetail, error) {
	objects, err := uc.store.Find(ctx, domain.ObjectFilter{GroupID: groupID})
	if err != nil {
		uc.logger.Error("GetGroup: failed to fetch objects", zap.String("group_id", groupID), zap.Error(err))
		return nil, fmt.Errorf("fetch group %s: %w", groupID, err)
	}
	if len(objects) == 0 {
		return nil, domain.ErrGroupNotFound
	}

	detail := &domain.GroupDetail{Objects: groupObjects(objects, uc.opts.URL)}
	page := Reconstruct(objects, domain.Query{}, uc.opts.URL)
	if len(page.Listings) > 0 {
		detail.Listing = page.Listings[0]
	} else {
		// every record of the group is incomplete; fall back to the first one
		first := detail.Objects[0]
		detail.Listing = domain.ListingView{GroupID: groupID, URL: first.URL, Attributes: first.Attributes}
	}
	return detail, nil
}

// DeleteGroup removes every object of a group. Deletes run concurrently and
// independently; the report lists what was removed and what was not.
func (uc *GalleryUsecase) DeleteGroup(ctx context.Context, groupID string) (*domain.DeleteReport, error) {
	objects, err := uc.store.Find(ctx, domain.ObjectFilter{GroupID: groupID})
	if err != nil {
		uc.logger.Error("DeleteGroup: failed to fetch objects", zap.String("group_id", groupID), zap.Error(err))
		return nil, fmt.Errorf("fetch group %s: %w", groupID, err)
	}
	if len(objects) == 0 {
		uc.logger.Warn("DeleteGroup: no objects for group", zap.String("group_id", groupID))
		return nil, domain.ErrGroupNotFound
	}

	outcomes := make([]error, len(objects))
	var g errgroup.Group
	g.SetLimit(uc.opts.DeleteConcurrency)
	for i, obj := range objects {
		i, id := i, obj.ID
		g.Go(func() error {
			outcomes[i] = uc.store.Delete(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.DeleteReport{GroupID: groupID, Deleted: make([]string, 0, len(objects))}
	for i, obj := range objects {
		if outcomes[i] != nil {
			uc.logger.Error("DeleteGroup: failed to delete object", zap.String("group_id", groupID), zap.String("object_id", obj.ID), zap.Error(outcomes[i]))
			report.Failed = append(report.Failed, domain.DeleteFailure{ObjectID: obj.ID, Reason: outcomes[i].Error()})
			continue
		}
		report.Deleted = append(report.Deleted, obj.ID)
	}
	uc.metrics.ObserveDelete(len(report.Failed))

	if len(report.Deleted) > 0 {
		uc.invalidate(ctx)
		uc.publish(ctx, domain.SubjectListingDeleted, map[string]interface{}{
			"groupId": groupID,
			"deleted": len(report.Deleted),
			"failed":  len(report.Failed),
		})
	}

	if len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d objects remain in group %s", domain.ErrPartialDelete, len(report.Failed), len(objects), groupID)
	}
	uc.logger.Info("DeleteGroup: group deleted", zap.String("group_id", groupID), zap.Int("deleted", len(report.Deleted)))
	return report, nil
}

// AssetURL returns the public URL of a stored file.
func (uc *GalleryUsecase) AssetURL(filename string) string {
	return uc.opts.URL(filename)
}

func (uc *GalleryUsecase) OpenAsset(ctx context.Context, filename string) (*domain.Asset, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return nil, domain.ErrAssetNotFound
	}
	asset, err := uc.store.OpenReadStream(ctx, filename)
	if err != nil {
		if !errors.Is(err, domain.ErrAssetNotFound) {
			uc.logger.Error("OpenAsset: failed to open stream", zap.String("filename", filename), zap.Error(err))
		}
		return nil, err
	}
	return asset, nil
}

// cached looks key up before the store is read. On a miss it returns the
// generation the fresh result must be remembered under, or noGeneration when
// nothing should be written.
func (uc *GalleryUsecase) cached(ctx context.Context, key string) (domain.ListingPage, int64, bool) {
	if uc.cache == nil {
		return domain.ListingPage{}, noGeneration, false
	}
	data, gen, err := uc.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			uc.logger.Warn("Listings: cache lookup failed", zap.String("key", key), zap.Error(err))
			gen = noGeneration
		}
		uc.metrics.ObserveCacheLookup(false)
		return domain.ListingPage{}, gen, false
	}
	var page domain.ListingPage
	if err := json.Unmarshal(data, &page); err != nil {
		uc.logger.Warn("Listings: cached value is corrupt", zap.String("key", key), zap.Error(err))
		uc.metrics.ObserveCacheLookup(false)
		return domain.ListingPage{}, gen, false
	}
	uc.metrics.ObserveCacheLookup(true)
	return page, gen, true
}

const noGeneration int64 = -1

func (uc *GalleryUsecase) remember(ctx context.Context, key string, gen int64, page domain.ListingPage) {
	if uc.cache == nil || gen == noGeneration {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		uc.logger.Warn("Listings: failed to encode page for cache", zap.Error(err))
		return
	}
	if err := uc.cache.Set(ctx, key, gen, data, uc.opts.CacheTTL); err != nil {
		uc.logger.Warn("Listings: cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (uc *GalleryUsecase) invalidate(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx); err != nil {
		uc.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}

func (uc *GalleryUsecase) publish(ctx context.Context, subject string, data interface{}) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, subject, data); err != nil {
		uc.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
