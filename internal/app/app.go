package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/repository/cache"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/storage/gridfs"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/storage/memory"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/usecase"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// AssetPath is where assets are served, relative to the public base URL.
const AssetPath = "/api/posts/assets/"

// App holds the wired engine and the connections it owns.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.MetricsManager
	Gallery *usecase.GalleryUsecase

	closers []func(context.Context) error
}

// New connects the configured backends and builds the gallery usecase.
// On error every connection opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: log, Metrics: metrics.NewMetricsManager(cfg.ServiceName)}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	var listingCache domain.ListingCache
	if cfg.RedisAddress != "" {
		c, err := cache.NewListingCache(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return c.Close() })
		listingCache = c
		log.Info("Listing cache enabled", zap.String("address", cfg.RedisAddress), zap.Duration("ttl", cfg.CacheTTL))
	} else {
		log.Info("Listing cache disabled (REDIS_ADDRESS not set).")
	}

	var events domain.EventPublisher
	if cfg.NATSURL != "" {
		p, err := nats.NewPublisher(cfg.NATSURL, log, cfg.ServiceName)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { p.Close(); return nil })
		events = p
	} else {
		log.Info("NATS publisher disabled (NATS_URL not set).")
		events = nats.NewNoopPublisher(log)
	}

	a.Gallery = usecase.NewGalleryUsecase(store, listingCache, events, a.Metrics, log, usecase.Options{
		PageSize:          cfg.PageSize,
		BrandPageSize:     cfg.BrandPageSize,
		FeaturedLimit:     cfg.FeaturedLimit,
		MaxFilesPerBatch:  cfg.MaxFilesPerBatch,
		DeleteConcurrency: cfg.DeleteConcurrency,
		CacheTTL:          cfg.CacheTTL,
		URL:               AssetURLBuilder(cfg.PublicBaseURL),
	})
	return a, nil
}

func (a *App) openStore(ctx context.Context) (domain.BlobStore, error) {
	cfg := a.Config
	switch cfg.BlobBackend {
	case config.BackendGridFS:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		return gridfs.NewStore(client.Database(cfg.MongoDatabase), cfg.GridFSBucket, cfg.GridFSChunkSizeBytes, a.Logger)
	case config.BackendMinIO:
		return s3.NewStore(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL, a.Logger)
	case config.BackendMemory:
		a.Logger.Warn("Using the in-memory blob store; data is lost on restart.")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}

// Close releases connections in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// AssetURLBuilder returns public URLs under base for stored filenames.
func AssetURLBuilder(base string) usecase.URLBuilder {
	return func(filename string) string {
		return base + AssetPath + url.PathEscape(filename)
	}
}
