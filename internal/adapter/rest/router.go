package rest

import (
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/rest/middleware"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the gallery routes under /api/posts.
func NewRouter(h *GalleryHandler, serviceName string, log *logger.Logger, m *metrics.MetricsManager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log.Named("HTTP"), m))
	r.Use(middleware.Tracing(serviceName))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.HandleHealth)

	r.Route("/api/posts", func(r chi.Router) {
		r.Post("/upload", h.HandleUpload)
		r.Get("/assets/{filename}", h.HandleAsset)
		r.Delete("/delete/{groupId}", h.HandleDeleteGroup)
		r.Get("/vehicles/{bodyType}", h.HandleByBodyType)
		r.Get("/featured", h.HandleFeatured)
		r.Get("/all/{groupId}", h.HandleGroup)
		r.Get("/listings", h.HandleListAll)
		r.Get("/test", h.HandleListAll)
		r.Get("/search/{brand}", h.HandleSearchBrand)
		r.Get("/searchretbrand/{brand}", h.HandleListByBrand)
	})
	r.Get("/api/post/assets/{filename}", h.HandleAsset)

	return r
}
