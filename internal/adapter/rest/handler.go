package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// uploadField is the multipart field carrying the images.
const uploadField = "post"

// formAliases maps attribute names to older form field spellings.
var formAliases = map[string]string{
	domain.AttrFuelType: "feul",
}

// GalleryService is what the handlers need from the listing engine.
type GalleryService interface {
	Upload(ctx context.Context, attrs domain.Attributes, files []domain.UploadFile) (*domain.UploadResult, error)
	ListByBodyType(ctx context.Context, bodyType string) (domain.ListingPage, error)
	Featured(ctx context.Context) (domain.ListingPage, error)
	ListAll(ctx context.Context, page int) (domain.ListingPage, error)
	SearchBrand(ctx context.Context, query string) (domain.ListingPage, error)
	ListByBrand(ctx context.Context, brand string, page int) (domain.ListingPage, error)
	GetGroup(ctx context.Context, groupID string) (*domain.GroupDetail, error)
	DeleteGroup(ctx context.Context, groupID string) (*domain.DeleteReport, error)
	OpenAsset(ctx context.Context, filename string) (*domain.Asset, error)
	AssetURL(filename string) string
}

type GalleryHandler struct {
	svc              GalleryService
	logger           *logger.Logger
	maxUploadBytes   int64
	assetCacheMaxAge int
}

func NewGalleryHandler(svc GalleryService, log *logger.Logger, maxUploadBytes int64, assetCacheMaxAge int) *GalleryHandler {
	return &GalleryHandler{
		svc:              svc,
		logger:           log.Named("GalleryHandler"),
		maxUploadBytes:   maxUploadBytes,
		assetCacheMaxAge: assetCacheMaxAge,
	}
}

type uploadedFile struct {
	ObjectID    string `json:"objectId"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

type uploadResponse struct {
	GroupID string                 `json:"groupId"`
	Files   []uploadedFile         `json:"files"`
	Failed  []domain.UploadFailure `json:"failed,omitempty"`
}

type listingsResponse struct {
	URLs       []domain.ListingView `json:"urls"`
	TotalPages int                  `json:"totalPages,omitempty"`
}

type groupResponse struct {
	GroupID string              `json:"groupId"`
	Listing domain.ListingView  `json:"listing"`
	URLs    []domain.ObjectView `json:"urls"`
}

type deleteResponse struct {
	Message string `json:"message"`
	*domain.DeleteReport
}

// HandleUpload stores a multipart batch: attribute fields plus files under "post".
func (h *GalleryHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadBytes {
		http.Error(w, "Upload exceeds the maximum request size", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Upload exceeds the maximum request size", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Warn("HandleUpload: invalid multipart body", zap.Error(err))
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	attrs := attributesFromForm(r.MultipartForm)
	headers := r.MultipartForm.File[uploadField]
	files := make([]domain.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.logger.Error("HandleUpload: failed to open form file", zap.String("filename", fh.Filename), zap.Error(err))
			http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		files = append(files, domain.UploadFile{
			OriginalName: fh.Filename,
			ContentType:  fh.Header.Get("Content-Type"),
			Size:         fh.Size,
			Content:      f,
		})
	}

	result, err := h.svc.Upload(r.Context(), attrs, files)
	status := http.StatusCreated
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPartialBatch):
		status = http.StatusMultiStatus
	case errors.Is(err, domain.ErrEmptyBatch), errors.Is(err, domain.ErrBatchTooLarge):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	default:
		h.logger.Error("HandleUpload: batch failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := uploadResponse{GroupID: result.GroupID, Files: make([]uploadedFile, 0, len(result.Stored)), Failed: result.Failed}
	for _, obj := range result.Stored {
		resp.Files = append(resp.Files, uploadedFile{
			ObjectID:    obj.ID,
			Filename:    obj.Filename,
			URL:         h.svc.AssetURL(obj.Filename),
			ContentType: obj.ContentType,
			Size:        obj.Length,
		})
	}
	h.writeJSON(w, status, resp)
}

// HandleAsset streams one stored image.
func (h *GalleryHandler) HandleAsset(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	asset, err := h.svc.OpenAsset(r.Context(), filename)
	if err != nil {
		if errors.Is(err, domain.ErrAssetNotFound) {
			http.Error(w, "That image was not found", http.StatusNotFound)
			return
		}
		h.logger.Error("HandleAsset: failed to open asset", zap.String("filename", filename), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer asset.Body.Close()

	if asset.ContentType != "" {
		w.Header().Set("Content-Type", asset.ContentType)
	}
	if asset.Length > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.Length, 10))
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.assetCacheMaxAge))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, asset.Body); err != nil {
		h.logger.Warn("HandleAsset: stream interrupted", zap.String("filename", filename), zap.Error(err))
	}
}

func (h *GalleryHandler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	report, err := h.svc.DeleteGroup(r.Context(), groupID)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, deleteResponse{
			Message:      fmt.Sprintf("All files with groupId %s have been deleted", groupID),
			DeleteReport: report,
		})
	case errors.Is(err, domain.ErrGroupNotFound):
		http.Error(w, "No files found for the given groupId", http.StatusNotFound)
	case errors.Is(err, domain.ErrPartialDelete):
		h.writeJSON(w, http.StatusMultiStatus, deleteResponse{
			Message:      fmt.Sprintf("%d files with groupId %s could not be deleted", len(report.Failed), groupID),
			DeleteReport: report,
		})
	default:
		h.logger.Error("HandleDeleteGroup: failed", zap.String("group_id", groupID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *GalleryHandler) HandleByBodyType(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListByBodyType(r.Context(), chi.URLParam(r, "bodyType"))
	if err != nil {
		h.writeQueryError(w, err, "No vehicles found with the specified bodyType")
		return
	}
	h.writeJSON(w, http.StatusOK, page.Listings)
}

func (h *GalleryHandler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Featured(r.Context())
	if err != nil {
		h.writeQueryError(w, err, "No files found")
		return
	}
	h.writeJSON(w, http.StatusOK, listingsResponse{URLs: page.Listings})
}

func (h *GalleryHandler) HandleGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	detail, err := h.svc.GetGroup(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, domain.ErrGroupNotFound) {
			http.Error(w, "No files found for the given groupId", http.StatusNotFound)
			return
		}
		h.logger.Error("HandleGroup: failed", zap.String("group_id", groupID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, groupResponse{GroupID: groupID, Listing: detail.Listing, URLs: detail.Objects})
}

func (h *GalleryHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListAll(r.Context(), pageParam(r))
	if err != nil {
		h.writeQueryError(w, err, "No files found")
		return
	}
	h.writeJSON(w, http.StatusOK, listingsResponse{URLs: page.Listings, TotalPages: page.TotalPages})
}

func (h *GalleryHandler) HandleSearchBrand(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.SearchBrand(r.Context(), chi.URLParam(r, "brand"))
	if err != nil {
		h.writeQueryError(w, err, "No files found")
		return
	}
	h.writeJSON(w, http.StatusOK, listingsResponse{URLs: page.Listings})
}

func (h *GalleryHandler) HandleListByBrand(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListByBrand(r.Context(), chi.URLParam(r, "brand"), pageParam(r))
	if err != nil {
		h.writeQueryError(w, err, "No files found")
		return
	}
	h.writeJSON(w, http.StatusOK, listingsResponse{URLs: page.Listings, TotalPages: page.TotalPages})
}

func (h *GalleryHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *GalleryHandler) writeQueryError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrNoListings):
		http.Error(w, notFound, http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("listing query failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *GalleryHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// attributesFromForm takes the first value of each attribute field.
func attributesFromForm(form *multipart.Form) domain.Attributes {
	var attrs domain.Attributes
	for _, name := range domain.AttributeNames {
		values := form.Value[name]
		if len(values) == 0 {
			if alias, ok := formAliases[name]; ok {
				values = form.Value[alias]
			}
		}
		if len(values) > 0 {
			attrs.Set(name, values[0])
		}
	}
	return attrs
}

// pageParam parses ?page=, falling back to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
