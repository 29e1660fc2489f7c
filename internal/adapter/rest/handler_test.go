package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/adapter/storage/memory"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/usecase"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDeleteStore struct {
	*memory.Store
	failID string
}

func (s *failingDeleteStore) Delete(ctx context.Context, objectID string) error {
	if objectID == s.failID {
		return errors.New("storage timeout")
	}
	return s.Store.Delete(ctx, objectID)
}

func newTestServer(t *testing.T, store domain.BlobStore) http.Handler {
	t.Helper()
	uc := usecase.NewGalleryUsecase(store, nil, nil, nil, logger.NewNop(), usecase.Options{
		PageSize: 2, BrandPageSize: 2, FeaturedLimit: 10, MaxFilesPerBatch: 5, DeleteConcurrency: 2,
		URL: func(filename string) string { return "http://gallery.test/api/posts/assets/" + filename },
	})
	h := NewGalleryHandler(uc, logger.NewNop(), 1<<20, 600)
	return NewRouter(h, "gallery_test", logger.NewNop(), nil)
}

func multipartUpload(t *testing.T, fields map[string]string, files ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range files {
		fw, err := mw.CreateFormFile(uploadField, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("image:" + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/posts/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func carFields(brand, bodyType string) map[string]string {
	return map[string]string{
		"brand": brand, "model": "M", "year": "2020", "color": "red", "bodyType": bodyType,
		"specs": "s", "mileage": "1", "seats": "5", "feul": "petrol",
		"transmission": "auto", "steering": "left", "trim": "base", "price": "100",
	}
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, brand, bodyType string, files ...string) uploadResponse {
	t.Helper()
	rec := do(h, multipartUpload(t, carFields(brand, bodyType), files...))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUploadThenReadBack(t *testing.T) {
	h := newTestServer(t, memory.NewStore())

	toyota := upload(t, h, "Toyota", "suv", "front.jpg", "back.jpg", "side.jpg")
	require.NotEmpty(t, toyota.GroupID)
	require.Len(t, toyota.Files, 3)
	assert.True(t, strings.HasPrefix(toyota.Files[0].URL, "http://gallery.test/api/posts/assets/"))
	upload(t, h, "Honda", "sedan", "a.jpg")

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/posts/vehicles/suv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var views []domain.ListingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Toyota", views[0].Brand)
	assert.Equal(t, "petrol", views[0].FuelType)
	assert.Equal(t, toyota.Files[0].URL, views[0].URL)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/posts/all/"+toyota.GroupID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var group groupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &group))
	assert.Equal(t, toyota.GroupID, group.Listing.GroupID)
	assert.Len(t, group.URLs, 3)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/posts/search/TOY", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var search listingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	require.Len(t, search.URLs, 1)
	assert.Equal(t, toyota.GroupID, search.URLs[0].GroupID)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/posts/featured", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAssetServing(t *testing.T) {
	h := newTestServer(t, memory.NewStore())
	resp := upload(t, h, "Toyota", "suv", "front.jpg")

	for _, prefix := range []string{"/api/posts/assets/", "/api/post/assets/"} {
		rec := do(h, httptest.NewRequest(http.MethodGet, prefix+resp.Files[0].Filename, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image:front.jpg", rec.Body.String())
		assert.Equal(t, "public, max-age=600", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	}

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/posts/assets/nothing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "That image was not found")
}

func TestPagination(t *testing.T) {
	h := newTestServer(t, memory.NewStore())
	for _, b := range []string{"A", "B", "C"} {
		upload(t, h, b, "suv", "x.jpg", "y.jpg")
	}

	var seen []string
	for _, page := range []string{"1", "2"} {
		rec := do(h, httptest.NewRequest(http.MethodGet, "/api/posts/listings?page="+page, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp listingsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.TotalPages)
		for _, v := range resp.URLs {
			seen = append(seen, v.Brand)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, seen)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/posts/test?page=abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var first listingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Len(t, first.URLs, 2)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/posts/listings?page=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var beyond listingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &beyond))
	assert.Empty(t, beyond.URLs)
	assert.Equal(t, 2, beyond.TotalPages)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/posts/searchretbrand/B?page=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var brand listingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &brand))
	require.Len(t, brand.URLs, 1)
	assert.Equal(t, 1, brand.TotalPages)
}

func TestNotFoundResponses(t *testing.T) {
	h := newTestServer(t, memory.NewStore())

	cases := map[string]string{
		"/api/posts/vehicles/suv":       "No vehicles found with the specified bodyType",
		"/api/posts/featured":           "No files found",
		"/api/posts/listings":           "No files found",
		"/api/posts/search/kia":         "No files found",
		"/api/posts/searchretbrand/kia": "No files found",
		"/api/posts/all/missing":        "No files found for the given groupId",
	}
	for path, msg := range cases {
		rec := do(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), msg, path)
	}

	rec := do(h, httptest.NewRequest(http.MethodDelete, "/api/posts/delete/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteGroup(t *testing.T) {
	store := memory.NewStore()
	h := newTestServer(t, store)
	resp := upload(t, h, "Toyota", "suv", "a.jpg", "b.jpg")
	upload(t, h, "Honda", "sedan", "c.jpg")

	rec := do(h, httptest.NewRequest(http.MethodDelete, "/api/posts/delete/"+resp.GroupID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "have been deleted")
	assert.Equal(t, 1, store.Len())

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/posts/vehicles/suv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteGroup_PartialFailure(t *testing.T) {
	mem := memory.NewStore()
	store := &failingDeleteStore{Store: mem}
	h := newTestServer(t, store)
	resp := upload(t, h, "Toyota", "suv", "a.jpg", "b.jpg")
	store.failID = resp.Files[1].ObjectID

	rec := do(h, httptest.NewRequest(http.MethodDelete, "/api/posts/delete/"+resp.GroupID, nil))
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	var report deleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{resp.Files[0].ObjectID}, report.Deleted)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, resp.Files[1].ObjectID, report.Failed[0].ObjectID)
}

func TestUploadRejections(t *testing.T) {
	h := newTestServer(t, memory.NewStore())

	rec := do(h, multipartUpload(t, carFields("Toyota", "suv")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, multipartUpload(t, carFields("Toyota", "suv"), "1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rec = do(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	uc := usecase.NewGalleryUsecase(memory.NewStore(), nil, nil, nil, logger.NewNop(), usecase.Options{})
	h := NewRouter(NewGalleryHandler(uc, logger.NewNop(), 64, 600), "gallery_test", logger.NewNop(), nil)

	rec := do(h, multipartUpload(t, carFields("Toyota", "suv"), "big.jpg"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, memory.NewStore())
	rec := do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
