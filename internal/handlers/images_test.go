package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageshelf/internal/config"
	"imageshelf/internal/models"
	"imageshelf/internal/repository"
	"imageshelf/internal/service"
	"imageshelf/internal/storage"
)

type brokenRecords struct {
	*repository.MemoryRepository
}

func (brokenRecords) Put(ctx context.Context, record models.ImageRecord) error {
	return errors.New("table unavailable")
}

type undeletableRecords struct {
	*repository.MemoryRepository
}

func (undeletableRecords) Delete(ctx context.Context, imageID string) error {
	return errors.New("table unavailable")
}

type testAPI struct {
	router  *gin.Engine
	blobs   *storage.MemoryStore
	records *repository.MemoryRepository
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	blobs := storage.NewMemoryStore()
	records := repository.NewMemoryRepository()
	return testAPI{
		router:  newRouter(service.NewImageService(blobs, records, nil, zerolog.Nop()), Dependencies{Metadata: records, Blobs: blobs}),
		blobs:   blobs,
		records: records,
	}
}

func newRouter(images *service.ImageService, deps Dependencies) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{Environment: "test"}
	cfg.HTTP.MaxBodyBytes = 1 << 20

	router := gin.New()
	NewHandlerSet(zerolog.Nop(), cfg, images, deps).Register(router)
	return router
}

func (a testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a testAPI) upload(t *testing.T, image string, metadata map[string]any) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/images", map[string]any{"image": image, "metadata": metadata})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp createImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Image uploaded successfully", resp.Message)
	require.NotEmpty(t, resp.ImageID)
	return resp.ImageID
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUploadAndDownload(t *testing.T) {
	api := newTestAPI(t)

	id := api.upload(t, "aGVsbG8=", map[string]any{"user_id": "u1", "tags": []string{"a", "b"}})

	rec := api.do(t, http.MethodGet, "/images/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="`+id+`"`, rec.Header().Get("Content-Disposition"))
}

func TestUploadDataURLUsesMetadataContentType(t *testing.T) {
	api := newTestAPI(t)

	id := api.upload(t, "data:image/png;base64,aGVsbG8=", map[string]any{"user_id": "u1", "content_type": "image/webp"})

	rec := api.do(t, http.MethodGet, "/images/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
}

func TestUploadRejectsBadInput(t *testing.T) {
	cases := map[string]any{
		"malformed json":   "{not json",
		"empty body":       "",
		"missing metadata": map[string]any{"image": "aGVsbG8="},
		"missing user":     map[string]any{"image": "aGVsbG8=", "metadata": map[string]any{"title": "x"}},
		"bad base64":       map[string]any{"image": "***", "metadata": map[string]any{"user_id": "u1"}},
		"empty image":      map[string]any{"image": "", "metadata": map[string]any{"user_id": "u1"}},
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			api := newTestAPI(t)

			rec := api.do(t, http.MethodPost, "/images", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeMap(t, rec)["error"])

			all, err := api.records.Query(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	api := newTestAPI(t)
	huge := strings.Repeat("A", 2<<20)

	rec := api.do(t, http.MethodPost, "/images", map[string]any{"image": huge, "metadata": map[string]any{"user_id": "u1"}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadStoreFailureIs500(t *testing.T) {
	blobs := storage.NewMemoryStore()
	records := brokenRecords{repository.NewMemoryRepository()}
	api := testAPI{router: newRouter(service.NewImageService(blobs, records, nil, zerolog.Nop()), Dependencies{})}

	rec := api.do(t, http.MethodPost, "/images", map[string]any{"image": "aGVsbG8=", "metadata": map[string]any{"user_id": "u1"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["error"], "table unavailable")

	objects, err := blobs.List(context.Background(), "images/")
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestListImages(t *testing.T) {
	api := newTestAPI(t)

	a := api.upload(t, base64.StdEncoding.EncodeToString([]byte("a")), map[string]any{"user_id": "u1", "tags": []string{"cat"}})
	api.upload(t, base64.StdEncoding.EncodeToString([]byte("b")), map[string]any{"user_id": "u1", "tags": []string{"dog"}})
	c := api.upload(t, base64.StdEncoding.EncodeToString([]byte("c")), map[string]any{"user_id": "u2", "tags": []string{"cat"}})

	cases := []struct {
		query string
		want  []string
	}{
		{"", nil},
		{"?user_id=u1&tag=cat", []string{a}},
		{"?tag=cat", []string{a, c}},
		{"?user_id=nobody", []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, "/images"+tc.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			assert.NotContains(t, rec.Body.String(), "blob_key")
			assert.NotContains(t, rec.Body.String(), "images/")

			var resp struct {
				Images []map[string]any `json:"images"`
				Count  int              `json:"count"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, len(resp.Images), resp.Count)
			require.NotNil(t, resp.Images)

			if tc.want == nil {
				assert.Equal(t, 3, resp.Count)
				return
			}
			got := []string{}
			for _, img := range resp.Images {
				got = append(got, img["image_id"].(string))
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestGetUnknownImage(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/images/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Image not found", decodeMap(t, rec)["error"])
}

func TestGetImageWithMissingBlob(t *testing.T) {
	api := newTestAPI(t)
	id := api.upload(t, "aGVsbG8=", map[string]any{"user_id": "u1"})
	require.NoError(t, api.blobs.Delete(context.Background(), "images/"+id))

	rec := api.do(t, http.MethodGet, "/images/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Image content not found", decodeMap(t, rec)["error"])
}

func TestDeleteImage(t *testing.T) {
	api := newTestAPI(t)
	id := api.upload(t, "aGVsbG8=", map[string]any{"user_id": "u1"})

	rec := api.do(t, http.MethodDelete, "/images/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Image deleted successfully", decodeMap(t, rec)["message"])

	rec = api.do(t, http.MethodGet, "/images/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/images/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Image not found", decodeMap(t, rec)["error"])
}

func TestDeleteRecordFailureIs500ThenContentMissing(t *testing.T) {
	blobs := storage.NewMemoryStore()
	records := repository.NewMemoryRepository()
	api := testAPI{router: newRouter(service.NewImageService(blobs, records, nil, zerolog.Nop()), Dependencies{})}
	id := api.upload(t, "aGVsbG8=", map[string]any{"user_id": "u1"})

	api.router = newRouter(service.NewImageService(blobs, undeletableRecords{records}, nil, zerolog.Nop()), Dependencies{})

	rec := api.do(t, http.MethodDelete, "/images/"+id, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["error"], "table unavailable")

	rec = api.do(t, http.MethodGet, "/images/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Image content not found", decodeMap(t, rec)["error"])
}

func TestUploadBindErrorsNameTheField(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/images", `{"image":"aGVsbG8=","metadata":{"user_id":42}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	msg := decodeMap(t, rec)["error"].(string)
	assert.Contains(t, msg, "metadata.user_id")
	assert.Contains(t, msg, "string")
	assert.Contains(t, msg, "number")

	rec = api.do(t, http.MethodPost, "/images", `{"image":"aGVsbG8=","metadata":{"user_id":"u1","tags":"cat"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["error"], "metadata.tags")

	rec = api.do(t, http.MethodPost, "/images", `{"image":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["error"], "body")
}
