package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageshelf/internal/config"
	"imageshelf/internal/handlers"
	"imageshelf/internal/repository"
	"imageshelf/internal/service"
	"imageshelf/internal/storage"
)

func TestServerRoutesAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{Environment: "test"}
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = 0
	cfg.HTTP.MaxBodyBytes = 1 << 20

	blobs := storage.NewMemoryStore()
	records := repository.NewMemoryRepository()
	svc := service.NewImageService(blobs, records, nil, zerolog.Nop())
	srv := NewHTTPServer(cfg, zerolog.Nop(), handlers.NewHandlerSet(zerolog.Nop(), cfg, svc, handlers.Dependencies{Metadata: records, Blobs: blobs}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodPost, "/images", strings.NewReader(`{"image":"aGVsbG8=","metadata":{"user_id":"u1"}}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
