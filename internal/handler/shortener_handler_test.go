package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/arhen/satset.io/tests/mocks"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testBaseURL = "http://localhost:8080"

func setupTestRouter(mockService *mocks.MockShortenerService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewShortenerHandler(mockService, testBaseURL)
	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/urls", handler.ShortenURL)
		api.GET("/urls/check/:alias", handler.CheckAlias)
		api.GET("/urls/:alias/stats", handler.Stats)
		api.GET("/redirect/:alias", handler.RedirectData)
	}
	router.GET("/:alias", handler.Redirect)
	return router
}

func TestShortenURL_Created(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	now := time.Now()
	mockService.On("Shorten", mock.Anything, mock.MatchedBy(func(req *domain.CreateURLRequest) bool {
		return req.OriginalURL == "https://example.com"
	})).Return(&domain.URL{
		Alias:       "abc123",
		OriginalURL: "https://example.com",
		CreatedAt:   now,
		ExpiresAt:   now.Add(90 * 24 * time.Hour),
	}, nil).Once()

	req := httptest.NewRequest("POST", "/api/urls", strings.NewReader(`{"original_url": "https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc123", body["alias"])
	assert.Equal(t, testBaseURL+"/abc123", body["short_url"])
	assert.Equal(t, "https://example.com", body["original_url"])
	assert.EqualValues(t, now.Add(90*24*time.Hour).UnixMilli(), body["expires_at"])
	mockService.AssertExpectations(t)
}

func TestShortenURL_InvalidJSON(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	req := httptest.NewRequest("POST", "/api/urls", strings.NewReader(`{invalid json}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Shorten")
}

func TestShortenURL_ValidationFailure(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing url", `{"alias": "mylink"}`, "OriginalURL"},
		{"http scheme", `{"original_url": "http://example.com"}`, "OriginalURL"},
		{"bad alias", `{"original_url": "https://example.com", "alias": "bad-alias"}`, "Alias"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/urls", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body struct {
				Error  string `json:"error"`
				Fields []struct {
					Field string `json:"field"`
				} `json:"fields"`
			}
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Validation failed", body.Error)
			assert.Len(t, body.Fields, 1)
			assert.Equal(t, tt.field, body.Fields[0].Field)
		})
	}

	mockService.AssertNotCalled(t, "Shorten")
}

func TestShortenURL_AliasSpaceExhausted(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	mockService.On("Shorten", mock.Anything, mock.Anything).
		Return(nil, domain.ErrAliasSpaceExhausted).Once()

	req := httptest.NewRequest("POST", "/api/urls", strings.NewReader(`{"original_url": "https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestShortenURL_InternalError(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	mockService.On("Shorten", mock.Anything, mock.Anything).
		Return(nil, errors.New("database down")).Once()

	req := httptest.NewRequest("POST", "/api/urls", strings.NewReader(`{"original_url": "https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body["error"], "internal detail must not leak")
}

func TestCheckAlias_OK(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	mockService.On("CheckAlias", mock.Anything, "mylink").
		Return(&domain.CheckAliasResponse{Alias: "mylink", Available: true}, nil).Once()

	req := httptest.NewRequest("GET", "/api/urls/check/mylink", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["available"])
}

func TestRedirectData_OK(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	mockService.On("Resolve", mock.Anything, "abc123").
		Return(&domain.RedirectResponse{OriginalURL: "https://example.com", Alias: "abc123"}, nil).Once()

	req := httptest.NewRequest("GET", "/api/redirect/abc123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://example.com", body["original_url"])
}

func TestRedirectData_NotFound(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	mockService.On("Resolve", mock.Anything, "missing").
		Return(nil, domain.ErrNotFound).Once()

	req := httptest.NewRequest("GET", "/api/redirect/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirect_Found(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	mockService.On("Resolve", mock.Anything, "abc123").
		Return(&domain.RedirectResponse{OriginalURL: "https://example.com", Alias: "abc123"}, nil).Once()

	req := httptest.NewRequest("GET", "/abc123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))
}

func TestStats_OK(t *testing.T) {
	mockService := new(mocks.MockShortenerService)
	router := setupTestRouter(mockService)

	mockService.On("Stats", mock.Anything, "abc123").
		Return(&domain.URLStats{Alias: "abc123", ClickCount: 7}, nil).Once()

	req := httptest.NewRequest("GET", "/api/urls/abc123/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 7, body["click_count"])
}
