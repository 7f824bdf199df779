package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/arhen/satset.io/internal/logger"
	"github.com/arhen/satset.io/pkg/response"
	"github.com/arhen/satset.io/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ShortenerService interface {
	Shorten(ctx context.Context, req *domain.CreateURLRequest) (*domain.URL, error)
	Resolve(ctx context.Context, alias string) (*domain.RedirectResponse, error)
	CheckAlias(ctx context.Context, alias string) (*domain.CheckAliasResponse, error)
	Stats(ctx context.Context, alias string) (*domain.URLStats, error)
}

type ShortenerHandler struct {
	service ShortenerService
	baseURL string
}

func NewShortenerHandler(service ShortenerService, baseURL string) *ShortenerHandler {
	return &ShortenerHandler{service: service, baseURL: baseURL}
}

func (h *ShortenerHandler) ShortenURL(c *gin.Context) {
	var req domain.CreateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if errs := validator.Validate(&req); len(errs) > 0 {
		response.ValidationErrors(c, errs)
		return
	}

	url, err := h.service.Shorten(c.Request.Context(), &req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, domain.CreateURLResponse{
		Alias:       url.Alias,
		ShortURL:    fmt.Sprintf("%s/%s", h.baseURL, url.Alias),
		OriginalURL: url.OriginalURL,
		ExpiresAt:   url.ExpiresAt.UnixMilli(),
		CreatedAt:   url.CreatedAt.UnixMilli(),
	})
}

func (h *ShortenerHandler) CheckAlias(c *gin.Context) {
	result, err := h.service.CheckAlias(c.Request.Context(), c.Param("alias"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RedirectData answers the JSON resolve used by the client application.
func (h *ShortenerHandler) RedirectData(c *gin.Context) {
	result, err := h.service.Resolve(c.Request.Context(), c.Param("alias"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Redirect answers the browser-facing short link with an actual redirect.
func (h *ShortenerHandler) Redirect(c *gin.Context) {
	result, err := h.service.Resolve(c.Request.Context(), c.Param("alias"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, result.OriginalURL)
}

func (h *ShortenerHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("alias"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *ShortenerHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		response.BadRequest(c, "Invalid URL")
	case errors.Is(err, domain.ErrInvalidAlias):
		response.BadRequest(c, "Invalid alias format")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, "Not found")
	case errors.Is(err, domain.ErrAliasSpaceExhausted):
		response.ServiceUnavailable(c, "Service unavailable")
	default:
		logger.FromContext(c.Request.Context()).Error("Request failed",
			slog.String("error", err.Error()),
		)
		response.InternalServerError(c, "Internal server error")
	}
}
