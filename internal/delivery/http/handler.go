package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tallaby/backend/internal/domain"
)

// Client-facing error messages
const (
	msgURLRequired   = "URL is required"
	msgFetchProduct  = "Failed to fetch product"
	msgNotConfigured = "Product extraction not configured"
)

const (
	serviceName     = "tallaby-backend"
	serviceVersion  = "1.0.0"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	products domain.ProductExtractor
}

// NewHandler creates a new HTTP handler
func NewHandler(products domain.ProductExtractor) *Handler {
	return &Handler{products: products}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// FetchProduct scrapes the product page named in the request body
func (h *Handler) FetchProduct(c *gin.Context) {
	if h.products == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgNotConfigured})
		return
	}

	var request domain.ExtractionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgURLRequired})
		return
	}

	product, err := h.products.FetchProduct(c.Request.Context(), &request)
	if err != nil {
		h.writeError(c, request.URL, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// writeError maps extraction failures onto the public error contract
func (h *Handler) writeError(c *gin.Context, target string, err error) {
	var fetchErr *domain.FetchError

	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgURLRequired})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": fetchErr.Error()})
	default:
		zap.L().Error("product extraction failed",
			zap.String("url", target),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgFetchProduct})
	}
}
