package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallaby/backend/config"
	"github.com/tallaby/backend/internal/domain"
	"github.com/tallaby/backend/internal/infrastructure/fetcher"
	"github.com/tallaby/backend/internal/infrastructure/ratelimit"
	"github.com/tallaby/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockExtractor is a mock implementation of domain.ProductExtractor
type mockExtractor struct {
	product *domain.ProductResponse
	err     error
	panics  bool
	calls   int
	lastURL string
}

func (m *mockExtractor) FetchProduct(ctx context.Context, request *domain.ExtractionRequest) (*domain.ProductResponse, error) {
	m.calls++
	m.lastURL = request.URL
	if m.panics {
		panic("extractor exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"https://admin.tallaby.com", "http://localhost:*"},
		},
	}
}

// setupTestRouter creates a test router around the given extractor
func setupTestRouter(products domain.ProductExtractor) *gin.Engine {
	return SetupRouter(testConfig(), NewHandler(products), nil)
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "response should be valid JSON: %s", w.Body.String())
	return body
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(&mockExtractor{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "tallaby-backend", body["service"])
		assert.NotEmpty(t, body["version"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(&mockExtractor{})

		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(method, "/health", nil))
			assert.Equal(t, http.StatusNotFound, w.Code, "method %s", method)
		}
	})
}

func TestFetchProductEndpoint(t *testing.T) {
	amount := 19.99
	product := &domain.ProductResponse{
		URL:           "https://shop.example/p/1",
		Title:         "Widget",
		Price:         "$19.99",
		PriceAmount:   &amount,
		PriceCurrency: "USD",
		Images:        []string{"https://shop.example/a.jpg"},
		BulletPoints:  []string{},
	}

	for _, path := range []string{"/api/fetch-product", "/api/v1/products/fetch"} {
		t.Run("returns product from "+path, func(t *testing.T) {
			mock := &mockExtractor{product: product}
			router := setupTestRouter(mock)

			w := postJSON(router, path, `{"url":"https://shop.example/p/1"}`)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Equal(t, "https://shop.example/p/1", mock.lastURL)

			body := decodeBody(t, w)
			assert.Equal(t, "Widget", body["title"])
			assert.Equal(t, 19.99, body["priceAmount"])
			assert.Equal(t, "USD", body["priceCurrency"])
			assert.Equal(t, []any{"https://shop.example/a.jpg"}, body["images"])
			assert.Equal(t, []any{}, body["bulletPoints"])
			assert.NotContains(t, body, "description")
		})
	}

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		mock := &mockExtractor{}
		router := setupTestRouter(mock)

		w := postJSON(router, "/api/fetch-product", `{invalid json}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "URL is required", decodeBody(t, w)["error"])
		assert.Zero(t, mock.calls)
	})

	t.Run("returns 400 for invalid URL", func(t *testing.T) {
		router := setupTestRouter(&mockExtractor{err: domain.ErrInvalidURL})

		w := postJSON(router, "/api/fetch-product", `{"url":"not-a-url"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "URL is required", decodeBody(t, w)["error"])
	})

	t.Run("returns 400 with status for fetch failure", func(t *testing.T) {
		fetchErr := &domain.FetchError{StatusCode: 503, URL: "https://shop.example/p/1"}
		router := setupTestRouter(&mockExtractor{err: fmt.Errorf("fetch: %w", fetchErr)})

		w := postJSON(router, "/api/fetch-product", `{"url":"https://shop.example/p/1"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Failed to fetch page (status 503)", decodeBody(t, w)["error"])
	})

	t.Run("returns 500 for unexpected errors", func(t *testing.T) {
		router := setupTestRouter(&mockExtractor{err: errors.New("connection reset by peer")})

		w := postJSON(router, "/api/fetch-product", `{"url":"https://shop.example/p/1"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to fetch product", decodeBody(t, w)["error"])
	})

	t.Run("returns 500 when extraction panics", func(t *testing.T) {
		router := setupTestRouter(&mockExtractor{panics: true})

		w := postJSON(router, "/api/fetch-product", `{"url":"https://shop.example/p/1"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to fetch product", decodeBody(t, w)["error"])
	})

	t.Run("returns 503 when not configured", func(t *testing.T) {
		router := setupTestRouter(nil)

		w := postJSON(router, "/api/fetch-product", `{"url":"https://shop.example/p/1"}`)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "not configured")
	})

	t.Run("requires correct path", func(t *testing.T) {
		router := setupTestRouter(&mockExtractor{product: product})

		for _, path := range []string{"/api/v1/products", "/api/products/fetch", "/fetch-product"} {
			w := postJSON(router, path, `{"url":"https://shop.example/p/1"}`)
			assert.Equal(t, http.StatusNotFound, w.Code, "path %s", path)
		}
	})
}

func TestFetchProductEndpoint_EndToEnd(t *testing.T) {
	page := `<!doctype html><html><head>
<title>Widget | Example Shop</title>
<meta property="og:title" content="Widget">
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","name":"Widget",
 "image":"/a.jpg","offers":{"@type":"Offer","price":"19.99","priceCurrency":"USD"}}
</script>
</head><body><h1>Widget</h1></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/p/widget", http.StatusMovedPermanently)
		case "/p/widget":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	service := usecase.NewProductService(
		fetcher.NewClient(fetcher.DefaultOptions()),
		usecase.ProductServiceConfig{HeadingKeywords: config.DefaultHeadingKeywords},
	)
	router := setupTestRouter(service)

	t.Run("extracts structured data after redirect", func(t *testing.T) {
		w := postJSON(router, "/api/fetch-product", fmt.Sprintf(`{"url":%q}`, server.URL+"/old"))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, server.URL+"/p/widget", body["url"])
		assert.Equal(t, "Widget", body["title"])
		assert.Equal(t, 19.99, body["priceAmount"])
		assert.Equal(t, "USD", body["priceCurrency"])
		assert.Equal(t, []any{server.URL + "/a.jpg"}, body["images"])
	})

	t.Run("maps upstream 404 to 400", func(t *testing.T) {
		w := postJSON(router, "/api/fetch-product", fmt.Sprintf(`{"url":%q}`, server.URL+"/missing"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "404")
	})

	t.Run("rejects non-URL input", func(t *testing.T) {
		w := postJSON(router, "/api/fetch-product", `{"url":"not-a-url"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "URL is required", decodeBody(t, w)["error"])
	})
}

func TestRateLimitIntegration(t *testing.T) {
	store := ratelimit.NewStore(1, 1, time.Minute)
	defer store.Close()

	router := SetupRouter(testConfig(), NewHandler(&mockExtractor{product: &domain.ProductResponse{}}), store)

	first := postJSON(router, "/api/fetch-product", `{"url":"https://shop.example/p/1"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postJSON(router, "/api/v1/products/fetch", `{"url":"https://shop.example/p/1"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health checks are not rate limited
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter(&mockExtractor{product: &domain.ProductResponse{}})

	req := httptest.NewRequest(http.MethodOptions, "/api/fetch-product", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}
