package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/tallaby/backend/internal/domain"
)

// Options configures the outbound page fetch
type Options struct {
	Timeout        time.Duration
	MaxRedirects   int
	MaxBodyBytes   int64
	UserAgent      string
	AcceptLanguage string
}

// DefaultOptions returns the fetch policy used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Timeout:        15 * time.Second,
		MaxRedirects:   10,
		MaxBodyBytes:   5 << 20,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9,ar;q=0.8",
	}
}

// Client fetches product pages while presenting a browser-like request signature
type Client struct {
	httpClient *http.Client
	opts       Options
}

// NewClient creates a page fetcher. Unset timeout, size and header options fall
// back to DefaultOptions; MaxRedirects is used as given, so zero disables redirects.
func NewClient(opts Options) *Client {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = defaults.AcceptLanguage
	}

	maxRedirects := opts.MaxRedirects
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return eris.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		opts: opts,
	}
}

// setBrowserHeaders makes the request look like a top-level navigation from a desktop browser
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", c.opts.AcceptLanguage)
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// Fetch retrieves the page at rawURL, following redirects.
// A non-2xx answer is reported as *domain.FetchError; everything else is wrapped.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*domain.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	c.setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s", rawURL)
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		zap.L().Info("product page returned non-success status",
			zap.String("url", rawURL),
			zap.String("final_url", finalURL),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &domain.FetchError{StatusCode: resp.StatusCode, URL: finalURL}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, eris.Wrap(err, "decode body")
	}

	zap.L().Debug("product page fetched",
		zap.String("url", rawURL),
		zap.String("final_url", finalURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
	)

	return &domain.FetchResult{
		HTML:     body,
		FinalURL: finalURL,
	}, nil
}

// decodeBody converts the page to UTF-8 using the declared or sniffed charset.
// Sniffing only sees the first 1024 bytes, so an undeclared page that is valid
// UTF-8 as a whole is kept as UTF-8 instead of the windows-1252 fallback.
func decodeBody(raw []byte, contentType string) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	enc, name, certain := charset.DetermineEncoding(raw, contentType)
	if !certain && name == "windows-1252" {
		if trimmed := trimPartialRune(raw); utf8.Valid(trimmed) {
			return string(trimmed), nil
		}
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// trimPartialRune drops an incomplete UTF-8 sequence left at the end by the body cap
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		start := len(b) - i
		if !utf8.RuneStart(b[start]) {
			continue
		}
		if !utf8.FullRune(b[start:]) {
			return b[:start]
		}
		break
	}
	return b
}
