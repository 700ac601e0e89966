// Package gis implements the client for the external catalog API (place
// search provider) and the pure mapping from its JSON payload to domain
// values.
//
// The client performs exactly one GET per call: there is no retry, no
// caching, and no rate limiting at this layer. A non-200 status is reported
// as a *StatusError without reading meaning into the body; transport faults
// and client-timeout expiry surface as ordinary errors. Callers classify.
package gis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

// StatusError reports a non-200 response from the provider. The body is not
// interpreted; only the status code travels upward.
type StatusError struct {
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.Code)
}

// Client is a thin HTTP client for the catalog API. The zero value is not
// usable; construct with NewClient. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client for the given provider endpoint and
// credential. timeout bounds each individual call end-to-end; a zero timeout
// disables the bound.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// EncodeQuery percent-encodes the search input as a single query term:
// city and text joined by one space, UTF-8, query-escaped (space becomes
// '+', '&' becomes %26, non-ASCII becomes %XX octets).
func EncodeQuery(city, text string) string {
	return url.QueryEscape(city + " " + text)
}

// ItemsURL builds the full request URL for an already-encoded query.
// Exposed for tests and for logging (redact the key before logging).
func (c *Client) ItemsURL(encodedQuery string) string {
	return c.baseURL + "/items?q=" + encodedQuery +
		"&type=branch&page_size=10&page=1&key=" + c.apiKey
}

// FetchItems issues a single GET for the encoded query and returns the raw
// response body. A non-200 status yields a *StatusError and a nil body.
func (c *Client) FetchItems(ctx context.Context, encodedQuery string) ([]byte, error) {
	full := c.ItemsURL(encodedQuery)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}

	log.Debug().Str("url", RedactKey(full)).Msg("provider request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused, but ignore the content.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	log.Debug().Int("bytes", len(body)).Msg("provider response")
	return body, nil
}

// keyRE matches the key parameter value in a provider URL.
var keyRE = regexp.MustCompile(`(key=)[^&]*`)

// RedactKey masks the API key in a provider URL so it never reaches logs.
func RedactKey(u string) string {
	return keyRE.ReplaceAllString(u, "${1}***")
}
