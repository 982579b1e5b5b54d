// Package transport provides HTTP client functionality for upstream
// document, release feed, and asset retrieval. All requests run with a
// configurable timeout and a bounded retry policy for transient failures.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/logging"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// maxAttempts bounds the retry policy for transient failures.
const maxAttempts = 3

// retryBackoff is the delay between retry attempts.
var retryBackoff = 2 * time.Second

// Client performs authenticated HTTP requests.
type Client struct {
	http  *http.Client
	token string
}

// New creates a transport client. A zero timeout uses DefaultTimeout. The
// token, when set, is sent as a bearer credential on api.github.com and
// uploads.github.com requests only.
func New(timeout time.Duration, token string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:  &http.Client{Timeout: timeout},
		token: token,
	}
}

// Do performs the request, retrying transient failures (network errors and
// 5xx responses) up to the attempt bound.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.token != "" && isGitHubHost(req.URL.Host) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	var resp *http.Response
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err = c.http.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if req.Body != nil {
			// Request bodies are single-use; don't retry uploads.
			return resp, err
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		if attempt < maxAttempts {
			logging.Warn().
				Str("url", req.URL.String()).
				Int("attempt", attempt).
				Err(err).
				Msg("Transient request failure, retrying")
			select {
			case <-time.After(retryBackoff):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}
	}
	if err != nil {
		return nil, errors.WrapProvider(req.URL.Host, err)
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapProvider(url, err)
	}
	return c.Do(req)
}

// GetJSON fetches a URL and decodes the JSON response into target.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, url, target)
}

// Download streams a URL's body to w, returning the number of bytes copied.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.WrapProvider(url, err)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.NewProviderError(req.URL.Host, resp.StatusCode, "download failed")
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errors.WrapIO("download", url, err)
	}
	return n, nil
}

// DecodeResponse reads a response body and decodes it into target. Non-2xx
// responses become provider errors carrying the status code, so rate limits
// and missing repositories are distinguishable with errors.Is. Asset uploads
// answer 201, so the whole success range is accepted.
func DecodeResponse(resp *http.Response, url string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &errors.ProviderError{
			Provider:   resp.Request.URL.Host,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", url, err)
	}
	return nil
}

func isGitHubHost(host string) bool {
	return host == "api.github.com" || host == "uploads.github.com"
}
