// Package githubapi is a minimal client for the GitHub releases REST API:
// listing a repository's releases and uploading release assets. It covers
// exactly what the release-feed provider and the asset re-upload step need.
package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/appstation/sourcekit/internal/transport"
	"github.com/appstation/sourcekit/pkg/errors"
)

// Release is one release of a repository.
type Release struct {
	ID          int64   `json:"id"`
	TagName     string  `json:"tag_name"`
	Name        string  `json:"name"`
	Body        string  `json:"body"`
	Prerelease  bool    `json:"prerelease"`
	PublishedAt string  `json:"published_at"`
	UploadURL   string  `json:"upload_url"`
	Assets      []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	UpdatedAt          string `json:"updated_at"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Client talks to the GitHub API through the shared transport.
type Client struct {
	http *transport.Client
}

// New creates a GitHub API client.
func New(http *transport.Client) *Client {
	return &Client{http: http}
}

// ReleasesURL builds the canonical releases endpoint for a repository.
func ReleasesURL(owner, repo string) string {
	return fmt.Sprintf("https://api.github.com/repos/%s/%s/releases", owner, repo)
}

// Releases fetches all releases from the given API endpoint. Missing
// repositories and exhausted rate limits surface as provider errors that
// match errors.ErrNotFound and errors.ErrRateLimited respectively.
func (c *Client) Releases(ctx context.Context, apiURL string) ([]Release, error) {
	var releases []Release
	if err := c.http.GetJSON(ctx, apiURL, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// LatestRelease fetches a repository's latest non-draft, non-prerelease
// release; used as the upload target for re-hosted assets.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	var release Release
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", owner, repo)
	if err := c.http.GetJSON(ctx, url, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// UploadAsset uploads the file at path as a release asset named name and
// returns its download URL. The release's upload_url hypermedia template
// supplies the endpoint.
func (c *Client) UploadAsset(ctx context.Context, release *Release, name, path string) (string, error) {
	endpoint, err := uploadEndpoint(release.UploadURL, name)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", errors.WrapIO("stat", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, f)
	if err != nil {
		return "", errors.WrapProvider("github", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = info.Size()

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}

	var asset Asset
	if err := transport.DecodeResponse(resp, endpoint, &asset); err != nil {
		return "", err
	}
	return asset.BrowserDownloadURL, nil
}

// uploadEndpoint expands the {?name,label} hypermedia template on a
// release's upload_url.
func uploadEndpoint(uploadURL, name string) (string, error) {
	base, _, _ := strings.Cut(uploadURL, "{")
	if base == "" {
		return "", errors.NewConfigError("upload", "release has no upload_url", nil)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.WrapProvider("github", err)
	}
	q := u.Query()
	q.Set("name", name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
