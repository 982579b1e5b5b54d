package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appstation/sourcekit/internal/ipa"
	"github.com/appstation/sourcekit/internal/transport"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/identity"
)

const releasesDocument = `[
	{"id": 3, "tag_name": "v2.0.0-beta.1", "name": "2.0.0 beta 1", "body": "try it",
	 "prerelease": true, "published_at": "2024-05-01T00:00:00Z",
	 "assets": [{"name": "app.ipa", "updated_at": "2024-05-01T00:00:00Z",
	             "size": 300, "browser_download_url": "https://example.com/beta.ipa"}]},
	{"id": 2, "tag_name": "v1.2.0", "name": "1.2.0", "body": "bug fixes",
	 "prerelease": false, "published_at": "2024-03-01T00:00:00Z",
	 "assets": [{"name": "app.ipa", "updated_at": "2024-03-01T00:05:00Z",
	             "size": 200, "browser_download_url": "https://example.com/1.2.0.ipa"}]},
	{"id": 1, "tag_name": "v1.0.0", "name": "1.0.0", "body": "initial",
	 "prerelease": false, "published_at": "2024-01-01T00:00:00Z",
	 "assets": [{"name": "app.ipa", "updated_at": "2024-01-01T00:05:00Z",
	             "size": 100, "browser_download_url": "https://example.com/1.0.0.ipa"}]}
]`

type fakeInspector struct {
	info      *ipa.Info
	extracted bool
}

func (f *fakeInspector) Inspect(path string) (*ipa.Info, error) { return f.info, nil }

func (f *fakeInspector) ExtractInner(path string) (string, func(), error) {
	f.extracted = true
	return path, func() {}, nil
}

func (f *fakeInspector) SHA256(path string) (string, error) {
	return "a0b1c2d3", nil
}

type fakeStore struct {
	name string
}

func (s *fakeStore) Upload(_ context.Context, name, _ string) (string, error) {
	s.name = name
	return "https://cdn.example.com/" + name, nil
}

func fakeDownload(_ context.Context, _ string, w io.Writer) (int64, error) {
	n, err := w.Write([]byte("package-bytes"))
	return int64(n), err
}

func githubProvider(t *testing.T, cfg Config) *GitHubProvider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(releasesDocument))
	}))
	t.Cleanup(server.Close)

	cfg.Kind = KindGitHub
	cfg.URL = server.URL
	if cfg.IDs == nil {
		cfg.IDs = []identity.Ref{{ID: "com.example.app"}}
	}
	deps := Deps{
		HTTP:      transport.New(time.Second, ""),
		Inspector: &fakeInspector{info: &ipa.Info{BundleIdentifier: "com.example.app", Version: "1.2.0"}},
		Download:  fakeDownload,
	}
	p, err := newGitHubProvider(context.Background(), cfg, deps)
	require.NoError(t, err)
	return p
}

func TestGitHubProviderSelectsLatestStable(t *testing.T) {
	p := githubProvider(t, Config{})
	assert.Equal(t, "1.2.0", p.Version())
	assert.Equal(t, "2024-03-01T00:00:00Z", p.VersionDate())
	assert.Equal(t, "# 1.2.0\n\nbug fixes", p.VersionDescription())
}

func TestGitHubProviderIncludesPrereleases(t *testing.T) {
	p := githubProvider(t, Config{IncludePrereleases: true})
	assert.Equal(t, "2.0.0-beta.1", p.Version())
}

func TestGitHubProviderMissingRepo(t *testing.T) {
	cfg := Config{Kind: KindGitHub, IDs: []identity.Ref{{ID: "com.example.app"}}}
	_, err := newGitHubProvider(context.Background(), cfg, Deps{})
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestAssetMetadata(t *testing.T) {
	p := githubProvider(t, Config{})

	info, err := p.AssetMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/1.2.0.ipa", info.DownloadURL)
	assert.Equal(t, int64(len("package-bytes")), info.Size)
	assert.Equal(t, "a0b1c2d3", info.SHA256)
	assert.Equal(t, "com.example.app", info.Package.BundleIdentifier)
}

func TestAssetMetadataUploadRewritesURL(t *testing.T) {
	p := githubProvider(t, Config{})
	store := &fakeStore{}
	p.deps.Store = store

	info, err := p.AssetMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "com.example.app-1.2.0.ipa", store.name)
	assert.Equal(t, "https://cdn.example.com/com.example.app-1.2.0.ipa", info.DownloadURL)
}

func TestAssetMetadataExtractTwice(t *testing.T) {
	p := githubProvider(t, Config{ExtractTwice: true})
	inspector := p.deps.Inspector.(*fakeInspector)

	_, err := p.AssetMetadata(context.Background())
	require.NoError(t, err)
	assert.True(t, inspector.extracted)
}
