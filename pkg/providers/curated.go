package providers

import (
	"context"
	"net/url"
	"path"

	"github.com/appstation/sourcekit/internal/githubapi"
	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/identity"
)

// curatedRelease is one entry of a curated release feed: a flat JSON list in
// the GitHub releases vocabulary with the download URL inlined, possibly
// relative to the feed location.
type curatedRelease struct {
	TagName            string `json:"tag_name"`
	Name               string `json:"name"`
	Body               string `json:"body"`
	Prerelease         bool   `json:"prerelease"`
	PublishedAt        string `json:"published_at"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// CuratedFeedProvider follows a curated release feed. It exposes the same
// release surface as GitHubProvider.
type CuratedFeedProvider struct {
	cfg     Config
	deps    Deps
	feedURL string
	target  identity.Ref
	release githubapi.Release
	asset   githubapi.Asset
}

func newCuratedProvider(ctx context.Context, cfg Config, deps Deps) (*CuratedFeedProvider, error) {
	target, err := singleTarget(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, errors.NewConfigError("curated", "missing feed URL", nil)
	}

	pattern, err := assetPattern(cfg)
	if err != nil {
		return nil, err
	}

	var entries []curatedRelease
	if err := deps.HTTP.GetJSON(ctx, cfg.URL, &entries); err != nil {
		return nil, err
	}

	releases, err := feedReleases(cfg.URL, entries)
	if err != nil {
		return nil, err
	}
	release, asset, err := selectRelease(cfg.URL, releases, pattern, cfg.IncludePrereleases, cfg.PreferDate)
	if err != nil {
		return nil, err
	}
	return &CuratedFeedProvider{
		cfg:     cfg,
		deps:    deps,
		feedURL: cfg.URL,
		target:  target,
		release: release,
		asset:   asset,
	}, nil
}

// feedReleases maps feed entries onto the release shape the selection logic
// works with, resolving download URLs against the feed location.
func feedReleases(feedURL string, entries []curatedRelease) ([]githubapi.Release, error) {
	base, err := url.Parse(feedURL)
	if err != nil {
		return nil, errors.NewConfigError("curated", "invalid feed URL", err)
	}

	releases := make([]githubapi.Release, 0, len(entries))
	for _, e := range entries {
		download, err := base.Parse(e.BrowserDownloadURL)
		if err != nil {
			return nil, errors.WrapParse("json", feedURL, err)
		}
		releases = append(releases, githubapi.Release{
			TagName:     e.TagName,
			Name:        e.Name,
			Body:        e.Body,
			Prerelease:  e.Prerelease,
			PublishedAt: e.PublishedAt,
			Assets: []githubapi.Asset{{
				Name:               path.Base(download.Path),
				UpdatedAt:          e.PublishedAt,
				BrowserDownloadURL: download.String(),
			}},
		})
	}
	return releases, nil
}

// Kind implements Provider
func (p *CuratedFeedProvider) Kind() Kind { return KindCurated }

// Name implements Provider
func (p *CuratedFeedProvider) Name() string { return p.feedURL }

// Target is the single app this feed updates.
func (p *CuratedFeedProvider) Target() identity.Ref { return p.target }

// Version is the normalized release tag.
func (p *CuratedFeedProvider) Version() string {
	return altsource.NormalizeTag(p.release.TagName)
}

// VersionDate is the release publication timestamp.
func (p *CuratedFeedProvider) VersionDate() string { return p.release.PublishedAt }

// VersionDescription renders the release title and body as markdown.
func (p *CuratedFeedProvider) VersionDescription() string {
	return "# " + p.release.Name + "\n\n" + p.release.Body
}

// AssetMetadata downloads and inspects the selected asset.
func (p *CuratedFeedProvider) AssetMetadata(ctx context.Context) (*AssetInfo, error) {
	return FetchAsset(ctx, p.cfg, p.deps, p.asset.BrowserDownloadURL, p.Version())
}
