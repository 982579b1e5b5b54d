package providers

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/appstation/sourcekit/internal/githubapi"
	"github.com/appstation/sourcekit/internal/ipa"
	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/identity"
	"github.com/appstation/sourcekit/pkg/logging"
)

// GitHubProvider follows one repository's GitHub releases. Construction
// resolves the single newest qualifying release and its asset; the accessors
// then describe that release.
type GitHubProvider struct {
	cfg     Config
	deps    Deps
	name    string
	target  identity.Ref
	release githubapi.Release
	asset   githubapi.Asset
}

func newGitHubProvider(ctx context.Context, cfg Config, deps Deps) (*GitHubProvider, error) {
	target, err := singleTarget(cfg)
	if err != nil {
		return nil, err
	}

	apiURL := cfg.URL
	name := cfg.URL
	if apiURL == "" {
		if cfg.RepoOwner == "" || cfg.RepoName == "" {
			return nil, errors.NewConfigError("github", "missing repository owner/name or releases URL", nil)
		}
		apiURL = githubapi.ReleasesURL(cfg.RepoOwner, cfg.RepoName)
		name = cfg.RepoOwner + "/" + cfg.RepoName
	}

	pattern, err := assetPattern(cfg)
	if err != nil {
		return nil, err
	}

	client := deps.GitHub
	if client == nil {
		client = githubapi.New(deps.HTTP)
	}
	releases, err := client.Releases(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	release, asset, err := selectRelease(name, releases, pattern, cfg.IncludePrereleases, cfg.PreferDate)
	if err != nil {
		return nil, err
	}
	return &GitHubProvider{
		cfg:     cfg,
		deps:    deps,
		name:    name,
		target:  target,
		release: release,
		asset:   asset,
	}, nil
}

func assetPattern(cfg Config) (*regexp.Regexp, error) {
	expr := cfg.AssetPattern
	if expr == "" {
		expr = DefaultAssetPattern
	}
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.NewConfigError(cfg.Kind.String(),
			fmt.Sprintf("invalid asset pattern %q", expr), err)
	}
	return pattern, nil
}

// selectRelease picks the newest qualifying release and its asset.
// Prereleases are dropped unless included. With preferDate the release whose
// matched asset was updated last wins; otherwise the highest normalized tag
// wins, with unparseable tags dropped. The asset is the most recently
// updated name-pattern match.
func selectRelease(provider string, releases []githubapi.Release, pattern *regexp.Regexp, includePre, preferDate bool) (githubapi.Release, githubapi.Asset, error) {
	var candidates []githubapi.Release
	for _, r := range releases {
		if r.Prerelease && !includePre {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return githubapi.Release{}, githubapi.Asset{},
			errors.WrapProvider(provider, errors.ErrNoQualifyingRelease)
	}

	if preferDate {
		var (
			best      githubapi.Release
			bestAsset githubapi.Asset
			bestTime  time.Time
			found     bool
		)
		for _, r := range candidates {
			asset, ok := matchAsset(r, pattern)
			if !ok {
				continue
			}
			at := assetTime(asset)
			if !found || at.After(bestTime) {
				best, bestAsset, bestTime, found = r, asset, at, true
			}
		}
		if !found {
			return githubapi.Release{}, githubapi.Asset{},
				errors.WrapProvider(provider, errors.ErrNoQualifyingAsset)
		}
		return best, bestAsset, nil
	}

	var (
		best    githubapi.Release
		bestTag string
		found   bool
	)
	for _, r := range candidates {
		tag := altsource.NormalizeTag(r.TagName)
		if _, err := altsource.CompareVersionStrings(tag, tag); err != nil {
			logging.Warn().Str("provider", provider).Str("tag", r.TagName).
				Msg("Dropping release with unorderable tag")
			continue
		}
		if !found {
			best, bestTag, found = r, tag, true
			continue
		}
		if cmp, err := altsource.CompareVersionStrings(tag, bestTag); err == nil && cmp > 0 {
			best, bestTag = r, tag
		}
	}
	if !found {
		return githubapi.Release{}, githubapi.Asset{},
			errors.WrapProvider(provider, errors.ErrNoQualifyingRelease)
	}
	asset, ok := matchAsset(best, pattern)
	if !ok {
		return githubapi.Release{}, githubapi.Asset{},
			errors.WrapProvider(provider, errors.ErrNoQualifyingAsset)
	}
	return best, asset, nil
}

func matchAsset(release githubapi.Release, pattern *regexp.Regexp) (githubapi.Asset, bool) {
	var (
		best  githubapi.Asset
		found bool
	)
	for _, a := range release.Assets {
		if !pattern.MatchString(a.Name) {
			continue
		}
		if !found || assetTime(a).After(assetTime(best)) {
			best, found = a, true
		}
	}
	return best, found
}

func assetTime(a githubapi.Asset) time.Time {
	t, err := altsource.ParseTime(a.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Kind implements Provider
func (p *GitHubProvider) Kind() Kind { return KindGitHub }

// Name implements Provider
func (p *GitHubProvider) Name() string { return p.name }

// Target is the single app this feed updates.
func (p *GitHubProvider) Target() identity.Ref { return p.target }

// Version is the normalized release tag.
func (p *GitHubProvider) Version() string {
	return altsource.NormalizeTag(p.release.TagName)
}

// VersionDate is the release publication timestamp, falling back to the
// asset update timestamp.
func (p *GitHubProvider) VersionDate() string {
	if p.release.PublishedAt != "" {
		return p.release.PublishedAt
	}
	return p.asset.UpdatedAt
}

// VersionDescription renders the release title and body as markdown.
func (p *GitHubProvider) VersionDescription() string {
	return "# " + p.release.Name + "\n\n" + p.release.Body
}

// AssetMetadata downloads and inspects the selected asset. With an upload
// target configured the asset is re-hosted and the download URL rewritten.
func (p *GitHubProvider) AssetMetadata(ctx context.Context) (*AssetInfo, error) {
	return FetchAsset(ctx, p.cfg, p.deps, p.asset.BrowserDownloadURL, p.Version())
}

// FetchAsset downloads the package at downloadURL into a temporary file,
// inspects it, and computes its digest. With cfg.ExtractTwice the inner .ipa
// is unwrapped first. A configured deps.Store re-hosts the package and the
// returned download URL points at the re-hosted copy.
func FetchAsset(ctx context.Context, cfg Config, deps Deps, downloadURL, version string) (*AssetInfo, error) {
	path, cleanup, err := ipa.DownloadTemp(ctx, deps.download(), downloadURL)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	inspector := deps.inspector()
	if cfg.ExtractTwice {
		inner, innerCleanup, err := inspector.ExtractInner(path)
		if err != nil {
			return nil, err
		}
		defer innerCleanup()
		path = inner
	}

	info, err := inspector.Inspect(path)
	if err != nil {
		return nil, err
	}
	sum, err := inspector.SHA256(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapIO("stat", path, err)
	}

	url := downloadURL
	if deps.Store != nil {
		name := fmt.Sprintf("%s-%s.ipa", info.BundleIdentifier, version)
		url, err = deps.Store.Upload(ctx, name, path)
		if err != nil {
			return nil, err
		}
	}
	return &AssetInfo{
		DownloadURL: url,
		Size:        stat.Size(),
		SHA256:      sum,
		Package:     info,
	}, nil
}

// ReleaseStore uploads assets to a repository's latest release.
type ReleaseStore struct {
	Client *githubapi.Client
	Owner  string
	Repo   string
}

// Upload implements AssetStore
func (s *ReleaseStore) Upload(ctx context.Context, name, path string) (string, error) {
	release, err := s.Client.LatestRelease(ctx, s.Owner, s.Repo)
	if err != nil {
		return "", err
	}
	return s.Client.UploadAsset(ctx, release, name, path)
}
