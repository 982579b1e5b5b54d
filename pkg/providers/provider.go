// Package providers implements the app acquisition variants that feed the
// merge engine: mirroring another catalog, following a repository's GitHub
// releases, and following a curated release feed.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/appstation/sourcekit/internal/githubapi"
	"github.com/appstation/sourcekit/internal/ipa"
	"github.com/appstation/sourcekit/internal/transport"
	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/identity"
)

// Kind selects a provider variant.
type Kind string

const (
	KindAltSource Kind = "altsource"
	KindGitHub    Kind = "github"
	KindCurated   Kind = "curated"
)

// String implements fmt.Stringer
func (k Kind) String() string { return string(k) }

// Valid reports whether the kind names a known provider variant.
func (k Kind) Valid() bool {
	switch k {
	case KindAltSource, KindGitHub, KindCurated:
		return true
	}
	return false
}

// UnmarshalJSON implements json.Unmarshaler
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = Kind(s)
	return nil
}

// UnmarshalYAML implements yaml.InterfaceUnmarshaler
func (k *Kind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*k = Kind(s)
	return nil
}

// UploadTarget names the repository whose latest release stores re-hosted
// assets.
type UploadTarget struct {
	Owner string `json:"owner" yaml:"owner"`
	Repo  string `json:"repo" yaml:"repo"`
}

// Config is one entry of the update configuration. Kind decides which of the
// remaining fields apply.
type Config struct {
	Kind Kind           `json:"kind" yaml:"kind"`
	IDs  []identity.Ref `json:"ids,omitempty" yaml:"ids,omitempty"`

	// Catalog mirror.
	Source       string `json:"source,omitempty" yaml:"source,omitempty"`
	AllApps      bool   `json:"allApps,omitempty" yaml:"allApps,omitempty"`
	IgnoreNews   bool   `json:"ignoreNews,omitempty" yaml:"ignoreNews,omitempty"`
	AllNews      bool   `json:"allNews,omitempty" yaml:"allNews,omitempty"`
	MinimalPatch bool   `json:"minimalPatch,omitempty" yaml:"minimalPatch,omitempty"`

	// Release feeds.
	URL                string        `json:"url,omitempty" yaml:"url,omitempty"`
	RepoOwner          string        `json:"repoOwner,omitempty" yaml:"repoOwner,omitempty"`
	RepoName           string        `json:"repoName,omitempty" yaml:"repoName,omitempty"`
	IncludePrereleases bool          `json:"prereleases,omitempty" yaml:"prereleases,omitempty"`
	PreferDate         bool          `json:"preferDate,omitempty" yaml:"preferDate,omitempty"`
	AssetPattern       string        `json:"assetPattern,omitempty" yaml:"assetPattern,omitempty"`
	ExtractTwice       bool          `json:"extractTwice,omitempty" yaml:"extractTwice,omitempty"`
	Upload             *UploadTarget `json:"upload,omitempty" yaml:"upload,omitempty"`
}

// DefaultAssetPattern matches release assets when a configuration does not
// name its own pattern.
const DefaultAssetPattern = `.*\.ipa`

// Inspector inspects downloaded packages. The production implementation is
// internal/ipa; tests substitute fakes.
type Inspector interface {
	Inspect(path string) (*ipa.Info, error)
	ExtractInner(path string) (string, func(), error)
	SHA256(path string) (string, error)
}

// AssetStore re-hosts a downloaded asset and returns its public download URL.
type AssetStore interface {
	Upload(ctx context.Context, name, path string) (string, error)
}

// Deps carries the collaborators a provider needs. Zero-value fields fall
// back to production implementations where one exists.
type Deps struct {
	HTTP      *transport.Client
	GitHub    *githubapi.Client
	Inspector Inspector
	Download  func(ctx context.Context, url string, w io.Writer) (int64, error)
	Store     AssetStore
}

func (d *Deps) inspector() Inspector {
	if d.Inspector != nil {
		return d.Inspector
	}
	return PackageInspector{}
}

func (d *Deps) download() func(ctx context.Context, url string, w io.Writer) (int64, error) {
	if d.Download != nil {
		return d.Download
	}
	return d.HTTP.Download
}

// PackageInspector is the production Inspector backed by internal/ipa.
type PackageInspector struct{}

func (PackageInspector) Inspect(path string) (*ipa.Info, error) { return ipa.Inspect(path) }

func (PackageInspector) ExtractInner(path string) (string, func(), error) {
	return ipa.ExtractInner(path)
}

func (PackageInspector) SHA256(path string) (string, error) { return ipa.SHA256File(path) }

// AssetInfo is the result of downloading and inspecting a release asset.
type AssetInfo struct {
	DownloadURL string
	Size        int64
	SHA256      string
	Package     *ipa.Info
}

// AppFetcher yields complete apps, filtered and keyed by the requested ids.
type AppFetcher interface {
	FetchApps(refs []identity.Ref) ([]*altsource.App, error)
}

// NewsFetcher yields news articles for the requested ids.
type NewsFetcher interface {
	FetchNews(refs []identity.Ref) ([]*altsource.Article, error)
}

// ReleaseFeed exposes the single newest qualifying release of a followed
// project.
type ReleaseFeed interface {
	Version() string
	VersionDate() string
	VersionDescription() string
	AssetMetadata(ctx context.Context) (*AssetInfo, error)
}

// Provider is the common surface of all variants.
type Provider interface {
	Kind() Kind
	Name() string
}

// New builds the provider a configuration entry asks for. Construction does
// the fallible acquisition work up front: mirrors load and validate their
// remote document, release feeds resolve their newest qualifying release.
// An unknown kind is a configuration error wrapping ErrUnsupported, fatal to
// the whole run.
func New(ctx context.Context, cfg Config, deps Deps) (Provider, error) {
	switch cfg.Kind {
	case KindAltSource:
		return newSourceProvider(ctx, cfg, deps)
	case KindGitHub:
		return newGitHubProvider(ctx, cfg, deps)
	case KindCurated:
		return newCuratedProvider(ctx, cfg, deps)
	default:
		return nil, errors.NewConfigError("provider",
			fmt.Sprintf("unknown provider kind %q", cfg.Kind), errors.ErrUnsupported)
	}
}

// singleTarget enforces that a release feed configuration names exactly one
// app.
func singleTarget(cfg Config) (identity.Ref, error) {
	if len(cfg.IDs) != 1 {
		return identity.Ref{}, errors.NewConfigError(cfg.Kind.String(),
			fmt.Sprintf("release feed requires exactly one app id, got %d", len(cfg.IDs)), nil)
	}
	return cfg.IDs[0], nil
}
