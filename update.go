package sourcekit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/identity"
	"github.com/appstation/sourcekit/pkg/logging"
	"github.com/appstation/sourcekit/pkg/providers"
)

// Level classifies a diagnostic.
type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Diagnostic is one structured event recorded during an update run.
type Diagnostic struct {
	Level    Level  `json:"level"`
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// Summary reports what an update run changed. It is produced even when
// individual configuration entries fail; their failures appear in
// Diagnostics.
type Summary struct {
	AppsUpdated int          `json:"appsUpdated"`
	AppsAdded   int          `json:"appsAdded"`
	NewsAdded   int          `json:"newsAdded"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

func (s *Summary) warnf(provider, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logging.Warn().Str("provider", provider).Msg(msg)
	s.Diagnostics = append(s.Diagnostics, Diagnostic{Level: LevelWarning, Provider: provider, Message: msg})
}

func (s *Summary) errorf(provider, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logging.Error().Str("provider", provider).Msg(msg)
	s.Diagnostics = append(s.Diagnostics, Diagnostic{Level: LevelError, Provider: provider, Message: msg})
}

// releaseFeed is the surface shared by the GitHub and curated providers.
type releaseFeed interface {
	providers.Provider
	providers.ReleaseFeed
	Target() identity.Ref
}

// maxErrorDetail caps the logged detail of parse failures so one malformed
// upstream value cannot flood the run output.
const maxErrorDetail = 300

// bundleChangeNote is appended to a version description when the package's
// bundle identifier no longer matches the catalog entry.
const bundleChangeNote = "\n\nNOTE: BundleIdentifier changed in this version and automatic updates have been disabled until manual install occurs."

// Update reconciles the source against the configured providers, in
// declaration order. A failing entry is recorded in the summary and leaves
// the source untouched; the run continues with the next entry. An unknown
// provider kind aborts the whole run.
func (m *Manager) Update(ctx context.Context, configs []providers.Config) (*Summary, error) {
	summary := &Summary{}
	for _, cfg := range configs {
		err := m.applyConfig(ctx, cfg, summary)
		if err == nil {
			continue
		}
		if errors.IsUnsupported(err) {
			summary.errorf(cfg.Kind.String(), "%s", err.Error())
			return summary, err
		}
		detail := err.Error()
		if errors.IsVersionParse(err) {
			detail = errors.Truncate(err, maxErrorDetail)
		}
		summary.errorf(cfg.Kind.String(), "%s", detail)
	}
	return summary, nil
}

func (m *Manager) applyConfig(ctx context.Context, cfg providers.Config, summary *Summary) error {
	p, err := providers.New(ctx, cfg, m.deps(cfg))
	if err != nil {
		return err
	}
	switch p := p.(type) {
	case *providers.SourceProvider:
		return m.applyMirror(ctx, cfg, p, summary)
	case releaseFeed:
		return m.applyReleaseFeed(ctx, cfg, p, summary)
	default:
		return errors.NewConfigError("provider",
			fmt.Sprintf("unhandled provider kind %q", p.Kind()), errors.ErrUnsupported)
	}
}

// mirrorChange is one resolved app mutation. Resolution happens before any
// mutation so a failing entry cannot leave the source half applied.
type mirrorChange struct {
	index   int // -1 appends
	app     *altsource.App
	updated bool
}

func (m *Manager) applyMirror(ctx context.Context, cfg providers.Config, p *providers.SourceProvider, summary *Summary) error {
	refs := cfg.IDs
	if cfg.AllApps {
		refs = nil
	}
	apps, err := p.FetchApps(refs)
	if err != nil {
		return err
	}

	index := m.source.AppIndex()
	var changes []mirrorChange
	for _, fetched := range apps {
		key := fetched.Key()
		i, exists := index[key]
		if !exists {
			if missing := fetched.MissingKeys(); len(missing) > 0 {
				summary.warnf(p.Name(), "Skipping invalid app %s, missing keys: %s",
					key, strings.Join(missing, ", "))
				continue
			}
			changes = append(changes, mirrorChange{index: -1, app: fetched, updated: true})
			continue
		}

		existing := m.source.Apps[i]
		fetchedLatest := fetched.LatestVersion()
		if fetchedLatest == nil {
			summary.warnf(p.Name(), "Skipping app %s, upstream entry has no versions", key)
			continue
		}
		newer := true
		if existingLatest := existing.LatestVersion(); existingLatest != nil {
			cmp, err := altsource.Compare(fetchedLatest, existingLatest)
			if err != nil {
				return err
			}
			newer = cmp > 0
		}
		if cfg.MinimalPatch {
			if !newer {
				continue
			}
			changes = append(changes, mirrorChange{index: i, app: patchApp(existing, fetched), updated: true})
			continue
		}
		changes = append(changes, mirrorChange{index: i, app: replaceApp(existing, fetched), updated: newer})
	}

	newsReplace, newsAdds, err := m.resolveNews(cfg, p, refs, summary)
	if err != nil {
		return err
	}

	for _, ch := range changes {
		if ch.index >= 0 {
			m.source.Apps[ch.index] = ch.app
			if ch.updated {
				summary.AppsUpdated++
			}
		} else {
			m.source.Apps = append(m.source.Apps, ch.app)
			summary.AppsAdded++
		}
		if m.inlineEnrich && ch.updated {
			m.enrichLatest(ctx, ch.app, summary)
		}
	}
	for i, article := range newsReplace {
		m.source.News[i] = article
	}
	for _, article := range newsAdds {
		m.source.News = append(m.source.News, article)
		summary.NewsAdded++
	}
	return nil
}

func (m *Manager) resolveNews(cfg providers.Config, p *providers.SourceProvider, refs []identity.Ref, summary *Summary) (map[int]*altsource.Article, []*altsource.Article, error) {
	if cfg.IgnoreNews {
		return nil, nil, nil
	}
	newsRefs := refs
	if cfg.AllNews {
		newsRefs = nil
	}
	articles, err := p.FetchNews(newsRefs)
	if err != nil {
		return nil, nil, err
	}

	newsIndex := m.source.NewsIndex()
	replace := make(map[int]*altsource.Article)
	var adds []*altsource.Article
	added := make(map[string]int)
	for _, article := range articles {
		if missing := article.MissingKeys(); len(missing) > 0 {
			summary.warnf(p.Name(), "Skipping invalid article %s, missing keys: %s",
				article.Identifier, strings.Join(missing, ", "))
			continue
		}
		if i, ok := newsIndex[article.Identifier]; ok {
			replace[i] = article
			continue
		}
		if i, ok := added[article.Identifier]; ok {
			adds[i] = article
			continue
		}
		added[article.Identifier] = len(adds)
		adds = append(adds, article)
	}
	return replace, adds, nil
}

// replaceApp slots the freshly fetched app into the existing app's place,
// carrying over only the prior entry's bookkeeping. The mirror is treated as
// authoritative, so versions held locally but absent upstream are dropped;
// minimalPatch is the opt-out for callers that cannot afford that.
func replaceApp(existing, fetched *altsource.App) *altsource.App {
	replacement := fetched.Clone()
	if replacement.AppID == "" {
		replacement.AppID = existing.AppID
	}
	for key, value := range existing.Extra {
		if replacement.Extra == nil {
			replacement.Extra = make(map[string]json.RawMessage)
		}
		if _, ok := replacement.Extra[key]; !ok {
			replacement.Extra[key] = value
		}
	}

	versions := replacement.Versions
	replacement.Versions = nil
	for i := len(versions) - 1; i >= 0; i-- {
		replacement.AddVersion(versions[i])
	}
	return replacement
}

// patchApp keeps the existing app entry and only adds the versions it lacks.
func patchApp(existing, fetched *altsource.App) *altsource.App {
	updated := existing.Clone()
	for i := len(fetched.Versions) - 1; i >= 0; i-- {
		if !hasVersion(updated.Versions, fetched.Versions[i]) {
			updated.AddVersion(fetched.Versions[i].Clone())
		}
	}
	return updated
}

func hasVersion(versions []*altsource.Version, v *altsource.Version) bool {
	for _, have := range versions {
		if have.Version == v.Version && have.BuildVersion == v.BuildVersion {
			return true
		}
	}
	return false
}

func (m *Manager) applyReleaseFeed(ctx context.Context, cfg providers.Config, feed releaseFeed, summary *Summary) error {
	key := feed.Target().Key()
	i, ok := m.source.AppIndex()[key]
	if !ok {
		summary.warnf(feed.Name(), "App %s not present in source, skipping release feed", key)
		return nil
	}
	app := m.source.Apps[i]

	newer, err := feedHasNewer(cfg, feed, app.LatestVersion())
	if err != nil {
		return err
	}
	if !newer {
		logging.Debug().Str("provider", feed.Name()).Str("app", key).
			Msg("No newer release")
		return nil
	}

	metadata, err := feed.AssetMetadata(ctx)
	if err != nil {
		return err
	}

	v := feedVersion(feed, metadata)
	pkg := metadata.Package
	if pkg.BundleIdentifier != "" && app.BundleIdentifier != "" && pkg.BundleIdentifier != app.BundleIdentifier {
		summary.warnf(feed.Name(), "Bundle identifier of %s changed to %s", key, pkg.BundleIdentifier)
		app.BundleIdentifier = pkg.BundleIdentifier
		v.LocalizedDescription += bundleChangeNote
	}

	app.AppID = key
	// The freshly inspected package is authoritative for permissions; stale
	// entries from earlier releases are dropped with it.
	app.AppPermissions = &altsource.Permissions{Privacy: pkg.Privacy}
	app.AddVersion(v)
	summary.AppsUpdated++
	return nil
}

// feedHasNewer decides whether the feed's release supersedes the app's newest
// version. The version comparison always runs; preferDate additionally
// accepts a release published after the newest known version even when its
// tag does not order higher.
func feedHasNewer(cfg providers.Config, feed releaseFeed, latest *altsource.Version) (bool, error) {
	if latest == nil {
		return true, nil
	}
	probe := &altsource.Version{
		AbsoluteVersion: feed.Version(),
		Version:         feed.Version(),
	}
	cmp, err := altsource.Compare(probe, latest)
	if err != nil {
		return false, err
	}
	if cmp > 0 {
		return true, nil
	}
	if !cfg.PreferDate {
		return false, nil
	}
	feedTime, err := altsource.ParseTime(feed.VersionDate())
	if err != nil {
		return false, errors.WrapProvider(feed.Name(), err)
	}
	haveTime, err := altsource.ParseTime(latest.Date)
	if err != nil {
		return false, errors.WrapProvider(feed.Name(), err)
	}
	return feedTime.After(haveTime), nil
}

// feedVersion builds the catalog version for a feed release. The package's
// own short version is the display version; the release tag becomes the
// absolute version when the two differ.
func feedVersion(feed releaseFeed, metadata *providers.AssetInfo) *altsource.Version {
	pkg := metadata.Package
	display := pkg.Version
	if display == "" {
		display = feed.Version()
	}
	v := &altsource.Version{
		Version:              display,
		BuildVersion:         pkg.BuildVersion,
		Date:                 normalizeDate(feed.VersionDate()),
		LocalizedDescription: feed.VersionDescription(),
		DownloadURL:          metadata.DownloadURL,
		Size:                 metadata.Size,
		SHA256:               metadata.SHA256,
		MinOSVersion:         pkg.MinOSVersion,
	}
	if feed.Version() != display {
		v.AbsoluteVersion = feed.Version()
	}
	return v
}

func normalizeDate(s string) string {
	t, err := altsource.ParseTime(s)
	if err != nil {
		return s
	}
	return altsource.FormatTime(t)
}
