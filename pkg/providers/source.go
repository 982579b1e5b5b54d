package providers

import (
	"context"
	"io"
	"strings"

	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/identity"
	"github.com/appstation/sourcekit/pkg/logging"
)

// SourceProvider mirrors apps and news out of another catalog document,
// loaded from a local path or over HTTP.
type SourceProvider struct {
	origin string
	src    *altsource.Source
}

func newSourceProvider(ctx context.Context, cfg Config, deps Deps) (*SourceProvider, error) {
	if cfg.Source == "" {
		return nil, errors.NewConfigError("altsource", "missing source path or URL", nil)
	}

	var (
		src *altsource.Source
		err error
	)
	if strings.HasPrefix(cfg.Source, "http://") || strings.HasPrefix(cfg.Source, "https://") {
		src, err = loadHTTP(ctx, cfg.Source, deps)
	} else {
		src, err = altsource.Load(cfg.Source)
	}
	if err != nil {
		return nil, err
	}
	if missing := src.MissingKeys(); len(missing) > 0 {
		return nil, &errors.ParseError{
			Format:  "altsource",
			File:    cfg.Source,
			Message: "invalid source document, missing keys: " + strings.Join(missing, ", "),
		}
	}
	return &SourceProvider{origin: cfg.Source, src: src}, nil
}

func loadHTTP(ctx context.Context, url string, deps Deps) (*altsource.Source, error) {
	resp, err := deps.HTTP.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapProvider("altsource", err)
	}
	return altsource.Parse(data)
}

// Kind implements Provider
func (p *SourceProvider) Kind() Kind { return KindAltSource }

// Name implements Provider
func (p *SourceProvider) Name() string {
	if p.src.Name != "" {
		return p.src.Name
	}
	return p.origin
}

// Source exposes the mirrored document.
func (p *SourceProvider) Source() *altsource.Source { return p.src }

// FetchApps returns deep copies of the mirrored apps matching the requested
// ids, with their AppID assigned per the identity rules. A nil refs slice
// selects every app. Invalid mirrored apps are logged and skipped. Apps
// sharing a key are deduplicated by display version, higher wins and a tie
// keeps the later listing. Requested ids absent from the mirror are logged,
// not failed.
func (p *SourceProvider) FetchApps(refs []identity.Ref) ([]*altsource.App, error) {
	wanted := identity.Flatten(refs, false)
	verbatim := identity.Verbatim(refs)
	table := identity.Table(refs)

	wantedSet := make(map[string]struct{}, len(wanted))
	for _, id := range wanted {
		wantedSet[id] = struct{}{}
	}

	var out []*altsource.App
	position := make(map[string]int)
	for _, app := range p.src.Apps {
		if !app.IsValid() {
			logging.Warn().Str("provider", p.Name()).Str("app", app.Name).
				Msg("Skipping invalid mirrored app")
			continue
		}
		key := app.Key()
		if wanted != nil {
			if _, ok := wantedSet[key]; !ok {
				continue
			}
		}

		candidate := app.Clone()
		switch {
		case wanted == nil:
			if candidate.AppID == "" {
				candidate.AppID = candidate.BundleIdentifier
			}
		default:
			if _, plain := verbatim[key]; plain {
				candidate.AppID = key
			} else if mapped, ok := table[key]; ok {
				candidate.AppID = mapped
			}
		}

		if i, seen := position[key]; seen {
			have, next := out[i].LatestVersion(), candidate.LatestVersion()
			if next == nil {
				continue
			}
			if have == nil {
				out[i] = candidate
				continue
			}
			cmp, err := altsource.CompareDisplay(have, next)
			if err != nil {
				logging.Warn().Str("provider", p.Name()).Str("app", key).
					Msg("Cannot order duplicate app entries, keeping the first")
				continue
			}
			if cmp <= 0 {
				out[i] = candidate
			}
			continue
		}
		position[key] = len(out)
		out = append(out, candidate)
	}

	for _, id := range wanted {
		if _, ok := position[id]; !ok {
			logging.Warn().Str("provider", p.Name()).Str("app", id).
				Msg("Requested app not present in mirrored source")
		}
	}
	return out, nil
}

// FetchNews returns deep copies of the mirrored articles for the requested
// ids. A nil refs slice selects every article.
func (p *SourceProvider) FetchNews(refs []identity.Ref) ([]*altsource.Article, error) {
	wanted := identity.Flatten(refs, false)
	wantedSet := make(map[string]struct{}, len(wanted))
	for _, id := range wanted {
		wantedSet[id] = struct{}{}
	}

	var out []*altsource.Article
	for _, article := range p.src.News {
		if wanted != nil {
			if _, ok := wantedSet[article.AppID]; !ok {
				continue
			}
		}
		out = append(out, article.Clone())
	}
	return out, nil
}
