// Package sourcekit maintains a versioned app catalog. A Manager holds one
// Source document and reconciles it against configured providers: other
// catalogs it mirrors, GitHub release feeds it follows, and curated release
// feeds. It also enriches versions with package digests and permissions, and
// saves the document back out byte-stably.
package sourcekit

import (
	"github.com/appstation/sourcekit/internal/githubapi"
	"github.com/appstation/sourcekit/internal/transport"
	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/providers"
)

// Manager owns a Source document and applies catalog operations to it.
// Managers are not safe for concurrent use; callers run operations
// sequentially.
type Manager struct {
	source *altsource.Source
	path   string

	http      *transport.Client
	github    *githubapi.Client
	inspector providers.Inspector

	inlineEnrich bool
}

// New creates a Manager from the given options. Exactly one of WithSource,
// WithSourceFile, or WithNewSource must supply the document.
func New(opts ...Option) (*Manager, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		path:         cfg.path,
		http:         transport.New(cfg.timeout, cfg.githubToken),
		inspector:    cfg.inspector,
		inlineEnrich: cfg.inlineEnrich,
	}
	m.github = githubapi.New(m.http)

	switch {
	case cfg.source != nil:
		m.source = cfg.source
	case cfg.path != "" && !cfg.createNew:
		src, err := altsource.Load(cfg.path)
		if err != nil {
			return nil, err
		}
		m.source = src
	case cfg.createNew:
		m.source = altsource.New(cfg.newName, cfg.newIdentifier)
	default:
		return nil, errors.NewConfigError("manager", "no source document configured", nil)
	}
	return m, nil
}

// Source returns the managed document. Mutations through the returned
// pointer are visible to the Manager.
func (m *Manager) Source() *altsource.Source { return m.source }

// Path returns the file path the document was loaded from, if any.
func (m *Manager) Path() string { return m.path }

// deps assembles the provider collaborators for one configuration entry.
func (m *Manager) deps(cfg providers.Config) providers.Deps {
	deps := providers.Deps{
		HTTP:      m.http,
		GitHub:    m.github,
		Inspector: m.inspector,
	}
	if cfg.Upload != nil {
		deps.Store = &providers.ReleaseStore{
			Client: m.github,
			Owner:  cfg.Upload.Owner,
			Repo:   cfg.Upload.Repo,
		}
	}
	return deps
}
