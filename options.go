package sourcekit

import (
	"time"

	"github.com/appstation/sourcekit/internal/transport"
	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/providers"
)

// Option is a function that configures a Manager.
type Option func(*config) error

type config struct {
	source        *altsource.Source
	path          string
	createNew     bool
	newName       string
	newIdentifier string

	timeout     time.Duration
	githubToken string
	inspector   providers.Inspector

	inlineEnrich bool
}

func defaultConfig() *config {
	return &config{
		timeout:      transport.DefaultTimeout,
		inlineEnrich: true,
	}
}

// WithSource configures an already loaded document.
func WithSource(src *altsource.Source) Option {
	return func(c *config) error {
		c.source = src
		return nil
	}
}

// WithSourceFile configures the document to load from path. Save without an
// explicit path writes back to it.
func WithSourceFile(path string) Option {
	return func(c *config) error {
		c.path = path
		return nil
	}
}

// WithNewSource configures a fresh empty document instead of loading one.
// Combined with WithSourceFile the path is used only for saving.
func WithNewSource(name, identifier string) Option {
	return func(c *config) error {
		c.createNew = true
		c.newName = name
		c.newIdentifier = identifier
		return nil
	}
}

// WithTimeout configures the HTTP timeout for provider fetches and
// downloads.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		c.timeout = timeout
		return nil
	}
}

// WithGitHubToken configures the token sent to the GitHub API. Tokens are
// never sent to other hosts.
func WithGitHubToken(token string) Option {
	return func(c *config) error {
		c.githubToken = token
		return nil
	}
}

// WithInspector overrides the package inspector. Used by tests.
func WithInspector(inspector providers.Inspector) Option {
	return func(c *config) error {
		c.inspector = inspector
		return nil
	}
}

// WithInlineEnrichment configures whether updates backfill digests and
// permissions for the versions they touch. Enabled by default; disabling it
// keeps Update from downloading packages.
func WithInlineEnrichment(enabled bool) Option {
	return func(c *config) error {
		c.inlineEnrich = enabled
		return nil
	}
}
