package sourcekit

import (
	"context"
	"fmt"

	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/logging"
	"github.com/appstation/sourcekit/pkg/providers"
)

// AppFromPackage downloads and inspects the package at downloadURL and
// builds a new catalog entry from it. The caller fills in the descriptive
// fields the package cannot supply. A package without a bundle identifier
// is logged; the app is still returned for manual completion.
func (m *Manager) AppFromPackage(ctx context.Context, downloadURL string) (*altsource.App, error) {
	info, err := providers.FetchAsset(ctx, providers.Config{}, m.deps(providers.Config{}), downloadURL, "")
	if err != nil {
		return nil, err
	}

	pkg := info.Package
	if pkg.BundleIdentifier == "" {
		logging.Warn().Str("url", downloadURL).
			Msg("Package has no bundle identifier, fill it in before saving")
	}

	app := &altsource.App{
		Name:             pkg.DisplayName,
		BundleIdentifier: pkg.BundleIdentifier,
		AppID:            pkg.BundleIdentifier,
	}
	version := &altsource.Version{
		Version:      pkg.Version,
		BuildVersion: pkg.BuildVersion,
		DownloadURL:  info.DownloadURL,
		Size:         info.Size,
		SHA256:       info.SHA256,
		MinOSVersion: pkg.MinOSVersion,
	}
	app.AddVersion(version)
	if len(pkg.Privacy) > 0 {
		app.AppPermissions = &altsource.Permissions{Privacy: pkg.Privacy}
	}
	return app, nil
}

// AddApp appends a new app to the source. Invalid apps and duplicate keys
// are rejected.
func (m *Manager) AddApp(app *altsource.App) error {
	if missing := app.MissingKeys(); len(missing) > 0 {
		return errors.NewValidationError("app", app.Key(), missing)
	}
	if _, exists := m.source.AppIndex()[app.Key()]; exists {
		return fmt.Errorf("app %s: %w", app.Key(), errors.ErrAlreadyExists)
	}
	m.source.Apps = append(m.source.Apps, app)
	return nil
}

// AddNews appends an article, replacing any existing article with the same
// identifier.
func (m *Manager) AddNews(article *altsource.Article) error {
	if missing := article.MissingKeys(); len(missing) > 0 {
		return errors.NewValidationError("article", article.Identifier, missing)
	}
	if i, exists := m.source.NewsIndex()[article.Identifier]; exists {
		m.source.News[i] = article
		return nil
	}
	m.source.News = append(m.source.News, article)
	return nil
}
