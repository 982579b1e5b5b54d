package sourcekit

import (
	"context"

	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/logging"
	"github.com/appstation/sourcekit/pkg/providers"
)

// BackfillHashesAndPermissions downloads packages to fill in missing sha256
// digests, and missing app permissions from each app's newest version. With
// onlyLatest set only the newest version of each app is considered; with
// force set digests and permissions are recomputed even when present.
// Failures are logged and skipped; the derived fields stay unset for a later
// retry. Returns the number of versions enriched.
func (m *Manager) BackfillHashesAndPermissions(ctx context.Context, onlyLatest, force bool) (int, error) {
	enriched := 0
	for _, app := range m.source.Apps {
		versions := app.Versions
		if onlyLatest && len(versions) > 1 {
			versions = versions[:1]
		}
		for i, v := range versions {
			if err := ctx.Err(); err != nil {
				return enriched, err
			}
			changed, err := m.enrichVersion(ctx, app, v, i == 0, force)
			if err != nil {
				logging.Warn().Str("app", app.Key()).Str("version", v.Version).
					Msg(err.Error())
				continue
			}
			if changed {
				enriched++
			}
		}
	}
	return enriched, nil
}

// enrichLatest backfills the newest version of app during an update run,
// recording failures as summary warnings.
func (m *Manager) enrichLatest(ctx context.Context, app *altsource.App, summary *Summary) {
	latest := app.LatestVersion()
	if latest == nil {
		return
	}
	if _, err := m.enrichVersion(ctx, app, latest, true, false); err != nil {
		summary.warnf("enrich", "%s", err.Error())
	}
}

// enrichVersion downloads and inspects one version's package. Permissions
// are only taken from the newest version's package.
func (m *Manager) enrichVersion(ctx context.Context, app *altsource.App, v *altsource.Version, isLatest, force bool) (bool, error) {
	needHash := force || v.SHA256 == ""
	needPermissions := isLatest && (force || app.AppPermissions == nil || len(app.AppPermissions.Privacy) == 0)
	if !needHash && !needPermissions {
		return false, nil
	}
	if v.DownloadURL == "" {
		return false, nil
	}

	info, err := providers.FetchAsset(ctx, providers.Config{}, m.deps(providers.Config{}), v.DownloadURL, v.Version)
	if err != nil {
		return false, &errors.EnrichmentError{App: app.Key(), Version: v.Version, Err: err}
	}

	changed := false
	if needHash && info.SHA256 != v.SHA256 {
		v.SHA256 = info.SHA256
		changed = true
	}
	if v.Size <= 0 && info.Size > 0 {
		v.Size = info.Size
		changed = true
	}
	if v.BuildVersion == "" && info.Package.BuildVersion != "" {
		v.BuildVersion = info.Package.BuildVersion
	}
	if v.MinOSVersion == "" && info.Package.MinOSVersion != "" {
		v.MinOSVersion = info.Package.MinOSVersion
	}
	if needPermissions && len(info.Package.Privacy) > 0 {
		if app.AppPermissions == nil {
			app.AppPermissions = &altsource.Permissions{}
		}
		app.AppPermissions.Privacy = info.Package.Privacy
		changed = true
	}
	return changed, nil
}
