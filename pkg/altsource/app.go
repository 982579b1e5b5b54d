package altsource

import (
	"encoding/json"

	"github.com/appstation/sourcekit/pkg/logging"
)

// App is a single application entry in a Source. Its Versions are kept
// newest-intent-first; order is maintained by AddVersion, never re-sorted.
//
// AppID is an internal identity key assigned by the merge engine and is not
// necessarily equal to BundleIdentifier; when it is absent,
// BundleIdentifier serves as the identity key.
type App struct {
	Name                 string       `json:"name"`
	BundleIdentifier     string       `json:"bundleIdentifier"`
	AppID                string       `json:"appID,omitempty"`
	DeveloperName        string       `json:"developerName"`
	Subtitle             string       `json:"subtitle,omitempty"`
	LocalizedDescription string       `json:"localizedDescription"`
	IconURL              string       `json:"iconURL"`
	TintColor            string       `json:"tintColor,omitempty"`
	ScreenshotURLs       []string     `json:"screenshotURLs,omitempty"`
	Versions             []*Version   `json:"versions"`
	AppPermissions       *Permissions `json:"appPermissions,omitempty"`
	Beta                 *bool        `json:"beta,omitempty"`

	// Deprecated mirrors of the newest Version, kept in sync for old-schema
	// consumers. Written by syncLegacyFields, read by nothing in this module.
	LegacyVersion            string `json:"version,omitempty"`
	LegacyVersionDate        string `json:"versionDate,omitempty"`
	LegacyVersionDescription string `json:"versionDescription,omitempty"`
	LegacyDownloadURL        string `json:"downloadURL,omitempty"`
	LegacySize               int64  `json:"size,omitempty"`

	// Extra holds unknown document fields, re-emitted on save.
	Extra map[string]json.RawMessage `json:"-"`
}

type appAlias App

var appKeys = jsonKeys(App{})

// UnmarshalJSON decodes an App. When the document lacks a versions array, a
// single Version is synthesized from the legacy top-level fields so that
// old-schema documents load into the current model.
func (a *App) UnmarshalJSON(data []byte) error {
	var aa appAlias
	if err := json.Unmarshal(data, &aa); err != nil {
		return err
	}
	aa.Extra = extraFields(data, appKeys)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if _, ok := probe["versions"]; !ok {
			aa.Versions = []*Version{{
				Version:              aa.LegacyVersion,
				Date:                 aa.LegacyVersionDate,
				DownloadURL:          aa.LegacyDownloadURL,
				LocalizedDescription: aa.LegacyVersionDescription,
				Size:                 aa.LegacySize,
			}}
		}
	}

	*a = App(aa)
	return nil
}

// MarshalJSON encodes an App, splicing Extra back in.
func (a App) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(appAlias(a))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, a.Extra)
}

// Key returns the App's identity key: AppID when assigned, otherwise
// BundleIdentifier.
func (a *App) Key() string {
	if a.AppID != "" {
		return a.AppID
	}
	return a.BundleIdentifier
}

// LatestVersion returns the newest-intent Version (index 0), or nil.
func (a *App) LatestVersion() *Version {
	if len(a.Versions) == 0 {
		return nil
	}
	return a.Versions[0]
}

// LatestVersionByDate returns the Version with the latest parseable date.
// Versions with unparseable dates are skipped.
func (a *App) LatestVersionByDate() *Version {
	var latest *Version
	var latestAt int64
	for _, v := range a.Versions {
		t, err := ParseTime(v.Date)
		if err != nil {
			continue
		}
		if latest == nil || t.Unix() > latestAt {
			latest = v
			latestAt = t.Unix()
		}
	}
	return latest
}

// AddVersion merges a Version into the App's history. A (version,
// buildVersion) collision replaces the existing record in place; otherwise
// the Version is prepended as the newest. The deprecated top-level mirror
// fields are refreshed on every call, not only from the merge engine.
func (a *App) AddVersion(v *Version) {
	replaced := false
	for i, existing := range a.Versions {
		if existing.Version == v.Version && existing.BuildVersion == v.BuildVersion {
			logging.Warn().
				Str("app", a.Name).
				Str("version", v.Version).
				Msg("Version already exists, replaced in place")
			a.Versions[i] = v
			replaced = true
			break
		}
	}
	if !replaced {
		a.Versions = append([]*Version{v}, a.Versions...)
	}
	a.syncLegacyFields(v)
}

// syncLegacyFields mirrors a Version's fields onto the deprecated top-level
// App fields used by old-schema consumers.
func (a *App) syncLegacyFields(v *Version) {
	a.LegacyVersion = v.Version
	a.LegacySize = v.Size
	a.LegacyDownloadURL = v.DownloadURL
	a.LegacyVersionDate = v.Date
	a.LegacyVersionDescription = v.LocalizedDescription
}

// hasLegacyFields reports whether the old-schema fallback fields are present.
func (a *App) hasLegacyFields() bool {
	return a.LegacyVersion != "" && a.LegacyDownloadURL != "" && a.LegacyVersionDate != ""
}

// MissingKeys returns the required keys absent from the App. The versions
// key counts as present when the legacy fallback fields are.
func (a *App) MissingKeys() []string {
	var missing []string
	if a.Name == "" {
		missing = append(missing, "name")
	}
	if a.BundleIdentifier == "" {
		missing = append(missing, "bundleIdentifier")
	}
	if a.DeveloperName == "" {
		missing = append(missing, "developerName")
	}
	if len(a.Versions) == 0 && !a.hasLegacyFields() {
		missing = append(missing, "versions")
	}
	if a.LocalizedDescription == "" {
		missing = append(missing, "localizedDescription")
	}
	if a.IconURL == "" {
		missing = append(missing, "iconURL")
	}
	return missing
}

// IsValid reports whether the App has all required keys, at least one valid
// Version (or the legacy fallback fields), and valid Permissions if present.
func (a *App) IsValid() bool {
	validVersions := len(a.Versions) > 0
	for _, v := range a.Versions {
		if !v.IsValid() {
			validVersions = false
			break
		}
	}
	if !validVersions {
		validVersions = a.hasLegacyFields()
	}

	validPerms := a.AppPermissions == nil || a.AppPermissions.IsValid()
	return validVersions && validPerms && len(a.MissingKeys()) == 0
}

// Clone returns a deep copy of the App.
func (a *App) Clone() *App {
	if a == nil {
		return nil
	}
	out := *a
	out.Extra = cloneExtra(a.Extra)
	if a.ScreenshotURLs != nil {
		out.ScreenshotURLs = append([]string(nil), a.ScreenshotURLs...)
	}
	if a.Versions != nil {
		out.Versions = make([]*Version, len(a.Versions))
		for i, v := range a.Versions {
			out.Versions[i] = v.Clone()
		}
	}
	out.AppPermissions = a.AppPermissions.Clone()
	if a.Beta != nil {
		b := *a.Beta
		out.Beta = &b
	}
	return &out
}

// stripLegacy clears the deprecated mirror fields and unknown extension
// fields; used when saving only the standard document properties.
func (a *App) stripLegacy() {
	a.LegacyVersion = ""
	a.LegacyVersionDate = ""
	a.LegacyVersionDescription = ""
	a.LegacyDownloadURL = ""
	a.LegacySize = 0
	a.Extra = nil
	for _, v := range a.Versions {
		v.Extra = nil
	}
	if a.AppPermissions != nil {
		a.AppPermissions.Extra = nil
		for i := range a.AppPermissions.Entitlements {
			a.AppPermissions.Entitlements[i].Extra = nil
		}
		for i := range a.AppPermissions.Privacy {
			a.AppPermissions.Privacy[i].Extra = nil
		}
	}
}
