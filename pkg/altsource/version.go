package altsource

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/appstation/sourcekit/pkg/errors"
)

// TimeFormat is the timestamp layout used throughout source documents.
// It matches the GitHub API format, e.g. 2022-05-25T03:39:23Z.
const TimeFormat = "2006-01-02T15:04:05Z"

// ParseTime parses a provider-native timestamp string.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.WrapParse("time", "", err)
	}
	return t, nil
}

// FormatTime formats a timestamp the way source documents expect.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// NormalizeTag is the default tag-normalization transform applied to
// upstream release tags before semantic comparison.
func NormalizeTag(tag string) string {
	return strings.TrimLeft(tag, "v")
}

// Version is a single released build of an App. Versions are ordered
// newest-intent-first inside an App and are never deleted automatically.
type Version struct {
	Version              string `json:"version"`
	BuildVersion         string `json:"buildVersion,omitempty"`
	Date                 string `json:"date"`
	LocalizedDescription string `json:"localizedDescription,omitempty"`
	DownloadURL          string `json:"downloadURL"`
	Size                 int64  `json:"size"`
	SHA256               string `json:"sha256,omitempty"`
	MinOSVersion         string `json:"minOSVersion,omitempty"`
	MaxOSVersion         string `json:"maxOSVersion,omitempty"`

	// AbsoluteVersion is an out-of-band, strictly-ordered version that
	// overrides Version comparisons when both sides carry it. Not part of
	// the published schema.
	AbsoluteVersion string `json:"absoluteVersion,omitempty"`

	// Extra holds unknown document fields, re-emitted on save.
	Extra map[string]json.RawMessage `json:"-"`
}

type versionAlias Version

var versionKeys = jsonKeys(Version{})

// UnmarshalJSON decodes a Version, capturing unknown fields in Extra.
func (v *Version) UnmarshalJSON(data []byte) error {
	var a versionAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, versionKeys)
	*v = Version(a)
	return nil
}

// MarshalJSON encodes a Version, splicing Extra back in.
func (v Version) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(versionAlias(v))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, v.Extra)
}

// MissingKeys returns the required keys absent from the Version.
// An empty result means the Version is valid.
func (v *Version) MissingKeys() []string {
	var missing []string
	if v.Version == "" {
		missing = append(missing, "version")
	}
	if v.Date == "" {
		missing = append(missing, "date")
	}
	if v.DownloadURL == "" {
		missing = append(missing, "downloadURL")
	}
	if v.Size <= 0 {
		missing = append(missing, "size")
	}
	return missing
}

// IsValid reports whether the Version contains all required information.
func (v *Version) IsValid() bool {
	return len(v.MissingKeys()) == 0
}

// Clone returns a deep copy of the Version.
func (v *Version) Clone() *Version {
	if v == nil {
		return nil
	}
	out := *v
	out.Extra = cloneExtra(v.Extra)
	return &out
}

// OrderingVersion returns the string used for release-feed update checks:
// AbsoluteVersion when set, otherwise the display version.
func (v *Version) OrderingVersion() string {
	if v.AbsoluteVersion != "" {
		return v.AbsoluteVersion
	}
	return v.Version
}

// CompareVersionStrings compares two version strings as semantic versions.
// Malformed strings produce a *errors.VersionParseError.
func CompareVersionStrings(a, b string) (int, error) {
	av, err := parseSemver(a)
	if err != nil {
		return 0, err
	}
	bv, err := parseSemver(b)
	if err != nil {
		return 0, err
	}
	return av.Compare(bv), nil
}

func parseSemver(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.NewVersionParseError(s, err)
	}
	return v, nil
}

// Compare orders two Versions using a three-tier fallback:
//
//  1. If both carry AbsoluteVersion, that comparison is final.
//  2. Otherwise the display versions are compared.
//  3. On a display tie with both BuildVersions set, BuildVersion decides.
//
// Any other tie is reported as equal, even when the records differ in other
// respects (for instance AbsoluteVersion set on only one side). That is a
// known ordering weakness, kept deliberately; callers that need a stricter
// order must populate AbsoluteVersion or BuildVersion on both sides.
func Compare(a, b *Version) (int, error) {
	if a.AbsoluteVersion != "" && b.AbsoluteVersion != "" {
		return CompareVersionStrings(a.AbsoluteVersion, b.AbsoluteVersion)
	}
	c, err := CompareVersionStrings(a.Version, b.Version)
	if err != nil || c != 0 {
		return c, err
	}
	if a.BuildVersion != "" && b.BuildVersion != "" {
		return CompareVersionStrings(a.BuildVersion, b.BuildVersion)
	}
	return 0, nil
}

// CompareDisplay compares only the display versions of two Versions.
// The catalog-mirror dedup policy uses this instead of the full Compare.
func CompareDisplay(a, b *Version) (int, error) {
	return CompareVersionStrings(a.Version, b.Version)
}
