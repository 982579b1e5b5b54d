// Package ipa inspects iOS application packages. An .ipa is a zip archive
// whose Payload/<Name>.app/Info.plist carries the bundle metadata and the
// privacy usage descriptions this tool cares about.
package ipa

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"howett.net/plist"

	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
)

var infoPlistPattern = regexp.MustCompile(`^Payload/[^/]+\.app/Info\.plist$`)

// Info is the subset of Info.plist metadata extracted from a package.
type Info struct {
	BundleIdentifier string
	Version          string // CFBundleShortVersionString
	BuildVersion     string // CFBundleVersion
	MinOSVersion     string // MinimumOSVersion
	DisplayName      string
	Privacy          []altsource.PrivacyEntry
}

// Inspect reads the Info.plist of the package at path.
func Inspect(path string) (*Info, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.WrapParse("ipa", path, err)
	}
	defer func() { _ = archive.Close() }()

	for _, file := range archive.File {
		if !infoPlistPattern.MatchString(file.Name) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, errors.WrapParse("ipa", path, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, errors.WrapParse("ipa", path, err)
		}
		return parseInfoPlist(data)
	}
	return nil, &errors.ParseError{Format: "ipa", File: path, Message: "no Info.plist found in archive"}
}

func parseInfoPlist(data []byte) (*Info, error) {
	var values map[string]any
	if _, err := plist.Unmarshal(data, &values); err != nil {
		return nil, errors.WrapParse("plist", "Info.plist", err)
	}
	info := &Info{
		BundleIdentifier: stringValue(values, "CFBundleIdentifier"),
		Version:          stringValue(values, "CFBundleShortVersionString"),
		BuildVersion:     stringValue(values, "CFBundleVersion"),
		MinOSVersion:     stringValue(values, "MinimumOSVersion"),
		DisplayName:      stringValue(values, "CFBundleDisplayName"),
	}
	info.Privacy = privacyEntries(values)
	return info, nil
}

func stringValue(values map[string]any, key string) string {
	if s, ok := values[key].(string); ok {
		return s
	}
	return ""
}

// privacyEntries collects the usage-description keys of an Info.plist. A key
// like NSCameraUsageDescription yields the privacy name "Camera".
func privacyEntries(values map[string]any) []altsource.PrivacyEntry {
	var entries []altsource.PrivacyEntry
	for key, value := range values {
		if !strings.HasSuffix(key, "UsageDescription") || len(key) <= len("UsageDescription")+2 {
			continue
		}
		description, ok := value.(string)
		if !ok {
			continue
		}
		name := strings.TrimSuffix(key, "UsageDescription")[2:]
		entries = append(entries, altsource.PrivacyEntry{
			Name:             name,
			UsageDescription: description,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// ExtractInner pulls the first .ipa found inside the archive at path out to
// a temporary file. Some projects publish their package wrapped in an outer
// zip. The returned cleanup removes the temporary file.
func ExtractInner(path string) (string, func(), error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, errors.WrapParse("zip", path, err)
	}
	defer func() { _ = archive.Close() }()

	for _, file := range archive.File {
		if !strings.HasSuffix(file.Name, ".ipa") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", nil, errors.WrapParse("zip", path, err)
		}
		inner, cleanup, err := writeTemp(rc)
		_ = rc.Close()
		return inner, cleanup, err
	}
	return "", nil, &errors.ParseError{Format: "zip", File: path, Message: "no .ipa found in archive"}
}

// DownloadTemp fetches url into a temporary file and returns its path along
// with a cleanup that removes it.
func DownloadTemp(ctx context.Context, download func(context.Context, string, io.Writer) (int64, error), url string) (string, func(), error) {
	f, err := os.CreateTemp("", "sourcekit-*.ipa")
	if err != nil {
		return "", nil, errors.WrapIO("create", "temp file", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	_, err = download(ctx, url, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

// SHA256File returns the hex digest of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.WrapIO("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeTemp(r io.Reader) (string, func(), error) {
	f, err := os.CreateTemp("", "sourcekit-*.ipa")
	if err != nil {
		return "", nil, errors.WrapIO("create", "temp file", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	_, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, errors.WrapIO("write", f.Name(), err)
	}
	return f.Name(), cleanup, nil
}
