package ipa

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInfoPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>com.example.app</string>
	<key>CFBundleShortVersionString</key>
	<string>1.2.0</string>
	<key>CFBundleVersion</key>
	<string>42</string>
	<key>MinimumOSVersion</key>
	<string>14.0</string>
	<key>CFBundleDisplayName</key>
	<string>Example</string>
	<key>NSCameraUsageDescription</key>
	<string>Takes photos.</string>
	<key>NSMicrophoneUsageDescription</key>
	<string>Records audio.</string>
</dict>
</plist>
`

func writePackage(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "app.ipa")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestInspect(t *testing.T) {
	path := writePackage(t, map[string]string{
		"Payload/Example.app/Info.plist": sampleInfoPlist,
		"Payload/Example.app/Example":    "binary",
	})

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", info.BundleIdentifier)
	assert.Equal(t, "1.2.0", info.Version)
	assert.Equal(t, "42", info.BuildVersion)
	assert.Equal(t, "14.0", info.MinOSVersion)
	assert.Equal(t, "Example", info.DisplayName)

	require.Len(t, info.Privacy, 2)
	assert.Equal(t, "Camera", info.Privacy[0].Name)
	assert.Equal(t, "Takes photos.", info.Privacy[0].UsageDescription)
	assert.Equal(t, "Microphone", info.Privacy[1].Name)
}

func TestInspectNoInfoPlist(t *testing.T) {
	path := writePackage(t, map[string]string{
		"Payload/Example.app/Example": "binary",
	})
	_, err := Inspect(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Info.plist")
}

func TestInspectIgnoresNestedPlists(t *testing.T) {
	path := writePackage(t, map[string]string{
		"Payload/Example.app/Frameworks/Dep.framework/Info.plist": "<plist/>",
		"Payload/Example.app/Info.plist":                          sampleInfoPlist,
	})
	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", info.BundleIdentifier)
}

func TestExtractInner(t *testing.T) {
	var inner bytes.Buffer
	zw := zip.NewWriter(&inner)
	w, err := zw.Create("Payload/Example.app/Info.plist")
	require.NoError(t, err)
	_, err = w.Write([]byte(sampleInfoPlist))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	outer := writePackage(t, map[string]string{
		"README.txt":  "see inside",
		"Example.ipa": inner.String(),
	})

	path, cleanup, err := ExtractInner(outer)
	require.NoError(t, err)
	defer cleanup()

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", info.BundleIdentifier)
}

func TestDownloadTemp(t *testing.T) {
	download := func(_ context.Context, url string, w io.Writer) (int64, error) {
		n, err := w.Write([]byte("payload"))
		return int64(n), err
	}

	path, cleanup, err := DownloadTemp(context.Background(), download, "https://example.com/app.ipa")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSHA256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, err := SHA256File(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}
