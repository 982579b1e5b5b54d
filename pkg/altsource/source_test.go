package altsource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `{
	"name": "Example Source",
	"identifier": "com.example.source",
	"apiVersion": "v2",
	"tintColor": "#5CA399",
	"apps": [
		{
			"name": "Example App",
			"bundleIdentifier": "com.example.app",
			"developerName": "Example.com",
			"localizedDescription": "An app that is an example.",
			"iconURL": "https://example.com/icon.png",
			"versions": [
				{
					"version": "1.0.0",
					"date": "2022-05-25T03:39:23Z",
					"downloadURL": "https://example.com/app.ipa",
					"size": 1000,
					"communityBuild": true
				}
			],
			"appPermissions": {
				"entitlements": [{"name": "com.apple.security.app-sandbox"}],
				"privacy": [{"name": "Camera", "usageDescription": "Scans documents."}]
			}
		}
	],
	"news": [
		{
			"title": "Hello",
			"identifier": "com.example.news.hello",
			"caption": "A greeting.",
			"date": "2022-05-25T03:39:23Z"
		}
	],
	"sourceMirrors": ["https://mirror.example.com"]
}`

func TestParseCapturesUnknownFields(t *testing.T) {
	src, err := Parse([]byte(sampleSource))
	require.NoError(t, err)

	assert.Equal(t, "Example Source", src.Name)
	assert.Equal(t, APIVersion, src.APIVersion)
	require.Contains(t, src.Extra, "sourceMirrors")
	require.Len(t, src.Apps, 1)
	require.Len(t, src.Apps[0].Versions, 1)
	assert.Contains(t, src.Apps[0].Versions[0].Extra, "communityBuild")
}

func TestSaveLoadSaveIsByteIdentical(t *testing.T) {
	src, err := Parse([]byte(sampleSource))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "source.json")

	require.NoError(t, src.Save(path, true, true))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, reloaded.Save(path, true, true))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("save/load/save output differs (-first +second):\n%s", diff)
	}
}

func TestMarshalEndsWithSingleNewline(t *testing.T) {
	src := New("S", "com.example.s")

	for _, pretty := range []bool{true, false} {
		data, err := src.Marshal(pretty, false)
		require.NoError(t, err)
		assert.Equal(t, byte('\n'), data[len(data)-1])
		assert.NotEqual(t, byte('\n'), data[len(data)-2])
	}
}

func TestMarshalCompactHasNoIndentation(t *testing.T) {
	src, err := Parse([]byte(sampleSource))
	require.NoError(t, err)

	data, err := src.Marshal(false, true)
	require.NoError(t, err)
	assert.NotContains(t, string(data[:len(data)-1]), "\n")
}

func TestMarshalStandardDropsLegacyAndExtra(t *testing.T) {
	src, err := Parse([]byte(sampleSource))
	require.NoError(t, err)
	src.Apps[0].AddVersion(&Version{
		Version: "1.1.0", Date: "2023-01-01T00:00:00Z",
		DownloadURL: "https://example.com/app-1.1.0.ipa", Size: 1100,
	})

	data, err := src.Marshal(true, false)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotContains(t, doc, "sourceMirrors")

	var apps []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["apps"], &apps))
	assert.NotContains(t, apps[0], "version")
	assert.NotContains(t, apps[0], "downloadURL")

	// Full mode keeps both.
	data, err = src.Marshal(true, true)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "sourceMirrors")
	require.NoError(t, json.Unmarshal(doc["apps"], &apps))
	assert.Contains(t, apps[0], "version")
}

func TestSourceValidity(t *testing.T) {
	src, err := Parse([]byte(sampleSource))
	require.NoError(t, err)
	assert.True(t, src.IsValid())

	src.Identifier = ""
	assert.Contains(t, src.MissingKeys(), "identifier")
	assert.False(t, src.IsValid())
}

func TestAppIndex(t *testing.T) {
	src := New("S", "com.example.s")
	a := testApp()
	b := testApp()
	b.BundleIdentifier = "com.example.other"
	b.AppID = "remapped.id"
	src.Apps = append(src.Apps, a, b)

	idx := src.AppIndex()
	assert.Equal(t, 0, idx["com.example.app"])
	assert.Equal(t, 1, idx["remapped.id"])

	assert.Same(t, b, src.FindApp("remapped.id"))
	assert.Nil(t, src.FindApp("missing"))
}
