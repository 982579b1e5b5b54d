package altsource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp() *App {
	return &App{
		Name:                 "Example App",
		BundleIdentifier:     "com.example.app",
		DeveloperName:        "Example.com",
		LocalizedDescription: "An app that is an example.",
		IconURL:              "https://example.com/icon.png",
		Versions: []*Version{{
			Version:     "1.0.0",
			Date:        "2022-05-25T03:39:23Z",
			DownloadURL: "https://example.com/app-1.0.0.ipa",
			Size:        1000,
		}},
	}
}

func TestAddVersionPrependsNewest(t *testing.T) {
	app := testApp()
	app.AddVersion(&Version{
		Version:     "1.2.0",
		Date:        "2023-01-01T00:00:00Z",
		DownloadURL: "https://example.com/app-1.2.0.ipa",
		Size:        1200,
	})

	require.Len(t, app.Versions, 2)
	assert.Equal(t, "1.2.0", app.Versions[0].Version)
	assert.Equal(t, "1.0.0", app.Versions[1].Version)
}

func TestAddVersionCollisionReplacesInPlace(t *testing.T) {
	app := testApp()
	app.AddVersion(&Version{Version: "2.0", BuildVersion: "5", Date: "d1", DownloadURL: "u1", Size: 1})
	require.Len(t, app.Versions, 2)

	// Same (version, buildVersion) pair: replaced, count does not grow.
	app.AddVersion(&Version{Version: "2.0", BuildVersion: "5", Date: "d2", DownloadURL: "u2", Size: 2})
	require.Len(t, app.Versions, 2)
	assert.Equal(t, "d2", app.Versions[0].Date)
	assert.Equal(t, "u2", app.Versions[0].DownloadURL)

	// Same display version but different build is a distinct record.
	app.AddVersion(&Version{Version: "2.0", BuildVersion: "6", Date: "d3", DownloadURL: "u3", Size: 3})
	assert.Len(t, app.Versions, 3)
}

func TestAddVersionSyncsLegacyFields(t *testing.T) {
	app := testApp()
	app.AddVersion(&Version{
		Version:              "1.2.0",
		Date:                 "2023-01-01T00:00:00Z",
		DownloadURL:          "https://example.com/app-1.2.0.ipa",
		Size:                 1200,
		LocalizedDescription: "Fixes things.",
	})

	assert.Equal(t, "1.2.0", app.LegacyVersion)
	assert.Equal(t, int64(1200), app.LegacySize)
	assert.Equal(t, "https://example.com/app-1.2.0.ipa", app.LegacyDownloadURL)
	assert.Equal(t, "2023-01-01T00:00:00Z", app.LegacyVersionDate)
	assert.Equal(t, "Fixes things.", app.LegacyVersionDescription)
}

func TestUnmarshalSynthesizesVersionFromLegacyFields(t *testing.T) {
	doc := `{
		"name": "Legacy App",
		"bundleIdentifier": "a",
		"developerName": "Dev",
		"localizedDescription": "desc",
		"iconURL": "https://example.com/i.png",
		"version": "1.0",
		"downloadURL": "u",
		"versionDate": "d",
		"versionDescription": "notes",
		"size": 10
	}`

	var app App
	require.NoError(t, json.Unmarshal([]byte(doc), &app))

	require.Len(t, app.Versions, 1)
	v := app.Versions[0]
	assert.Equal(t, "1.0", v.Version)
	assert.Equal(t, "u", v.DownloadURL)
	assert.Equal(t, "d", v.Date)
	assert.Equal(t, "notes", v.LocalizedDescription)
	assert.Equal(t, int64(10), v.Size)
}

func TestUnmarshalKeepsVersionsWhenPresent(t *testing.T) {
	doc := `{
		"name": "App",
		"bundleIdentifier": "a",
		"version": "9.9",
		"versions": [{"version": "1.0", "date": "d", "downloadURL": "u", "size": 1}]
	}`

	var app App
	require.NoError(t, json.Unmarshal([]byte(doc), &app))
	require.Len(t, app.Versions, 1)
	assert.Equal(t, "1.0", app.Versions[0].Version)
}

func TestAppKey(t *testing.T) {
	app := testApp()
	assert.Equal(t, "com.example.app", app.Key())
	app.AppID = "custom.id"
	assert.Equal(t, "custom.id", app.Key())
}

func TestAppValidity(t *testing.T) {
	app := testApp()
	assert.True(t, app.IsValid())
	assert.Empty(t, app.MissingKeys())

	app.IconURL = ""
	assert.Contains(t, app.MissingKeys(), "iconURL")
	assert.False(t, app.IsValid())
}

func TestAppValidWithLegacyFallback(t *testing.T) {
	app := testApp()
	app.Versions = nil
	assert.False(t, app.IsValid())

	app.LegacyVersion = "1.0"
	app.LegacyDownloadURL = "u"
	app.LegacyVersionDate = "d"
	assert.True(t, app.IsValid())
}

func TestLatestVersionByDate(t *testing.T) {
	app := testApp()
	app.Versions = []*Version{
		{Version: "1.0", Date: "2022-01-01T00:00:00Z"},
		{Version: "1.1", Date: "2023-06-01T00:00:00Z"},
		{Version: "0.9", Date: "garbage"},
	}
	v := app.LatestVersionByDate()
	require.NotNil(t, v)
	assert.Equal(t, "1.1", v.Version)
}

func TestAppCloneIsDeep(t *testing.T) {
	app := testApp()
	app.AppPermissions = &Permissions{
		Entitlements: []Entitlement{{Name: "com.apple.security.app-sandbox"}},
		Privacy:      []PrivacyEntry{{Name: "Camera", UsageDescription: "scanning"}},
	}

	cp := app.Clone()
	cp.Versions[0].Version = "mutated"
	cp.AppPermissions.Privacy[0].Name = "mutated"

	assert.Equal(t, "1.0.0", app.Versions[0].Version)
	assert.Equal(t, "Camera", app.AppPermissions.Privacy[0].Name)
}
