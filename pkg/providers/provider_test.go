package providers

import (
	"context"
	"regexp"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appstation/sourcekit/internal/githubapi"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/identity"
)

func TestKindUnmarshalYAML(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte("kind: github\nrepoOwner: o\nrepoName: r\n"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, KindGitHub, cfg.Kind)
	assert.True(t, cfg.Kind.Valid())
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: Kind("ftp")}, Deps{})
	require.Error(t, err)

	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.IsUnsupported(err))
}

func TestSingleTarget(t *testing.T) {
	_, err := singleTarget(Config{Kind: KindGitHub})
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = singleTarget(Config{Kind: KindGitHub, IDs: []identity.Ref{
		{ID: "a"}, {ID: "b"},
	}})
	require.Error(t, err)

	ref, err := singleTarget(Config{Kind: KindGitHub, IDs: []identity.Ref{{ID: "com.example.app"}}})
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", ref.ID)
}

func ipaPattern(t *testing.T) *regexp.Regexp {
	t.Helper()
	return regexp.MustCompile(DefaultAssetPattern)
}

func TestSelectReleaseHighestTag(t *testing.T) {
	releases := []githubapi.Release{
		{TagName: "v1.0.0", Assets: []githubapi.Asset{{Name: "old.ipa"}}},
		{TagName: "v1.2.0", Assets: []githubapi.Asset{{Name: "new.ipa"}}},
		{TagName: "v2.0.0-beta.1", Prerelease: true, Assets: []githubapi.Asset{{Name: "beta.ipa"}}},
	}

	release, asset, err := selectRelease("test", releases, ipaPattern(t), false, false)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", release.TagName)
	assert.Equal(t, "new.ipa", asset.Name)

	release, _, err = selectRelease("test", releases, ipaPattern(t), true, false)
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0-beta.1", release.TagName)
}

func TestSelectReleaseDropsUnorderableTags(t *testing.T) {
	releases := []githubapi.Release{
		{TagName: "nightly", Assets: []githubapi.Asset{{Name: "n.ipa"}}},
		{TagName: "v1.1.0", Assets: []githubapi.Asset{{Name: "a.ipa"}}},
	}
	release, _, err := selectRelease("test", releases, ipaPattern(t), false, false)
	require.NoError(t, err)
	assert.Equal(t, "v1.1.0", release.TagName)

	_, _, err = selectRelease("test", releases[:1], ipaPattern(t), false, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoQualifyingRelease))
}

func TestSelectReleasePreferDate(t *testing.T) {
	releases := []githubapi.Release{
		{TagName: "v2.0.0", Assets: []githubapi.Asset{
			{Name: "a.ipa", UpdatedAt: "2024-01-01T00:00:00Z"},
		}},
		{TagName: "v1.9.0", Assets: []githubapi.Asset{
			{Name: "b.ipa", UpdatedAt: "2024-06-01T00:00:00Z"},
		}},
	}
	release, asset, err := selectRelease("test", releases, ipaPattern(t), false, true)
	require.NoError(t, err)
	assert.Equal(t, "v1.9.0", release.TagName)
	assert.Equal(t, "b.ipa", asset.Name)
}

func TestSelectReleaseNoQualifying(t *testing.T) {
	_, _, err := selectRelease("test", nil, ipaPattern(t), false, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoQualifyingRelease))

	releases := []githubapi.Release{
		{TagName: "v1.0.0", Assets: []githubapi.Asset{{Name: "source.tar.gz"}}},
	}
	_, _, err = selectRelease("test", releases, ipaPattern(t), false, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoQualifyingAsset))
}

func TestMatchAssetMostRecentlyUpdated(t *testing.T) {
	release := githubapi.Release{Assets: []githubapi.Asset{
		{Name: "first.ipa", UpdatedAt: "2024-01-01T00:00:00Z"},
		{Name: "second.ipa", UpdatedAt: "2024-02-01T00:00:00Z"},
		{Name: "notes.txt", UpdatedAt: "2024-03-01T00:00:00Z"},
	}}
	asset, ok := matchAsset(release, ipaPattern(t))
	require.True(t, ok)
	assert.Equal(t, "second.ipa", asset.Name)
}

func TestAssetPatternInvalid(t *testing.T) {
	_, err := assetPattern(Config{Kind: KindGitHub, AssetPattern: "("})
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}
