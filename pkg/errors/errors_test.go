package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    *ProviderError
		target error
		want   bool
	}{
		{"rate limited", NewProviderError("github", 429, "slow down"), ErrRateLimited, true},
		{"unavailable", NewProviderError("github", 503, "bad gateway"), ErrProviderUnavailable, true},
		{"not found", NewProviderError("github", 404, "no such repo"), ErrNotFound, true},
		{"plain failure", NewProviderError("github", 0, "connection refused"), ErrRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.err, tt.target))
		})
	}
}

func TestValidationErrorIsInvalidInput(t *testing.T) {
	err := NewValidationError("app", "com.example.app", []string{"iconURL"})
	assert.True(t, Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "iconURL")
}

func TestConfigErrorUnsupportedKind(t *testing.T) {
	err := NewConfigError("provider", "unknown kind \"gitlab\"", ErrUnsupported)
	assert.True(t, IsUnsupported(err))

	perEntry := NewConfigError("provider", "exactly one id required", nil)
	assert.False(t, IsUnsupported(perEntry))
}

func TestVersionParseErrorAs(t *testing.T) {
	base := NewVersionParseError("not-a-version", New("invalid semantic version"))
	wrapped := fmt.Errorf("comparing candidates: %w", base)

	assert.True(t, IsVersionParse(wrapped))

	var vpe *VersionParseError
	assert.True(t, As(wrapped, &vpe))
	assert.Equal(t, "not-a-version", vpe.Value)
}

func TestTruncate(t *testing.T) {
	long := New("aaaaaaaaaaaaaaaaaaaa")
	assert.Equal(t, "aaaaa...", Truncate(long, 5))
	assert.Equal(t, "short", Truncate(New("short"), 300))
	assert.Equal(t, "", Truncate(nil, 10))
}
