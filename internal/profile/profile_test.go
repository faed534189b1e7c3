package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFromEnvDefaults(t *testing.T) {
	t.Setenv("HOARDER_RATE_LIMIT", "")
	t.Setenv("HOARDER_RATE_BURST", "")

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, float64(10), profile.RateLimit)
	assert.Equal(t, 20, profile.RateBurst)
	assert.True(t, profile.IsRateLimitEnabled())
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		limit     string
		burst     string
		wantLimit float64
		wantBurst int
	}{
		{name: "custom values", limit: "2.5", burst: "5", wantLimit: 2.5, wantBurst: 5},
		{name: "disabled", limit: "0", burst: "5", wantLimit: 0, wantBurst: 5},
		{name: "invalid values fall back", limit: "fast", burst: "-1", wantLimit: 10, wantBurst: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOARDER_RATE_LIMIT", tt.limit)
			t.Setenv("HOARDER_RATE_BURST", tt.burst)

			profile := &Profile{}
			profile.FromEnv()

			assert.Equal(t, tt.wantLimit, profile.RateLimit)
			assert.Equal(t, tt.wantBurst, profile.RateBurst)
		})
	}
}

func TestProfileValidate(t *testing.T) {
	t.Run("sqlite dsn is derived from data dir", func(t *testing.T) {
		dir := t.TempDir()
		profile := &Profile{Mode: "dev", Driver: "sqlite", Data: dir}
		require.NoError(t, profile.Validate())
		assert.Equal(t, filepath.Join(dir, "hoarder_dev.db"), profile.DSN)
	})

	t.Run("unknown mode falls back to demo", func(t *testing.T) {
		profile := &Profile{Mode: "staging", Driver: "sqlite", Data: t.TempDir()}
		require.NoError(t, profile.Validate())
		assert.Equal(t, "demo", profile.Mode)
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Driver: "postgres", Data: t.TempDir()}
		assert.Error(t, profile.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}
		assert.Error(t, profile.Validate())
	})

	t.Run("missing data dir", func(t *testing.T) {
		profile := &Profile{Mode: "dev", Driver: "sqlite", Data: filepath.Join(t.TempDir(), "missing")}
		assert.Error(t, profile.Validate())
	})
}
