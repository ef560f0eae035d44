package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Booking.BufferMinutes)
	assert.Equal(t, 500, cfg.AI.TimeoutMS)
	assert.Equal(t, DefaultSlots, cfg.Booking.Slots)
}

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
business:
  name: Bright Smile Dental
  type: dental
server:
  port: 8080
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Bright Smile Dental", cfg.Business.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	// Unspecified sections keep defaults.
	assert.Equal(t, 10, cfg.Server.Workers)
	assert.Equal(t, 300, cfg.Booking.CacheTTLSeconds)
	assert.Equal(t, 5, cfg.Breakers.FailureThreshold)
}

func TestEnvVarExpansionInSecrets(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "sk-abc123")
	path := writeConfig(t, `
business:
  name: Test
ai:
  provider: gemini
  apiKey: ${TEST_GEMINI_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc123", cfg.AI.APIKey)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FRONTDESK_PORT", "9999")
	t.Setenv("FRONTDESK_TIMEZONE", "America/Chicago")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "America/Chicago", cfg.Business.Timezone)
}

func TestValidateCatchesProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Business.Name = ""
	cfg.Business.Type = "florist"
	cfg.Booking.Slots = []string{"25:00 XM"}
	cfg.AI.Provider = "gemini" // no key

	issues := Validate(&cfg)
	paths := make([]string, 0, len(issues))
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	assert.Contains(t, paths, "business.name")
	assert.Contains(t, paths, "business.type")
	assert.Contains(t, paths, "business.services")
	assert.Contains(t, paths, "booking.slots[0]")
	assert.Contains(t, paths, "ai.apiKey")
}

func TestValidateOK(t *testing.T) {
	cfg := Defaults()
	cfg.Business.Name = "Bright Smile Dental"
	cfg.Business.Type = "dental"
	cfg.Business.Services = []ServiceEntry{{Name: "Cleaning", Keywords: []string{"cleaning"}, Duration: 60}}

	assert.Nil(t, Validate(&cfg))
}

func TestServiceByName(t *testing.T) {
	b := BusinessConfig{Services: []ServiceEntry{{Name: "Cleaning"}, {Name: "Filling"}}}

	svc, ok := b.ServiceByName("Filling")
	require.True(t, ok)
	assert.Equal(t, "Filling", svc.Name)

	_, ok = b.ServiceByName("Crown")
	assert.False(t, ok)
}
