package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	t.Setenv("SKEDULE_USER", "")
	t.Setenv("OPENAI_MODEL", "")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.User.ID)
	assert.Equal(t, 15, cfg.Suggest.Quota)
	assert.Equal(t, 3, cfg.Suggest.MinCount)
	assert.Equal(t, 20, cfg.Suggest.MaxCount)
	assert.Equal(t, 7, cfg.Suggest.MaxWindowDays)
	assert.Equal(t, "primary", cfg.Calendar.Google.CalendarID)
	assert.Equal(t, 2*time.Minute, cfg.Calendar.CacheTTL())
}

func TestLoadFile_OverlaysFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[user]
id = "alice"
timezone = "Europe/Stockholm"

[suggest]
quota = 10

[calendar]
sources = ["google", "ics"]
event_target = "google"
cache_ttl_seconds = 0

[calendar.ics]
source = "/tmp/work.ics"
`), 0644))

	t.Setenv("SKEDULE_USER", "")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("MSGRAPH_CLIENT_ID", "client-123")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.User.ID)
	assert.Equal(t, "Europe/Stockholm", cfg.User.Timezone)
	assert.Equal(t, 10, cfg.Suggest.Quota)
	assert.Equal(t, 20, cfg.Suggest.MaxCount, "unset keys keep defaults")
	assert.Equal(t, []string{"google", "ics"}, cfg.Calendar.Sources)
	assert.Equal(t, "google", cfg.Calendar.EventTarget)
	assert.Zero(t, cfg.Calendar.CacheTTL())
	assert.Equal(t, "/tmp/work.ics", cfg.Calendar.ICS.Source)
	assert.Equal(t, "gpt-test", cfg.Planner.Model)
	assert.Equal(t, "client-123", cfg.Calendar.Graph.ClientID)
}

func TestLoadFile_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[user\nid ="), 0644))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestSaveUser_PreservesOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[user]
id = "alice"

[suggest]
quota = 9
`), 0644))

	require.NoError(t, saveUserFile(path, UserConfig{Timezone: "America/New_York"}))

	t.Setenv("SKEDULE_USER", "")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.User.ID)
	assert.Equal(t, "America/New_York", cfg.User.Timezone)
	assert.Equal(t, 9, cfg.Suggest.Quota)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	wrote, err := WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, wrote)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Suggest.Quota)
	assert.Equal(t, "primary", cfg.Calendar.Google.CalendarID)

	wrote, err = WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, wrote)
}
