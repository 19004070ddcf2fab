package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Asia/Seoul\nlog_level: DEBUG\nexpand:\n  max_instances: 42\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 42, cfg.Expand.MaxInstances)
	assert.Equal(t, defaultCacheSize, cfg.Expand.CacheSize)
	assert.Equal(t, defaultProductID, cfg.Calendar.ProductID)
	assert.Equal(t, defaultRefresh, cfg.Export.Refresh)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: [unclosed"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Timezone = "Nowhere/Land"
	cfg.Export.Refresh = "every so often"
	cfg.Timetable.DefaultEnd = "25:99"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "timezone")
	assert.ErrorContains(t, err, "export.refresh")
	assert.ErrorContains(t, err, "timetable.default_end")
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestSave_Nil(t *testing.T) {
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}
