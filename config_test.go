package figoql

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "figoql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
parameters:
  filter: where
  sort: order
array_delimiter: "|"
ignore_invalid_filters: true
relation_fields_key: path
max_page_size: 50
naming_strategy: no_change
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "where", cfg.Parameters.Filter)
	assert.Equal(t, "order", cfg.Parameters.Sort)
	assert.Equal(t, "include", cfg.Parameters.Include)
	assert.Equal(t, "|", cfg.ArrayDelimiter)
	assert.True(t, cfg.IgnoreInvalidFilters)
	assert.True(t, cfg.GuardFields)
	assert.Equal(t, RELATION_KEY_PATH, cfg.RelationFieldsKey)
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, NAMING_STRATEGY_NO_CHANGE, cfg.NamingStrategy)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "array_delimiter: \"|\"\n")
	t.Setenv("FIGOQL_ARRAY_DELIMITER", ";")
	t.Setenv("FIGOQL_PARAMETERS_APPEND", "with")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ";", cfg.ArrayDelimiter)
	assert.Equal(t, "with", cfg.Parameters.Append)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "relation_fields_key: nested\n"))
	assert.ErrorContains(t, err, "relation_fields_key")

	_, err = LoadConfig(writeConfig(t, "naming_strategy: kebab_case\n"))
	assert.ErrorContains(t, err, "naming_strategy")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Parameters.Sort = ""
	assert.ErrorContains(t, cfg.Validate(), "parameters.sort")

	cfg = DefaultConfig()
	cfg.ArrayDelimiter = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxPageSize = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	assert.Equal(t, NAMING_STRATEGY_SNAKE_CASE, cfg.NamingStrategy)
	cfg.NamingStrategy = ""
	assert.ErrorContains(t, cfg.Validate(), "naming_strategy")
}
