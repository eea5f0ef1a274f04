package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasetl/pkg/models"
)

func withConfigFile(t *testing.T, content string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	t.Setenv("CANVASETL_CONFIG", path)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	withConfigFile(t, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultDatabase, cfg.Snowflake.Database)
	assert.Equal(t, DefaultSchemaRaw, cfg.Snowflake.SchemaRaw)
	assert.Equal(t, DefaultSchemaCurated, cfg.Snowflake.SchemaCurated)
	assert.Equal(t, DefaultWarehouse, cfg.Snowflake.Warehouse)
	assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, DefaultTokenPath, cfg.Snowflake.TokenPath)
}

func TestLoadReadsYAML(t *testing.T) {
	withConfigFile(t, `
snowflake:
  account: xy12345
  username: etl_user
  database: OTHER_DB
server:
  listen_addr: ":9090"
pipeline:
  schedule: "*/30 * * * *"
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "xy12345", cfg.Snowflake.Account)
	assert.Equal(t, "etl_user", cfg.Snowflake.Username)
	assert.Equal(t, "OTHER_DB", cfg.Snowflake.Database)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, "*/30 * * * *", cfg.Pipeline.Schedule)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	withConfigFile(t, `
snowflake:
  account: from-file
  database: FILE_DB
`)
	t.Setenv("SNOWFLAKE_ACCOUNT", "from-env")
	t.Setenv("SNOWFLAKE_DATABASE", "ENV_DB")
	t.Setenv("ETL_LISTEN_ADDR", ":7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Snowflake.Account)
	assert.Equal(t, "ENV_DB", cfg.Snowflake.Database)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	withConfigFile(t, "snowflake: [not a map")

	_, err := Load()
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	withConfigFile(t, "")

	in := &models.Config{}
	in.Snowflake.Account = "xy12345"
	in.Snowflake.Username = "etl_user"
	in.Pipeline.Schedule = "0 * * * *"
	require.NoError(t, Save(in))
	assert.True(t, Exists())

	out, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "xy12345", out.Snowflake.Account)
	assert.Equal(t, "0 * * * *", out.Pipeline.Schedule)
}

func TestWarehouseConfig(t *testing.T) {
	cfg := &models.Config{}
	cfg.Snowflake.Account = "xy12345"
	cfg.Snowflake.Username = "etl_user"
	cfg.Snowflake.Database = "DEMO_CANVAS_DB"
	cfg.Snowflake.TokenPath = "/snowflake/session/token"

	wc := WarehouseConfig(cfg, 0)
	assert.Equal(t, "xy12345", wc.Account)
	assert.Equal(t, "etl_user", wc.Username)
	assert.Equal(t, "/snowflake/session/token", wc.TokenPath)
}
