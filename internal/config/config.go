// Package config loads service configuration from a YAML file with
// environment-variable overrides via viper. Environment wins over file so
// containerized deployments need no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"canvasetl/internal/warehouse"
	"canvasetl/pkg/errors"
	"canvasetl/pkg/models"
)

// Defaults for the Snowpark Container Services deployment.
const (
	DefaultDatabase      = "DEMO_CANVAS_DB"
	DefaultSchemaRaw     = "RAW"
	DefaultSchemaCurated = "CURATED"
	DefaultWarehouse     = "DEMO_TRANSFORM_WH"
	DefaultListenAddr    = ":8080"
	DefaultTokenPath     = "/snowflake/session/token"
)

func GetConfigPath() string {
	if configPath := os.Getenv("CANVASETL_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".canvasetl")
}

func GetConfigFile() string {
	if configFile := os.Getenv("CANVASETL_CONFIG"); configFile != "" {
		return filepath.Clean(configFile)
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// Load reads the config file (if present), applies defaults, then lets
// environment variables override both.
func Load() (*models.Config, error) {
	config := &models.Config{}

	configFile := GetConfigFile()
	if data, err := os.ReadFile(configFile); err == nil { // #nosec G304 - operator-supplied config path
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file").
				WithContext("file", configFile)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithContext("file", configFile)
	}

	applyDefaults(config)
	applyEnvironment(config)
	return config, nil
}

// Save writes the config file with restrictive permissions.
func Save(config *models.Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(GetConfigFile(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

func applyDefaults(c *models.Config) {
	if c.Snowflake.Database == "" {
		c.Snowflake.Database = DefaultDatabase
	}
	if c.Snowflake.SchemaRaw == "" {
		c.Snowflake.SchemaRaw = DefaultSchemaRaw
	}
	if c.Snowflake.SchemaCurated == "" {
		c.Snowflake.SchemaCurated = DefaultSchemaCurated
	}
	if c.Snowflake.Warehouse == "" {
		c.Snowflake.Warehouse = DefaultWarehouse
	}
	if c.Snowflake.TokenPath == "" {
		c.Snowflake.TokenPath = DefaultTokenPath
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
}

func applyEnvironment(c *models.Config) {
	v := viper.New()
	v.AutomaticEnv()

	bind := func(key string, target *string) {
		if value := v.GetString(key); value != "" {
			*target = value
		}
	}

	bind("SNOWFLAKE_ACCOUNT", &c.Snowflake.Account)
	bind("SNOWFLAKE_USER", &c.Snowflake.Username)
	bind("SNOWFLAKE_PASSWORD", &c.Snowflake.Password)
	bind("SNOWFLAKE_ROLE", &c.Snowflake.Role)
	bind("SNOWFLAKE_WAREHOUSE", &c.Snowflake.Warehouse)
	bind("SNOWFLAKE_DATABASE", &c.Snowflake.Database)
	bind("SNOWFLAKE_SCHEMA_RAW", &c.Snowflake.SchemaRaw)
	bind("SNOWFLAKE_SCHEMA_CURATED", &c.Snowflake.SchemaCurated)
	bind("SNOWFLAKE_TOKEN_PATH", &c.Snowflake.TokenPath)
	bind("ETL_LISTEN_ADDR", &c.Server.ListenAddr)
	bind("ETL_SCHEDULE", &c.Pipeline.Schedule)
}

// WarehouseConfig converts the service config into a connection config.
func WarehouseConfig(c *models.Config, timeout time.Duration) warehouse.Config {
	return warehouse.Config{
		Account:       c.Snowflake.Account,
		Username:      c.Snowflake.Username,
		Password:      c.Snowflake.Password,
		Role:          c.Snowflake.Role,
		Warehouse:     c.Snowflake.Warehouse,
		Database:      c.Snowflake.Database,
		SchemaRaw:     c.Snowflake.SchemaRaw,
		SchemaCurated: c.Snowflake.SchemaCurated,
		TokenPath:     c.Snowflake.TokenPath,
		Timeout:       timeout,
	}
}
