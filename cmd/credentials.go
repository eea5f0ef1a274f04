package cmd

import (
	"os"

	"canvasetl/internal/security"
	"canvasetl/pkg/models"
)

// resolvePassword fills in the Snowflake password from the credential
// store when neither the environment nor the config file provided one.
// Inside Snowpark Container Services the OAuth token file makes a
// password unnecessary, so a miss here is not an error.
func resolvePassword(cfg *models.Config) {
	if cfg.Snowflake.Password != "" {
		return
	}
	if _, err := os.Stat(cfg.Snowflake.TokenPath); err == nil {
		return
	}

	store, err := security.NewStore()
	if err != nil {
		return
	}
	if cred, err := store.Get("snowflake_password"); err == nil {
		cfg.Snowflake.Password = cred.Value
	}
}
