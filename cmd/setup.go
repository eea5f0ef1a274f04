package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"canvasetl/internal/config"
	"canvasetl/internal/security"
	"canvasetl/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Run:   runSetup,
}

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("Setting up Canvas ETL...")
	fmt.Println()

	if config.Exists() {
		var overwrite bool
		prompt := &survey.Confirm{
			Message: "Configuration already exists. Do you want to overwrite it?",
			Default: false,
		}
		survey.AskOne(prompt, &overwrite)
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return
		}
	}

	cfg := &models.Config{}

	fmt.Println("Snowflake Configuration")
	fmt.Println("-----------------------")

	snowflakeQs := []*survey.Question{
		{
			Name: "account",
			Prompt: &survey.Input{
				Message: "Snowflake Account (e.g., xy12345.us-east-1):",
			},
			Validate: survey.Required,
		},
		{
			Name: "username",
			Prompt: &survey.Input{
				Message: "Username:",
			},
			Validate: survey.Required,
		},
		{
			Name: "role",
			Prompt: &survey.Input{
				Message: "Role:",
				Default: "ETL_SERVICE_ROLE",
			},
			Validate: survey.Required,
		},
		{
			Name: "warehouse",
			Prompt: &survey.Input{
				Message: "Warehouse:",
				Default: config.DefaultWarehouse,
			},
			Validate: survey.Required,
		},
		{
			Name: "database",
			Prompt: &survey.Input{
				Message: "Database:",
				Default: config.DefaultDatabase,
			},
			Validate: survey.Required,
		},
	}

	if err := survey.Ask(snowflakeQs, &cfg.Snowflake); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// The password goes to the credential store, never the config file.
	var password string
	if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	store, err := security.NewStore()
	if err != nil {
		fmt.Printf("Error opening credential store: %v\n", err)
		os.Exit(1)
	}
	if err := store.Set("snowflake_password", "password", password, map[string]string{
		"account":  cfg.Snowflake.Account,
		"username": cfg.Snowflake.Username,
	}); err != nil {
		fmt.Printf("Error storing password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Pipeline Configuration")
	fmt.Println("----------------------")

	var schedule string
	survey.AskOne(&survey.Input{
		Message: "Cron schedule for incremental runs (empty to disable):",
	}, &schedule)
	cfg.Pipeline.Schedule = schedule

	if err := config.Save(cfg); err != nil {
		fmt.Printf("Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Configuration saved to:", config.GetConfigFile())
	fmt.Println()
	fmt.Println("Start the service with: canvasetl serve")
	fmt.Println("Or run a one-off job with: canvasetl run FULL_REFRESH")
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
