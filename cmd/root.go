package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"canvasetl/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "canvasetl",
	Short: "Canvas LMS warehouse ETL service",
	Long: "CanvasETL - a thin control plane that moves raw Canvas LMS records into\n" +
		"curated warehouse tables and computes analytics rollups. The warehouse does\n" +
		"the heavy lifting; this service sequences the SQL.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.SetDefaultLogger(observability.NewLogger(observability.LoggerConfig{
			Level:   observability.LogLevelFromString(viper.GetString("LOG_LEVEL")),
			Output:  os.Stderr,
			Service: "canvasetl",
			Version: "1.0.0",
		}))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home + "/.canvasetl")
	}

	// A missing config file is fine; environment variables cover it.
	_ = viper.ReadInConfig()
}
