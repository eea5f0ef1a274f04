package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"canvasetl/internal/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the service version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("canvasetl %s\n", server.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
