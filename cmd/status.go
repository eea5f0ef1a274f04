package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"canvasetl/internal/ui"
)

var statusServiceURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running ETL service",
	RunE:  runStatus,
}

type serviceStatus struct {
	Status           string `json:"status"`
	LastRun          string `json:"last_run"`
	RecordsProcessed int64  `json:"records_processed"`
	Errors           int64  `json:"errors"`
	RunningJobs      []struct {
		ID        string    `json:"id"`
		Type      string    `json:"type"`
		StartedAt time.Time `json:"started_at"`
	} `json:"running_jobs"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	url := strings.TrimSuffix(statusServiceURL, "/") + "/status"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("service returned HTTP %d", resp.StatusCode)
		ui.ShowError(err)
		return err
	}

	var status serviceStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		ui.ShowError(err)
		return err
	}

	ui.ShowHeader("Canvas ETL Status")

	statusText := color.GreenString(status.Status)
	if status.Status == "running" {
		statusText = color.YellowString(status.Status)
	}

	lastRun := status.LastRun
	if lastRun == "" {
		lastRun = "never"
	}

	fmt.Printf("Status:            %s\n", statusText)
	fmt.Printf("Last run:          %s\n", lastRun)
	fmt.Printf("Records processed: %d\n", status.RecordsProcessed)
	if status.Errors > 0 {
		fmt.Printf("Errors:            %s\n", color.RedString("%d", status.Errors))
	} else {
		fmt.Printf("Errors:            0\n")
	}

	if len(status.RunningJobs) > 0 {
		fmt.Println()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Job ID", "Type", "Started"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, job := range status.RunningJobs {
			table.Append([]string{job.ID, job.Type, job.StartedAt.Format(time.RFC3339)})
		}
		table.Render()
	}

	return nil
}

func init() {
	statusCmd.Flags().StringVar(&statusServiceURL, "service-url", "http://localhost:8080", "base URL of the ETL service")
	rootCmd.AddCommand(statusCmd)
}
