package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"canvasetl/internal/audit"
	"canvasetl/internal/config"
	"canvasetl/internal/etl"
	"canvasetl/internal/observability"
	"canvasetl/internal/pipeline"
	"canvasetl/internal/quality"
	"canvasetl/internal/transform"
	"canvasetl/internal/ui"
	"canvasetl/internal/warehouse"
)

var runWithQuality bool

var runCmd = &cobra.Command{
	Use:   "run [job-type]",
	Short: "Run one ETL job from the command line",
	Long: "Runs a single ETL job synchronously without the HTTP service.\n" +
		"Job types: FULL_REFRESH (default), INCREMENTAL, STUDENTS, COURSES,\n" +
		"ENROLLMENTS, SUBMISSIONS, ACTIVITY.",
	Args: cobra.MaximumNArgs(1),
	RunE: runJob,
}

func runJob(cmd *cobra.Command, args []string) error {
	jobType := etl.JobFullRefresh
	if len(args) > 0 {
		jobType = args[0]
	}

	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		return err
	}
	resolvePassword(cfg)

	log := observability.GetDefaultLogger()
	ctx := context.Background()

	session, err := warehouse.Open(ctx, config.WarehouseConfig(cfg, 5*time.Minute))
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer session.Close()

	sf := cfg.Snowflake
	processor := pipeline.NewProcessor(session, sf.Database, sf.SchemaRaw, sf.SchemaCurated, log)
	engine := transform.NewEngine(session, sf.Database, sf.SchemaCurated, log)
	runLog := audit.NewRunLog(session, sf.Database, log)
	dispatcher := etl.NewDispatcher(processor, engine, etl.NewRunState(), runLog, log)

	ui.ShowHeader("Canvas ETL Run")
	ui.ShowInfo(fmt.Sprintf("Job type: %s", jobType))

	records, err := dispatcher.Run(ctx, jobType)
	if err != nil {
		ui.ShowError(err)
		return err
	}
	ui.ShowSuccess(fmt.Sprintf("ETL %s completed. Records processed: %d", jobType, records))

	if runWithQuality {
		ui.ShowInfo("Running data quality checks...")
		results := quality.RunChecks(ctx, session, quality.DefaultChecks(sf.Database, sf.SchemaCurated), log)
		for _, r := range results {
			if r.Passed {
				ui.ShowSuccess(fmt.Sprintf("%s: %d (threshold %d)", r.Name, r.Value, r.Threshold))
			} else if r.Err != nil {
				ui.ShowWarning(fmt.Sprintf("%s: check errored: %v", r.Name, r.Err))
			} else {
				ui.ShowWarning(fmt.Sprintf("%s: %d exceeds threshold %d", r.Name, r.Value, r.Threshold))
			}
		}
		if failed := quality.Failed(results); len(failed) > 0 {
			return fmt.Errorf("%d data quality check(s) failed", len(failed))
		}
	}

	return nil
}

func init() {
	runCmd.Flags().BoolVar(&runWithQuality, "quality", false, "run data quality checks after the job")
	rootCmd.AddCommand(runCmd)
}
