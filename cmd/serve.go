package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"canvasetl/internal/audit"
	"canvasetl/internal/config"
	"canvasetl/internal/etl"
	"canvasetl/internal/observability"
	"canvasetl/internal/pipeline"
	"canvasetl/internal/schedule"
	"canvasetl/internal/server"
	"canvasetl/internal/transform"
	"canvasetl/internal/ui"
	"canvasetl/internal/warehouse"
)

var serveListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ETL HTTP service",
	Long: "Starts the HTTP control plane: health/status/metrics probes plus the\n" +
		"warehouse service-function endpoints (/run_etl, /status, /transform).\n" +
		"If a cron schedule is configured, incremental runs fire on that cadence.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		return err
	}
	if serveListenAddr != "" {
		cfg.Server.ListenAddr = serveListenAddr
	}
	resolvePassword(cfg)

	log := observability.GetDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	scheduler, err := schedule.New(cfg.Pipeline.Schedule, dispatcher, log)
	if err != nil {
		ui.ShowError(err)
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	metrics := observability.NewRegistry()
	srv := server.New(cfg.Server.ListenAddr, dispatcher, session, metrics, log)

	log.InfoWithFields("starting Canvas ETL service", map[string]interface{}{
		"addr":     cfg.Server.ListenAddr,
		"database": sf.Database,
		"schedule": cfg.Pipeline.Schedule,
	})

	return srv.Start(ctx)
}

func init() {
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
