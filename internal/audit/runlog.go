// Package audit records pipeline runs in the warehouse-side run log so
// operators can inspect history with plain SQL. Logging failures never
// fail the run itself.
package audit

import (
	"context"
	"fmt"

	"canvasetl/internal/observability"
	"canvasetl/internal/warehouse"
)

const (
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// RunLog writes start/finish markers to AUDIT.ETL_RUN_LOG. A nil RunLog is
// valid and does nothing, so callers can wire auditing in optionally.
type RunLog struct {
	exec     warehouse.Executor
	database string
	log      *observability.Logger
}

func NewRunLog(exec warehouse.Executor, database string, log *observability.Logger) *RunLog {
	if log == nil {
		log = observability.GetDefaultLogger()
	}
	return &RunLog{exec: exec, database: database, log: log}
}

func (r *RunLog) tableRef() string {
	return fmt.Sprintf("%s.AUDIT.ETL_RUN_LOG", r.database)
}

// Started records the beginning of a run. Failures are logged and
// swallowed; the audit trail must never block the pipeline.
func (r *RunLog) Started(ctx context.Context, runID, runType string) {
	if r == nil {
		return
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (run_id, run_type, status, started_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP())",
		r.tableRef(),
	)
	if _, err := r.exec.Exec(ctx, query, runID, runType, StatusStarted); err != nil {
		r.log.WarnWithFields("failed to write run-log start marker", map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
	}
}

// Finished closes the open marker for the run. An empty errMsg records a
// completed run; anything else records a failure.
func (r *RunLog) Finished(ctx context.Context, runID, runType string, records int64, errMsg string) {
	if r == nil {
		return
	}

	status := StatusCompleted
	if errMsg != "" {
		status = StatusFailed
	}

	query := fmt.Sprintf(
		"UPDATE %s SET status = ?, records_processed = ?, error_message = ?, completed_at = CURRENT_TIMESTAMP() "+
			"WHERE run_id = ? AND run_type = ? AND status = ? AND completed_at IS NULL",
		r.tableRef(),
	)
	if _, err := r.exec.Exec(ctx, query, status, records, errMsg, runID, runType, StatusStarted); err != nil {
		r.log.WarnWithFields("failed to write run-log finish marker", map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
	}
}
