package pipeline

import (
	"context"

	"canvasetl/internal/observability"
	"canvasetl/internal/warehouse"
	"canvasetl/pkg/errors"
)

// Processor runs the raw-to-curated batch transform for any entity spec.
// One statement moves the whole pending set; the batch is all-or-nothing
// per invocation. Re-running is always safe: only rows still tagged
// PENDING are considered.
type Processor struct {
	exec          warehouse.Executor
	database      string
	rawSchema     string
	curatedSchema string
	log           *observability.Logger
}

// NewProcessor creates a batch processor bound to one database layout
func NewProcessor(exec warehouse.Executor, database, rawSchema, curatedSchema string, log *observability.Logger) *Processor {
	if log == nil {
		log = observability.GetDefaultLogger()
	}
	return &Processor{
		exec:          exec,
		database:      database,
		rawSchema:     rawSchema,
		curatedSchema: curatedSchema,
		log:           log,
	}
}

// PendingCount returns the number of rows awaiting processing for the
// entity.
func (p *Processor) PendingCount(ctx context.Context, spec EntitySpec) (int64, error) {
	return p.exec.QueryCount(ctx, spec.pendingCountSQL(p.database, p.rawSchema), StatusPending)
}

// Process moves all pending rows for the entity into its curated table and
// marks them processed. Returns the number of rows considered; zero
// pending rows is a cheap no-op that issues no further statements.
//
// If the upsert fails, structurally-bad rows (unparsable payload or
// missing business key) are quarantined as ERROR and the upsert is retried
// once; everything else stays PENDING for the next attempt.
func (p *Processor) Process(ctx context.Context, spec EntitySpec) (int64, error) {
	log := p.log.WithField("entity", spec.Name)

	pending, err := p.PendingCount(ctx, spec)
	if err != nil {
		return 0, err
	}
	if pending == 0 {
		log.Debugf("no pending %s records", spec.Name)
		return 0, nil
	}

	upsert := spec.upsertSQL(p.database, p.rawSchema, p.curatedSchema)

	if _, err := p.exec.Exec(ctx, upsert, StatusPending); err != nil {
		quarantined, qErr := p.quarantine(ctx, spec)
		if qErr != nil || quarantined == 0 {
			return 0, err
		}

		log.WarnWithFields("quarantined malformed rows, retrying batch", map[string]interface{}{
			"quarantined": quarantined,
		})

		if _, err := p.exec.Exec(ctx, upsert, StatusPending); err != nil {
			return 0, err
		}
		pending -= quarantined
	}

	if _, err := p.exec.Exec(ctx, spec.markProcessedSQL(p.database, p.rawSchema), StatusProcessed, StatusPending); err != nil {
		return 0, err
	}

	log.InfoWithFields("batch processed", map[string]interface{}{"records": pending})
	return pending, nil
}

// ProcessAll runs every registered entity in dependency order and returns
// the total row count. The first failing entity aborts the pass.
func (p *Processor) ProcessAll(ctx context.Context) (int64, error) {
	var total int64
	for _, spec := range Entities() {
		n, err := p.Process(ctx, spec)
		if err != nil {
			return total, errors.Wrap(err, errors.ErrCodeSQLExecution, "batch processing failed").
				WithContext("entity", spec.Name)
		}
		total += n
	}
	return total, nil
}

// MarkErrors tags specific raw rows as ERROR by id
func (p *Processor) MarkErrors(ctx context.Context, spec EntitySpec, rawIDs []string) error {
	if len(rawIDs) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(rawIDs)+1)
	args = append(args, StatusError)
	for _, id := range rawIDs {
		args = append(args, id)
	}

	_, err := p.exec.Exec(ctx, spec.markErrorSQL(p.database, p.rawSchema, len(rawIDs)), args...)
	return err
}

func (p *Processor) quarantine(ctx context.Context, spec EntitySpec) (int64, error) {
	return p.exec.Exec(ctx, spec.quarantineSQL(p.database, p.rawSchema), StatusError, StatusPending)
}
