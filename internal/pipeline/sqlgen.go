package pipeline

import (
	"fmt"
	"strings"
)

// SQL text is assembled from the entity registry plus configured
// database/schema names; nothing caller-supplied is ever spliced into the
// statement text. Row-level values (statuses, raw ids) always travel as
// bind parameters.

func (e EntitySpec) rawTableRef(db, rawSchema string) string {
	return fmt.Sprintf("%s.%s.%s", db, rawSchema, e.RawTable)
}

func (e EntitySpec) targetTableRef(db, curatedSchema string) string {
	return fmt.Sprintf("%s.%s.%s", db, curatedSchema, e.TargetTable)
}

// payloadExpr renders the typed extraction of one payload field. The raw
// payload column is a VARCHAR holding a JSON document.
func payloadExpr(alias, field, castType string) string {
	return fmt.Sprintf("PARSE_JSON(%s.payload):%s::%s", alias, field, castType)
}

func (e EntitySpec) pendingCountSQL(db, rawSchema string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE processing_status = ?",
		e.rawTableRef(db, rawSchema),
	)
}

func (e EntitySpec) markProcessedSQL(db, rawSchema string) string {
	return fmt.Sprintf(
		"UPDATE %s SET processing_status = ? WHERE processing_status = ?",
		e.rawTableRef(db, rawSchema),
	)
}

// markErrorSQL tags specific rows by raw_id. The IN list is all bind
// placeholders; ids are never interpolated into the statement.
func (e EntitySpec) markErrorSQL(db, rawSchema string, n int) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return fmt.Sprintf(
		"UPDATE %s SET processing_status = ? WHERE raw_id IN (%s)",
		e.rawTableRef(db, rawSchema),
		placeholders,
	)
}

// quarantineSQL tags pending rows whose payload cannot produce a curated
// row at all: unparsable JSON or a missing business key.
func (e EntitySpec) quarantineSQL(db, rawSchema string) string {
	return fmt.Sprintf(
		"UPDATE %s SET processing_status = ? WHERE processing_status = ? "+
			"AND (TRY_PARSE_JSON(payload) IS NULL OR TRY_PARSE_JSON(payload):%s IS NULL)",
		e.rawTableRef(db, rawSchema),
		e.BusinessKey,
	)
}

// sourceSelect builds the typed projection over pending raw rows,
// including surrogate-key lookups via LEFT JOIN. Returns the select text
// and the ordered list of source column names.
func (e EntitySpec) sourceSelect(db, rawSchema, curatedSchema string) (string, []string) {
	var cols []string
	var exprs []string

	// Business key first, then surrogate keys, then the remaining
	// payload fields. This matches the curated table column order.
	key := e.Fields[0]
	cols = append(cols, key.Column)
	exprs = append(exprs, fmt.Sprintf("%s AS %s", payloadExpr("r", key.Name, key.Type), key.Column))

	for _, ref := range e.Refs {
		cols = append(cols, ref.KeyColumn)
		exprs = append(exprs, fmt.Sprintf("%s.%s", ref.Alias, ref.KeyColumn))
	}

	for _, f := range e.Fields[1:] {
		cols = append(cols, f.Column)
		exprs = append(exprs, fmt.Sprintf("%s AS %s", payloadExpr("r", f.Name, f.Type), f.Column))
	}

	var b strings.Builder
	b.WriteString("SELECT\n    ")
	b.WriteString(strings.Join(exprs, ",\n    "))
	b.WriteString(fmt.Sprintf("\nFROM %s r", e.rawTableRef(db, rawSchema)))

	for _, ref := range e.Refs {
		b.WriteString(fmt.Sprintf(
			"\nLEFT JOIN %s.%s.%s %s ON %s = %s.%s",
			db, curatedSchema, ref.Table, ref.Alias,
			payloadExpr("r", ref.MatchField, "VARCHAR"),
			ref.Alias, ref.MatchColumn,
		))
	}

	b.WriteString("\nWHERE r.processing_status = ?")

	return b.String(), cols
}

// upsertSQL renders the single statement that moves the pending batch into
// the curated table: a MERGE for LoadMerge entities, an INSERT..SELECT for
// LoadAppend ones. The statement takes one bind parameter: the PENDING
// status.
func (e EntitySpec) upsertSQL(db, rawSchema, curatedSchema string) string {
	source, cols := e.sourceSelect(db, rawSchema, curatedSchema)

	if e.Mode == LoadAppend {
		return fmt.Sprintf(
			"INSERT INTO %s (\n    %s\n)\n%s",
			e.targetTableRef(db, curatedSchema),
			strings.Join(cols, ",\n    "),
			source,
		)
	}

	var updates []string
	for _, f := range e.Fields[1:] {
		if f.InsertOnly {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = src.%s", f.Column, f.Column))
	}
	updates = append(updates, "updated_at = CURRENT_TIMESTAMP()")

	srcCols := make([]string, len(cols))
	for i, c := range cols {
		srcCols[i] = "src." + c
	}

	return fmt.Sprintf(
		"MERGE INTO %s tgt\nUSING (\n%s\n) src\nON tgt.%s = src.%s\n"+
			"WHEN MATCHED THEN UPDATE SET\n    %s\n"+
			"WHEN NOT MATCHED THEN INSERT (\n    %s\n) VALUES (\n    %s\n)",
		e.targetTableRef(db, curatedSchema),
		source,
		e.BusinessKey, e.BusinessKey,
		strings.Join(updates, ",\n    "),
		strings.Join(cols, ",\n    "),
		strings.Join(srcCols, ",\n    "),
	)
}
