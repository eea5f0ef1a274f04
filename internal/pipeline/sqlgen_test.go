package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDB      = "DEMO_CANVAS_DB"
	testRaw     = "RAW"
	testCurated = "CURATED"
)

func TestPendingCountSQL(t *testing.T) {
	spec, ok := EntityByName("students")
	require.True(t, ok)

	sql := spec.pendingCountSQL(testDB, testRaw)
	assert.Equal(t,
		"SELECT COUNT(*) FROM DEMO_CANVAS_DB.RAW.RAW_STUDENTS WHERE processing_status = ?",
		sql,
	)
}

func TestMergeSQLDimension(t *testing.T) {
	spec, _ := EntityByName("students")
	sql := spec.upsertSQL(testDB, testRaw, testCurated)

	assert.Contains(t, sql, "MERGE INTO DEMO_CANVAS_DB.CURATED.DIM_STUDENTS tgt")
	assert.Contains(t, sql, "PARSE_JSON(r.payload):student_id::VARCHAR AS student_id")
	assert.Contains(t, sql, "PARSE_JSON(r.payload):gpa::DECIMAL(3,2) AS gpa")
	assert.Contains(t, sql, "ON tgt.student_id = src.student_id")
	assert.Contains(t, sql, "WHERE r.processing_status = ?")
	assert.Contains(t, sql, "updated_at = CURRENT_TIMESTAMP()")

	// Write-once fields are inserted but never updated.
	assert.Contains(t, sql, "enrollment_date")
	assert.NotContains(t, sql, "enrollment_date = src.enrollment_date")
	assert.NotContains(t, sql, "expected_graduation = src.expected_graduation")

	// The business key is not part of the update set.
	assert.NotContains(t, sql, "student_id = src.student_id,")

	// A dimension has no reference lookups.
	assert.NotContains(t, sql, "LEFT JOIN")
}

func TestMergeSQLFactResolvesSurrogateKeys(t *testing.T) {
	spec, _ := EntityByName("enrollments")
	sql := spec.upsertSQL(testDB, testRaw, testCurated)

	assert.Contains(t, sql, "MERGE INTO DEMO_CANVAS_DB.CURATED.FACT_ENROLLMENTS tgt")
	assert.Contains(t, sql,
		"LEFT JOIN DEMO_CANVAS_DB.CURATED.DIM_STUDENTS s ON PARSE_JSON(r.payload):student_id::VARCHAR = s.student_id")
	assert.Contains(t, sql,
		"LEFT JOIN DEMO_CANVAS_DB.CURATED.DIM_COURSES c ON PARSE_JSON(r.payload):course_id::VARCHAR = c.course_id")
	assert.Contains(t, sql, "s.student_key")
	assert.Contains(t, sql, "c.course_key")

	// Surrogate keys appear right after the business key in the insert
	// column list.
	insertIdx := strings.Index(sql, "WHEN NOT MATCHED THEN INSERT")
	require.Greater(t, insertIdx, 0)
	insertPart := sql[insertIdx:]
	keyIdx := strings.Index(insertPart, "enrollment_id")
	studentKeyIdx := strings.Index(insertPart, "student_key")
	assert.Greater(t, studentKeyIdx, keyIdx)

	// Mutable fact fields update on match; immutable ones do not.
	assert.Contains(t, sql, "final_grade = src.final_grade")
	assert.NotContains(t, sql, "enrolled_at = src.enrolled_at")
}

func TestAppendSQLActivity(t *testing.T) {
	spec, _ := EntityByName("activity")
	sql := spec.upsertSQL(testDB, testRaw, testCurated)

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO DEMO_CANVAS_DB.CURATED.FACT_ACTIVITY_LOGS"))
	assert.NotContains(t, sql, "MERGE")
	assert.Contains(t, sql, "PARSE_JSON(r.payload):activity_timestamp::TIMESTAMP_NTZ")
	assert.Contains(t, sql, "LEFT JOIN DEMO_CANVAS_DB.CURATED.DIM_STUDENTS")
	assert.Contains(t, sql, "WHERE r.processing_status = ?")
}

func TestMarkErrorSQLUsesPlaceholders(t *testing.T) {
	spec, _ := EntityByName("courses")
	sql := spec.markErrorSQL(testDB, testRaw, 3)

	assert.Equal(t,
		"UPDATE DEMO_CANVAS_DB.RAW.RAW_COURSES SET processing_status = ? WHERE raw_id IN (?, ?, ?)",
		sql,
	)
}

func TestQuarantineSQLTargetsMalformedRowsOnly(t *testing.T) {
	spec, _ := EntityByName("submissions")
	sql := spec.quarantineSQL(testDB, testRaw)

	assert.Contains(t, sql, "TRY_PARSE_JSON(payload) IS NULL")
	assert.Contains(t, sql, "TRY_PARSE_JSON(payload):submission_id IS NULL")
	assert.Contains(t, sql, "processing_status = ?")
}
