package transform

import (
	"context"
	"fmt"

	"canvasetl/internal/observability"
	"canvasetl/internal/warehouse"
	"canvasetl/pkg/errors"
)

// Engine runs the curated-layer transformations: dimension touch-ups and
// the truncate-and-reload aggregate tables. All statements operate on
// curated data only; raw-layer processing belongs to the batch pipeline.
type Engine struct {
	exec          warehouse.Executor
	database      string
	curatedSchema string
	log           *observability.Logger
}

func NewEngine(exec warehouse.Executor, database, curatedSchema string, log *observability.Logger) *Engine {
	if log == nil {
		log = observability.GetDefaultLogger()
	}
	return &Engine{
		exec:          exec,
		database:      database,
		curatedSchema: curatedSchema,
		log:           log,
	}
}

func (e *Engine) table(name string) string {
	return fmt.Sprintf("%s.%s.%s", e.database, e.curatedSchema, name)
}

// StudentDimension refreshes currency flags on active students whose rows
// have gone stale. Returns the number of rows touched.
func (e *Engine) StudentDimension(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s s
SET updated_at = CURRENT_TIMESTAMP(), is_current = TRUE
WHERE s.enrollment_status = ?
AND s.updated_at < DATEADD('hour', -1, CURRENT_TIMESTAMP())`,
		e.table("DIM_STUDENTS"))

	n, err := e.exec.Exec(ctx, query, "Active")
	if err != nil {
		return 0, err
	}
	e.log.InfoWithFields("student dimension refreshed", map[string]interface{}{"records": n})
	return n, nil
}

// CourseDimension marks every course row current. Returns the number of
// rows touched.
func (e *Engine) CourseDimension(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s
SET is_current = TRUE, updated_at = CURRENT_TIMESTAMP()
WHERE is_current IS NULL OR is_current = FALSE`,
		e.table("DIM_COURSES"))

	n, err := e.exec.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	e.log.InfoWithFields("course dimension refreshed", map[string]interface{}{"records": n})
	return n, nil
}

// AggregateStudentPerformance rebuilds AGG_STUDENT_COURSE_PERFORMANCE from
// scratch. The table is truncated first so the reload is idempotent; the
// returned count is the table's row count after the reload.
func (e *Engine) AggregateStudentPerformance(ctx context.Context) (int64, error) {
	agg := e.table("AGG_STUDENT_COURSE_PERFORMANCE")

	if _, err := e.exec.Exec(ctx, "TRUNCATE TABLE "+agg); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSQLExecution, "truncate failed").
			WithContext("table", agg)
	}

	insert := fmt.Sprintf(`INSERT INTO %s
SELECT
    s.student_id,
    c.course_id,
    c.term,
    COUNT(DISTINCT a.assignment_id) AS total_assignments,
    COUNT(DISTINCT sub.submission_id) AS completed_assignments,
    ROUND(AVG(sub.percentage), 2) AS avg_score,
    SUM(sub.score) AS total_points_earned,
    SUM(sub.points_possible) AS total_points_possible,
    SUM(CASE WHEN sub.late_flag THEN 1 ELSE 0 END) AS late_submissions,
    SUM(CASE WHEN sub.missing_flag THEN 1 ELSE 0 END) AS missing_submissions,
    COALESCE(ROUND(SUM(act.duration_seconds) / 60, 0), 0) AS total_activity_minutes,
    MAX(act.activity_timestamp)::DATE AS last_activity_date,
    e.final_grade AS current_grade,
    CURRENT_TIMESTAMP() AS calculated_at
FROM %s s
INNER JOIN %s e ON s.student_id = e.student_id
INNER JOIN %s c ON e.course_id = c.course_id
LEFT JOIN %s a ON a.course_id = c.course_id
LEFT JOIN %s sub ON sub.student_id = s.student_id AND sub.assignment_id = a.assignment_id
LEFT JOIN %s act ON act.student_id = s.student_id AND act.course_id = c.course_id
GROUP BY s.student_id, c.course_id, c.term, e.final_grade`,
		agg,
		e.table("DIM_STUDENTS"),
		e.table("FACT_ENROLLMENTS"),
		e.table("DIM_COURSES"),
		e.table("DIM_ASSIGNMENTS"),
		e.table("FACT_SUBMISSIONS"),
		e.table("FACT_ACTIVITY_LOGS"),
	)

	if _, err := e.exec.Exec(ctx, insert); err != nil {
		return 0, err
	}

	count, err := e.exec.QueryCount(ctx, "SELECT COUNT(*) FROM "+agg)
	if err != nil {
		return 0, err
	}
	e.log.InfoWithFields("student performance aggregated", map[string]interface{}{"records": count})
	return count, nil
}

// AggregateCourseAnalytics rebuilds AGG_COURSE_ANALYTICS with per-course
// enrollment, scoring, grade-distribution, and engagement metrics.
func (e *Engine) AggregateCourseAnalytics(ctx context.Context) (int64, error) {
	agg := e.table("AGG_COURSE_ANALYTICS")

	if _, err := e.exec.Exec(ctx, "TRUNCATE TABLE "+agg); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSQLExecution, "truncate failed").
			WithContext("table", agg)
	}

	insert := fmt.Sprintf(`INSERT INTO %s
SELECT
    c.course_id,
    c.term,
    COUNT(DISTINCT e.student_id) AS total_enrolled,
    COUNT(DISTINCT CASE WHEN e.enrollment_state = 'active' THEN e.student_id END) AS active_students,
    ROUND(AVG(e.final_score), 2) AS avg_class_score,
    ROUND(MEDIAN(e.final_score), 2) AS median_class_score,
    OBJECT_CONSTRUCT(
        'A', COUNT(CASE WHEN e.final_grade IN ('A', 'A-') THEN 1 END),
        'B', COUNT(CASE WHEN e.final_grade IN ('B+', 'B', 'B-') THEN 1 END),
        'C', COUNT(CASE WHEN e.final_grade IN ('C+', 'C', 'C-') THEN 1 END),
        'D', COUNT(CASE WHEN e.final_grade IN ('D+', 'D', 'D-') THEN 1 END),
        'F', COUNT(CASE WHEN e.final_grade = 'F' THEN 1 END)
    ) AS grade_distribution,
    ROUND(
        COUNT(CASE WHEN e.enrollment_state = 'completed' THEN 1 END) * 100.0
        / NULLIF(COUNT(*), 0),
        2
    ) AS completion_rate,
    ROUND(AVG(act_agg.total_minutes), 0) AS avg_engagement_minutes,
    COUNT(CASE WHEN e.final_score < 60 THEN 1 END) AS at_risk_students,
    CURRENT_TIMESTAMP() AS calculated_at
FROM %s c
INNER JOIN %s e ON c.course_id = e.course_id
LEFT JOIN (
    SELECT student_id, course_id, ROUND(SUM(duration_seconds) / 60, 0) AS total_minutes
    FROM %s
    GROUP BY student_id, course_id
) act_agg ON act_agg.student_id = e.student_id AND act_agg.course_id = c.course_id
GROUP BY c.course_id, c.term`,
		agg,
		e.table("DIM_COURSES"),
		e.table("FACT_ENROLLMENTS"),
		e.table("FACT_ACTIVITY_LOGS"),
	)

	if _, err := e.exec.Exec(ctx, insert); err != nil {
		return 0, err
	}

	count, err := e.exec.QueryCount(ctx, "SELECT COUNT(*) FROM "+agg)
	if err != nil {
		return 0, err
	}
	e.log.InfoWithFields("course analytics aggregated", map[string]interface{}{"records": count})
	return count, nil
}

// RiskScan identifies students at academic risk from the performance
// aggregate: low average scores, heavy late submissions, or missing work.
// Read-only; returns the number of at-risk students found.
func (e *Engine) RiskScan(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT
    student_id,
    AVG(avg_score) AS overall_avg_score,
    SUM(late_submissions) AS total_late,
    SUM(missing_submissions) AS total_missing,
    AVG(total_activity_minutes) AS avg_activity
FROM %s
GROUP BY student_id
HAVING AVG(avg_score) < 70
    OR SUM(late_submissions) > 5
    OR SUM(missing_submissions) > 3`,
		e.table("AGG_STUDENT_COURSE_PERFORMANCE"))

	rows, err := e.exec.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, errors.SQLError("risk scan failed", query, err)
	}

	e.log.InfoWithFields("risk scan complete", map[string]interface{}{"at_risk_students": count})
	return count, nil
}

// RunAll executes every transformation in sequence and returns the summed
// record counts. The first failure aborts the pass.
func (e *Engine) RunAll(ctx context.Context) (int64, error) {
	steps := []struct {
		name string
		fn   func(context.Context) (int64, error)
	}{
		{"student_dimension", e.StudentDimension},
		{"course_dimension", e.CourseDimension},
		{"student_performance_agg", e.AggregateStudentPerformance},
		{"course_analytics_agg", e.AggregateCourseAnalytics},
		{"risk_scan", e.RiskScan},
	}

	var total int64
	for _, step := range steps {
		n, err := step.fn(ctx)
		if err != nil {
			return total, errors.Wrap(err, errors.ErrCodeSQLExecution, "transformation failed").
				WithContext("transformation", step.name)
		}
		total += n
	}
	return total, nil
}
