// Package quality runs post-load data-quality checks over the curated
// layer. A check is a single-value query compared against a threshold;
// checks report, they never mutate.
package quality

import (
	"context"
	"fmt"

	"canvasetl/internal/observability"
	"canvasetl/internal/warehouse"
)

// Check is one data-quality rule. The query must return a single numeric
// value; the check passes when the value does not exceed Threshold.
type Check struct {
	Name      string
	Query     string
	Args      []interface{}
	Threshold int64
}

// Result is the outcome of one executed check.
type Result struct {
	Name      string `json:"name"`
	Value     int64  `json:"value"`
	Threshold int64  `json:"threshold"`
	Passed    bool   `json:"passed"`
	Err       error  `json:"-"`
}

// DefaultChecks returns the built-in rule set for the given database and
// curated schema.
func DefaultChecks(database, curatedSchema string) []Check {
	table := func(name string) string {
		return fmt.Sprintf("%s.%s.%s", database, curatedSchema, name)
	}

	return []Check{
		{
			Name:      "students_without_key",
			Query:     fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE student_id IS NULL", table("DIM_STUDENTS")),
			Threshold: 0,
		},
		{
			Name:      "duplicate_students",
			Query: fmt.Sprintf(
				"SELECT COUNT(*) - COUNT(DISTINCT student_id) FROM %s", table("DIM_STUDENTS")),
			Threshold: 0,
		},
		{
			Name: "orphaned_enrollments",
			Query: fmt.Sprintf(
				"SELECT COUNT(*) FROM %s e LEFT JOIN %s s ON e.student_id = s.student_id WHERE s.student_id IS NULL",
				table("FACT_ENROLLMENTS"), table("DIM_STUDENTS")),
			Threshold: 0,
		},
		{
			Name: "orphaned_submissions",
			Query: fmt.Sprintf(
				"SELECT COUNT(*) FROM %s sub LEFT JOIN %s a ON sub.assignment_id = a.assignment_id WHERE a.assignment_id IS NULL",
				table("FACT_SUBMISSIONS"), table("DIM_ASSIGNMENTS")),
			Threshold: 0,
		},
		{
			Name: "submissions_over_possible_points",
			Query: fmt.Sprintf(
				"SELECT COUNT(*) FROM %s WHERE score > points_possible", table("FACT_SUBMISSIONS")),
			Threshold: 0,
		},
	}
}

// RunChecks executes every check and returns all results. Individual check
// failures (query errors included) do not stop the run.
func RunChecks(ctx context.Context, exec warehouse.Executor, checks []Check, log *observability.Logger) []Result {
	if log == nil {
		log = observability.GetDefaultLogger()
	}

	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		value, err := exec.QueryCount(ctx, c.Query, c.Args...)
		res := Result{
			Name:      c.Name,
			Value:     value,
			Threshold: c.Threshold,
			Passed:    err == nil && value <= c.Threshold,
			Err:       err,
		}
		results = append(results, res)

		switch {
		case err != nil:
			log.WarnWithFields("quality check errored", map[string]interface{}{
				"check": c.Name,
				"error": err.Error(),
			})
		case !res.Passed:
			log.WarnWithFields("quality check failed", map[string]interface{}{
				"check":     c.Name,
				"value":     value,
				"threshold": c.Threshold,
			})
		default:
			log.Debugf("quality check %s passed", c.Name)
		}
	}
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
