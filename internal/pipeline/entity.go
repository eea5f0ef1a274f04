package pipeline

// Processing status values carried by every raw landing-zone row.
const (
	StatusPending   = "PENDING"
	StatusProcessed = "PROCESSED"
	StatusError     = "ERROR"
)

// LoadMode selects how pending rows reach the curated table
type LoadMode int

const (
	// LoadMerge upserts by business key: update mutable fields on match,
	// insert the full row otherwise.
	LoadMerge LoadMode = iota
	// LoadAppend inserts every pending row; used for event-style facts
	// with no update path.
	LoadAppend
)

// Field maps one payload attribute to a curated column
type Field struct {
	Name   string // JSON field in the raw payload
	Column string // curated column
	Type   string // warehouse cast type
	// InsertOnly fields are written on first sight and never updated
	// (write-once semantics, e.g. enrollment_date).
	InsertOnly bool
}

// Ref resolves a surrogate key from an already-curated dimension. The
// lookup is a LEFT JOIN: an unmatched reference stores NULL and is not a
// processing failure.
type Ref struct {
	Table       string // dimension table in the curated schema
	Alias       string
	MatchField  string // payload field joined against the dimension
	MatchColumn string // dimension business-key column
	KeyColumn   string // surrogate key column copied into the fact
}

// EntitySpec describes one raw-to-curated batch transform. A single
// generic processor executes every entity; the specs below are the only
// per-entity code.
type EntitySpec struct {
	Name        string
	RawTable    string
	TargetTable string
	BusinessKey string
	Fields      []Field // Fields[0] is the business key
	Refs        []Ref
	Mode        LoadMode
}

// Entities returns the registry in dependency order: dimensions first,
// then facts whose reference lookups need those dimensions curated.
func Entities() []EntitySpec {
	return []EntitySpec{
		studentsSpec(),
		coursesSpec(),
		assignmentsSpec(),
		enrollmentsSpec(),
		submissionsSpec(),
		activitySpec(),
	}
}

// EntityByName returns the spec for the given entity name
func EntityByName(name string) (EntitySpec, bool) {
	for _, e := range Entities() {
		if e.Name == name {
			return e, true
		}
	}
	return EntitySpec{}, false
}

func studentsSpec() EntitySpec {
	return EntitySpec{
		Name:        "students",
		RawTable:    "RAW_STUDENTS",
		TargetTable: "DIM_STUDENTS",
		BusinessKey: "student_id",
		Mode:        LoadMerge,
		Fields: []Field{
			{Name: "student_id", Column: "student_id", Type: "VARCHAR"},
			{Name: "canvas_user_id", Column: "canvas_user_id", Type: "NUMBER"},
			{Name: "first_name", Column: "first_name", Type: "VARCHAR"},
			{Name: "last_name", Column: "last_name", Type: "VARCHAR"},
			{Name: "email", Column: "email", Type: "VARCHAR"},
			{Name: "major", Column: "major", Type: "VARCHAR"},
			{Name: "classification", Column: "classification", Type: "VARCHAR"},
			{Name: "enrollment_status", Column: "enrollment_status", Type: "VARCHAR"},
			{Name: "enrollment_date", Column: "enrollment_date", Type: "DATE", InsertOnly: true},
			{Name: "expected_graduation", Column: "expected_graduation", Type: "DATE", InsertOnly: true},
			{Name: "gpa", Column: "gpa", Type: "DECIMAL(3,2)"},
			{Name: "advisor_id", Column: "advisor_id", Type: "VARCHAR"},
		},
	}
}

func coursesSpec() EntitySpec {
	return EntitySpec{
		Name:        "courses",
		RawTable:    "RAW_COURSES",
		TargetTable: "DIM_COURSES",
		BusinessKey: "course_id",
		Mode:        LoadMerge,
		Fields: []Field{
			{Name: "course_id", Column: "course_id", Type: "VARCHAR"},
			{Name: "canvas_course_id", Column: "canvas_course_id", Type: "NUMBER"},
			{Name: "course_code", Column: "course_code", Type: "VARCHAR"},
			{Name: "course_name", Column: "course_name", Type: "VARCHAR"},
			{Name: "department", Column: "department", Type: "VARCHAR"},
			{Name: "credit_hours", Column: "credit_hours", Type: "NUMBER"},
			{Name: "course_level", Column: "course_level", Type: "VARCHAR"},
			{Name: "delivery_mode", Column: "delivery_mode", Type: "VARCHAR"},
			{Name: "term", Column: "term", Type: "VARCHAR"},
			{Name: "academic_year", Column: "academic_year", Type: "VARCHAR"},
			{Name: "instructor_id", Column: "instructor_id", Type: "VARCHAR"},
			{Name: "instructor_name", Column: "instructor_name", Type: "VARCHAR"},
			{Name: "start_date", Column: "start_date", Type: "DATE"},
			{Name: "end_date", Column: "end_date", Type: "DATE"},
			{Name: "max_enrollment", Column: "max_enrollment", Type: "NUMBER"},
		},
	}
}

func assignmentsSpec() EntitySpec {
	return EntitySpec{
		Name:        "assignments",
		RawTable:    "RAW_ASSIGNMENTS",
		TargetTable: "DIM_ASSIGNMENTS",
		BusinessKey: "assignment_id",
		Mode:        LoadMerge,
		Fields: []Field{
			{Name: "assignment_id", Column: "assignment_id", Type: "VARCHAR"},
			{Name: "canvas_assignment_id", Column: "canvas_assignment_id", Type: "NUMBER", InsertOnly: true},
			{Name: "course_id", Column: "course_id", Type: "VARCHAR", InsertOnly: true},
			{Name: "assignment_name", Column: "assignment_name", Type: "VARCHAR"},
			{Name: "assignment_type", Column: "assignment_type", Type: "VARCHAR", InsertOnly: true},
			{Name: "points_possible", Column: "points_possible", Type: "DECIMAL(10,2)"},
			{Name: "due_date", Column: "due_date", Type: "TIMESTAMP_NTZ"},
			{Name: "unlock_date", Column: "unlock_date", Type: "TIMESTAMP_NTZ", InsertOnly: true},
			{Name: "lock_date", Column: "lock_date", Type: "TIMESTAMP_NTZ", InsertOnly: true},
			{Name: "submission_types", Column: "submission_types", Type: "VARCHAR", InsertOnly: true},
			{Name: "is_group_assignment", Column: "is_group_assignment", Type: "BOOLEAN", InsertOnly: true},
			{Name: "weight", Column: "weight", Type: "DECIMAL(5,2)"},
		},
	}
}

func enrollmentsSpec() EntitySpec {
	return EntitySpec{
		Name:        "enrollments",
		RawTable:    "RAW_ENROLLMENTS",
		TargetTable: "FACT_ENROLLMENTS",
		BusinessKey: "enrollment_id",
		Mode:        LoadMerge,
		Refs: []Ref{
			{Table: "DIM_STUDENTS", Alias: "s", MatchField: "student_id", MatchColumn: "student_id", KeyColumn: "student_key"},
			{Table: "DIM_COURSES", Alias: "c", MatchField: "course_id", MatchColumn: "course_id", KeyColumn: "course_key"},
		},
		Fields: []Field{
			{Name: "enrollment_id", Column: "enrollment_id", Type: "VARCHAR"},
			{Name: "student_id", Column: "student_id", Type: "VARCHAR", InsertOnly: true},
			{Name: "course_id", Column: "course_id", Type: "VARCHAR", InsertOnly: true},
			{Name: "enrollment_state", Column: "enrollment_state", Type: "VARCHAR"},
			{Name: "enrollment_type", Column: "enrollment_type", Type: "VARCHAR", InsertOnly: true},
			{Name: "enrolled_at", Column: "enrolled_at", Type: "TIMESTAMP_NTZ", InsertOnly: true},
			{Name: "completed_at", Column: "completed_at", Type: "TIMESTAMP_NTZ"},
			{Name: "final_grade", Column: "final_grade", Type: "VARCHAR"},
			{Name: "final_score", Column: "final_score", Type: "DECIMAL(5,2)"},
		},
	}
}

func submissionsSpec() EntitySpec {
	return EntitySpec{
		Name:        "submissions",
		RawTable:    "RAW_SUBMISSIONS",
		TargetTable: "FACT_SUBMISSIONS",
		BusinessKey: "submission_id",
		Mode:        LoadMerge,
		Refs: []Ref{
			{Table: "DIM_STUDENTS", Alias: "s", MatchField: "student_id", MatchColumn: "student_id", KeyColumn: "student_key"},
			{Table: "DIM_ASSIGNMENTS", Alias: "a", MatchField: "assignment_id", MatchColumn: "assignment_id", KeyColumn: "assignment_key"},
		},
		Fields: []Field{
			{Name: "submission_id", Column: "submission_id", Type: "VARCHAR"},
			{Name: "student_id", Column: "student_id", Type: "VARCHAR", InsertOnly: true},
			{Name: "assignment_id", Column: "assignment_id", Type: "VARCHAR", InsertOnly: true},
			{Name: "submitted_at", Column: "submitted_at", Type: "TIMESTAMP_NTZ", InsertOnly: true},
			{Name: "graded_at", Column: "graded_at", Type: "TIMESTAMP_NTZ"},
			{Name: "score", Column: "score", Type: "DECIMAL(10,2)"},
			{Name: "grade", Column: "grade", Type: "VARCHAR"},
			{Name: "points_possible", Column: "points_possible", Type: "DECIMAL(10,2)", InsertOnly: true},
			{Name: "percentage", Column: "percentage", Type: "DECIMAL(5,2)"},
			{Name: "submission_type", Column: "submission_type", Type: "VARCHAR", InsertOnly: true},
			{Name: "attempt_number", Column: "attempt_number", Type: "NUMBER", InsertOnly: true},
			{Name: "late_flag", Column: "late_flag", Type: "BOOLEAN"},
			{Name: "missing_flag", Column: "missing_flag", Type: "BOOLEAN"},
			{Name: "excused_flag", Column: "excused_flag", Type: "BOOLEAN"},
			{Name: "grader_id", Column: "grader_id", Type: "VARCHAR"},
		},
	}
}

func activitySpec() EntitySpec {
	return EntitySpec{
		Name:        "activity",
		RawTable:    "RAW_ACTIVITY_LOGS",
		TargetTable: "FACT_ACTIVITY_LOGS",
		BusinessKey: "activity_id",
		Mode:        LoadAppend,
		Refs: []Ref{
			{Table: "DIM_STUDENTS", Alias: "s", MatchField: "student_id", MatchColumn: "student_id", KeyColumn: "student_key"},
			{Table: "DIM_COURSES", Alias: "c", MatchField: "course_id", MatchColumn: "course_id", KeyColumn: "course_key"},
		},
		Fields: []Field{
			{Name: "activity_id", Column: "activity_id", Type: "VARCHAR"},
			{Name: "student_id", Column: "student_id", Type: "VARCHAR"},
			{Name: "course_id", Column: "course_id", Type: "VARCHAR"},
			{Name: "activity_type", Column: "activity_type", Type: "VARCHAR"},
			{Name: "activity_timestamp", Column: "activity_timestamp", Type: "TIMESTAMP_NTZ"},
			{Name: "duration_seconds", Column: "duration_seconds", Type: "NUMBER"},
			{Name: "page_url", Column: "page_url", Type: "VARCHAR"},
			{Name: "device_type", Column: "device_type", Type: "VARCHAR"},
			{Name: "browser", Column: "browser", Type: "VARCHAR"},
			{Name: "ip_address", Column: "ip_address", Type: "VARCHAR"},
		},
	}
}
