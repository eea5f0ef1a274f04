package etl

import (
	"sync"
	"time"
)

// RunningJob describes one in-flight pipeline run.
type RunningJob struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	StartedAt time.Time `json:"started_at"`
}

// StateSnapshot is a point-in-time copy of the run state, safe to hand to
// HTTP handlers without further locking.
type StateSnapshot struct {
	Running          bool         `json:"running"`
	LastRun          *time.Time   `json:"last_run"`
	RecordsProcessed int64        `json:"records_processed"`
	Errors           int64        `json:"errors"`
	RunningJobs      []RunningJob `json:"running_jobs"`
}

// RunState tracks pipeline run bookkeeping across concurrent HTTP-triggered
// and scheduled runs. All methods are safe for concurrent use.
type RunState struct {
	mu      sync.Mutex
	lastRun *time.Time
	records int64
	errors  int64
	running map[string]RunningJob
}

func NewRunState() *RunState {
	return &RunState{running: make(map[string]RunningJob)}
}

// JobStarted registers an in-flight job under its run id.
func (s *RunState) JobStarted(id, jobType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[id] = RunningJob{ID: id, Type: jobType, StartedAt: time.Now().UTC()}
}

// JobFinished removes the job from the in-flight set.
func (s *RunState) JobFinished(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

// RecordSuccess notes a completed run: bumps the processed-record total and
// moves the last-run marker.
func (s *RunState) RecordSuccess(records int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records += records
	now := time.Now().UTC()
	s.lastRun = &now
}

// AddRecords bumps the processed-record total without touching the
// last-run marker. Used by standalone transformations.
func (s *RunState) AddRecords(records int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records += records
}

// RecordError bumps the error total.
func (s *RunState) RecordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

// Snapshot returns a consistent copy of the current state.
func (s *RunState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]RunningJob, 0, len(s.running))
	for _, j := range s.running {
		jobs = append(jobs, j)
	}

	var lastRun *time.Time
	if s.lastRun != nil {
		t := *s.lastRun
		lastRun = &t
	}

	return StateSnapshot{
		Running:          len(jobs) > 0,
		LastRun:          lastRun,
		RecordsProcessed: s.records,
		Errors:           s.errors,
		RunningJobs:      jobs,
	}
}
