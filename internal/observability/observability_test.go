package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{
		Level:   InfoLevel,
		Output:  &buf,
		Service: "canvasetl",
		Version: "test",
	})

	logger.InfoWithFields("job completed", map[string]interface{}{
		"job_type": "STUDENTS",
		"records":  42,
	})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "job completed", entry.Message)
	assert.Equal(t, "canvasetl", entry.Service)
	assert.Equal(t, "STUDENTS", entry.Fields["job_type"])
	assert.EqualValues(t, 42, entry.Fields["records"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{
		Level:   WarnLevel,
		Output:  &buf,
		Service: "canvasetl",
	})

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "visible")
}

func TestLoggerWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(LoggerConfig{Level: InfoLevel, Output: &buf, Service: "canvasetl"})
	child := parent.WithField("entity", "courses")

	child.Info("from child")
	parent.Info("from parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "courses")
	assert.NotContains(t, lines[1], "courses")
}

func TestLogLevelFromString(t *testing.T) {
	assert.Equal(t, DebugLevel, LogLevelFromString("debug"))
	assert.Equal(t, WarnLevel, LogLevelFromString("WARNING"))
	assert.Equal(t, InfoLevel, LogLevelFromString("bogus"))
}

func TestCounter(t *testing.T) {
	c := NewCounter("records_total", "records processed")
	c.Inc()
	c.Add(4)
	assert.Equal(t, 5.0, c.Value())
}

func TestGauge(t *testing.T) {
	g := NewGauge("active_jobs", "jobs in flight")
	g.Inc()
	g.Inc()
	g.Dec()
	assert.Equal(t, 1.0, g.Value())

	g.Set(7)
	assert.Equal(t, 7.0, g.Value())
}

func TestCounterConcurrentIncrements(t *testing.T) {
	c := NewCounter("hits", "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5000.0, c.Value())
}

func TestRegistryReturnsSameMetric(t *testing.T) {
	r := NewRegistry()
	a := r.Counter("requests_total", "")
	b := r.Counter("requests_total", "")
	assert.Same(t, a, b)

	a.Inc()
	snap := r.Snapshot()
	assert.Equal(t, 1.0, snap["requests_total"])
}
