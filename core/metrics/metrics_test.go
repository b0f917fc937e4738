package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	// Each collector owns its registry, so creating two must not panic.
	assert.NotPanics(t, func() {
		NewCollector()
		NewCollector()
	})
}

func TestRecord(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 3; i++ {
		c.RecordProcessLaunched()
	}
	c.RecordPipeCreated()
	c.RecordPipeCreated()
	c.RecordLaunchFailure("invalid program")
	c.RecordSignalForwarded("interrupt")
	c.SetJobs(4)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.processesLaunched))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pipesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.launchFailures.WithLabelValues("invalid program")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signalsForwarded.WithLabelValues("interrupt")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.jobs))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.RecordProcessLaunched()

	path := filepath.Join(t.TempDir(), "nyush.prom")
	require.NoError(t, c.WriteTextfile(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "nyush_processes_launched_total 1")
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordProcessLaunched()
		c.RecordPipeCreated()
		c.RecordLaunchFailure("invalid file")
		c.RecordSignalForwarded("interrupt")
		c.SetJobs(1)
	})
}
