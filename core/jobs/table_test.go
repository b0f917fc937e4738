package jobs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleTable_Remove() {
	var table Table
	table.Append(100, []int{100}, "sleep 100 &", Running)
	table.Append(200, []int{200, 201}, "cat | wc", Stopped)
	table.Append(300, []int{300}, "vim", Stopped)

	table.Remove(1)

	for _, job := range table.List() {
		fmt.Printf("[%d] %s (%s)\n", job.Index, job.Command, job.State)
	}

	// Output: [1] cat | wc (stopped)
	// [2] vim (stopped)
}

func commands(jobs []Job) []string {
	var out []string
	for _, job := range jobs {
		out = append(out, job.Command)
	}
	return out
}

func assertDense(t *testing.T, table *Table) {
	t.Helper()
	for i, job := range table.List() {
		assert.Equal(t, i+1, job.Index)
	}
}

func TestTable_Append(t *testing.T) {
	var table Table

	assert.Equal(t, 1, table.Append(10, []int{10}, "a", Running))
	assert.Equal(t, 2, table.Append(20, []int{20}, "b", Running))

	// Same group replaces in place.
	assert.Equal(t, 1, table.Append(10, []int{10, 11}, "a again", Stopped))
	assert.Equal(t, 2, table.Len())

	job, err := table.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "a again", job.Command)
	assert.Equal(t, Stopped, job.State)
	assert.Equal(t, []int{10, 11}, job.Members)
}

func TestTable_RemoveCompacts(t *testing.T) {
	var table Table
	for i := 1; i <= 5; i++ {
		table.Append(i*10, []int{i * 10}, fmt.Sprintf("job%d", i), Running)
	}

	job, err := table.Remove(3)
	require.NoError(t, err)
	assert.Equal(t, "job3", job.Command)
	assert.Equal(t, 3, job.Index)
	assertDense(t, &table)

	_, err = table.Remove(1)
	require.NoError(t, err)
	assertDense(t, &table)

	assert.Equal(t, []string{"job2", "job4", "job5"}, commands(table.List()))
}

func TestTable_OutOfRange(t *testing.T) {
	var table Table
	table.Append(10, []int{10}, "a", Running)

	for _, index := range []int{-1, 0, 2} {
		_, err := table.Resolve(index)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = table.Remove(index)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 1, table.Len())
}

func TestTable_Reap(t *testing.T) {
	var table Table
	table.Append(10, []int{10, 11, 12}, "a | b | c", Running)
	table.Append(20, []int{20}, "d", Running)

	_, removed := table.Reap(11)
	assert.False(t, removed)
	_, removed = table.Reap(10)
	assert.False(t, removed)

	job, ok := table.FindGroup(12)
	require.True(t, ok)
	assert.Equal(t, []int{12}, job.Members)

	job, removed = table.Reap(12)
	assert.True(t, removed)
	assert.Equal(t, 10, job.Pgid)
	assert.Equal(t, []string{"d"}, commands(table.List()))
	assertDense(t, &table)

	_, removed = table.Reap(99)
	assert.False(t, removed)
}

func TestTable_MarkStopped(t *testing.T) {
	var table Table
	table.Append(10, []int{10, 11}, "a | b", Running)

	assert.True(t, table.MarkStopped(11))
	assert.False(t, table.MarkStopped(99))

	job, err := table.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, Stopped, job.State)

	assert.True(t, table.SetState(10, Running))
	job, _ = table.Resolve(1)
	assert.Equal(t, Running, job.State)
}

func TestTable_SnapshotsAreCopies(t *testing.T) {
	var table Table
	table.Append(10, []int{10, 11}, "a | b", Running)

	list := table.List()
	list[0].Members[0] = 99

	job, err := table.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11}, job.Members)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "State(7)", State(7).String())
}
