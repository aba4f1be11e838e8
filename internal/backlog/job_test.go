package backlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-analysis-go/internal/types"
)

func TestDeterministicJobID(t *testing.T) {
	a := DeterministicJobID("9f1c2d3e-0000-0000-0000-000000000001", "custom-entity-submit")
	b := DeterministicJobID("9f1c2d3e-0000-0000-0000-000000000001", "custom-entity-submit")
	c := DeterministicJobID("9f1c2d3e-0000-0000-0000-000000000001", "transcribe-submit")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestAdvanceIsPure(t *testing.T) {
	job := NewJob("job-1", "nlp", "customentity")
	_ = Advance(job, ExternalStatus{State: types.JobFailed, Message: "boom"})
	assert.Equal(t, types.JobSubmitted, job.Status)
	assert.Empty(t, job.ErrorMessage)
}

func TestAdvanceTransitions(t *testing.T) {
	job := NewJob("job-1", "nlp", "customentity")

	next := Advance(job, ExternalStatus{State: types.JobInProgress})
	assert.Equal(t, types.JobInProgress, next.Status)
	assert.Zero(t, next.EndTime)

	done := Advance(next, ExternalStatus{State: types.JobCompleted, OutputLocation: "jobs/job-1/output.tar.gz"})
	assert.Equal(t, types.JobCompleted, done.Status)
	assert.Equal(t, "jobs/job-1/output.tar.gz", done.OutputLocation)
	assert.NotZero(t, done.EndTime)

	failed := Advance(next, ExternalStatus{State: types.JobStopped, Message: "operator stop"})
	assert.Equal(t, types.JobStopped, failed.Status)
	assert.Equal(t, "operator stop", failed.ErrorMessage)
	assert.NotZero(t, failed.EndTime)
}

func TestAdvanceKeepsExistingEndTime(t *testing.T) {
	job := NewJob("job-1", "nlp", "customentity")
	job.EndTime = 42
	done := Advance(job, ExternalStatus{State: types.JobCompleted})
	assert.Equal(t, int64(42), done.EndTime)
}

func TestTranslate(t *testing.T) {
	cases := map[types.JobStatus]types.StageStatus{
		types.JobSubmitted:     types.StatusProgressing,
		types.JobInProgress:    types.StatusProgressing,
		types.JobFailed:        types.StatusFailed,
		types.JobStopRequested: types.StatusFailed,
		types.JobStopped:       types.StatusFailed,
		types.JobCompleted:     types.StatusCompleted,
	}
	for in, want := range cases {
		assert.Equal(t, want, Translate(in), "status %s", in)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, types.JobSubmitted.Terminal())
	assert.False(t, types.JobInProgress.Terminal())
	assert.True(t, types.JobCompleted.Terminal())
	assert.True(t, types.JobFailed.Terminal())
	assert.True(t, types.JobStopped.Terminal())
	assert.True(t, types.JobStopRequested.Terminal())
}

func TestSlots(t *testing.T) {
	s := NewSlots(2)
	require.NoError(t, s.Acquire())
	require.NoError(t, s.Acquire())
	assert.Equal(t, 2, s.InUse())

	err := s.Acquire()
	assert.ErrorIs(t, err, ErrBacklogFull)

	s.Release()
	assert.Equal(t, 1, s.InUse())
	require.NoError(t, s.Acquire())
}

func TestSlotsReleaseOnEmptyPool(t *testing.T) {
	s := NewSlots(1)
	s.Release()
	assert.Equal(t, 0, s.InUse())
	require.NoError(t, s.Acquire())
}
