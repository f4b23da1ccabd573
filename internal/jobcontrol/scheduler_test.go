package jobcontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitUntilIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		s.Poll()
		if !s.anyActiveLocked() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("scheduler did not go idle in time")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestScheduleTrivialJob(t *testing.T) {
	wdir := t.TempDir()
	s := NewScheduler(WithTotals(1, 1, 1, 0), WithPollInterval(10*time.Millisecond))

	job, err := s.ScheduleJob("hello", NewJobSpec("sh", []string{"-c", "echo hi"}, 1, 1, 1, 0), wdir)
	require.NoError(t, err)

	waitUntilIdle(t, s)
	assert.Equal(t, StateCompleted, job.State())
	rc, ok := job.RetCode()
	assert.True(t, ok)
	assert.Equal(t, 0, rc)
}

func TestParallelReplicatesRespectCPULimit(t *testing.T) {
	wdir := t.TempDir()
	s := NewScheduler(WithTotals(2, 4, 4, 0), WithPollInterval(10*time.Millisecond))

	var jobs []*Job
	for i := 0; i < 4; i++ {
		j, err := s.ScheduleJob(
			jobName(i), NewJobSpec("sh", []string{"-c", "sleep 0.05"}, 1, 1, 1, 0), wdir)
		require.NoError(t, err)
		jobs = append(jobs, j)
	}

	// At most 2 of the 4 jobs (cpu=1 each, totCPU=2) can be RUNNING at once.
	running := 0
	for _, j := range jobs {
		if j.State() == StateRunning {
			running++
		}
	}
	assert.LessOrEqual(t, running, 2)

	waitUntilIdle(t, s)
	for _, j := range jobs {
		assert.Equal(t, StateCompleted, j.State())
	}
}

func TestJobExceedingTimeLimitIsKilled(t *testing.T) {
	wdir := t.TempDir()
	s := NewScheduler(WithTotals(1, 1, 1, 0), WithPollInterval(10*time.Millisecond))

	job, err := s.ScheduleJob("slow", NewJobSpec("sh", []string{"-c", "sleep 5"}, 1, 1, 1, 1), wdir)
	require.NoError(t, err)

	waitUntilIdle(t, s)
	assert.Equal(t, StateFailed, job.State())
	assert.Contains(t, job.Error(), "aborted")
}

func TestSchedulerGlobalDeadlineStopsEverything(t *testing.T) {
	wdir := t.TempDir()
	s := NewScheduler(WithTotals(1, 1, 1, 1), WithPollInterval(10*time.Millisecond))

	job, err := s.ScheduleJob("long", NewJobSpec("sh", []string{"-c", "sleep 5"}, 1, 1, 1, 0), wdir)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for job.State() != StateFailed && job.State() != StateCompleted {
		s.Listen()
		if time.Now().After(deadline) {
			t.Fatalf("scheduler never stopped the job")
		}
	}
	assert.Equal(t, StateFailed, job.State())
}

func TestOverResourcedJobRejectedImmediately(t *testing.T) {
	wdir := t.TempDir()
	s := NewScheduler(WithTotals(1, 1, 1, 0))

	job, err := s.ScheduleJob("too-big", NewJobSpec("sh", []string{"-c", "echo hi"}, 8, 1, 1, 0), wdir)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, job.State())
	assert.Contains(t, job.Error(), "exceed available system resources")
}

func jobName(i int) string {
	return "job-" + string(rune('a'+i))
}
