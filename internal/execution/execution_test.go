package execution

import (
	"testing"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
	"github.com/kcri-tz/kcri-cge-bap/pkg/bap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runToTerminal(j *jobcontrol.Job, s *jobcontrol.Scheduler) {
	for j.State() == jobcontrol.StateQueued || j.State() == jobcontrol.StateRunning {
		s.Poll()
	}
}

func TestServiceExecutionCompletesAndCollects(t *testing.T) {
	bb := blackboard.New(false)
	sched := jobcontrol.NewScheduler(jobcontrol.WithTotals(1, 1, 1, 0))
	wdir := t.TempDir()

	job, err := sched.ScheduleJob("svc", jobcontrol.NewJobSpec("true", nil, 1, 1, 1, 0), wdir)
	require.NoError(t, err)
	runToTerminal(job, sched)

	collected := false
	exec := NewServiceExecution("ASSEMBLER", "Assembler", "1.0", job, bb, func(bb *blackboard.Blackboard, j *jobcontrol.Job) error {
		collected = true
		return nil
	})

	assert.Equal(t, StateCompleted, exec.Report())
	assert.True(t, collected)
	assert.Equal(t, "COMPLETED", bb.Get("services/ASSEMBLER/run_info/status", nil))
}

func TestServiceExecutionFailsWhenCollectorErrors(t *testing.T) {
	bb := blackboard.New(false)
	sched := jobcontrol.NewScheduler(jobcontrol.WithTotals(1, 1, 1, 0))
	wdir := t.TempDir()

	job, err := sched.ScheduleJob("svc", jobcontrol.NewJobSpec("true", nil, 1, 1, 1, 0), wdir)
	require.NoError(t, err)
	runToTerminal(job, sched)

	exec := NewServiceExecution("ASSEMBLER", "Assembler", "1.0", job, bb, func(bb *blackboard.Blackboard, j *jobcontrol.Job) error {
		return bap.New(bap.CodeBackend, "no contigs produced")
	})

	assert.Equal(t, StateFailed, exec.Report())
	assert.Error(t, exec.Err())
}

func TestServiceExecutionPropagatesJobFailure(t *testing.T) {
	bb := blackboard.New(false)
	sched := jobcontrol.NewScheduler(jobcontrol.WithTotals(1, 1, 1, 0))
	wdir := t.TempDir()

	job, err := sched.ScheduleJob("svc", jobcontrol.NewJobSpec("false", nil, 1, 1, 1, 0), wdir)
	require.NoError(t, err)
	runToTerminal(job, sched)

	exec := NewServiceExecution("ASSEMBLER", "Assembler", "1.0", job, bb, nil)
	assert.Equal(t, StateFailed, exec.Report())
	assert.Contains(t, exec.Err().Error(), "backend run failed")
}

func TestMultiJobExecutionSucceedsIfOneReplicateSucceeds(t *testing.T) {
	bb := blackboard.New(false)
	sched := jobcontrol.NewScheduler(jobcontrol.WithTotals(2, 2, 2, 0))

	ok, err := sched.ScheduleJob("rep-ok", jobcontrol.NewJobSpec("true", nil, 1, 1, 1, 0), t.TempDir())
	require.NoError(t, err)
	bad, err := sched.ScheduleJob("rep-bad", jobcontrol.NewJobSpec("false", nil, 1, 1, 1, 0), t.TempDir())
	require.NoError(t, err)

	for ok.State() == jobcontrol.StateQueued || ok.State() == jobcontrol.StateRunning ||
		bad.State() == jobcontrol.StateQueued || bad.State() == jobcontrol.StateRunning {
		sched.Poll()
	}

	exec := NewMultiJobExecution("MLSTFINDER", "MLSTFinder", "1.0", []*jobcontrol.Job{ok, bad}, bb, nil)
	assert.Equal(t, StateCompleted, exec.Report())
}

func TestMultiJobExecutionFailsIfAllReplicatesFail(t *testing.T) {
	bb := blackboard.New(false)
	sched := jobcontrol.NewScheduler(jobcontrol.WithTotals(2, 2, 2, 0))

	a, err := sched.ScheduleJob("rep-a", jobcontrol.NewJobSpec("false", nil, 1, 1, 1, 0), t.TempDir())
	require.NoError(t, err)
	b, err := sched.ScheduleJob("rep-b", jobcontrol.NewJobSpec("false", nil, 1, 1, 1, 0), t.TempDir())
	require.NoError(t, err)

	for a.State() == jobcontrol.StateQueued || a.State() == jobcontrol.StateRunning ||
		b.State() == jobcontrol.StateQueued || b.State() == jobcontrol.StateRunning {
		sched.Poll()
	}

	exec := NewMultiJobExecution("MLSTFINDER", "MLSTFinder", "1.0", []*jobcontrol.Job{a, b}, bb, nil)
	assert.Equal(t, StateFailed, exec.Report())
	assert.Contains(t, exec.Err().Error(), "no successful MLSTFinder job")
}

func TestFailedTaskIsPermanentlyFailed(t *testing.T) {
	bb := blackboard.New(false)
	task := NewFailedTask("KMERFINDER", "KmerFinder", "1.0", bb, bap.New(bap.CodeUserInput, "missing db"))
	assert.Equal(t, StateFailed, task.State())
	assert.Equal(t, StateFailed, task.Report())
}
