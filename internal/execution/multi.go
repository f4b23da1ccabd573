package execution

import (
	"fmt"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
)

// MultiJobCollector parses one replicate job's output onto the
// blackboard under ident/replicates/<job name>. A non-nil error marks
// that single replicate as unsuccessful without failing the others.
type MultiJobCollector func(bb *blackboard.Blackboard, job *jobcontrol.Job) error

// MultiJobExecution is a Task that owns N parallel replicate jobs of the
// same service: Report waits until every replicate is terminal, aggregates
// per-job outputs, and transitions to COMPLETED iff at least one replicate
// succeeded, else FAILED with "no successful <service> job".
type MultiJobExecution struct {
	Base
	svcName string
	jobs    []*jobcontrol.Job
	collect MultiJobCollector
}

// NewMultiJobExecution constructs a MultiJobExecution already STARTED,
// owning jobs. svcName is recorded as run_info/service and also builds
// the "no successful" message.
func NewMultiJobExecution(ident, svcName, svcVersion string, jobs []*jobcontrol.Job, bb *blackboard.Blackboard, collect MultiJobCollector) *MultiJobExecution {
	e := &MultiJobExecution{
		Base:    NewBase(ident, svcName, svcVersion, bb),
		svcName: svcName,
		jobs:    jobs,
		collect: collect,
	}
	specs := make([]any, len(jobs))
	ids := make([]any, len(jobs))
	for i, j := range jobs {
		specs[i] = j.Spec().AsDict()
		ids[i] = j.ID()
	}
	e.StoreJobSpec(map[string]any{"replicates": specs})
	e.putRunInfo("replicate_job_ids", ids)
	return e
}

// Jobs returns the owned replicate jobs.
func (e *MultiJobExecution) Jobs() []*jobcontrol.Job { return e.jobs }

// Report waits for every owned job to reach a terminal state (returning
// the unchanged STARTED state until then), then transitions COMPLETED if
// at least one replicate succeeded, else FAILED.
func (e *MultiJobExecution) Report() State {
	if e.State() != StateStarted {
		return e.State()
	}

	for _, j := range e.jobs {
		switch j.State() {
		case jobcontrol.StateQueued, jobcontrol.StateRunning:
			return e.State()
		}
	}

	succeeded := 0
	for _, j := range e.jobs {
		if j.State() != jobcontrol.StateCompleted {
			e.AddWarning(fmt.Sprintf("replicate job %s: %s", j.Name(), j.Error()))
			continue
		}
		if e.collect != nil {
			if err := e.collect(e.bb, j); err != nil {
				e.AddWarning(fmt.Sprintf("replicate job %s: %s", j.Name(), err))
				continue
			}
		}
		succeeded++
	}

	if succeeded == 0 {
		return e.Fail("no successful %s job", e.svcName)
	}
	return e.Done()
}
