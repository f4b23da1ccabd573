package execution

import (
	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
)

// OutputCollector parses a completed job's output files onto the
// blackboard under the execution's own ident. Returning an error fails
// the execution even though the job itself exited zero (e.g. the output
// file is present but unparseable).
type OutputCollector func(bb *blackboard.Blackboard, job *jobcontrol.Job) error

// ServiceExecution is a Task that owns exactly one backend job. It is the
// Task every single-job shim returns from Execute.
type ServiceExecution struct {
	Base
	job     *jobcontrol.Job
	collect OutputCollector
}

// NewServiceExecution constructs a ServiceExecution already STARTED, and
// records the job's resource spec onto the blackboard. collect may be
// nil, in which case a COMPLETED job transitions the execution to
// COMPLETED with no further bookkeeping.
func NewServiceExecution(ident, svcName, svcVersion string, job *jobcontrol.Job, bb *blackboard.Blackboard, collect OutputCollector) *ServiceExecution {
	e := &ServiceExecution{
		Base:    NewBase(ident, svcName, svcVersion, bb),
		job:     job,
		collect: collect,
	}
	e.StoreJobSpec(job.Spec().AsDict())
	e.putRunInfo("job_id", job.ID())
	return e
}

// Job returns the owned backend job.
func (e *ServiceExecution) Job() *jobcontrol.Job { return e.job }

// Report inspects the owned job and, on its first terminal observation,
// transitions the execution: COMPLETED runs the output collector (a
// collector failure still fails the execution), FAILED propagates the
// job's error message as the execution's error.
func (e *ServiceExecution) Report() State {
	if e.State() != StateStarted {
		return e.State()
	}

	switch e.job.State() {
	case jobcontrol.StateRunning, jobcontrol.StateQueued:
		return e.State()

	case jobcontrol.StateCompleted:
		if e.collect != nil {
			if err := e.collect(e.bb, e.job); err != nil {
				return e.FailErr(err)
			}
		}
		return e.Done()

	case jobcontrol.StateFailed:
		return e.Fail("%s", e.job.Error())

	default:
		return e.State()
	}
}
