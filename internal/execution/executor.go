package execution

import (
	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
	"github.com/kcri-tz/kcri-cge-bap/internal/workflow"
	"github.com/kcri-tz/kcri-cge-bap/pkg/bap"
	"github.com/kcri-tz/kcri-cge-bap/pkg/logging"
)

// Shim is the contract a service implementation provides to the
// Executor: given the service's own Target identity, the shared
// blackboard, and the scheduler to submit jobs against, produce a Task
// tracking the work. Execute must not block on the job itself; it
// schedules and returns immediately, leaving Report to observe progress
// on later polls.
type Shim interface {
	Execute(service workflow.Target, bb *blackboard.Blackboard, sched *jobcontrol.Scheduler) (Task, error)
}

// Executor drives a Workflow to completion by invoking Shims for
// runnable services and feeding scheduler/job state changes back into
// the Workflow.
type Executor struct {
	wf       *workflow.Workflow
	services map[workflow.Target]Shim
	sched    *jobcontrol.Scheduler
	bb       *blackboard.Blackboard
	log      logging.Logger

	tasks map[workflow.Target]Task
}

// NewExecutor constructs an Executor. services must have an entry for
// every Service Target the rule book can ever make runnable; a runnable
// service with no registered Shim is a programmer/invariant violation
// and fails fast on encounter rather than silently stalling.
func NewExecutor(wf *workflow.Workflow, services map[workflow.Target]Shim, sched *jobcontrol.Scheduler, bb *blackboard.Blackboard, log logging.Logger) *Executor {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Executor{
		wf:       wf,
		services: services,
		sched:    sched,
		bb:       bb,
		log:      log,
		tasks:    make(map[workflow.Target]Task),
	}
}

// Execute runs the workflow to exhaustion: while RUNNABLE, it starts the
// first runnable service's shim; while WAITING (or after a batch of
// starts leaves nothing more to start), it blocks on the scheduler's
// Listen and reports every started task once scheduler state changed.
// It returns once the workflow reaches COMPLETED or FAILED.
func (ex *Executor) Execute() error {
	if ex.wf.Status() == workflow.StatusWaiting {
		return bap.New(bap.CodeInvariant, "workflow must not start in WAITING state")
	}

	for {
		status := ex.wf.Status()
		if status == workflow.StatusCompleted || status == workflow.StatusFailed {
			return nil
		}

		if err := ex.crossCheck(); err != nil {
			return err
		}

		if status == workflow.StatusRunnable {
			runnable := ex.wf.ListRunnable()
			service := runnable[0]
			if err := ex.start(service); err != nil {
				return err
			}
			continue
		}

		// StatusWaiting: nothing to start, wait for scheduler progress.
		if len(ex.tasks) == 0 {
			return bap.New(bap.CodeInvariant, "workflow is WAITING with no outstanding tasks")
		}

		dirty := ex.sched.Listen()
		if !dirty {
			return bap.New(bap.CodeInvariant, "scheduler has nothing left to run while workflow is WAITING")
		}
		ex.reportAll()
	}
}

func (ex *Executor) start(service workflow.Target) error {
	shim, ok := ex.services[service]
	if !ok {
		return bap.New(bap.CodeInvariant, "no shim registered for runnable service %s", service)
	}

	ex.log.Info("service start", "service", service.String())
	task, err := shim.Execute(service, ex.bb, ex.sched)
	if err != nil {
		ex.bb.Log("service %s failed to start: %s", service.ID, err)
		ex.wf.MarkStarted(service)
		ex.wf.MarkFailed(service)
		return nil
	}

	ex.tasks[service] = task
	ex.wf.MarkStarted(service)
	switch task.State() {
	case StateCompleted:
		ex.bb.Log("service %s completed", service.ID)
		ex.wf.MarkCompleted(service)
	case StateFailed:
		ex.bb.Log("service %s failed: %s", service.ID, task.Err())
		ex.wf.MarkFailed(service)
	}
	return nil
}

// reportAll polls every still-STARTED task once and reflects any
// terminal transition into the workflow.
func (ex *Executor) reportAll() {
	for service, task := range ex.tasks {
		if task.State() != StateStarted {
			continue
		}
		switch task.Report() {
		case StateCompleted:
			ex.log.Info("service done", "service", service.String())
			ex.bb.Log("service %s completed", service.ID)
			ex.wf.MarkCompleted(service)
		case StateFailed:
			ex.log.Warn("service failed", "service", service.String(), "error", task.Err())
			ex.bb.Log("service %s failed: %s", service.ID, task.Err())
			ex.wf.MarkFailed(service)
		}
	}
}

// crossCheck asserts the invariants that must hold between the workflow's
// own bookkeeping and ex.tasks at every reassessment: no runnable service
// already has a task, every started service has a task that is itself
// still STARTED, every completed or failed service's task (if any) agrees
// with the workflow, and the reverse holds too — every tracked task's
// state matches the workflow set it claims to belong to. A mismatch here
// means the rule book and the scheduler have drifted out of sync with
// each other, which is a programmer error, not a runtime condition to
// recover from.
func (ex *Executor) crossCheck() error {
	for _, service := range ex.wf.ListRunnable() {
		if _, ok := ex.tasks[service]; ok {
			return bap.New(bap.CodeInvariant, "service %s is RUNNABLE but already has a task", service)
		}
	}
	for _, service := range ex.wf.ListStarted() {
		task, ok := ex.tasks[service]
		if !ok {
			return bap.New(bap.CodeInvariant, "service %s is STARTED in the workflow but has no task", service)
		}
		if task.State() != StateStarted {
			return bap.New(bap.CodeInvariant, "service %s is STARTED in the workflow but its task reports %s", service, task.State())
		}
	}

	started := workflow.NewTargetSet(ex.wf.ListStarted()...)
	completed := workflow.NewTargetSet(ex.wf.ListCompleted()...)
	failed := workflow.NewTargetSet(ex.wf.ListFailed()...)

	for _, service := range ex.wf.ListCompleted() {
		if task, ok := ex.tasks[service]; ok && task.State() != StateCompleted {
			return bap.New(bap.CodeInvariant, "service %s is COMPLETED in the workflow but its task reports %s", service, task.State())
		}
	}
	for _, service := range ex.wf.ListFailed() {
		if task, ok := ex.tasks[service]; ok && task.State() != StateFailed {
			return bap.New(bap.CodeInvariant, "service %s is FAILED in the workflow but its task reports %s", service, task.State())
		}
	}

	for service, task := range ex.tasks {
		switch task.State() {
		case StateStarted:
			if !started.Has(service) {
				return bap.New(bap.CodeInvariant, "task %s reports STARTED but the workflow does not list it as started", service)
			}
		case StateCompleted:
			if !completed.Has(service) {
				return bap.New(bap.CodeInvariant, "task %s reports COMPLETED but the workflow does not list it as completed", service)
			}
		case StateFailed:
			if !failed.Has(service) {
				return bap.New(bap.CodeInvariant, "task %s reports FAILED but the workflow does not list it as failed", service)
			}
		}
	}
	return nil
}

// Task returns the task tracking service, if one was ever started.
func (ex *Executor) Task(service workflow.Target) (Task, bool) {
	t, ok := ex.tasks[service]
	return t, ok
}
