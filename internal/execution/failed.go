package execution

import "github.com/kcri-tz/kcri-cge-bap/internal/blackboard"

// FailedTask is a Task that never ran a job: it is constructed already
// FAILED, for shims whose input validation fails before a job could be
// scheduled (the equivalent of the Python shim's `except UserException`
// catching an early error and calling execution.fail() before start()).
type FailedTask struct{ Base }

// NewFailedTask constructs a Task in the FAILED state with cause as its
// error.
func NewFailedTask(ident, svcName, svcVersion string, bb *blackboard.Blackboard, cause error) *FailedTask {
	t := &FailedTask{Base: NewBase(ident, svcName, svcVersion, bb)}
	t.FailErr(cause)
	return t
}

// Report returns the (permanently) FAILED state.
func (t *FailedTask) Report() State { return t.State() }
