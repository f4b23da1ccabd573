package shims

import (
	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/execution"
	"github.com/kcri-tz/kcri-cge-bap/internal/scratch"
)

// failedTask builds a Task that is already FAILED, for a shim whose
// input validation failed before it could schedule a job.
func failedTask(ident, svcName, svcVersion string, bb *blackboard.Blackboard, cause error) execution.Task {
	return execution.NewFailedTask(ident, svcName, svcVersion, bb, cause)
}

// acquireScratch resolves a job working directory through mgr, falling
// back to a relative directory named after ident when mgr is nil.
func acquireScratch(mgr *scratch.Manager, ident string) (string, error) {
	if mgr == nil {
		return ident, nil
	}
	return mgr.Acquire(ident)
}

// releaseScratch is acquireScratch's counterpart; it is a no-op when mgr
// is nil and tolerates being called with an ident that was never
// acquired.
func releaseScratch(mgr *scratch.Manager, ident string) {
	if mgr == nil {
		return
	}
	_ = mgr.Release(ident)
}
