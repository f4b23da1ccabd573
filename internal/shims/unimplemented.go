package shims

import (
	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/execution"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
	"github.com/kcri-tz/kcri-cge-bap/internal/workflow"
	"github.com/kcri-tz/kcri-cge-bap/pkg/bap"
)

// UnimplementedShim is registered for services named in a rule book but
// without a working backend wrapper yet; it starts and immediately
// fails, so the workflow reports a clear reason instead of stalling on
// a missing registration.
type UnimplementedShim struct{ Name string }

func (s UnimplementedShim) Execute(service workflow.Target, bb *blackboard.Blackboard, _ *jobcontrol.Scheduler) (execution.Task, error) {
	return execution.NewFailedTask(service.ID, s.Name, "0.0.0", bb,
		bap.New(bap.CodeSkip, "service %s is not implemented", s.Name)), nil
}
