package workflow

import "fmt"

// Status is the overall state of a Workflow run.
type Status string

const (
	StatusRunnable  Status = "RUNNABLE"
	StatusWaiting   Status = "WAITING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Workflow evaluates a RuleBook against the current completed/failed
// state to produce the set of currently runnable services and the
// overall Status. It holds no backend logic of its own — services are
// driven externally (by an Executor) and report back via
// MarkStarted/MarkCompleted/MarkFailed.
type Workflow struct {
	rules       RuleBook
	params      TargetSet
	userTargets TargetSet
	goals       []Target // userTargets in the caller's order
	excludes    TargetSet

	started   TargetSet
	completed TargetSet
	failed    TargetSet

	runnable []Target
	status   Status
}

// New constructs a Workflow. params marks the user-supplied inputs that
// are present; targets are the UserTargets to attain; excludes prevents
// the named Services/UserTargets from ever completing. completed is
// seeded with params, failed with excludes.
func New(rules RuleBook, params, targets, excludes []Target) *Workflow {
	w := &Workflow{
		rules:       rules,
		params:      NewTargetSet(params...),
		userTargets: NewTargetSet(targets...),
		goals:       append([]Target(nil), targets...),
		excludes:    NewTargetSet(excludes...),
		started:     make(TargetSet),
		completed:   NewTargetSet(params...),
		failed:      NewTargetSet(excludes...),
	}
	w.reassess()
	return w
}

// reassess recomputes runnable and status from the current state sets.
// It is a pure function of (rules, completed, failed, started,
// userTargets).
func (w *Workflow) reassess() {
	goal := NewAll(toClauses(w.goals)...)
	outcome := goal.outcome(w.rules, w.completed, w.failed)

	if outcome.IsUnsatisfiable() {
		w.runnable = nil
		w.status = StatusFailed
		return
	}

	runnable := make([]Target, 0, len(outcome.Pending()))
	for _, t := range outcome.Pending() {
		if !w.started.Has(t) {
			runnable = append(runnable, t)
		}
	}
	w.runnable = runnable

	switch {
	case len(w.runnable) > 0:
		w.status = StatusRunnable
	case len(w.started) == 0:
		w.status = StatusCompleted
	default:
		w.status = StatusWaiting
	}
}

func toClauses(targets []Target) []Clause {
	out := make([]Clause, len(targets))
	for i, t := range targets {
		out[i] = t
	}
	return out
}

// Status returns the workflow's current overall status.
func (w *Workflow) Status() Status { return w.status }

// ListRunnable returns the currently runnable (but not started)
// services, in the order derived from the pre-order traversal of
// ALL(usertargets...) — making "pick first runnable" deterministic.
func (w *Workflow) ListRunnable() []Target {
	out := make([]Target, len(w.runnable))
	copy(out, w.runnable)
	return out
}

// ListStarted returns the started (assumed running) services.
func (w *Workflow) ListStarted() []Target { return filterServices(w.started) }

// ListCompleted returns the successfully completed services.
func (w *Workflow) ListCompleted() []Target { return filterServices(w.completed) }

// ListFailed returns the unsuccessfully completed services.
func (w *Workflow) ListFailed() []Target { return filterServices(w.failed) }

func filterServices(set TargetSet) []Target {
	out := make([]Target, 0, len(set))
	for t := range set {
		if t.IsService() {
			out = append(out, t)
		}
	}
	return out
}

func removeFromRunnable(w *Workflow, s Target) bool {
	for i, t := range w.runnable {
		if t == s {
			w.runnable = append(w.runnable[:i], w.runnable[i+1:]...)
			return true
		}
	}
	return false
}

// MarkStarted moves service from runnable to started. It is idempotent
// when the service is already started; any other caller error (a
// service that is neither runnable nor started) panics, as it signals a
// programmer/invariant violation.
func (w *Workflow) MarkStarted(service Target) {
	if removeFromRunnable(w, service) {
		w.started.Add(service)
		w.reassess()
		return
	}
	if w.started.Has(service) {
		return
	}
	panic(fmt.Sprintf("service is not runnable: %s", service))
}

// MarkCompleted moves service from runnable or started to completed.
func (w *Workflow) MarkCompleted(service Target) {
	w.moveToTerminal(service, w.completed)
}

// MarkFailed moves service from runnable or started to failed.
func (w *Workflow) MarkFailed(service Target) {
	w.moveToTerminal(service, w.failed)
}

func (w *Workflow) moveToTerminal(service Target, dest TargetSet) {
	switch {
	case removeFromRunnable(w, service):
	case w.started.Has(service):
		w.started.Remove(service)
	default:
		panic(fmt.Sprintf("service was not runnable or started: %s", service))
	}
	dest.Add(service)
	w.reassess()
}
