package execution

import (
	"fmt"
	"time"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/pkg/bap"
)

// Base implements the bookkeeping shared by every concrete Task: writing
// service/version/status/timestamps/errors to the blackboard under
// services/<ident>/run_info and services/<ident>/errors, the way the
// original ServiceExecution's internal transition hook did.
type Base struct {
	ident      string
	bb         *blackboard.Blackboard
	state      State
	err        error
	onTerminal func()
}

// NewBase constructs a Base, registers run_info (service, version) and
// transitions it to STARTED. ident is the blackboard key this execution
// reports results under.
func NewBase(ident, svcName, svcVersion string, bb *blackboard.Blackboard) Base {
	b := Base{ident: ident, bb: bb}
	b.putRunInfo("service", svcName)
	b.putRunInfo("version", svcVersion)
	b.transition(StateStarted, nil)
	return b
}

// SetOnTerminal registers fn to run once, the first time this execution
// reaches a terminal state (COMPLETED or FAILED). Shims use this to
// release a scratch.Manager directory regardless of which terminal
// state the execution ends up in, closing the leak the original left
// open when a service failed before cleaning up its working directory.
func (b *Base) SetOnTerminal(fn func()) { b.onTerminal = fn }

// Ident returns the blackboard key for this execution.
func (b *Base) Ident() string { return b.ident }

// State returns the current lifecycle state.
func (b *Base) State() State { return b.state }

// Err returns the failure cause, non-nil iff State() == StateFailed.
func (b *Base) Err() error { return b.err }

func (b *Base) runInfoPath(sub string) string {
	return fmt.Sprintf("services/%s/run_info/%s", b.ident, sub)
}

func (b *Base) putRunInfo(sub string, value any) { b.bb.Put(b.runInfoPath(sub), value) }

func (b *Base) getRunInfo(sub string) any { return b.bb.Get(b.runInfoPath(sub), nil) }

// AddWarning appends warning to services/<ident>/warnings, deduplicating:
// warnings are always treated as a set, never a plain append-only list.
func (b *Base) AddWarning(warning string) {
	b.bb.AppendTo(fmt.Sprintf("services/%s/warnings", b.ident), warning, true)
}

// AddWarnings appends each non-empty warning in warnings.
func (b *Base) AddWarnings(warnings []string) {
	for _, w := range warnings {
		if w != "" {
			b.AddWarning(w)
		}
	}
}

func (b *Base) addError(errmsg string) {
	b.bb.AppendTo(fmt.Sprintf("services/%s/errors", b.ident), errmsg, false)
}

// StoreJobSpec records spec (already flattened via JobSpec.AsDict) under
// run_info/job.
func (b *Base) StoreJobSpec(spec map[string]any) { b.putRunInfo("job", spec) }

// StoreResults writes result under services/<ident>/results.
func (b *Base) StoreResults(result any) {
	b.bb.Put(fmt.Sprintf("services/%s/results", b.ident), result)
}

// Fail transitions to FAILED with the given message, which becomes Err().
func (b *Base) Fail(format string, args ...any) State {
	return b.transition(StateFailed, fmt.Errorf(format, args...))
}

// FailErr transitions to FAILED using err directly as Err() (preserving
// *bap.Error kind information for callers that type-switch on it).
func (b *Base) FailErr(err error) State {
	return b.transition(StateFailed, err)
}

// Done transitions to COMPLETED.
func (b *Base) Done() State { return b.transition(StateCompleted, nil) }

// transition updates state/err and mirrors status, timestamps, and
// (on FAILED) the error list onto the blackboard.
func (b *Base) transition(newState State, err error) State {
	if newState == StateFailed && err == nil {
		err = bap.New(bap.CodeInvariant, "FAILED execution %s must set its error", b.ident)
	}

	b.state = newState
	if newState == StateFailed {
		b.err = err
	} else {
		b.err = nil
	}

	now := time.Now()
	if newState == StateStarted {
		b.putRunInfo("time/start", now.Format(time.RFC3339))
	} else {
		if start, ok := b.getRunInfo("time/start").(string); ok {
			if startTime, perr := time.Parse(time.RFC3339, start); perr == nil {
				b.putRunInfo("time/duration", now.Sub(startTime).Seconds())
			}
		}
		b.putRunInfo("time/end", now.Format(time.RFC3339))
	}

	b.putRunInfo("status", string(newState))
	if newState == StateFailed {
		b.addError(b.err.Error())
	}

	if (newState == StateCompleted || newState == StateFailed) && b.onTerminal != nil {
		fn := b.onTerminal
		b.onTerminal = nil
		fn()
	}

	return newState
}
