// Package workflow implements the dependency-language evaluator: Target
// sum types, Connectors (ALL/SEQ/ONE/FST/OPT/OIF), the rule book, and the
// Workflow state machine that tracks started/completed/failed services
// and derives RUNNABLE/WAITING/COMPLETED/FAILED status.
package workflow

import "fmt"

// Kind distinguishes the four disjoint Target domains.
type Kind int

const (
	// KindParam flags the presence of a user-supplied input. Cannot be
	// "run"; absence always fails evaluation.
	KindParam Kind = iota
	// KindCheckpoint is an internal rendezvous target with no backend.
	KindCheckpoint
	// KindService is implemented by an external program via a shim.
	KindService
	// KindUserTarget is a goal the end user may request.
	KindUserTarget
)

func (k Kind) String() string {
	switch k {
	case KindParam:
		return "Param"
	case KindCheckpoint:
		return "Checkpoint"
	case KindService:
		return "Service"
	case KindUserTarget:
		return "UserTarget"
	default:
		return "Unknown"
	}
}

// Target is a named node in the dependency graph: one of Params,
// Checkpoints, Services, UserTargets, each carrying a stable string
// identifier used for display and CLI parsing.
type Target struct {
	Kind Kind
	ID   string
}

// Param constructs a Params target.
func Param(id string) Target { return Target{Kind: KindParam, ID: id} }

// Checkpoint constructs a Checkpoints target.
func Checkpoint(id string) Target { return Target{Kind: KindCheckpoint, ID: id} }

// Service constructs a Services target.
func Service(id string) Target { return Target{Kind: KindService, ID: id} }

// UserTarget constructs a UserTargets target.
func UserTarget(id string) Target { return Target{Kind: KindUserTarget, ID: id} }

// String renders "Kind(id)" for display and debugging.
func (t Target) String() string { return fmt.Sprintf("%s(%s)", t.Kind, t.ID) }

// IsParam reports whether t is a Params target.
func (t Target) IsParam() bool { return t.Kind == KindParam }

// IsService reports whether t is a Services target.
func (t Target) IsService() bool { return t.Kind == KindService }

// Clause is a Target or a Connector: the recursive shape of dependency
// rules and connector operands.
type Clause interface {
	// outcome evaluates this clause against the rule book and the
	// current completed/failed sets.
	outcome(rb RuleBook, completed, failed TargetSet) Outcome
}

// TargetSet is a set of Targets.
type TargetSet map[Target]struct{}

// NewTargetSet builds a TargetSet from the given targets.
func NewTargetSet(targets ...Target) TargetSet {
	s := make(TargetSet, len(targets))
	for _, t := range targets {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether t is a member.
func (s TargetSet) Has(t Target) bool {
	_, ok := s[t]
	return ok
}

// Add inserts t.
func (s TargetSet) Add(t Target) { s[t] = struct{}{} }

// Remove deletes t.
func (s TargetSet) Remove(t Target) { delete(s, t) }

// Slice returns the members in no particular order.
func (s TargetSet) Slice() []Target {
	out := make([]Target, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}

// outcome implements Clause for a bare Target: already-completed targets
// succeed trivially; failed targets or absent Params fail; everything
// else defers to its rule in the rule book.
func (t Target) outcome(rb RuleBook, completed, failed TargetSet) Outcome {
	if completed.Has(t) {
		return Satisfied()
	}
	if failed.Has(t) || t.IsParam() {
		return Unsatisfiable()
	}

	clause, hasRule := rb[t]
	if !hasRule {
		// No rule and not done/failed/param: treat as satisfied with no
		// prerequisites, matching a Checkpoint/UserTarget/Service with an
		// empty rule.
		if t.IsService() {
			return Pending(t)
		}
		return Satisfied()
	}

	pre := clause.outcome(rb, completed, failed)
	if pre.unsatisfiable {
		return Unsatisfiable()
	}
	if len(pre.pending) > 0 {
		return pre
	}
	if t.IsService() {
		return Pending(t)
	}
	return Satisfied()
}
