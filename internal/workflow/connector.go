package workflow

// RuleBook maps a non-Param Target to the Clause describing its
// dependencies. Every non-Param target has exactly one rule; the graph
// it induces has no dependency cycles through Services.
type RuleBook map[Target]Clause

// All is a connector whose clauses must all be met, in any order.
type All struct{ Clauses []Clause }

// NewAll builds an All connector over the given clauses.
func NewAll(clauses ...Clause) All { return All{Clauses: clauses} }

func (c All) outcome(rb RuleBook, completed, failed TargetSet) Outcome {
	var pending []Target
	for _, sub := range c.Clauses {
		o := sub.outcome(rb, completed, failed)
		if o.IsUnsatisfiable() {
			return Unsatisfiable()
		}
		pending = unionPending(pending, o.Pending())
	}
	return Pending(pending...)
}

// Seq is a connector whose clauses must all be met, and in the given
// order: the first clause with unmet prerequisites supplies the
// runnables, later clauses are not yet considered.
type Seq struct{ Clauses []Clause }

// NewSeq builds a Seq connector over the given clauses.
func NewSeq(clauses ...Clause) Seq { return Seq{Clauses: clauses} }

func (c Seq) outcome(rb RuleBook, completed, failed TargetSet) Outcome {
	var first *Outcome
	for _, sub := range c.Clauses {
		o := sub.outcome(rb, completed, failed)
		if o.IsUnsatisfiable() {
			return Unsatisfiable()
		}
		if first == nil && len(o.Pending()) > 0 {
			first = &o
		}
	}
	if first != nil {
		return *first
	}
	return Satisfied()
}

// One is a connector of which at least one clause must be met.
type One struct{ Clauses []Clause }

// NewOne builds a One connector over the given clauses.
func NewOne(clauses ...Clause) One { return One{Clauses: clauses} }

func (c One) outcome(rb RuleBook, completed, failed TargetSet) Outcome {
	var first *Outcome
	for _, sub := range c.Clauses {
		o := sub.outcome(rb, completed, failed)
		if !o.IsUnsatisfiable() && o.IsSatisfied() {
			return Satisfied()
		}
		if first == nil && !o.IsUnsatisfiable() {
			first = &o
		}
	}
	if first != nil {
		return *first
	}
	return Unsatisfiable()
}

// Fst is like One but short-circuits strictly left to right: the first
// clause that is not Unsatisfiable (and not already Satisfied) supplies
// the runnables; remaining clauses are never evaluated.
type Fst struct{ Clauses []Clause }

// NewFst builds a Fst connector over the given clauses.
func NewFst(clauses ...Clause) Fst { return Fst{Clauses: clauses} }

func (c Fst) outcome(rb RuleBook, completed, failed TargetSet) Outcome {
	for _, sub := range c.Clauses {
		o := sub.outcome(rb, completed, failed)
		if o.IsUnsatisfiable() {
			continue
		}
		return o
	}
	return Unsatisfiable()
}

// Opt is a unary connector whose clause is tried but allowed to fail:
// Unsatisfiable is converted to Satisfied.
type Opt struct{ Clause Clause }

// NewOpt wraps clause in an Opt connector.
func NewOpt(clause Clause) Opt { return Opt{Clause: clause} }

func (c Opt) outcome(rb RuleBook, completed, failed TargetSet) Outcome {
	o := c.Clause.outcome(rb, completed, failed)
	if o.IsUnsatisfiable() {
		return Satisfied()
	}
	return o
}

// Oif is a unary connector that succeeds only if its clause is already
// satisfied without needing further execution here.
type Oif struct{ Clause Clause }

// NewOif wraps clause in an Oif connector.
func NewOif(clause Clause) Oif { return Oif{Clause: clause} }

func (c Oif) outcome(rb RuleBook, completed, failed TargetSet) Outcome {
	o := c.Clause.outcome(rb, completed, failed)
	if o.IsUnsatisfiable() || len(o.Pending()) > 0 {
		return Unsatisfiable()
	}
	return Satisfied()
}
