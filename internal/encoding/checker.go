package encoding

import "github.com/nyu-acsys/flowcert/internal/smt"

// SolverUnknownError reports that the SMT backend returned UNKNOWN on
// a query this ImplicationChecker was configured to treat as fatal
// rather than conservatively false (spec.md §7 `SolverUnknown`).
type SolverUnknownError struct{ Query string }

func (e *SolverUnknownError) Error() string {
	if e.Query == "" {
		return "encoding: SMT backend returned unknown"
	}
	return "encoding: SMT backend returned unknown for " + e.Query
}

// ImplicationChecker is spec.md §4.3's stateful implication-checking
// object: constructed from a premise, it answers `implies(X)` by
// testing `premise ∧ ¬X` for unsatisfiability, sharing one underlying
// smt.Context (and therefore one push/pop stack) across every query
// asked of it so repeated implication checks against a growing
// premise stay cheap.
type ImplicationChecker struct {
	ctx           smt.Context
	strictUnknown bool
}

// NewImplicationChecker opens a fresh Context on backend, asserts
// premise, and returns a checker ready for push/pop/addPremise/
// implies calls. strictUnknown mirrors config.Config.StrictUnknown.
func NewImplicationChecker(backend smt.Backend, premise smt.Term, strictUnknown bool) *ImplicationChecker {
	ctx := backend.NewContext()
	ctx.Add(premise)
	return &ImplicationChecker{ctx: ctx, strictUnknown: strictUnknown}
}

func (c *ImplicationChecker) Push() { c.ctx.Push() }
func (c *ImplicationChecker) Pop()  { c.ctx.Pop() }

// AddPremise strengthens the checker's premise with an additional
// term, scoped to the current push/pop frame.
func (c *ImplicationChecker) AddPremise(t smt.Term) { c.ctx.Add(t) }

// Implies reports whether the checker's current premise entails
// candidate: true iff `premise ∧ ¬candidate` is unsatisfiable. An
// UNKNOWN verdict raises SolverUnknownError when strictUnknown is set
// and otherwise conservatively returns false (spec.md §4.3).
func (c *ImplicationChecker) Implies(candidate smt.Term) (bool, error) {
	c.ctx.Push()
	defer c.ctx.Pop()
	c.ctx.Add(smt.Not(candidate))
	res, err := c.ctx.CheckSat()
	if err != nil {
		return false, err
	}
	switch res {
	case smt.Unsat:
		return true, nil
	case smt.Sat:
		return false, nil
	default:
		if c.strictUnknown {
			return false, &SolverUnknownError{Query: candidate.SExpr()}
		}
		return false, nil
	}
}

// ComputeImplied is the batched form, spec.md §4.3
// `computeImplied(list<term>) → bitset`. It delegates to the
// Context's native batched Consequences rather than looping Implies
// one push/pop at a time, at the cost of always applying the
// conservative (non-strict) UNKNOWN policy — a caller that needs
// strict-UNKNOWN semantics per candidate should call Implies in a
// loop instead.
func (c *ImplicationChecker) ComputeImplied(candidates []smt.Term) ([]bool, error) {
	return c.ctx.Consequences(nil, candidates)
}

// Close releases the underlying Context's resources.
func (c *ImplicationChecker) Close() error { return c.ctx.Close() }
