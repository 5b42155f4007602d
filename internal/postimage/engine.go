package postimage

import (
	"fmt"

	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/encoding"
	perrors "github.com/nyu-acsys/flowcert/internal/errors"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/program"
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// Engine computes the post-image of a single primitive command. It is
// stateless across calls: the symbol pool and SMT backend it is
// configured with carry all of the mutable state, so one Engine is
// reused for every statement of a verification run.
type Engine struct {
	Config  *config.Config
	Encoder *encoding.Encoder
	Backend smt.Backend
}

// NewEngine builds a post-image engine over a shared Encoder (whose
// Declarations grow lazily as new symbols/fields are encoded) and the
// SMT backend that was constructed from those same Declarations.
func NewEngine(cfg *config.Config, enc *encoding.Encoder, backend smt.Backend) *Engine {
	return &Engine{Config: cfg, Encoder: enc, Backend: backend}
}

// Post computes the strongest annotation reachable from pre by
// executing stmt's primitive command, plus any effects the step has
// on shared memory (spec.md §4.5). Composite statement kinds
// (sequence, scope, if, while, ...) are the verifier loop's
// responsibility, not this engine's.
func (e *Engine) Post(pre logic.Annotation, stmt *program.Stmt, pool *symbols.Pool) (logic.Annotation, []Effect, error) {
	factory := symbols.NewFactory(pool)
	switch stmt.Kind {
	case program.StmtSkip:
		return pre, nil, nil
	case program.StmtAssume:
		return e.postAssume(pre, stmt)
	case program.StmtAssert:
		return e.postAssert(pre, stmt)
	case program.StmtMalloc:
		return e.postMalloc(pre, stmt, factory)
	case program.StmtAssign:
		return e.postAssign(pre, stmt, factory)
	case program.StmtDerefAssign:
		return e.postDerefAssign(pre, stmt, factory)
	}
	return pre, nil, perrors.New(perrors.UnsupportedConstructKind, "", fmt.Sprintf("post-image engine does not handle statement kind %d directly", stmt.Kind))
}

// implies checks whether premise entails candidate under a fresh,
// single-use SMT context (spec.md §4.3 implication checker).
func (e *Engine) implies(premise, candidate logic.Formula, tag encoding.Tag) (bool, error) {
	premiseTerm, err := e.Encoder.EncodeFormula(premise, tag)
	if err != nil {
		return false, err
	}
	return e.impliesTerm(premiseTerm, candidate, tag)
}

func (e *Engine) impliesTerm(premiseTerm smt.Term, candidate logic.Formula, tag encoding.Tag) (bool, error) {
	candidateTerm, err := e.Encoder.EncodeFormula(candidate, tag)
	if err != nil {
		return false, err
	}
	checker := encoding.NewImplicationChecker(e.Backend, premiseTerm, e.Config.StrictUnknown)
	defer checker.Close()
	return checker.Implies(candidateTerm)
}

func (e *Engine) postAssume(pre logic.Annotation, stmt *program.Stmt) (logic.Annotation, []Effect, error) {
	f, err := evalFormula(pre.Now, stmt.Cond)
	if err != nil {
		return pre, nil, err
	}
	next := pre
	next.Now = logic.And(append(logic.Conjuncts(pre.Now), f)...)
	return next, nil, nil
}

// postAssert checks that cond is already entailed by pre, raising
// InvariantViolation if not, then narrows exactly as assume does (the
// assertion having been checked, it is now known to hold).
func (e *Engine) postAssert(pre logic.Annotation, stmt *program.Stmt) (logic.Annotation, []Effect, error) {
	f, err := evalFormula(pre.Now, stmt.Cond)
	if err != nil {
		return pre, nil, err
	}
	ok, err := e.implies(pre.Now, f, encoding.NOW)
	if err != nil {
		return pre, nil, err
	}
	if !ok {
		return pre, nil, perrors.New(perrors.InvariantViolationKind, "assert", "the asserted condition is not entailed by the current state")
	}
	next := pre
	next.Now = logic.And(append(logic.Conjuncts(pre.Now), f)...)
	return next, nil, nil
}

func (e *Engine) postMalloc(pre logic.Annotation, stmt *program.Stmt, factory *symbols.Factory) (logic.Annotation, []Effect, error) {
	v := stmt.Lhs
	if v.Type == nil {
		return pre, nil, perrors.New(perrors.ConfigurationErrorKind, v.Name, "malloc target has no declared record type")
	}
	addr := factory.FreshFOHint(v.Type.Sort, "a")
	flow := factory.FreshSOHint("f")
	fields := make(map[string]symbols.Symbol, len(v.Type.Fields))
	for _, fd := range v.Type.Fields {
		fields[fd.Name] = factory.FreshFOHint(fd.Sort, fd.Name)
	}
	mem := logic.MemoryAxiom{Kind: logic.Local, Addr: addr, Flow: flow, Fields: fields}
	node := config.NodeView{Addr: addr, Flow: flow, Fields: fields, Type: v.Type}
	invariant := e.Config.LocalNodeInvariant(node)

	now := removeVarBinding(pre.Now, v.Name)
	conj := append(logic.Conjuncts(now),
		logic.NewAtom(mem),
		logic.NewAtom(logic.EqualsTo{Var: logic.ProgramVar{Name: v.Name, Shared: v.Shared}, Sym: addr}),
		logic.NewAtom(logic.InflowEmptinessAxiom{Flow: flow, IsEmpty: true}),
		invariant,
	)
	next := pre
	next.Now = logic.And(conj...)
	return next, nil, nil
}

func (e *Engine) postAssign(pre logic.Annotation, stmt *program.Stmt, factory *symbols.Factory) (logic.Annotation, []Effect, error) {
	val, err := evalValue(pre.Now, stmt.Rhs)
	if err != nil {
		return pre, nil, err
	}
	v := stmt.Lhs
	fresh := factory.FreshFOHint(v.SortOf(), v.Name)
	eqAx, err := logic.NewStackAxiom(logic.Eq, logic.Sym(fresh), val)
	if err != nil {
		return pre, nil, perrors.Wrap(err, "assignment to "+v.Name)
	}

	now := removeVarBinding(pre.Now, v.Name)
	conj := append(logic.Conjuncts(now),
		logic.NewAtom(logic.EqualsTo{Var: logic.ProgramVar{Name: v.Name, Shared: v.Shared}, Sym: fresh}),
		logic.NewAtom(eqAx),
	)
	next := pre
	next.Now = logic.And(conj...)
	return next, nil, nil
}
