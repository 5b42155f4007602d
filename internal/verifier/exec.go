package verifier

import (
	perrors "github.com/nyu-acsys/flowcert/internal/errors"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/logic/util"
	"github.com/nyu-acsys/flowcert/internal/postimage"
	"github.com/nyu-acsys/flowcert/internal/program"
	"github.com/nyu-acsys/flowcert/internal/solver"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// maxLoopIterations bounds the fixed-point iteration of an
// unconditional or conditional loop body (spec.md §4.7 "iterate the
// body to a fixed point"). Nothing in spec.md prescribes widening or
// invariant synthesis (an explicit non-goal); a loop whose reachable
// states keep growing past this bound is reported as an unsupported
// construct rather than silently over- or under-approximated.
const maxLoopIterations = 64

// funcCtx is the mutable state threaded through one verifyFunction
// call: the shared solver/pool, the interference set statements
// stabilize against, and the atomic-block nesting depth the
// right-mover optimization and atomic-block stabilization both read.
type funcCtx struct {
	solver       *solver.Solver
	pool         *symbols.Pool
	interference []postimage.Effect
	atomic       int
	// returns is the enclosing function or macro's Returns variables,
	// the binding targets for a StmtReturn's values.
	returns []*program.Variable
}

// flowResult is the outcome of running one statement: the annotation
// reaching its end normally (nil if every path through it diverged via
// break/return), the annotations reaching a break or return from
// inside it, and the interference effects any primitive step along
// the way emitted.
type flowResult struct {
	Fallthrough *logic.Annotation
	Breaks      []logic.Annotation
	Returns     []logic.Annotation
	Effects     []postimage.Effect
}

func single(a logic.Annotation) flowResult { return flowResult{Fallthrough: &a} }

// verifyFunction runs one interface or macro function's body from a
// fresh, unconstrained binding of its parameters, stabilizing every
// shared-touching step against interference, and returns the effects
// its own steps emitted for the next round's interference set.
func (v *Verifier) verifyFunction(f *program.Function, interference []postimage.Effect) ([]postimage.Effect, error) {
	factory := symbols.NewFactory(v.Pool)
	var conj []logic.Formula
	for _, p := range f.Params {
		sym := factory.FreshFOHint(p.SortOf(), p.Name)
		conj = append(conj, logic.NewAtom(logic.EqualsTo{Var: logic.ProgramVar{Name: p.Name, Shared: p.Shared}, Sym: sym}))
	}
	pre := logic.NewAnnotation(logic.And(conj...))

	ctx := &funcCtx{solver: v.Solver, pool: v.Pool, interference: interference, returns: f.Returns}
	res, err := v.runStmt(ctx, pre, program.ScopeStmt(f.Body))
	if err != nil {
		return nil, err
	}
	return res.Effects, nil
}

func (v *Verifier) runStmt(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	switch s.Kind {
	case program.StmtSkip, program.StmtContinue:
		// StmtContinue is not named in spec.md §4.7's statement-kind
		// bullet list; the natural reading is that it behaves exactly
		// like reaching the end of the loop body, so it folds back
		// into the fixed-point iteration the same way a plain
		// fallthrough would (decided as an Open Question, see DESIGN.md).
		return single(pre), nil
	case program.StmtBreak:
		return flowResult{Breaks: []logic.Annotation{pre}}, nil
	case program.StmtReturn:
		next, err := v.runReturn(ctx, pre, s)
		if err != nil {
			return flowResult{}, err
		}
		return flowResult{Returns: []logic.Annotation{next}}, nil
	case program.StmtAssume, program.StmtAssert, program.StmtAssign, program.StmtMalloc, program.StmtDerefAssign:
		return v.runPrimitive(ctx, pre, s)
	case program.StmtIf:
		return v.runIf(ctx, pre, s)
	case program.StmtWhile:
		return v.iterateLoop(ctx, pre, s)
	case program.StmtDoWhile:
		return v.runDoWhile(ctx, pre, s)
	case program.StmtAtomic:
		return v.runAtomic(ctx, pre, s)
	case program.StmtChoose:
		return v.runChoose(ctx, pre, s)
	case program.StmtSequence:
		return v.runSequence(ctx, pre, s)
	case program.StmtScope:
		return v.runScope(ctx, pre, s)
	case program.StmtMacroCall:
		return v.runMacroCall(ctx, pre, s)
	}
	return flowResult{}, perrors.New(perrors.UnsupportedConstructKind, "", "verifier loop does not handle this statement kind")
}

// runPrimitive dispatches a single primitive command into the solver
// and, for a statement that touches shared state, immediately
// stabilizes its result against the current interference set — unless
// an enclosing atomic block has deferred stabilization to its own
// exit (spec.md §4.7 "right-mover": a statement that provably only
// touches local state need never be checked against interference at
// all, since no other thread's effect can invalidate a fact purely
// about local memory).
func (v *Verifier) runPrimitive(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	next, effects, err := ctx.solver.Post(pre, s, ctx.pool)
	if err != nil {
		return flowResult{}, err
	}
	if ctx.atomic == 0 && len(ctx.interference) > 0 && s.TouchesShared() {
		next, err = ctx.solver.MakeStable(next, ctx.interference)
		if err != nil {
			return flowResult{}, err
		}
	}
	return flowResult{Fallthrough: &next, Effects: effects}, nil
}

// runReturn binds each returned expression to the enclosing function
// or macro's corresponding Returns variable by parallel assignment,
// the same treatment spec.md §4.7 gives a macro call's own returns.
func (v *Verifier) runReturn(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (logic.Annotation, error) {
	cur := pre
	for i, val := range s.ReturnValues {
		if i >= len(ctx.returns) {
			break
		}
		next, _, err := ctx.solver.Post(cur, program.Assign(ctx.returns[i], val), ctx.pool)
		if err != nil {
			return logic.Annotation{}, err
		}
		cur = next
	}
	return cur, nil
}

func (v *Verifier) runSequence(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	cur := pre
	var acc flowResult
	acc.Fallthrough = &cur
	for _, stmt := range s.Stmts {
		if acc.Fallthrough == nil {
			break
		}
		res, err := v.runStmt(ctx, *acc.Fallthrough, stmt)
		if err != nil {
			return flowResult{}, err
		}
		acc.Breaks = append(acc.Breaks, res.Breaks...)
		acc.Returns = append(acc.Returns, res.Returns...)
		acc.Effects = append(acc.Effects, res.Effects...)
		acc.Fallthrough = res.Fallthrough
	}
	return acc, nil
}

// runScope runs a lexical scope's body, then drops its locals' stack
// bindings from every annotation it produced — not just the normal
// fallthrough, since a break or return reached from inside the scope
// leaves it just as surely (spec.md §4.7 "scope: enter lexical scope,
// run body, leave scope").
func (v *Verifier) runScope(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	res, err := v.runStmt(ctx, pre, s.Body)
	if err != nil {
		return flowResult{}, err
	}
	if res.Fallthrough != nil {
		dropped := dropVariableBindings(*res.Fallthrough, s.Locals)
		res.Fallthrough = &dropped
	}
	for i := range res.Breaks {
		res.Breaks[i] = dropVariableBindings(res.Breaks[i], s.Locals)
	}
	for i := range res.Returns {
		res.Returns[i] = dropVariableBindings(res.Returns[i], s.Locals)
	}
	return res, nil
}

// dropVariableBindings removes the EqualsTo conjuncts binding the
// given variables from an annotation's now, the same structural
// operation internal/postimage's removeVarBinding performs per
// assignment, applied here to an entire scope's locals at once.
func dropVariableBindings(a logic.Annotation, vars []*program.Variable) logic.Annotation {
	if len(vars) == 0 {
		return a
	}
	names := make(map[string]bool, len(vars))
	for _, vr := range vars {
		names[vr.Name] = true
	}
	var kept []logic.Formula
	for _, c := range logic.Conjuncts(a.Now) {
		if atom, ok := c.(logic.Atom); ok {
			if eq, ok := atom.Axiom.(logic.EqualsTo); ok && names[eq.Var.Name] {
				continue
			}
		}
		kept = append(kept, c)
	}
	next := a
	next.Now = logic.And(kept...)
	return next
}

func (v *Verifier) runIf(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	thenPre, thenEff, err := ctx.solver.Post(pre, program.Assume(s.Cond), ctx.pool)
	if err != nil {
		return flowResult{}, err
	}
	thenRes, err := v.runStmt(ctx, thenPre, s.Then)
	if err != nil {
		return flowResult{}, err
	}
	thenRes.Effects = append(append([]postimage.Effect{}, thenEff...), thenRes.Effects...)

	elsePre, elseEff, err := ctx.solver.Post(pre, program.Assume(program.Not(s.Cond)), ctx.pool)
	if err != nil {
		return flowResult{}, err
	}
	var elseRes flowResult
	if s.Else != nil {
		elseRes, err = v.runStmt(ctx, elsePre, s.Else)
		if err != nil {
			return flowResult{}, err
		}
	} else {
		elseRes = single(elsePre)
	}
	elseRes.Effects = append(append([]postimage.Effect{}, elseEff...), elseRes.Effects...)

	return v.joinFlow(ctx, []flowResult{thenRes, elseRes})
}

func (v *Verifier) runChoose(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	leftRes, err := v.runStmt(ctx, pre, s.Left)
	if err != nil {
		return flowResult{}, err
	}
	rightRes, err := v.runStmt(ctx, pre, s.Right)
	if err != nil {
		return flowResult{}, err
	}
	return v.joinFlow(ctx, []flowResult{leftRes, rightRes})
}

// joinFlow merges a set of branch results: their fallthrough
// annotations are joined (spec.md §4.6 join), while breaks/returns/
// effects are simply concatenated, since each is already its own
// distinct path out of the branch construct.
func (v *Verifier) joinFlow(ctx *funcCtx, results []flowResult) (flowResult, error) {
	var out flowResult
	var anns []logic.Annotation
	for _, r := range results {
		if r.Fallthrough != nil {
			anns = append(anns, *r.Fallthrough)
		}
		out.Breaks = append(out.Breaks, r.Breaks...)
		out.Returns = append(out.Returns, r.Returns...)
		out.Effects = append(out.Effects, r.Effects...)
	}
	if len(anns) == 0 {
		return out, nil
	}
	joined, err := ctx.solver.Join(anns)
	if err != nil {
		return flowResult{}, err
	}
	out.Fallthrough = &joined
	return out, nil
}

// runAtomic disables per-statement interference stabilization for the
// duration of its body, then stabilizes once at the end — treating
// the whole block as a single atomic step, exactly like spec.md §4.7's
// "atomic: disable interference application inside; re-enable and
// stabilize at the end". Nested atomic blocks only stabilize when the
// outermost one exits.
func (v *Verifier) runAtomic(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	ctx.atomic++
	res, err := v.runStmt(ctx, pre, s.Body)
	ctx.atomic--
	if err != nil {
		return flowResult{}, err
	}
	if ctx.atomic > 0 || len(ctx.interference) == 0 {
		return res, nil
	}
	if res.Fallthrough != nil {
		stabilized, err := ctx.solver.MakeStable(*res.Fallthrough, ctx.interference)
		if err != nil {
			return flowResult{}, err
		}
		res.Fallthrough = &stabilized
	}
	for i := range res.Returns {
		stabilized, err := ctx.solver.MakeStable(res.Returns[i], ctx.interference)
		if err != nil {
			return flowResult{}, err
		}
		res.Returns[i] = stabilized
	}
	return res, nil
}

func (v *Verifier) runDoWhile(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	first, err := v.runStmt(ctx, pre, s.Then)
	if err != nil {
		return flowResult{}, err
	}
	if first.Fallthrough == nil {
		return first, nil
	}
	rest, err := v.iterateLoop(ctx, *first.Fallthrough, s)
	if err != nil {
		return flowResult{}, err
	}
	rest.Breaks = append(first.Breaks, rest.Breaks...)
	rest.Returns = append(first.Returns, rest.Returns...)
	rest.Effects = append(first.Effects, rest.Effects...)
	return rest, nil
}

// iterateLoop runs s's body to a fixed point modulo normalization
// (spec.md §4.7 "loop: iterate the body to a fixed point"), assuming
// the loop condition true going into each round and false on the
// normal exit path. Only the fixpoint round's breaks/returns/effects
// are kept: the state reached by every earlier round is already
// subsumed by the join that produced the fixpoint, so nothing an
// earlier round reveals is missing from what the fixpoint round
// reveals.
func (v *Verifier) iterateLoop(ctx *funcCtx, entry logic.Annotation, s *program.Stmt) (flowResult, error) {
	current := entry
	var final flowResult
	for i := 0; ; i++ {
		bodyPre, _, err := ctx.solver.Post(current, program.Assume(s.Cond), ctx.pool)
		if err != nil {
			return flowResult{}, err
		}
		res, err := v.runStmt(ctx, bodyPre, s.Then)
		if err != nil {
			return flowResult{}, err
		}
		final = res

		if res.Fallthrough == nil {
			break
		}
		if i >= maxLoopIterations {
			return flowResult{}, perrors.New(perrors.UnsupportedConstructKind, "loop", "fixed point did not converge within the iteration bound")
		}
		next, err := ctx.solver.Join([]logic.Annotation{current, *res.Fallthrough})
		if err != nil {
			return flowResult{}, err
		}
		if annotationFixed(current, next) {
			current = next
			break
		}
		current = next
	}

	exitPre, _, err := ctx.solver.Post(current, program.Assume(program.Not(s.Cond)), ctx.pool)
	if err != nil {
		return flowResult{}, err
	}
	return flowResult{
		Fallthrough: &exitPre,
		Breaks:      final.Breaks,
		Returns:     final.Returns,
		Effects:     final.Effects,
	}, nil
}

func annotationFixed(a, b logic.Annotation) bool {
	return util.AnnotationSyntacticalEqual(util.NormalizeAnnotation(a), util.NormalizeAnnotation(b))
}

// runMacroCall inlines a macro's body at the call site: its arguments
// are bound to the callee's parameters by parallel assignment, its
// body runs in that state, and any return inside it binds the
// callee's Returns variables and exits the macro (not the caller) —
// a macro's `return` is local to the macro exactly as a function's
// `return` is local to the function (spec.md §4.7 "macro call: inline
// at call site ... returns by assignment to callee-return slots").
// A macro whose body only exits via break is assumed to be inlined
// directly inside the enclosing loop it is meant to affect, so an
// unconsumed break is passed through unchanged rather than treated as
// an error.
func (v *Verifier) runMacroCall(ctx *funcCtx, pre logic.Annotation, s *program.Stmt) (flowResult, error) {
	callee := s.Callee
	cur := pre
	var effects []postimage.Effect
	for i, param := range callee.Params {
		if i >= len(s.Args) {
			break
		}
		next, eff, err := ctx.solver.Post(cur, program.Assign(param, s.Args[i]), ctx.pool)
		if err != nil {
			return flowResult{}, err
		}
		cur = next
		effects = append(effects, eff...)
	}

	calleeCtx := &funcCtx{
		solver:       ctx.solver,
		pool:         ctx.pool,
		interference: ctx.interference,
		atomic:       ctx.atomic,
		returns:      callee.Returns,
	}
	bodyRes, err := v.runStmt(calleeCtx, cur, program.ScopeStmt(callee.Body))
	if err != nil {
		return flowResult{}, err
	}
	effects = append(effects, bodyRes.Effects...)

	exitCandidates := append([]logic.Annotation{}, bodyRes.Returns...)
	if bodyRes.Fallthrough != nil {
		exitCandidates = append(exitCandidates, *bodyRes.Fallthrough)
	}
	if len(exitCandidates) == 0 {
		return flowResult{Breaks: bodyRes.Breaks, Effects: effects}, nil
	}

	exit, err := ctx.solver.Join(exitCandidates)
	if err != nil {
		return flowResult{}, err
	}
	for i, retVar := range callee.Returns {
		if i >= len(s.Assign) {
			break
		}
		next, eff, err := ctx.solver.Post(exit, program.Assign(s.Assign[i], program.Var(retVar)), ctx.pool)
		if err != nil {
			return flowResult{}, err
		}
		exit = next
		effects = append(effects, eff...)
	}

	scopeLocals := append(append([]*program.Variable{}, callee.Params...), callee.Returns...)
	exit = dropVariableBindings(exit, scopeLocals)
	return flowResult{Fallthrough: &exit, Breaks: bodyRes.Breaks, Effects: effects}, nil
}
