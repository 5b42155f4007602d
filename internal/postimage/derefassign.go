package postimage

import (
	"fmt"

	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/encoding"
	perrors "github.com/nyu-acsys/flowcert/internal/errors"
	"github.com/nyu-acsys/flowcert/internal/flowgraph"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/program"
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/symbols"
	"github.com/nyu-acsys/flowcert/internal/types"
)

// postDerefAssign is spec.md §4.5's hardest case: `p->f = e` treated
// as a single atomic heap step. It builds the bounded footprint graph
// rooted at the dereferenced address, asserts the frame rule outside
// it, checks invariant preservation and keyset disjointness inside
// it, then classifies the step's effect on logical containment as
// Pure, Insertion or Deletion (spec.md's "state machine of purity").
func (e *Engine) postDerefAssign(pre logic.Annotation, stmt *program.Stmt, factory *symbols.Factory) (logic.Annotation, []Effect, error) {
	baseVal, err := evalValue(pre.Now, stmt.Base)
	if err != nil {
		return pre, nil, err
	}
	if baseVal.Kind != logic.ExprSymbol {
		return pre, nil, perrors.New(perrors.UnsupportedConstructKind, stmt.Field, "dereference-assignment target is not a symbolic address")
	}
	addr := baseVal.Sym
	primaryMem, ok := lookupMemory(pre.Now, addr)
	if !ok {
		return pre, nil, perrors.New(perrors.UnsupportedConstructKind, stmt.Field, "no known memory cell at the updated address")
	}
	oldFieldSym, ok := primaryMem.Fields[stmt.Field]
	if !ok {
		return pre, nil, perrors.New(perrors.ConfigurationErrorKind, stmt.Field, "field not declared on the updated node's type")
	}

	rhsVal, err := evalValue(pre.Now, stmt.Rhs)
	if err != nil {
		return pre, nil, err
	}

	// Resolve the new field symbol: reuse an existing one, or mint a
	// fresh symbol constrained equal to a constant RHS — a memory
	// axiom field is always a bound symbol, never a raw constant
	// expression (spec.md §3 "no dangling symbols").
	var newFieldSym symbols.Symbol
	premiseExtra := pre.Now
	if rhsVal.Kind == logic.ExprSymbol {
		newFieldSym = rhsVal.Sym
	} else {
		newFieldSym = factory.FreshFOHint(oldFieldSym.Sort(), stmt.Field)
		eqAx, err := logic.NewStackAxiom(logic.Eq, logic.Sym(newFieldSym), rhsVal)
		if err != nil {
			return pre, nil, perrors.Wrap(err, "dereference assignment to "+stmt.Field)
		}
		premiseExtra = logic.And(append(logic.Conjuncts(pre.Now), logic.NewAtom(eqAx))...)
	}

	var secondary []symbols.Symbol
	if oldFieldSym.Sort() == types.Ptr {
		secondary = append(secondary, oldFieldSym, newFieldSym)
	}

	env := flowgraph.NewEnvironment(memoryAxioms(pre.Now))
	graph, err := flowgraph.Build(env, e.Config, addr, secondary)
	if err != nil {
		if uc, ok := err.(*flowgraph.UnsupportedConfigurationError); ok {
			return pre, nil, perrors.New(perrors.UnsupportedConstructKind, stmt.Field, uc.Error())
		}
		return pre, nil, perrors.Wrap(err, "flow graph construction")
	}
	if footprintIncomplete(graph, env, e.Config) {
		return pre, nil, perrors.New(perrors.FootprintTooSmallKind, stmt.Field, "footprint exploration did not reach every node the invariant check needs")
	}

	nextFields := make(map[string]symbols.Symbol, len(primaryMem.Fields))
	for k, v := range primaryMem.Fields {
		nextFields[k] = v
	}
	nextFields[stmt.Field] = newFieldSym
	nextPrimary := logic.MemoryAxiom{Kind: primaryMem.Kind, Addr: primaryMem.Addr, Flow: primaryMem.Flow, Fields: nextFields}

	footprintAddrs := graph.AddressSymbols()
	footprintTerms := make([]smt.Term, len(footprintAddrs))
	for i, a := range footprintAddrs {
		footprintTerms[i] = e.Encoder.Symbol(a)
	}

	premiseTerm, err := e.Encoder.EncodeFormula(premiseExtra, encoding.NOW)
	if err != nil {
		return pre, nil, err
	}

	var assertions []smt.Term
	assertions = append(assertions, e.Encoder.DataDomainAxioms()...)
	for _, fd := range e.Config.FlowDomain.NodeType.Fields {
		assertions = append(assertions, e.Encoder.TransitionMaintainsHeap(fd.Name, fd.Sort, footprintTerms))
	}
	assertions = append(assertions, e.Encoder.TransitionMaintainsFlow(footprintTerms))
	assertions = append(assertions, e.Encoder.TransitionMaintainsOwnership(footprintTerms))
	assertions = append(assertions, e.Encoder.PrimaryRootInflowStable(e.Encoder.Symbol(addr)))

	nextDef, err := e.Encoder.EncodeAxiom(nextPrimary, encoding.NEXT)
	if err != nil {
		return pre, nil, err
	}
	assertions = append(assertions, nextDef)
	for _, ax := range graph.Nodes {
		if ax.Addr.Equal(addr) {
			continue
		}
		unchangedDef, err := e.Encoder.EncodeAxiom(ax, encoding.NEXT)
		if err != nil {
			return pre, nil, err
		}
		assertions = append(assertions, unchangedDef)
	}

	premise := smt.And(append([]smt.Term{premiseTerm}, assertions...)...)
	checker := encoding.NewImplicationChecker(e.Backend, premise, e.Config.StrictUnknown)
	defer checker.Close()

	if err := e.checkNodeInvariants(checker, graph, addr, nextPrimary); err != nil {
		return pre, nil, err
	}
	if err := e.checkKeysetDisjointness(checker, graph, addr, nextPrimary, factory); err != nil {
		return pre, nil, err
	}

	ret, class, err := e.checkPurity(checker, graph, addr, nextPrimary, pre.Now, factory, stmt.Field)
	if err != nil {
		return pre, nil, err
	}

	updatedNow := replaceMemoryAxiom(premiseExtra, addr, nextPrimary)
	if class.ob != nil {
		updatedNow = replaceObligationWithFulfillment(updatedNow, *class.ob, ret)
	}

	next := pre
	next.Now = updatedNow

	var effects []Effect
	if primaryMem.Kind == logic.Shared {
		effects = append(effects, Effect{
			Pre:     primaryMem,
			Post:    nextPrimary,
			Context: contextFormula(pre.Now, addr),
		})
	}
	return next, effects, nil
}

// contextFormula extracts the separating conjunction of surrounding
// stack/flow knowledge another thread needs to check its own
// stability against an effect at addr (spec.md §4.5 "context"): every
// conjunct of now except the memory axiom of the updated cell itself,
// which the effect already carries as Pre.
func contextFormula(now logic.Formula, addr symbols.Symbol) logic.Formula {
	var out []logic.Formula
	for _, c := range logic.Conjuncts(now) {
		if a, ok := c.(logic.Atom); ok {
			if mem, ok := a.Axiom.(logic.MemoryAxiom); ok && mem.Addr.Equal(addr) {
				continue
			}
		}
		out = append(out, c)
	}
	return logic.And(out...)
}

// footprintIncomplete reports whether the bounded exploration stopped
// at the depth cutoff while a pointer field of an explored node still
// names a successor this environment knows about (spec.md §4.4 "If
// invariant or specification verification cannot close within this
// depth, report footprint too small").
func footprintIncomplete(g *flowgraph.Graph, env flowgraph.Environment, cfg *config.Config) bool {
	hasEdge := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		hasEdge[fmt.Sprintf("%d/%s", e.From.ID(), e.Field)] = true
	}
	for _, ax := range g.Nodes {
		for _, fd := range cfg.FlowDomain.NodeType.PointerFields() {
			succ, ok := ax.Fields[fd.Name]
			if !ok {
				continue
			}
			if hasEdge[fmt.Sprintf("%d/%s", ax.Addr.ID(), fd.Name)] {
				continue
			}
			if _, knownSuccessor := env[succ.ID()]; knownSuccessor {
				return true
			}
		}
	}
	return false
}

func nodeViewOf(cfg *config.Config, addr symbols.Symbol, nextPrimary logic.MemoryAxiom, ax logic.MemoryAxiom) config.NodeView {
	if ax.Addr.Equal(addr) {
		return config.NodeView{Addr: nextPrimary.Addr, Flow: nextPrimary.Flow, Fields: nextPrimary.Fields, Type: cfg.FlowDomain.NodeType}
	}
	return config.NodeView{Addr: ax.Addr, Flow: ax.Flow, Fields: ax.Fields, Type: cfg.FlowDomain.NodeType}
}

// checkNodeInvariants verifies spec.md §4.4 step 2: the configured
// node invariant holds, in NEXT, at every explored footprint node.
func (e *Engine) checkNodeInvariants(checker *encoding.ImplicationChecker, g *flowgraph.Graph, addr symbols.Symbol, nextPrimary logic.MemoryAxiom) error {
	for _, ax := range g.Nodes {
		view := nodeViewOf(e.Config, addr, nextPrimary, ax)
		var invariant logic.Formula
		if ax.Kind == logic.Shared {
			invariant = e.Config.SharedNodeInvariant(view)
		} else {
			invariant = e.Config.LocalNodeInvariant(view)
		}
		term, err := e.Encoder.EncodeFormula(invariant, encoding.NEXT)
		if err != nil {
			return err
		}
		ok, err := checker.Implies(term)
		if err != nil {
			return err
		}
		if !ok {
			return perrors.New(perrors.InvariantViolationKind, "", fmt.Sprintf("node invariant is not established in the post-state at %s", ax.Addr))
		}
	}
	return nil
}

// checkKeysetDisjointness verifies spec.md §4.4/§4.5 step 4: the
// logical keysets of every pair of explored nodes remain disjoint in
// NEXT. The universally-quantified key is a fresh symbol rather than a
// bare SMT identifier: EncodeKeysetContains only knows how to encode a
// logic.Expr key (it must route every field/outflow predicate through
// the usual encoder), so a real symbols.Symbol is minted purely to
// give the quantifier a name the encoder will reproduce consistently
// everywhere that key is referenced.
func (e *Engine) checkKeysetDisjointness(checker *encoding.ImplicationChecker, g *flowgraph.Graph, addr symbols.Symbol, nextPrimary logic.MemoryAxiom, factory *symbols.Factory) error {
	addrs := g.AddressSymbols()
	if len(addrs) < 2 {
		return nil
	}
	kSym := factory.FreshFOHint(types.Data, "k")
	keyExpr := logic.Sym(kSym)
	binder := e.Encoder.Symbol(kSym).SExpr()

	views := make([]config.NodeView, len(addrs))
	terms := make([]smt.Term, len(addrs))
	for i, a := range addrs {
		views[i] = nodeViewOf(e.Config, addr, nextPrimary, g.Nodes[a.ID()])
		terms[i] = e.Encoder.Symbol(a)
	}
	var buildErr error
	keysetFn := func(addrTerm smt.Term, _ smt.Term) smt.Term {
		for i, t := range terms {
			if t.SExpr() == addrTerm.SExpr() {
				f, err := e.Encoder.EncodeKeysetContains(&e.Config.FlowDomain, views[i], keyExpr, encoding.NEXT)
				if err != nil {
					buildErr = err
					return smt.Atom("false")
				}
				return f
			}
		}
		return smt.Atom("false")
	}
	rules := e.Encoder.KeysetDisjointness(binder, keysetFn, terms)
	if buildErr != nil {
		return buildErr
	}
	for _, rule := range rules {
		ok, err := checker.Implies(rule)
		if err != nil {
			return err
		}
		if !ok {
			return perrors.New(perrors.InvariantViolationKind, "", "explored nodes no longer have pairwise-disjoint keysets in the post-state")
		}
	}
	return nil
}

// purityResult carries the outstanding linearization obligation a
// dereference-assignment step discharged, if any (spec.md §4.5 step 5
// "the obligation, once discharged, is replaced by a fulfillment").
type purityResult struct {
	ob *logic.ObligationAxiom
}

// checkPurity classifies a dereference-assignment step's effect on
// logical containment (spec.md §4.5 step 5). At most one
// ObligationAxiom may be outstanding at a time — the single
// "impureKey" the step is allowed to linearize against — so the check
// first confirms containment is unchanged for every *other* key, then
// decides Pure/Insertion/Deletion from how containment moved at the
// impure key specifically.
func (e *Engine) checkPurity(checker *encoding.ImplicationChecker, g *flowgraph.Graph, addr symbols.Symbol, nextPrimary logic.MemoryAxiom, preNow logic.Formula, factory *symbols.Factory, site string) (logic.Expr, purityResult, error) {
	obs := obligations(preNow)
	if len(obs) > 1 {
		return logic.Expr{}, purityResult{}, perrors.New(perrors.UnsupportedConstructKind, "", "more than one linearization obligation is outstanding at a single heap write")
	}

	addrs := g.AddressSymbols()
	preViews := make([]config.NodeView, len(addrs))
	nextViews := make([]config.NodeView, len(addrs))
	for i, a := range addrs {
		ax := g.Nodes[a.ID()]
		preViews[i] = config.NodeView{Addr: ax.Addr, Flow: ax.Flow, Fields: ax.Fields, Type: e.Config.FlowDomain.NodeType}
		nextViews[i] = nodeViewOf(e.Config, addr, nextPrimary, ax)
	}

	kSym := factory.FreshFOHint(types.Data, "k")
	keyExpr := logic.Sym(kSym)
	binder := e.Encoder.Symbol(kSym).SExpr()

	nowMember, err := e.memberOfAnyNode(preViews, keyExpr, encoding.NOW)
	if err != nil {
		return logic.Expr{}, purityResult{}, err
	}
	nextMember, err := e.memberOfAnyNode(nextViews, keyExpr, encoding.NEXT)
	if err != nil {
		return logic.Expr{}, purityResult{}, err
	}

	var unchanged smt.Term
	iff := smt.And(smt.Implies(nowMember, nextMember), smt.Implies(nextMember, nowMember))
	if len(obs) == 1 {
		impureTerm, err := e.Encoder.EncodeExpr(obs[0].Key)
		if err != nil {
			return logic.Expr{}, purityResult{}, err
		}
		differs := smt.Not(smt.Eq(smt.Atom(binder), impureTerm))
		unchanged = smt.ForAll(binder, "Int", smt.Implies(differs, iff))
	} else {
		unchanged = smt.ForAll(binder, "Int", iff)
	}
	ok, err := checker.Implies(unchanged)
	if err != nil {
		return logic.Expr{}, purityResult{}, err
	}
	if !ok {
		return logic.Expr{}, purityResult{}, perrors.Linearization(site, "logical containment changed for a key other than the declared linearization key", preNow.String(), nextPrimary.String())
	}

	if len(obs) == 0 {
		return logic.Expr{}, purityResult{}, nil
	}
	ob := obs[0]

	wasInTerm, err := e.memberOfAnyNode(preViews, ob.Key, encoding.NOW)
	if err != nil {
		return logic.Expr{}, purityResult{}, err
	}
	isInTerm, err := e.memberOfAnyNode(nextViews, ob.Key, encoding.NEXT)
	if err != nil {
		return logic.Expr{}, purityResult{}, err
	}
	wasIn, err := checker.Implies(wasInTerm)
	if err != nil {
		return logic.Expr{}, purityResult{}, err
	}
	isIn, err := checker.Implies(isInTerm)
	if err != nil {
		return logic.Expr{}, purityResult{}, err
	}

	switch ob.Spec {
	case logic.SpecContains:
		if wasIn != isIn {
			return logic.Expr{}, purityResult{}, perrors.Linearization(site, "a contains operation must not change logical containment", preNow.String(), nextPrimary.String())
		}
		return boolExpr(isIn), purityResult{ob: &ob}, nil
	case logic.SpecInsert:
		if wasIn {
			return logic.False(), purityResult{ob: &ob}, nil
		}
		if !isIn {
			return logic.Expr{}, purityResult{}, perrors.Linearization(site, "an insert operation did not establish membership of its declared key", preNow.String(), nextPrimary.String())
		}
		return logic.True(), purityResult{ob: &ob}, nil
	case logic.SpecDelete:
		if !wasIn {
			return logic.False(), purityResult{ob: &ob}, nil
		}
		if isIn {
			return logic.Expr{}, purityResult{}, perrors.Linearization(site, "a delete operation did not remove membership of its declared key", preNow.String(), nextPrimary.String())
		}
		return logic.True(), purityResult{ob: &ob}, nil
	}
	return logic.Expr{}, purityResult{}, perrors.New(perrors.ConfigurationErrorKind, "", "unknown obligation kind")
}

// memberOfAnyNode builds "key belongs to some explored node's logical
// keyset", the disjunction EncodeKeysetContains/Contains jointly
// characterize membership in the data structure's abstract set (spec.md
// §4.5 "the key is logically contained iff some footprint node's
// keyset and contents predicate both hold").
func (e *Engine) memberOfAnyNode(views []config.NodeView, key logic.Expr, tag encoding.Tag) (smt.Term, error) {
	terms := make([]smt.Term, 0, len(views))
	for _, v := range views {
		contains, err := e.Encoder.EncodePredicate(e.Config.FlowDomain.Contains, v, key, tag)
		if err != nil {
			return nil, err
		}
		keyset, err := e.Encoder.EncodeKeysetContains(&e.Config.FlowDomain, v, key, tag)
		if err != nil {
			return nil, err
		}
		terms = append(terms, smt.And(contains, keyset))
	}
	return smt.Or(terms...), nil
}

func boolExpr(b bool) logic.Expr {
	if b {
		return logic.True()
	}
	return logic.False()
}
