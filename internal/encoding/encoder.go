package encoding

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/symbols"
	"github.com/nyu-acsys/flowcert/internal/types"
)

// Encoder lowers logic formulas/axioms/expressions into smt.Terms. It
// owns the smt.Declarations every Context built against its output
// must declare first, growing that set lazily as new symbols and
// fields are encountered rather than requiring an up-front pass.
//
// Simplifying assumption (recorded in DESIGN.md): heap selector
// functions are named by field name and epoch only, not by
// (recordType, field). This holds as long as distinct record types
// never reuse a field name at a different sort, true of every
// configuration in this repo (Treiber stack, Michael-Scott queue,
// sorted list, lock-coupling list, DCAS set each declare a single
// record type). A program that violated it would need the selector
// name to also carry the type name.
type Encoder struct {
	Declarations *smt.Declarations
}

func NewEncoder() *Encoder {
	return &Encoder{Declarations: smt.NewDeclarations()}
}

func sortName(s types.Sort) string {
	switch s {
	case types.Bool:
		return "Bool"
	case types.Data:
		return "Int"
	case types.Ptr:
		return "Ptr"
	default:
		return "Bool"
	}
}

// Symbol returns the canonical SMT representative of s (spec.md §6
// "symbol(s)"): a declared constant for a first-order symbol, or a
// declared unary predicate name for a second-order (flow) symbol.
func (e *Encoder) Symbol(s symbols.Symbol) smt.Term {
	if s.IsSecondOrder() {
		name := flowPredicateName(s)
		e.Declarations.UnaryPredicates = appendUnique(e.Declarations.UnaryPredicates, name)
		return smt.Atom(name)
	}
	name := fmt.Sprintf("sym_%d", s.ID())
	e.Declarations.ConstSorts[name] = sortName(s.Sort())
	return smt.Atom(name)
}

func flowPredicateName(s symbols.Symbol) string {
	return fmt.Sprintf("flow_%d", s.ID())
}

func appendUnique(xs []string, x string) []string {
	for _, y := range xs {
		if y == x {
			return xs
		}
	}
	return append(xs, x)
}

// dataMinConst / dataMaxConst / nullConst are the sentinel constants
// backing Expr's MIN/MAX/Null cases; rules.go asserts the background
// facts that relate them to every other Int/Ptr constant.
const (
	dataMinConst = "DATA_MIN"
	dataMaxConst = "DATA_MAX"
	nullConst    = "NULL_PTR"
)

func (e *Encoder) ensureSentinels() {
	e.Declarations.ConstSorts[dataMinConst] = "Int"
	e.Declarations.ConstSorts[dataMaxConst] = "Int"
	e.Declarations.ConstSorts[nullConst] = "Ptr"
}

// EncodeExpr lowers a logic.Expr to a term. It never takes a Tag:
// expressions denote values, not heap-selector applications, and the
// two-state distinction only enters through EncodeHeap/EncodeFlowAt.
func (e *Encoder) EncodeExpr(expr logic.Expr) (smt.Term, error) {
	switch expr.Kind {
	case logic.ExprSymbol:
		return e.Symbol(expr.Sym), nil
	case logic.ExprTrue:
		return smt.Atom("true"), nil
	case logic.ExprFalse:
		return smt.Atom("false"), nil
	case logic.ExprNull:
		e.ensureSentinels()
		return smt.Atom(nullConst), nil
	case logic.ExprMin:
		e.ensureSentinels()
		return smt.Atom(dataMinConst), nil
	case logic.ExprMax:
		e.ensureSentinels()
		return smt.Atom(dataMaxConst), nil
	case logic.ExprPlaceholder:
		return nil, &EncodingError{Reason: "unresolved placeholder reached the encoder: template was never instantiated"}
	}
	return nil, &EncodingError{Reason: fmt.Sprintf("unknown expression kind %d", expr.Kind)}
}

// EncodingError reports an internal encoding failure: a construct the
// encoder does not know how to lower, distinct from an SMT-level
// failure (which surfaces as an error from the smt.Context itself).
type EncodingError struct{ Reason string }

func (e *EncodingError) Error() string { return "encoding: " + e.Reason }

func cmpOpTerm(op logic.CmpOp, lhs, rhs smt.Term) smt.Term {
	switch op {
	case logic.Eq:
		return smt.Eq(lhs, rhs)
	case logic.Neq:
		return smt.Not(smt.Eq(lhs, rhs))
	case logic.Le:
		return smt.App("<=", lhs, rhs)
	case logic.Lt:
		return smt.App("<", lhs, rhs)
	case logic.Ge:
		return smt.App(">=", lhs, rhs)
	case logic.Gt:
		return smt.App(">", lhs, rhs)
	}
	return smt.Atom("true")
}

// EncodeAxiom lowers one atomic axiom under the given epoch.
func (e *Encoder) EncodeAxiom(ax logic.Axiom, tag Tag) (smt.Term, error) {
	switch v := ax.(type) {
	case logic.EqualsTo:
		// Pure naming bookkeeping: which program variable currently
		// denotes which symbol carries no SMT-relevant constraint once
		// every other axiom already refers to the symbol directly.
		return smt.Atom("true"), nil
	case logic.MemoryAxiom:
		return e.encodeMemoryAxiom(v, tag)
	case logic.StackAxiom:
		lhs, err := e.EncodeExpr(v.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := e.EncodeExpr(v.Rhs)
		if err != nil {
			return nil, err
		}
		return cmpOpTerm(v.Op, lhs, rhs), nil
	case logic.InflowEmptinessAxiom:
		pred := e.Symbol(v.Flow)
		body := smt.App(pred.SExpr(), smt.Atom("k"))
		if v.IsEmpty {
			return smt.ForAll("k", "Int", smt.Not(body)), nil
		}
		return smt.Exists("k", "Int", body), nil
	case logic.InflowContainsValueAxiom:
		pred := e.Symbol(v.Flow)
		key, err := e.EncodeExpr(v.Value)
		if err != nil {
			return nil, err
		}
		return smt.App(pred.SExpr(), key), nil
	case logic.InflowContainsRangeAxiom:
		pred := e.Symbol(v.Flow)
		lo, err := e.EncodeExpr(v.Lo)
		if err != nil {
			return nil, err
		}
		hi, err := e.EncodeExpr(v.Hi)
		if err != nil {
			return nil, err
		}
		inRange := smt.And(smt.App("<=", lo, smt.Atom("k")), smt.App("<=", smt.Atom("k"), hi))
		return smt.ForAll("k", "Int", smt.Implies(inRange, smt.App(pred.SExpr(), smt.Atom("k")))), nil
	case logic.ObligationAxiom:
		key, err := e.EncodeExpr(v.Key)
		if err != nil {
			return nil, err
		}
		return e.EncodeObligation(v.Spec, key, tag), nil
	case logic.FulfillmentAxiom:
		key, err := e.EncodeExpr(v.Key)
		if err != nil {
			return nil, err
		}
		ret, err := e.EncodeExpr(v.ReturnValue)
		if err != nil {
			return nil, err
		}
		return e.EncodeFulfillment(v.Spec, key, ret, tag), nil
	}
	return nil, &EncodingError{Reason: fmt.Sprintf("unknown axiom kind %T", ax)}
}

// encodeMemoryAxiom asserts, for a cell with a known address symbol:
// one selector equality per field, plus a link between the per-node
// generic flow relation (used by the quantified frame rules in
// rules.go) and this node's concrete flow predicate.
func (e *Encoder) encodeMemoryAxiom(v logic.MemoryAxiom, tag Tag) (smt.Term, error) {
	addr := e.Symbol(v.Addr)
	conjuncts := make([]smt.Term, 0, len(v.Fields)+2)
	for _, field := range v.FieldNames() {
		fieldSym := v.Fields[field]
		sel := e.EncodeHeap(addr, field, fieldSym.Sort(), tag)
		conjuncts = append(conjuncts, smt.Eq(sel, e.Symbol(fieldSym)))
	}
	conjuncts = append(conjuncts, e.linkFlow(addr, v.Flow, tag))
	conjuncts = append(conjuncts, e.linkOwnership(addr, v.Kind, tag))
	return smt.And(conjuncts...), nil
}

// EncodeHeap is spec.md §6 `encodeHeap(node, selector, tag)`: field
// projection through a per-(field, epoch) uninterpreted function.
func (e *Encoder) EncodeHeap(addr smt.Term, field string, fieldSort types.Sort, tag Tag) smt.Term {
	name := heapSelectorName(field, tag)
	e.Declarations.Selectors[name] = smt.SelectorSig{ResultSort: sortName(fieldSort)}
	return smt.App(name, addr)
}

// EncodeHeapIs is `encodeHeapIs(node, selector, value, tag)`.
func (e *Encoder) EncodeHeapIs(addr smt.Term, field string, fieldSort types.Sort, tag Tag, value smt.Term) smt.Term {
	return smt.Eq(e.EncodeHeap(addr, field, fieldSort, tag), value)
}

func heapSelectorName(field string, tag Tag) string {
	return fmt.Sprintf("heap_%s_%s", strcase.ToSnake(field), tag)
}

func flowRelationName(tag Tag) string { return "node_flow_" + tag.String() }

func ownershipRelationName(tag Tag) string { return "node_shared_" + tag.String() }

// EncodeFlowAt is the per-address view of flow membership used by the
// quantified frame rules (rules.go), which must range over every
// address including ones with no symbol bound to them in the current
// annotation.
func (e *Encoder) EncodeFlowAt(addr smt.Term, key smt.Term, tag Tag) smt.Term {
	name := flowRelationName(tag)
	e.Declarations.Relations[name] = []string{"Ptr", "Int"}
	return smt.App(name, addr, key)
}

// linkFlow asserts that the generic per-address flow relation agrees
// with the concrete flow symbol bound to this node in this axiom,
// `forall k. node_flow_tag(addr, k) <-> flow_sym(k)`.
func (e *Encoder) linkFlow(addr smt.Term, flow symbols.Symbol, tag Tag) smt.Term {
	pred := e.Symbol(flow)
	generic := e.EncodeFlowAt(addr, smt.Atom("k"), tag)
	concrete := smt.App(pred.SExpr(), smt.Atom("k"))
	iff := smt.And(smt.Implies(generic, concrete), smt.Implies(concrete, generic))
	return smt.ForAll("k", "Int", iff)
}

func (e *Encoder) linkOwnership(addr smt.Term, kind logic.MemoryKind, tag Tag) smt.Term {
	name := ownershipRelationName(tag)
	e.Declarations.Relations[name] = []string{"Ptr"}
	app := smt.App(name, addr)
	if kind == logic.Shared {
		return app
	}
	return smt.Not(app)
}

// EncodeFlow is `encodeFlow(node, key, tag)` for a node whose concrete
// flow symbol is already known (the common case while encoding a
// single annotation, as opposed to the generic quantified rules).
func (e *Encoder) EncodeFlow(flow symbols.Symbol, key logic.Expr) (smt.Term, error) {
	keyTerm, err := e.EncodeExpr(key)
	if err != nil {
		return nil, err
	}
	pred := e.Symbol(flow)
	return smt.App(pred.SExpr(), keyTerm), nil
}

// EncodeKeysetContains is spec.md §6 `encodeKeysetContains(node, key,
// tag)`: key is in node's inflow and not forwarded along any outflow
// edge, i.e. it belongs to node's logical keyset.
func (e *Encoder) EncodeKeysetContains(cfg *config.FlowDomain, node config.NodeView, key logic.Expr, tag Tag) (smt.Term, error) {
	inflow, err := e.EncodeFlow(node.Flow, key)
	if err != nil {
		return nil, err
	}
	outflowTerms := make([]smt.Term, 0, len(cfg.Outflow))
	for field, pred := range cfg.Outflow {
		f, err := e.EncodeFormula(pred(node, field, key), tag)
		if err != nil {
			return nil, err
		}
		outflowTerms = append(outflowTerms, f)
	}
	return smt.And(inflow, smt.Not(smt.Or(outflowTerms...))), nil
}

// EncodeObligation is `encodeObligation(kind, key, tag)`.
func (e *Encoder) EncodeObligation(kind logic.ObligationSpec, key smt.Term, tag Tag) smt.Term {
	name := fmt.Sprintf("obligation_%s_%s", kind, tag)
	e.Declarations.Relations[name] = []string{"Int"}
	return smt.App(name, key)
}

// EncodeFulfillment is `encodeFulfillment(kind, key, returnValue,
// tag)`.
func (e *Encoder) EncodeFulfillment(kind logic.ObligationSpec, key, ret smt.Term, tag Tag) smt.Term {
	name := fmt.Sprintf("fulfillment_%s_%s", kind, tag)
	e.Declarations.Relations[name] = []string{"Int", "Int"}
	return smt.App(name, key, ret)
}

// EncodeInvariant / EncodePredicate are `encodeInvariant(I, args,
// tag)` / `encodePredicate(P, args, tag)`: since this repo represents
// templates as Go closures already instantiated to a concrete
// logic.Formula (internal/config), "instantiation by substitution"
// has already happened by the time this package sees the formula —
// these are thin wrappers kept so call sites read the way spec.md
// names the operation.
func (e *Encoder) EncodeInvariant(inv config.NodeInvariant, node config.NodeView, tag Tag) (smt.Term, error) {
	return e.EncodeFormula(inv(node), tag)
}

func (e *Encoder) EncodePredicate(pred config.ContainsKeyPredicate, node config.NodeView, key logic.Expr, tag Tag) (smt.Term, error) {
	return e.EncodeFormula(pred(node, key), tag)
}

// EncodeFormula lowers a compound formula. Separating conjunction
// collapses to ordinary conjunction at the SMT level: footprint
// disjointness (the reason `*` is separating rather than plain `∧`)
// is enforced earlier, by internal/flowgraph's keyset-laminarity
// check over the explored footprint, not by this encoding.
func (e *Encoder) EncodeFormula(f logic.Formula, tag Tag) (smt.Term, error) {
	switch v := f.(type) {
	case logic.Atom:
		return e.EncodeAxiom(v.Axiom, tag)
	case logic.SepConj:
		terms := make([]smt.Term, len(v.Conjuncts))
		for i, c := range v.Conjuncts {
			t, err := e.EncodeFormula(c, tag)
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		return smt.And(terms...), nil
	case logic.SepImplies:
		premise, err := e.EncodeFormula(v.Premise, tag)
		if err != nil {
			return nil, err
		}
		conclusion, err := e.EncodeFormula(v.Conclusion, tag)
		if err != nil {
			return nil, err
		}
		return smt.Implies(premise, conclusion), nil
	case logic.Not:
		inner, err := e.EncodeFormula(v.Inner, tag)
		if err != nil {
			return nil, err
		}
		return smt.Not(inner), nil
	}
	return nil, &EncodingError{Reason: fmt.Sprintf("unknown formula kind %T", f)}
}

// EncodeAnnotation lowers every conjunct of an annotation's current
// (now) formula; past/future predicates are not part of the two-state
// step query and are encoded separately by the solver when a
// particular past/future obligation is being discharged.
func (e *Encoder) EncodeAnnotation(a logic.Annotation, tag Tag) (smt.Term, error) {
	return e.EncodeFormula(a.Now, tag)
}
