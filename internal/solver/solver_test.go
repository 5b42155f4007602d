package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/encoding"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/postimage"
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/symbols"
	"github.com/nyu-acsys/flowcert/internal/types"
)

func trivialConfig() *config.Config {
	nt := &types.RecordType{
		Name: "Node",
		Sort: types.Ptr,
		Fields: []types.FieldDecl{
			{Name: "val", Sort: types.Data},
			{Name: "next", Sort: types.Ptr},
		},
	}
	return &config.Config{
		MaxFootprintDepth: 4,
		FlowDomain: config.FlowDomain{
			NodeType: nt,
			Monotone: true,
			Outflow: map[string]config.OutflowPredicate{
				"next": func(node config.NodeView, field string, key logic.Expr) logic.Formula { return logic.And() },
			},
			Contains: func(node config.NodeView, key logic.Expr) logic.Formula { return logic.And() },
		},
		SharedNodeInvariant: func(node config.NodeView) logic.Formula { return logic.And() },
		LocalNodeInvariant:  func(node config.NodeView) logic.Formula { return logic.And() },
	}
}

func newSolver() *Solver {
	enc := encoding.NewEncoder()
	return New(trivialConfig(), enc, smt.NewMockBackend())
}

func eqAxiom(t *testing.T, lhs, rhs logic.Expr) logic.Formula {
	t.Helper()
	ax, err := logic.NewStackAxiom(logic.Eq, lhs, rhs)
	require.NoError(t, err)
	return logic.NewAtom(ax)
}

func TestJoinSingleAnnotationPassesThrough(t *testing.T) {
	s := newSolver()
	a := logic.NewAnnotation(logic.And(eqAxiom(t, logic.Null(), logic.Null())))
	joined, err := s.Join([]logic.Annotation{a})
	require.NoError(t, err)
	assert.Equal(t, a.Now, joined.Now)
}

// TestJoinIntersectsCommonConjunctsAndDropsDivergent exercises the
// syntactic-intersection step of join directly: a conjunct common to
// both inputs survives, while conjuncts unique to one side are not
// re-added, since smt.MockBackend's naive syntactic check can never
// prove an arbitrary multi-term premise (this repo's background
// sentinel axioms alone contribute two conjuncts) entails something
// it wasn't handed verbatim — the same structural limit documented
// for internal/postimage's deref-assign tests.
func TestJoinIntersectsCommonConjunctsAndDropsDivergent(t *testing.T) {
	s := newSolver()
	common := eqAxiom(t, logic.Null(), logic.Null())
	left := logic.NewAnnotation(logic.And(common, eqAxiom(t, logic.Min(), logic.Min())))
	right := logic.NewAnnotation(logic.And(common, eqAxiom(t, logic.Max(), logic.Max())))

	joined, err := s.Join([]logic.Annotation{left, right})
	require.NoError(t, err)

	conjuncts := logic.Conjuncts(joined.Now)
	require.Len(t, conjuncts, 1)
}

func TestJoinUnionsPastAndFuturePredicatesWithDedup(t *testing.T) {
	s := newSolver()
	shared := logic.PastPredicate{Formula: eqAxiom(t, logic.Null(), logic.Null())}
	left := logic.NewAnnotation(logic.And())
	left.Past = []logic.PastPredicate{shared, {Formula: eqAxiom(t, logic.Min(), logic.Min())}}
	right := logic.NewAnnotation(logic.And())
	right.Past = []logic.PastPredicate{shared}

	joined, err := s.Join([]logic.Annotation{left, right})
	require.NoError(t, err)
	assert.Len(t, joined.Past, 2)
}

func TestMakeStableIsNoopWithoutEffects(t *testing.T) {
	s := newSolver()
	pre := logic.NewAnnotation(logic.And(eqAxiom(t, logic.Null(), logic.Null())))
	next, err := s.MakeStable(pre, nil)
	require.NoError(t, err)
	assert.Equal(t, pre.Now, next.Now)
}

// TestMakeStableDropsEverythingUnderMockBackend documents the same
// structural limit as the join test above: stability of a conjunct
// under a real effect requires proving an entailment over a premise
// with several real conjuncts (the pre-state, the effect's context,
// its pre/post cell, and the frame conditions), which smt.MockBackend
// can never certify. Positive stability coverage belongs to
// internal/verifier's end-to-end scenario tests against a real
// backend.
func TestMakeStableDropsEverythingUnderMockBackend(t *testing.T) {
	s := newSolver()
	pool := symbols.NewPool()
	factory := symbols.NewFactory(pool)

	addr := factory.FreshFOHint(types.Ptr, "a")
	flow := factory.FreshSOHint("f")
	val := factory.FreshFOHint(types.Data, "val")
	nxt := factory.FreshFOHint(types.Ptr, "next")
	mem := logic.MemoryAxiom{Kind: logic.Shared, Addr: addr, Flow: flow, Fields: map[string]symbols.Symbol{"val": val, "next": nxt}}

	pre := logic.NewAnnotation(logic.And(logic.NewAtom(mem), eqAxiom(t, logic.Null(), logic.Null())))
	eff := postimage.Effect{Pre: mem, Post: mem, Context: logic.And()}

	next, err := s.MakeStable(pre, []postimage.Effect{eff})
	require.NoError(t, err)
	assert.Empty(t, logic.Conjuncts(next.Now))
}

func TestIsPureStackClassifiesStackOnlyFormulas(t *testing.T) {
	stackOnly := logic.And(eqAxiom(t, logic.Null(), logic.Null()), eqAxiom(t, logic.Min(), logic.Max()))
	assert.True(t, isPureStack(stackOnly))

	mem := logic.MemoryAxiom{Kind: logic.Local, Addr: symbols.Symbol{}, Flow: symbols.Symbol{}, Fields: map[string]symbols.Symbol{}}
	withMemory := logic.And(eqAxiom(t, logic.Null(), logic.Null()), logic.NewAtom(mem))
	assert.False(t, isPureStack(withMemory))
}

func TestSyntacticallyContainsMatchesSubsetOfConjuncts(t *testing.T) {
	a := logic.And(eqAxiom(t, logic.Null(), logic.Null()), eqAxiom(t, logic.Min(), logic.Min()))
	bSubset := logic.And(eqAxiom(t, logic.Null(), logic.Null()))
	bExtra := logic.And(eqAxiom(t, logic.Max(), logic.Max()))

	assert.True(t, syntacticallyContains(a, bSubset))
	assert.False(t, syntacticallyContains(a, bExtra))
}

// TestContextImpliesFastPathAvoidsBackend shows the cheap syntactic
// subsumption path original_source's effect-subsumption check carries
// (src/prover/verifyimpl/effects.cpp): when b's context is pure stack
// and syntactically contained in a's, contextImplies succeeds without
// ever constructing a checker.
func TestContextImpliesFastPathAvoidsBackend(t *testing.T) {
	s := newSolver()
	a := logic.And(eqAxiom(t, logic.Null(), logic.Null()), eqAxiom(t, logic.Min(), logic.Min()))
	b := logic.And(eqAxiom(t, logic.Null(), logic.Null()))

	ok, err := s.contextImplies(a, b)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestComputeEffectImplicationsConservativeFalseWhenUnproven documents
// that, absent the syntactic fast path, subsuming even a reflexive
// pair of effects is unprovable under smt.MockBackend — the wrapped
// memory-axiom premise never reduces to a single matching term.
func TestComputeEffectImplicationsConservativeFalseWhenUnproven(t *testing.T) {
	s := newSolver()
	pool := symbols.NewPool()
	factory := symbols.NewFactory(pool)
	addr := factory.FreshFOHint(types.Ptr, "a")
	flow := factory.FreshSOHint("f")
	mem := logic.MemoryAxiom{Kind: logic.Shared, Addr: addr, Flow: flow, Fields: map[string]symbols.Symbol{"val": factory.FreshFOHint(types.Data, "val")}}
	eff := postimage.Effect{Pre: mem, Post: mem, Context: logic.And()}

	results, err := s.ComputeEffectImplications([]postimage.Effect{eff}, []EffectPair{{A: 0, B: 0}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0])
}
