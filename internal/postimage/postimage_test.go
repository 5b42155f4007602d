package postimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/encoding"
	perrors "github.com/nyu-acsys/flowcert/internal/errors"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/program"
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/symbols"
	"github.com/nyu-acsys/flowcert/internal/types"
)

// nodeType is a minimal two-field record (a sorted-list-style node)
// shared by every test in this file.
func nodeType() *types.RecordType {
	return &types.RecordType{
		Name: "Node",
		Sort: types.Ptr,
		Fields: []types.FieldDecl{
			{Name: "val", Sort: types.Data},
			{Name: "next", Sort: types.Ptr},
		},
	}
}

func trivialConfig() *config.Config {
	nt := nodeType()
	return &config.Config{
		MaxFootprintDepth: 4,
		FlowDomain: config.FlowDomain{
			NodeType: nt,
			Monotone: true,
			Outflow: map[string]config.OutflowPredicate{
				"next": func(node config.NodeView, field string, key logic.Expr) logic.Formula {
					return logic.And() // never forwards: keeps the footprint flat for these tests
				},
			},
			Contains: func(node config.NodeView, key logic.Expr) logic.Formula {
				return logic.And() // membership isn't exercised by the assume/assert/malloc/assign tests
			},
		},
		SharedNodeInvariant: func(node config.NodeView) logic.Formula { return logic.And() },
		LocalNodeInvariant:  func(node config.NodeView) logic.Formula { return logic.And() },
	}
}

func newEngine() *Engine {
	enc := encoding.NewEncoder()
	return NewEngine(trivialConfig(), enc, smt.NewMockBackend())
}

func TestPostMallocBindsVariableAndInstallsMemoryAxiom(t *testing.T) {
	e := newEngine()
	pool := symbols.NewPool()
	factory := symbols.NewFactory(pool)

	n := &program.Variable{Name: "n", Type: nodeType()}
	pre := logic.NewAnnotation(logic.And())

	next, effects, err := e.Post(pre, program.Malloc(n), pool)
	require.NoError(t, err)
	assert.Nil(t, effects)

	sym, ok := lookupVar(next.Now, "n")
	require.True(t, ok)
	mem, ok := lookupMemory(next.Now, sym)
	require.True(t, ok)
	assert.Equal(t, logic.Local, mem.Kind)
	assert.Contains(t, mem.Fields, "val")
	assert.Contains(t, mem.Fields, "next")

	obs := obligations(next.Now)
	assert.Empty(t, obs)
	_ = factory
}

func TestPostAssignReadsMallocedField(t *testing.T) {
	e := newEngine()
	pool := symbols.NewPool()

	n := &program.Variable{Name: "n", Type: nodeType()}
	x := &program.Variable{Name: "x", Sort: types.Data}

	pre := logic.NewAnnotation(logic.And())
	afterMalloc, _, err := e.Post(pre, program.Malloc(n), pool)
	require.NoError(t, err)

	rhs := program.FieldOf(program.Var(n), "val", types.Data)
	afterAssign, effects, err := e.Post(afterMalloc, program.Assign(x, rhs), pool)
	require.NoError(t, err)
	assert.Nil(t, effects)

	nSym, _ := lookupVar(afterAssign.Now, "n")
	mem, _ := lookupMemory(afterAssign.Now, nSym)
	xSym, ok := lookupVar(afterAssign.Now, "x")
	require.True(t, ok)
	assert.Equal(t, mem.Fields["val"].Sort(), xSym.Sort())
}

func TestPostAssumeNarrowsState(t *testing.T) {
	e := newEngine()
	pool := symbols.NewPool()

	n := &program.Variable{Name: "n", Type: nodeType()}
	pre := logic.NewAnnotation(logic.And())
	afterMalloc, _, err := e.Post(pre, program.Malloc(n), pool)
	require.NoError(t, err)

	cond := program.Binary(program.OpEq, program.FieldOf(program.Var(n), "next", types.Ptr), program.Null())
	next, effects, err := e.Post(afterMalloc, program.Assume(cond), pool)
	require.NoError(t, err)
	assert.Nil(t, effects)
	assert.Greater(t, len(logic.Conjuncts(next.Now)), len(logic.Conjuncts(afterMalloc.Now)))
}

// TestPostAssertEntailedSucceeds exercises the one shape of entailment
// smt.MockBackend's naive syntactic contradiction check can actually
// decide: a premise with exactly one real conjunct, proven against a
// candidate built the same way, so premise and ¬candidate land as
// exact syntactic negatives.
func TestPostAssertEntailedSucceeds(t *testing.T) {
	e := newEngine()
	ax, err := logic.NewStackAxiom(logic.Eq, logic.Null(), logic.Null())
	require.NoError(t, err)
	pre := logic.NewAnnotation(logic.And(logic.NewAtom(ax)))

	cond := program.Binary(program.OpEq, program.Null(), program.Null())
	next, effects, err := e.Post(pre, program.Assert(cond), nil)
	require.NoError(t, err)
	assert.Nil(t, effects)
	assert.NotNil(t, next.Now)
}

// TestPostAssertUnknownIsRejected checks the conservative-false default
// (spec.md §4.3): an assertion the backend cannot prove raises
// InvariantViolationKind rather than being silently accepted.
func TestPostAssertUnknownIsRejected(t *testing.T) {
	e := newEngine()
	ax, err := logic.NewStackAxiom(logic.Eq, logic.Null(), logic.Null())
	require.NoError(t, err)
	pre := logic.NewAnnotation(logic.And(logic.NewAtom(ax)))

	cond := program.Binary(program.OpEq, program.Min(), program.Max())
	_, _, err = e.Post(pre, program.Assert(cond), nil)
	require.Error(t, err)
	verr, ok := err.(*perrors.VerifierError)
	require.True(t, ok)
	assert.Equal(t, perrors.InvariantViolationKind, verr.Kind)
}

// TestPostDerefAssignRejectsUnprovenInvariant documents a genuine limit
// of smt.MockBackend rather than a postDerefAssign defect: proving a
// node invariant holds in NEXT requires real quantifier reasoning over
// the background frame axioms (DataDomainAxioms, TransitionMaintains*),
// which the naive syntactic backend can only ever see as one opaque,
// non-matching term. Positive-path coverage of postDerefAssign belongs
// to the end-to-end scenario tests run against a real SMT backend.
func TestPostDerefAssignRejectsUnprovenInvariant(t *testing.T) {
	e := newEngine()
	pool := symbols.NewPool()

	n := &program.Variable{Name: "n", Type: nodeType()}
	pre := logic.NewAnnotation(logic.And())
	afterMalloc, _, err := e.Post(pre, program.Malloc(n), pool)
	require.NoError(t, err)

	stmt := program.DerefAssign(program.Var(n), "val", program.Min())
	_, _, err = e.Post(afterMalloc, stmt, pool)
	require.Error(t, err)
}
