package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/encoding"
	perrors "github.com/nyu-acsys/flowcert/internal/errors"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/logic/util"
	"github.com/nyu-acsys/flowcert/internal/program"
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/symbols"
	"github.com/nyu-acsys/flowcert/internal/types"
)

func newTestFactory() *symbols.Factory {
	return symbols.NewFactory(symbols.NewPool())
}

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
			Outflow: map[string]config.OutflowPredicate{
				"next": func(node config.NodeView, field string, key logic.Expr) logic.Formula { return logic.And() },
			},
			Contains: func(node config.NodeView, key logic.Expr) logic.Formula { return logic.And() },
		},
		SharedNodeInvariant: func(node config.NodeView) logic.Formula { return logic.And() },
		LocalNodeInvariant:  func(node config.NodeView) logic.Formula { return logic.And() },
	}
}

// TestVerifyTrivialLocalFunctionIsLinearizable covers a full Verify
// run that touches no shared state at all: malloc and a plain
// assignment never call the SMT backend for their own post-image
// (internal/postimage's postMalloc/postAssign are purely structural),
// so this is one genuine positive-path, end-to-end exercise smt.
// MockBackend's structural limitation does not block.
func TestVerifyTrivialLocalFunctionIsLinearizable(t *testing.T) {
	cfg := trivialConfig()
	nodeType := cfg.FlowDomain.NodeType
	local := &program.Variable{Name: "n", Type: nodeType}

	body := program.NewScope([]*program.Variable{local}, program.Sequence(
		program.Malloc(local),
		program.Skip(),
	))
	fn := &program.Function{Name: "push_local_only", Kind: program.Interface, Body: body}
	prog := &program.Program{Types: []*types.RecordType{nodeType}, Functions: []*program.Function{fn}}

	v := New(cfg, smt.NewMockBackend())
	outcome := v.Verify(prog)

	require.NoError(t, outcome.Reason)
	assert.Equal(t, Linearizable, outcome.Kind)
	assert.NotEmpty(t, outcome.RunID)
}

func TestClassifyMapsLinearizationFailureToNotLinearizable(t *testing.T) {
	v := &Verifier{}
	err := perrors.Linearization("push, line 3", "keyset disjointness violated", "now: ...", "now: ...")
	outcome := v.classify(err, "run-1")
	assert.Equal(t, NotLinearizable, outcome.Kind)
	assert.Equal(t, "run-1", outcome.RunID)
}

func TestClassifyMapsInvariantViolationToNotLinearizable(t *testing.T) {
	v := &Verifier{}
	err := perrors.New(perrors.InvariantViolationKind, "assert", "condition not entailed")
	outcome := v.classify(err, "run-2")
	assert.Equal(t, NotLinearizable, outcome.Kind)
}

func TestClassifyMapsOtherVerifierErrorKindsToUnknown(t *testing.T) {
	v := &Verifier{}
	err := perrors.New(perrors.UnsupportedConstructKind, "loop", "iteration bound exceeded")
	outcome := v.classify(err, "run-3")
	assert.Equal(t, Unknown, outcome.Kind)
}

func TestClassifyMapsSolverUnknownErrorToUnknown(t *testing.T) {
	v := &Verifier{}
	err := &encoding.SolverUnknownError{Query: "(= a b)"}
	outcome := v.classify(err, "run-4")
	assert.Equal(t, Unknown, outcome.Kind)
}

func TestClassifyMapsConfigurationErrorToUnknown(t *testing.T) {
	v := &Verifier{}
	cfg := &config.Config{}
	err := cfg.Validate()
	require.Error(t, err)
	outcome := v.classify(err, "run-5")
	assert.Equal(t, Unknown, outcome.Kind)
}

func TestDropVariableBindingsRemovesNamedBindingsOnly(t *testing.T) {
	factory := newTestFactory()
	x := logic.NewAtom(logic.EqualsTo{Var: logic.ProgramVar{Name: "x"}, Sym: factory.FreshFOHint(types.Data, "x")})
	y := logic.NewAtom(logic.EqualsTo{Var: logic.ProgramVar{Name: "y"}, Sym: factory.FreshFOHint(types.Data, "y")})
	a := logic.NewAnnotation(logic.And(x, y))

	out := dropVariableBindings(a, []*program.Variable{{Name: "x"}})
	conjuncts := logic.Conjuncts(out.Now)
	require.Len(t, conjuncts, 1)
	assert.True(t, util.SyntacticalEqual(conjuncts[0], y))
}

func TestDropVariableBindingsNoopWithoutLocals(t *testing.T) {
	a := logic.NewAnnotation(logic.And())
	out := dropVariableBindings(a, nil)
	assert.Equal(t, a.Now, out.Now)
}

func TestAnnotationFixedComparesNormalizedForms(t *testing.T) {
	factory := newTestFactory()
	s := factory.FreshFOHint(types.Data, "v")
	a := logic.NewAnnotation(logic.And(logic.NewAtom(logic.EqualsTo{Var: logic.ProgramVar{Name: "v"}, Sym: s})))
	b := logic.NewAnnotation(logic.And(logic.NewAtom(logic.EqualsTo{Var: logic.ProgramVar{Name: "v"}, Sym: s})))
	assert.True(t, annotationFixed(a, b))

	c := logic.NewAnnotation(logic.And())
	assert.False(t, annotationFixed(a, c))
}
