package simplify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyu-acsys/flowcert/internal/ast"
	"github.com/nyu-acsys/flowcert/internal/parser"
	"github.com/nyu-acsys/flowcert/internal/simplify"
)

func parseFunction(t *testing.T, source string) *ast.Function {
	t.Helper()
	program, err := parser.ParseSource("t.flow", source)
	require.NoError(t, err)
	require.Len(t, program.Modules, 1)
	require.NotEmpty(t, program.Modules[0].Functions)
	return program.Modules[0].Functions[0]
}

func TestDesugarCASWrapsSwapInAtomicWithResult(t *testing.T) {
	fn := parseFunction(t, `
module M {
    struct Node { val: Data, next: Ptr<Node> }
    shared head: Ptr<Node>;
    interface fun push(v: Data) {
        done = CAS(head->next, v, v);
    }
}
`)

	simplify.DesugarCAS(fn)

	require.Len(t, fn.Body.Statements, 1)
	choose, ok := fn.Body.Statements[0].(*ast.ChooseStmt)
	require.True(t, ok)

	require.Len(t, choose.Left.Statements, 1)
	atomic, ok := choose.Left.Statements[0].(*ast.AtomicStmt)
	require.True(t, ok)
	require.Len(t, atomic.Body.Statements, 2)
	assume, ok := atomic.Body.Statements[0].(*ast.AssumeStmt)
	require.True(t, ok)
	assert.Equal(t, "head->next == v", assume.Cond.String())
	assign, ok := atomic.Body.Statements[1].(*ast.AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "done", assign.Target.Value)
	assert.Equal(t, "true", assign.Value.String())

	require.Len(t, choose.Right.Statements, 2)
	failAssume, ok := choose.Right.Statements[0].(*ast.AssumeStmt)
	require.True(t, ok)
	assert.Equal(t, "head->next != v", failAssume.Cond.String())
}

func TestDesugarCASSkipsRedundantWriteWhenCmpEqualsSrc(t *testing.T) {
	fn := parseFunction(t, `
module M {
    struct Node { val: Data, next: Ptr<Node> }
    shared head: Ptr<Node>;
    interface fun push(v: Data) {
        done = CAS(head->next, v, v);
    }
}
`)

	simplify.DesugarCAS(fn)

	choose := fn.Body.Statements[0].(*ast.ChooseStmt)
	atomic := choose.Left.Statements[0].(*ast.AtomicStmt)
	// only the assume and the result assignment, no DerefAssignStmt,
	// since cmp ("v") and src ("v") print identically.
	assert.Len(t, atomic.Body.Statements, 2)
}

func TestDesugarCASInsideAtomicSkipsExtraWrapping(t *testing.T) {
	fn := parseFunction(t, `
module M {
    struct Node { val: Data, next: Ptr<Node> }
    shared head: Ptr<Node>;
    interface fun push(v: Data) {
        atomic {
            done = CAS(head->next, v, MAX);
        }
    }
}
`)

	simplify.DesugarCAS(fn)

	atomicStmt := fn.Body.Statements[0].(*ast.AtomicStmt)
	choose := atomicStmt.Body.Statements[0].(*ast.ChooseStmt)
	// left branch is the swap block itself, not wrapped in a nested AtomicStmt
	require.Len(t, choose.Left.Statements, 3)
	_, ok := choose.Left.Statements[0].(*ast.AssumeStmt)
	require.True(t, ok)
}

func TestNormalizeLoopsCollapsesDoWhileTrue(t *testing.T) {
	fn := parseFunction(t, `
module M {
    shared head: Ptr<M>;
    macro fun spin() {
        do {
            skip;
        } while (true);
    }
}
`)

	simplify.NormalizeLoops(fn)

	require.Len(t, fn.Body.Statements, 1)
	while, ok := fn.Body.Statements[0].(*ast.WhileStmt)
	require.True(t, ok)
	assert.Equal(t, "true", while.Cond.String())
	require.Len(t, while.Body.Statements, 1)
}

func TestNormalizeLoopsLeavesConditionalDoWhileAlone(t *testing.T) {
	fn := parseFunction(t, `
module M {
    shared head: Ptr<M>;
    macro fun spin(k: Data) {
        do {
            skip;
        } while (k < MAX);
    }
}
`)

	simplify.NormalizeLoops(fn)

	_, ok := fn.Body.Statements[0].(*ast.DoWhileStmt)
	require.True(t, ok)
}

func TestSimplifyConditionsPushesNegationThroughComparison(t *testing.T) {
	fn := parseFunction(t, `
module M {
    macro fun check(a: Data, b: Data) {
        assume(!(a < b));
    }
}
`)

	simplify.SimplifyConditions(fn)

	assume := fn.Body.Statements[0].(*ast.AssumeStmt)
	assert.Equal(t, "a >= b", assume.Cond.String())
}

func TestSimplifyConditionsAppliesDeMorgan(t *testing.T) {
	fn := parseFunction(t, `
module M {
    macro fun check(a: Data, b: Data) {
        assume(!((a == b) && (a < b)));
    }
}
`)

	simplify.SimplifyConditions(fn)

	assume := fn.Body.Statements[0].(*ast.AssumeStmt)
	assert.Equal(t, "a != b || a >= b", assume.Cond.String())
}

func TestSimplifyConditionsCancelsDoubleNegation(t *testing.T) {
	fn := parseFunction(t, `
module M {
    macro fun check(a: Data, b: Data) {
        assert(!(!(a == b)));
    }
}
`)

	simplify.SimplifyConditions(fn)

	stmt := fn.Body.Statements[0].(*ast.AssertStmt)
	assert.Equal(t, "a == b", stmt.Cond.String())
}
