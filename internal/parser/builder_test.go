package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyu-acsys/flowcert/internal/ast"
	"github.com/nyu-acsys/flowcert/internal/parser"
)

const sortedListSource = `
module SortedList {
    struct Node {
        val: Data,
        next: Ptr<Node>,
    }

    shared head: Ptr<Node>;

    interface fun contains(k: Data) : Bool {
        n = head;
        atomic {
            while (n->val < k) {
                n = n->next;
            }
        }
        return n->val == k;
    }

    interface fun push(v: Data) {
        n = malloc(Node);
        n->val = v;
        n->next = null;
        done = CAS(head->next, n, n);
    }
}
`

func TestBuildSortedListModule(t *testing.T) {
	program, err := parser.ParseSource("sorted_list.flow", sortedListSource)
	require.NoError(t, err)
	require.Len(t, program.Modules, 1)

	mod := program.Modules[0]
	assert.Equal(t, "SortedList", mod.Name.Value)
	require.Len(t, mod.Structs, 1)
	assert.Equal(t, "Node", mod.Structs[0].Name.Value)
	require.Len(t, mod.Structs[0].Fields, 2)
	assert.Equal(t, "Ptr", mod.Structs[0].Fields[1].Type.Sort)
	require.NotNil(t, mod.Structs[0].Fields[1].Type.PtrTo)
	assert.Equal(t, "Node", mod.Structs[0].Fields[1].Type.PtrTo.Value)

	require.Len(t, mod.Globals, 1)
	assert.True(t, mod.Globals[0].Shared)

	require.Len(t, mod.Functions, 2)
	contains := mod.Functions[0]
	assert.True(t, contains.Interface)
	require.Len(t, contains.Body.Statements, 3)

	atomic, ok := contains.Body.Statements[1].(*ast.AtomicStmt)
	require.True(t, ok)
	require.Len(t, atomic.Body.Statements, 1)
	while, ok := atomic.Body.Statements[0].(*ast.WhileStmt)
	require.True(t, ok)

	cond, ok := while.Cond.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "<", cond.Operator)
	deref, ok := cond.Left.(*ast.DerefExpr)
	require.True(t, ok)
	assert.Equal(t, "val", deref.Field.Value)

	push := mod.Functions[1]
	require.Len(t, push.Body.Statements, 4)
	malloc, ok := push.Body.Statements[0].(*ast.MallocStmt)
	require.True(t, ok)
	assert.Equal(t, "n", malloc.Target.Value)
	assert.Equal(t, "Node", malloc.Type.Value)

	derefAssign, ok := push.Body.Statements[1].(*ast.DerefAssignStmt)
	require.True(t, ok)
	assert.Equal(t, "val", derefAssign.Target.Field.Value)

	cas, ok := push.Body.Statements[3].(*ast.CasStmt)
	require.True(t, ok)
	require.NotNil(t, cas.Result)
	assert.Equal(t, "done", cas.Result.Value)
	assert.Equal(t, "next", cas.Dst.Field.Value)
}

func TestBuildChainedDerefNestsDerefExpr(t *testing.T) {
	src := `
module M {
    struct Node { val: Data, next: Ptr<Node> }

    macro fun findPred(k: Data) : Ptr<Node> {
        pred = pred->next->val;
        return pred;
    }
}
`
	program, err := parser.ParseSource("chained.flow", src)
	require.NoError(t, err)
	fn := program.Modules[0].Functions[0]
	assign, ok := fn.Body.Statements[0].(*ast.AssignStmt)
	require.True(t, ok)

	outer, ok := assign.Value.(*ast.DerefExpr)
	require.True(t, ok)
	assert.Equal(t, "val", outer.Field.Value)

	inner, ok := outer.Base.(*ast.DerefExpr)
	require.True(t, ok)
	assert.Equal(t, "next", inner.Field.Value)

	base, ok := inner.Base.(*ast.IdentExpr)
	require.True(t, ok)
	assert.Equal(t, "pred", base.Name.Value)
}
