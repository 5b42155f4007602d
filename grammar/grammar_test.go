package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyu-acsys/flowcert/grammar"
)

const sortedListSource = `
// a sorted singly-linked list set
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

    macro fun findPred(k: Data) : Ptr<Node> {
        pred = head;
        while (pred->next->val < k) {
            pred = pred->next;
        }
        return pred;
    }
}
`

func TestParseSortedListModule(t *testing.T) {
	program, err := grammar.ParseSource("sorted_list.flow", sortedListSource)
	require.NoError(t, err)
	require.NotNil(t, program)
	require.Len(t, program.SourceElements, 2)

	assert.NotNil(t, program.SourceElements[0].Comment)

	module := program.SourceElements[1].Module
	require.NotNil(t, module)
	assert.Equal(t, "SortedList", module.Name)

	require.Len(t, module.Structs, 1)
	node := module.Structs[0]
	assert.Equal(t, "Node", node.Name)
	require.Len(t, node.Fields, 2)
	assert.Equal(t, "val", node.Fields[0].Name)
	assert.Equal(t, "Data", node.Fields[0].Type.Sort)
	assert.Equal(t, "next", node.Fields[1].Name)
	require.NotNil(t, node.Fields[1].Type.Ptr)
	assert.Equal(t, "Node", *node.Fields[1].Type.Ptr)

	require.Len(t, module.Globals, 1)
	assert.True(t, module.Globals[0].Shared)
	assert.Equal(t, "head", module.Globals[0].Name)

	require.Len(t, module.Functions, 2)

	contains := module.Functions[0]
	assert.True(t, contains.Interface)
	assert.Equal(t, "contains", contains.Name)
	require.Len(t, contains.Params, 1)
	require.Len(t, contains.Returns, 1)
	assert.Equal(t, "Bool", contains.Returns[0].Sort)
	require.Len(t, contains.Body.Statements, 3)
	require.NotNil(t, contains.Body.Statements[1].Atomic)
	require.NotNil(t, contains.Body.Statements[1].Atomic.Body.Statements[0].While)

	findPred := module.Functions[1]
	assert.True(t, findPred.Macro)
	assert.Equal(t, "findPred", findPred.Name)
}

func TestParseMallocAndDerefAssign(t *testing.T) {
	src := `
module M {
    struct Node { val: Data, next: Ptr<Node> }

    interface fun push(v: Data) {
        n = malloc(Node);
        n->val = v;
        n->next = null;
    }
}
`
	program, err := grammar.ParseSource("push.flow", src)
	require.NoError(t, err)
	module := program.SourceElements[0].Module
	require.NotNil(t, module)

	body := module.Functions[0].Body.Statements
	require.Len(t, body, 3)
	require.NotNil(t, body[0].Malloc)
	assert.Equal(t, "n", body[0].Malloc.Target)
	assert.Equal(t, "Node", body[0].Malloc.Type)

	require.NotNil(t, body[1].DerefAssign)
	assert.Equal(t, "n", body[1].DerefAssign.Target.Base)
	assert.Equal(t, "val", body[1].DerefAssign.Target.Field)
}
