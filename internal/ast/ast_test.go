package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyu-acsys/flowcert/internal/ast"
)

func pos(offset int) ast.Position { return ast.Position{Filename: "t.flow", Offset: offset, Line: 1, Column: offset + 1} }

func TestStructStringRendersFieldsInOrder(t *testing.T) {
	s := &ast.Struct{
		Pos: pos(0), EndPos: pos(30),
		Name: ast.Ident{Value: "Node"},
		Fields: []*ast.StructField{
			{Name: ast.Ident{Value: "val"}, Type: &ast.TypeRef{Sort: "Data"}},
			{Name: ast.Ident{Value: "next"}, Type: &ast.TypeRef{Sort: "Ptr", PtrTo: &ast.Ident{Value: "Node"}}},
		},
	}
	out := s.String()
	assert.Contains(t, out, "struct Node {")
	assert.Contains(t, out, "val: Data,")
	assert.Contains(t, out, "next: Ptr<Node>,")
}

func TestFunctionStringRendersInterfaceSignature(t *testing.T) {
	f := &ast.Function{
		Pos: pos(0), EndPos: pos(40),
		Interface: true,
		Name:      ast.Ident{Value: "contains"},
		Params:    []*ast.FunctionParam{{Name: ast.Ident{Value: "k"}, Type: &ast.TypeRef{Sort: "Data"}}},
		Returns:   []*ast.TypeRef{{Sort: "Bool"}},
		Body:      &ast.Block{Statements: []ast.Stmt{&ast.SkipStmt{}}},
	}
	out := f.String()
	assert.Contains(t, out, "interface fun contains(k: Data): Bool")
}

func TestDerefAssignStmtNodeTypeAndString(t *testing.T) {
	stmt := &ast.DerefAssignStmt{
		Target: &ast.DerefExpr{Base: &ast.IdentExpr{Name: ast.Ident{Value: "n"}}, Field: ast.Ident{Value: "val"}},
		Value:  &ast.IdentExpr{Name: ast.Ident{Value: "v"}},
	}
	assert.Equal(t, ast.DEREF_ASSIGN_STMT, stmt.NodeType())

	block := &ast.Block{Statements: []ast.Stmt{stmt}}
	assert.Contains(t, block.String(), "n->val = v;")
}

func TestMetadataVisitorAssignsSourceTextAndParent(t *testing.T) {
	source := "module M { struct S { v: Data } }"
	program := &ast.Program{
		Pos: pos(0), EndPos: pos(len(source)),
		Modules: []*ast.Module{
			{
				Pos: pos(0), EndPos: pos(len(source)),
				Name: ast.Ident{Value: "M", Pos: pos(7), EndPos: pos(8)},
				Structs: []*ast.Struct{
					{
						Name: ast.Ident{Value: "S", Pos: pos(18), EndPos: pos(19)},
						Pos:  pos(11), EndPos: pos(31),
						Fields: []*ast.StructField{
							{Name: ast.Ident{Value: "v", Pos: pos(22), EndPos: pos(23)}, Type: &ast.TypeRef{Sort: "Data", Pos: pos(25), EndPos: pos(29)}},
						},
					},
				},
			},
		},
	}

	mv := ast.NewMetadataVisitor(source)
	mv.Assign(program, 0)

	require.NotNil(t, program.GetMetadata())
	assert.EqualValues(t, 0, program.GetMetadata().ParentID)

	module := program.Modules[0]
	require.NotNil(t, module.GetMetadata())
	assert.Equal(t, program.GetMetadata().NodeID, module.GetMetadata().ParentID)

	structField := module.Structs[0].Fields[0]
	require.NotNil(t, structField.GetMetadata())
	assert.Equal(t, "v", structField.Name.GetMetadata().SourceText)
}
