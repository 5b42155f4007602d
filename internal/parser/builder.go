package parser

import (
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/nyu-acsys/flowcert/grammar"
	"github.com/nyu-acsys/flowcert/internal/ast"
)

// Build restructures a parsed grammar.Program into an internal/ast
// tree. It performs no name or type resolution; Lower (lower.go) does
// that on top of this tree while lowering into internal/program.
func Build(filename string, p *grammar.Program) *ast.Program {
	program := &ast.Program{Pos: toPos(p.Pos), EndPos: toPos(p.EndPos)}
	for _, el := range p.SourceElements {
		if el.Module != nil {
			program.Modules = append(program.Modules, buildModule(el.Module))
		}
	}
	return program
}

func toPos(p lexer.Position) ast.Position {
	return ast.Position{Filename: p.Filename, Offset: p.Offset, Line: p.Line, Column: p.Column}
}

func buildIdent(name string, pos lexer.Position) ast.Ident {
	return ast.Ident{Pos: toPos(pos), EndPos: toPos(pos), Value: name}
}

func buildModule(m *grammar.Module) *ast.Module {
	mod := &ast.Module{
		Pos:    toPos(m.Pos),
		EndPos: toPos(m.EndPos),
		Name:   buildIdent(m.Name, m.Pos),
	}
	if m.DocComment != nil {
		mod.DocComment = &ast.DocComment{Text: m.DocComment.Text}
	}
	for _, s := range m.Structs {
		mod.Structs = append(mod.Structs, buildStruct(s))
	}
	for _, g := range m.Globals {
		mod.Globals = append(mod.Globals, buildGlobal(g))
	}
	for _, f := range m.Functions {
		mod.Functions = append(mod.Functions, buildFunction(f))
	}
	return mod
}

func buildStruct(s *grammar.Struct) *ast.Struct {
	st := &ast.Struct{
		Pos:    toPos(s.Pos),
		EndPos: toPos(s.EndPos),
		Name:   buildIdent(s.Name, s.Pos),
	}
	if s.DocComment != nil {
		st.DocComment = &ast.DocComment{Text: s.DocComment.Text}
	}
	for _, f := range s.Fields {
		st.Fields = append(st.Fields, &ast.StructField{
			Name: buildIdent(f.Name, s.Pos),
			Type: buildType(f.Type),
		})
	}
	return st
}

func buildType(t *grammar.Type) *ast.TypeRef {
	if t.Ptr != nil {
		ptrTo := buildIdent(*t.Ptr, lexer.Position{})
		return &ast.TypeRef{Sort: "Ptr", PtrTo: &ptrTo}
	}
	return &ast.TypeRef{Sort: t.Sort}
}

func buildGlobal(g *grammar.GlobalVar) *ast.GlobalVar {
	return &ast.GlobalVar{
		Shared: g.Shared,
		Name:   buildIdent(g.Name, lexer.Position{}),
		Type:   buildType(g.Type),
	}
}

func buildFunction(f *grammar.Function) *ast.Function {
	fn := &ast.Function{
		Pos:       toPos(f.Pos),
		EndPos:    toPos(f.EndPos),
		Interface: f.Interface,
		Name:      buildIdent(f.Name, f.Pos),
		Body:      buildBlock(f.Body),
	}
	if f.DocComment != nil {
		fn.DocComment = &ast.DocComment{Text: f.DocComment.Text}
	}
	for _, p := range f.Params {
		fn.Params = append(fn.Params, &ast.FunctionParam{
			Name: buildIdent(p.Name, lexer.Position{}),
			Type: buildType(p.Type),
		})
	}
	for _, r := range f.Returns {
		fn.Returns = append(fn.Returns, buildType(r))
	}
	return fn
}

func buildBlock(b *grammar.Block) *ast.Block {
	blk := &ast.Block{}
	for _, s := range b.Statements {
		blk.Statements = append(blk.Statements, buildStmt(s))
	}
	return blk
}

func buildStmt(s *grammar.Statement) ast.Stmt {
	pos, endPos := toPos(s.Pos), toPos(s.EndPos)
	switch {
	case s.Skip != nil:
		return &ast.SkipStmt{Pos: pos, EndPos: endPos}
	case s.Break != nil:
		return &ast.BreakStmt{Pos: pos, EndPos: endPos}
	case s.Continue != nil:
		return &ast.ContinueStmt{Pos: pos, EndPos: endPos}
	case s.Return != nil:
		ret := &ast.ReturnStmt{Pos: pos, EndPos: endPos}
		for _, v := range s.Return.Values {
			ret.Values = append(ret.Values, buildExpr(v))
		}
		return ret
	case s.Assume != nil:
		return &ast.AssumeStmt{Pos: pos, EndPos: endPos, Cond: buildExpr(s.Assume.Cond)}
	case s.Assert != nil:
		return &ast.AssertStmt{Pos: pos, EndPos: endPos, Cond: buildExpr(s.Assert.Cond)}
	case s.Malloc != nil:
		return &ast.MallocStmt{
			Pos: pos, EndPos: endPos,
			Target: buildIdent(s.Malloc.Target, s.Pos),
			Type:   buildIdent(s.Malloc.Type, s.Pos),
		}
	case s.Cas != nil:
		cas := &ast.CasStmt{
			Pos: pos, EndPos: endPos,
			Dst: buildDeref(s.Cas.Dst, s.Pos),
			Cmp: buildExpr(s.Cas.Cmp),
			Src: buildExpr(s.Cas.Src),
		}
		if s.Cas.Result != nil {
			result := buildIdent(*s.Cas.Result, s.Pos)
			cas.Result = &result
		}
		return cas
	case s.DerefAssign != nil:
		return &ast.DerefAssignStmt{
			Pos: pos, EndPos: endPos,
			Target: buildDeref(s.DerefAssign.Target, s.Pos),
			Value:  buildExpr(s.DerefAssign.Value),
		}
	case s.Assign != nil:
		return &ast.AssignStmt{
			Pos: pos, EndPos: endPos,
			Target: buildIdent(s.Assign.Target, s.Pos),
			Value:  buildExpr(s.Assign.Value),
		}
	case s.If != nil:
		ifs := &ast.IfStmt{
			Pos: pos, EndPos: endPos,
			Cond: buildExpr(s.If.Cond),
			Then: buildBlock(s.If.Then),
		}
		if s.If.Else != nil {
			ifs.Else = buildBlock(s.If.Else)
		}
		return ifs
	case s.While != nil:
		return &ast.WhileStmt{
			Pos: pos, EndPos: endPos,
			Cond: buildExpr(s.While.Cond),
			Body: buildBlock(s.While.Body),
		}
	case s.DoWhile != nil:
		return &ast.DoWhileStmt{
			Pos: pos, EndPos: endPos,
			Body: buildBlock(s.DoWhile.Body),
			Cond: buildExpr(s.DoWhile.Cond),
		}
	case s.Atomic != nil:
		return &ast.AtomicStmt{Pos: pos, EndPos: endPos, Body: buildBlock(s.Atomic.Body)}
	case s.Choose != nil:
		return &ast.ChooseStmt{
			Pos: pos, EndPos: endPos,
			Left:  buildBlock(s.Choose.Left),
			Right: buildBlock(s.Choose.Right),
		}
	case s.Call != nil:
		call := &ast.CallStmt{Pos: pos, EndPos: endPos, Callee: buildIdent(s.Call.Callee, s.Pos)}
		for _, a := range s.Call.Assign {
			call.Assign = append(call.Assign, buildIdent(a, s.Pos))
		}
		for _, a := range s.Call.Args {
			call.Args = append(call.Args, buildExpr(a))
		}
		return call
	case s.Comment != nil:
		// A standalone comment inside a block carries no runtime
		// meaning; the builder drops it rather than threading it
		// through as a no-op statement.
		return &ast.SkipStmt{Pos: pos, EndPos: endPos}
	default:
		return &ast.BadStmt{Bad: ast.BadNode{Pos: pos, EndPos: endPos, Message: "unrecognized statement form"}}
	}
}

func buildDeref(d *grammar.Deref, pos lexer.Position) *ast.DerefExpr {
	return &ast.DerefExpr{
		Base:  &ast.IdentExpr{Name: buildIdent(d.Base, pos)},
		Field: buildIdent(d.Field, pos),
	}
}

func buildExpr(e *grammar.Expr) ast.Expr {
	return buildBinary(e.Binary)
}

func buildBinary(b *grammar.BinaryExpr) ast.Expr {
	left := buildUnary(b.Left)
	for _, op := range b.Ops {
		left = &ast.BinaryExpr{Operator: op.Operator, Left: left, Right: buildUnary(op.Right)}
	}
	return left
}

func buildUnary(u *grammar.UnaryExpr) ast.Expr {
	val := buildPostfix(u.Value)
	if u.Operator != nil {
		return &ast.UnaryExpr{Operator: *u.Operator, Value: val}
	}
	return val
}

func buildPostfix(p *grammar.PostfixExpr) ast.Expr {
	expr := buildPrimary(p.Primary)
	for _, field := range p.Fields {
		expr = &ast.DerefExpr{Base: expr, Field: buildIdent(field, lexer.Position{})}
	}
	return expr
}

func buildPrimary(p *grammar.PrimaryExpr) ast.Expr {
	switch {
	case p.Null != nil:
		return &ast.NullLiteral{}
	case p.Min != nil:
		return &ast.MinLiteral{}
	case p.Max != nil:
		return &ast.MaxLiteral{}
	case p.True != nil:
		return &ast.BoolLiteral{Value: true}
	case p.False != nil:
		return &ast.BoolLiteral{Value: false}
	case p.Number != nil:
		return &ast.IntLiteral{Value: *p.Number}
	case p.Call != nil:
		call := &ast.CallExpr{Callee: buildIdent(p.Call.Name, lexer.Position{})}
		for _, a := range p.Call.Args {
			call.Args = append(call.Args, buildExpr(a))
		}
		return call
	case p.Ident != nil:
		return &ast.IdentExpr{Name: buildIdent(*p.Ident, lexer.Position{})}
	case p.Parens != nil:
		return &ast.ParenExpr{Value: buildExpr(p.Parens)}
	default:
		return &ast.BadExpr{Bad: ast.BadNode{Message: "unrecognized primary expression"}}
	}
}
