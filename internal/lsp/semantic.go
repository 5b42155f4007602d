package lsp

import (
	"github.com/nyu-acsys/flowcert/internal/ast"
)

// SemanticToken is a single LSP semantic token entry. Line and
// StartChar are 0-based; TokenType indexes SemanticTokenTypes and
// TokenModifiers is a bitmask over SemanticTokenModifiers.
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

func collectSemanticTokens(program *ast.Program) []SemanticToken {
	var tokens []SemanticToken
	if program == nil {
		return tokens
	}
	for _, m := range program.Modules {
		tokens = append(tokens, walkModule(m)...)
	}
	return tokens
}

func walkModule(m *ast.Module) []SemanticToken {
	var tokens []SemanticToken

	if m.Name.Value != "" {
		tokens = append(tokens, makeToken(m.Name.Pos, m.Name.Value, "namespace", 0))
	}

	for _, s := range m.Structs {
		tokens = append(tokens, walkStruct(s)...)
	}
	for _, g := range m.Globals {
		if g.Name.Value != "" {
			tokens = append(tokens, makeToken(g.Name.Pos, g.Name.Value, "variable", 1))
		}
	}
	for _, f := range m.Functions {
		tokens = append(tokens, walkFunction(f)...)
	}

	return tokens
}

func walkStruct(s *ast.Struct) []SemanticToken {
	var tokens []SemanticToken
	if s.Name.Value != "" {
		tokens = append(tokens, makeToken(s.Name.Pos, s.Name.Value, "type", 1))
	}
	for _, field := range s.Fields {
		tokens = append(tokens, makeToken(field.Name.Pos, field.Name.Value, "property", 1))
	}
	return tokens
}

func walkFunction(f *ast.Function) []SemanticToken {
	var tokens []SemanticToken

	if f.Name.Value != "" {
		tokens = append(tokens, makeToken(f.Name.Pos, f.Name.Value, "function", 1))
	}
	for _, p := range f.Params {
		tokens = append(tokens, makeToken(p.Name.Pos, p.Name.Value, "parameter", 0))
	}
	if f.Body != nil {
		tokens = append(tokens, walkBlock(f.Body)...)
	}

	return tokens
}

func walkBlock(b *ast.Block) []SemanticToken {
	var tokens []SemanticToken
	for _, stmt := range b.Statements {
		tokens = append(tokens, walkStmt(stmt)...)
	}
	return tokens
}

func walkStmt(stmt ast.Stmt) []SemanticToken {
	var tokens []SemanticToken

	switch s := stmt.(type) {
	case *ast.AssignStmt:
		tokens = append(tokens, makeToken(s.Target.Pos, s.Target.Value, "variable", 0))
		tokens = append(tokens, walkExpr(s.Value)...)
	case *ast.DerefAssignStmt:
		tokens = append(tokens, walkExpr(s.Target)...)
		tokens = append(tokens, walkExpr(s.Value)...)
	case *ast.MallocStmt:
		tokens = append(tokens, makeToken(s.Target.Pos, s.Target.Value, "variable", 1))
	case *ast.CasStmt:
		if s.Result != nil {
			tokens = append(tokens, makeToken(s.Result.Pos, s.Result.Value, "variable", 1))
		}
		tokens = append(tokens, walkExpr(s.Dst)...)
		tokens = append(tokens, walkExpr(s.Cmp)...)
		tokens = append(tokens, walkExpr(s.Src)...)
	case *ast.AssumeStmt:
		tokens = append(tokens, walkExpr(s.Cond)...)
	case *ast.AssertStmt:
		tokens = append(tokens, walkExpr(s.Cond)...)
	case *ast.IfStmt:
		tokens = append(tokens, walkExpr(s.Cond)...)
		tokens = append(tokens, walkBlock(s.Then)...)
		if s.Else != nil {
			tokens = append(tokens, walkBlock(s.Else)...)
		}
	case *ast.WhileStmt:
		tokens = append(tokens, walkExpr(s.Cond)...)
		tokens = append(tokens, walkBlock(s.Body)...)
	case *ast.DoWhileStmt:
		tokens = append(tokens, walkBlock(s.Body)...)
		tokens = append(tokens, walkExpr(s.Cond)...)
	case *ast.AtomicStmt:
		tokens = append(tokens, walkBlock(s.Body)...)
	case *ast.ChooseStmt:
		tokens = append(tokens, walkBlock(s.Left)...)
		tokens = append(tokens, walkBlock(s.Right)...)
	case *ast.CallStmt:
		for _, a := range s.Assign {
			tokens = append(tokens, makeToken(a.Pos, a.Value, "variable", 0))
		}
		tokens = append(tokens, makeToken(s.Callee.Pos, s.Callee.Value, "function", 0))
		for _, arg := range s.Args {
			tokens = append(tokens, walkExpr(arg)...)
		}
	case *ast.ReturnStmt:
		for _, v := range s.Values {
			tokens = append(tokens, walkExpr(v)...)
		}
	}

	return tokens
}

func walkExpr(expr ast.Expr) []SemanticToken {
	var tokens []SemanticToken
	if expr == nil {
		return tokens
	}

	switch e := expr.(type) {
	case *ast.BinaryExpr:
		tokens = append(tokens, walkExpr(e.Left)...)
		tokens = append(tokens, walkExpr(e.Right)...)
	case *ast.UnaryExpr:
		tokens = append(tokens, walkExpr(e.Value)...)
	case *ast.DerefExpr:
		tokens = append(tokens, walkExpr(e.Base)...)
		tokens = append(tokens, makeToken(e.Field.Pos, e.Field.Value, "property", 0))
	case *ast.CallExpr:
		tokens = append(tokens, makeToken(e.Callee.Pos, e.Callee.Value, "function", 0))
		for _, a := range e.Args {
			tokens = append(tokens, walkExpr(a)...)
		}
	case *ast.IdentExpr:
		tokens = append(tokens, makeToken(e.Name.Pos, e.Name.Value, "variable", 0))
	case *ast.ParenExpr:
		tokens = append(tokens, walkExpr(e.Value)...)
	}

	return tokens
}

func makeToken(pos ast.Position, value, tokenType string, decl int) SemanticToken {
	line := uint32(0)
	if pos.Line > 0 {
		line = uint32(pos.Line - 1)
	}
	char := uint32(0)
	if pos.Column > 0 {
		char = uint32(pos.Column - 1)
	}

	return SemanticToken{
		Line:           line,
		StartChar:      char,
		Length:         uint32(len(value)),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: decl << indexOf("declaration", SemanticTokenModifiers),
	}
}

func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}
