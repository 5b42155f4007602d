package parser

import (
	"fmt"

	"github.com/nyu-acsys/flowcert/internal/ast"
	perrors "github.com/nyu-acsys/flowcert/internal/errors"
	"github.com/nyu-acsys/flowcert/internal/program"
	"github.com/nyu-acsys/flowcert/internal/types"
)

// Lower is the name and type resolution pass that Build leaves out,
// run over an internal/ast.Program,
// producing the typed internal/program.Program the verifier walks.
// Every module's declarations fold into one flat program, since
// internal/program carries no module boundary of its own (SPEC_FULL.md
// §2). Callers run internal/simplify's three passes over every
// ast.Function before calling Lower, so CAS never reaches here.
func Lower(prog *ast.Program) (*program.Program, error) {
	l := &lowerer{
		registry: types.NewRegistry(),
		globals:  map[string]*program.Variable{},
		funcs:    map[string]*program.Function{},
	}

	if err := l.registerStructTypes(prog); err != nil {
		return nil, err
	}
	globals, err := l.registerGlobals(prog)
	if err != nil {
		return nil, err
	}
	order, err := l.predeclareFunctions(prog)
	if err != nil {
		return nil, err
	}
	for _, f := range order {
		pf := l.funcs[f.Name.Value]
		fb := &funcLowerer{lowerer: l, locals: map[string]*program.Variable{}}
		for _, p := range pf.Params {
			fb.locals[p.Name] = p
		}
		body, err := fb.lowerBlock(f.Body)
		if err != nil {
			return nil, err
		}
		pf.Body = program.NewScope(fb.localOrder, body)
	}

	out := &program.Program{Types: l.registry.All(), Globals: globals}
	for _, f := range order {
		out.Functions = append(out.Functions, l.funcs[f.Name.Value])
	}
	return out, nil
}

// lowerer holds the name/type environment shared across every
// module's declarations: the record-type registry, the flat global
// variable namespace, and the flat function namespace (macros and
// interface functions alike are called by a bare name with no module
// qualifier, matching program.Program.Lookup).
type lowerer struct {
	registry *types.Registry
	globals  map[string]*program.Variable
	funcs    map[string]*program.Function
}

func unsupported(site, format string, args ...interface{}) error {
	return perrors.New(perrors.UnsupportedConstructKind, site, fmt.Sprintf(format, args...))
}

// registerStructTypes declares every struct across every module before
// resolving any field, so a field can point to a record type declared
// later in the source or to its own enclosing type (spec.md §3's
// singly-linked and sorted structures are all self-referential this
// way).
func (l *lowerer) registerStructTypes(prog *ast.Program) error {
	for _, m := range prog.Modules {
		for _, s := range m.Structs {
			rt := &types.RecordType{Name: s.Name.Value, Sort: types.Ptr}
			if err := l.registry.Declare(rt); err != nil {
				return unsupported(s.Name.Value, "%s", err.Error())
			}
		}
	}
	for _, m := range prog.Modules {
		for _, s := range m.Structs {
			rt, _ := l.registry.Lookup(s.Name.Value)
			for _, f := range s.Fields {
				fd, err := l.resolveFieldDecl(f.Name.Value, f.Type)
				if err != nil {
					return err
				}
				rt.Fields = append(rt.Fields, fd)
			}
		}
	}
	return nil
}

func (l *lowerer) resolveFieldDecl(name string, t *ast.TypeRef) (types.FieldDecl, error) {
	if t.Sort == "Ptr" {
		target, ok := l.registry.Lookup(t.PtrTo.Value)
		if !ok {
			return types.FieldDecl{}, unsupported(name, "field %s points to undeclared record type %s", name, t.PtrTo.Value)
		}
		return types.FieldDecl{Name: name, Type: target, Sort: types.Ptr}, nil
	}
	return types.FieldDecl{Name: name, Sort: types.Sort(t.Sort)}, nil
}

func (l *lowerer) resolveVariable(name string, t *ast.TypeRef, shared bool) (*program.Variable, error) {
	if t.Sort == "Ptr" {
		target, ok := l.registry.Lookup(t.PtrTo.Value)
		if !ok {
			return nil, unsupported(name, "%s has undeclared record type %s", name, t.PtrTo.Value)
		}
		return &program.Variable{Name: name, Type: target, Shared: shared}, nil
	}
	return &program.Variable{Name: name, Sort: types.Sort(t.Sort), Shared: shared}, nil
}

func (l *lowerer) registerGlobals(prog *ast.Program) ([]*program.Variable, error) {
	var out []*program.Variable
	for _, m := range prog.Modules {
		for _, g := range m.Globals {
			v, err := l.resolveVariable(g.Name.Value, g.Type, g.Shared)
			if err != nil {
				return nil, err
			}
			if _, exists := l.globals[v.Name]; exists {
				return nil, unsupported(v.Name, "global variable %s redeclared", v.Name)
			}
			l.globals[v.Name] = v
			out = append(out, v)
		}
	}
	return out, nil
}

func functionKind(isInterface bool) program.FunctionKind {
	if isInterface {
		return program.Interface
	}
	return program.Macro
}

// predeclareFunctions builds every function's signature (params,
// synthetic return variables) before any body is lowered, so a macro
// call can reference a function declared later in the source or
// recursively call itself.
func (l *lowerer) predeclareFunctions(prog *ast.Program) ([]*ast.Function, error) {
	var order []*ast.Function
	for _, m := range prog.Modules {
		for _, f := range m.Functions {
			if _, exists := l.funcs[f.Name.Value]; exists {
				return nil, unsupported(f.Name.Value, "function %s redeclared", f.Name.Value)
			}
			pf := &program.Function{Name: f.Name.Value, Kind: functionKind(f.Interface)}
			for _, p := range f.Params {
				v, err := l.resolveVariable(p.Name.Value, p.Type, false)
				if err != nil {
					return nil, err
				}
				pf.Params = append(pf.Params, v)
			}
			for i, r := range f.Returns {
				v, err := l.resolveVariable(fmt.Sprintf("%s$ret%d", f.Name.Value, i), r, false)
				if err != nil {
					return nil, err
				}
				pf.Returns = append(pf.Returns, v)
			}
			l.funcs[f.Name.Value] = pf
			order = append(order, f)
		}
	}
	return order, nil
}

// funcLowerer lowers one function body. internal/program.Function has
// a single Scope spanning its whole body (no nested per-block scopes,
// see program.go); a name introduced anywhere by assignment or malloc
// is visible for the rest of the function exactly like the scoping
// dropVariableBindings already assumes.
type funcLowerer struct {
	lowerer    *lowerer
	locals     map[string]*program.Variable
	localOrder []*program.Variable
}

func (fb *funcLowerer) resolveOrDeclareAssignTarget(name string, sort types.Sort, recType *types.RecordType) (*program.Variable, error) {
	if v, ok := fb.locals[name]; ok {
		return v, nil
	}
	if v, ok := fb.lowerer.globals[name]; ok {
		return v, nil
	}
	v := &program.Variable{Name: name, Sort: sort, Type: recType}
	fb.locals[name] = v
	fb.localOrder = append(fb.localOrder, v)
	return v, nil
}

func toProgramPos(p ast.Position) program.Position {
	return program.Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

func (fb *funcLowerer) lowerBlock(b *ast.Block) (*program.Stmt, error) {
	var stmts []*program.Stmt
	for _, s := range b.Statements {
		ls, err := fb.lowerStmt(s)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, ls)
	}
	return program.Sequence(stmts...), nil
}

func (fb *funcLowerer) lowerStmt(s ast.Stmt) (*program.Stmt, error) {
	ls, err := fb.lowerStmtKind(s)
	if err != nil {
		return nil, err
	}
	ls.Pos = toProgramPos(s.NodePos())
	return ls, nil
}

func (fb *funcLowerer) lowerStmtKind(s ast.Stmt) (*program.Stmt, error) {
	switch st := s.(type) {
	case *ast.SkipStmt:
		return program.Skip(), nil
	case *ast.BreakStmt:
		return program.Break(), nil
	case *ast.ContinueStmt:
		return program.Continue(), nil
	case *ast.ReturnStmt:
		values := make([]*program.Expr, 0, len(st.Values))
		for _, v := range st.Values {
			e, _, err := fb.lowerExpr(v)
			if err != nil {
				return nil, err
			}
			values = append(values, e)
		}
		return program.Return(values...), nil
	case *ast.AssumeStmt:
		cond, _, err := fb.lowerExpr(st.Cond)
		if err != nil {
			return nil, err
		}
		return program.Assume(cond), nil
	case *ast.AssertStmt:
		cond, _, err := fb.lowerExpr(st.Cond)
		if err != nil {
			return nil, err
		}
		return program.Assert(cond), nil
	case *ast.MallocStmt:
		rt, ok := fb.lowerer.registry.Lookup(st.Type.Value)
		if !ok {
			return nil, unsupported(st.Target.Value, "malloc of undeclared record type %s", st.Type.Value)
		}
		v, err := fb.resolveOrDeclareAssignTarget(st.Target.Value, types.Ptr, rt)
		if err != nil {
			return nil, err
		}
		return program.Malloc(v), nil
	case *ast.CasStmt:
		return nil, unsupported("", "CAS reached the Program IR builder unsimplified; internal/simplify.DesugarCAS must run first")
	case *ast.DerefAssignStmt:
		base, baseRec, err := fb.lowerExpr(st.Target.Base)
		if err != nil {
			return nil, err
		}
		if baseRec == nil {
			return nil, unsupported(st.Target.Field.Value, "dereference of a non-pointer expression")
		}
		fd, ok := baseRec.Field(st.Target.Field.Value)
		if !ok {
			return nil, unsupported(st.Target.Field.Value, "type %s has no field %s", baseRec.Name, st.Target.Field.Value)
		}
		value, _, err := fb.lowerExpr(st.Value)
		if err != nil {
			return nil, err
		}
		return program.DerefAssign(base, fd.Name, value), nil
	case *ast.AssignStmt:
		value, rtype, err := fb.lowerExpr(st.Value)
		if err != nil {
			return nil, err
		}
		v, err := fb.resolveOrDeclareAssignTarget(st.Target.Value, value.Sort(), rtype)
		if err != nil {
			return nil, err
		}
		return program.Assign(v, value), nil
	case *ast.IfStmt:
		cond, _, err := fb.lowerExpr(st.Cond)
		if err != nil {
			return nil, err
		}
		then, err := fb.lowerBlock(st.Then)
		if err != nil {
			return nil, err
		}
		var els *program.Stmt
		if st.Else != nil {
			els, err = fb.lowerBlock(st.Else)
			if err != nil {
				return nil, err
			}
		}
		return program.If(cond, then, els), nil
	case *ast.WhileStmt:
		cond, _, err := fb.lowerExpr(st.Cond)
		if err != nil {
			return nil, err
		}
		body, err := fb.lowerBlock(st.Body)
		if err != nil {
			return nil, err
		}
		return program.While(cond, body), nil
	case *ast.DoWhileStmt:
		body, err := fb.lowerBlock(st.Body)
		if err != nil {
			return nil, err
		}
		cond, _, err := fb.lowerExpr(st.Cond)
		if err != nil {
			return nil, err
		}
		return program.DoWhile(cond, body), nil
	case *ast.AtomicStmt:
		body, err := fb.lowerBlock(st.Body)
		if err != nil {
			return nil, err
		}
		return program.Atomic(body), nil
	case *ast.ChooseStmt:
		left, err := fb.lowerBlock(st.Left)
		if err != nil {
			return nil, err
		}
		right, err := fb.lowerBlock(st.Right)
		if err != nil {
			return nil, err
		}
		return program.Choose(left, right), nil
	case *ast.CallStmt:
		return fb.lowerCallStmt(st)
	case *ast.BadStmt:
		return nil, unsupported("", "parse-error recovery node reached the Program IR builder: %s", st.Bad.Message)
	}
	return nil, unsupported("", "unhandled statement form %T", s)
}

func (fb *funcLowerer) lowerCallStmt(st *ast.CallStmt) (*program.Stmt, error) {
	callee, ok := fb.lowerer.funcs[st.Callee.Value]
	if !ok {
		return nil, unsupported(st.Callee.Value, "call to undeclared function %s", st.Callee.Value)
	}
	args := make([]*program.Expr, 0, len(st.Args))
	for _, a := range st.Args {
		e, _, err := fb.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	assigns := make([]*program.Variable, 0, len(st.Assign))
	for i, name := range st.Assign {
		var sort types.Sort
		var rtype *types.RecordType
		if i < len(callee.Returns) {
			sort = callee.Returns[i].SortOf()
			rtype = callee.Returns[i].Type
		}
		v, err := fb.resolveOrDeclareAssignTarget(name.Value, sort, rtype)
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, v)
	}
	return program.MacroCall(callee, args, assigns), nil
}

// lowerExpr lowers an ast.Expr into a program.Expr, additionally
// returning the pointed-to record type when the expression's sort is
// Ptr and that type is statically known — information program.Expr
// itself does not carry (its ExprField only records the field's
// Sort), needed here so a chain like `pred->next->val` can resolve
// `val` against `next`'s declared record type.
func (fb *funcLowerer) lowerExpr(e ast.Expr) (*program.Expr, *types.RecordType, error) {
	switch expr := e.(type) {
	case *ast.IdentExpr:
		if v, ok := fb.locals[expr.Name.Value]; ok {
			return program.Var(v), v.Type, nil
		}
		if v, ok := fb.lowerer.globals[expr.Name.Value]; ok {
			return program.Var(v), v.Type, nil
		}
		return nil, nil, unsupported(expr.Name.Value, "reference to undeclared variable %s", expr.Name.Value)
	case *ast.DerefExpr:
		base, baseRec, err := fb.lowerExpr(expr.Base)
		if err != nil {
			return nil, nil, err
		}
		if baseRec == nil {
			return nil, nil, unsupported(expr.Field.Value, "dereference of a non-pointer expression")
		}
		fd, ok := baseRec.Field(expr.Field.Value)
		if !ok {
			return nil, nil, unsupported(expr.Field.Value, "type %s has no field %s", baseRec.Name, expr.Field.Value)
		}
		return program.FieldOf(base, fd.Name, fd.Sort), fd.Type, nil
	case *ast.BinaryExpr:
		op, ok := binOp(expr.Operator)
		if !ok {
			return nil, nil, unsupported(expr.Operator, "unsupported binary operator %s", expr.Operator)
		}
		lhs, _, err := fb.lowerExpr(expr.Left)
		if err != nil {
			return nil, nil, err
		}
		rhs, _, err := fb.lowerExpr(expr.Right)
		if err != nil {
			return nil, nil, err
		}
		return program.Binary(op, lhs, rhs), nil, nil
	case *ast.UnaryExpr:
		if expr.Operator != "!" {
			return nil, nil, unsupported(expr.Operator, "unsupported unary operator %s", expr.Operator)
		}
		inner, _, err := fb.lowerExpr(expr.Value)
		if err != nil {
			return nil, nil, err
		}
		return program.Not(inner), nil, nil
	case *ast.ParenExpr:
		return fb.lowerExpr(expr.Value)
	case *ast.BoolLiteral:
		if expr.Value {
			return program.True(), nil, nil
		}
		return program.False(), nil, nil
	case *ast.NullLiteral:
		return program.Null(), nil, nil
	case *ast.MinLiteral:
		return program.Min(), nil, nil
	case *ast.MaxLiteral:
		return program.Max(), nil, nil
	case *ast.IntLiteral:
		// The Data sort is an uninterpreted, totally ordered domain
		// bounded by MIN/MAX (spec.md §3): configurations compare keys
		// against variables and those two sentinels, never against a
		// concrete literal, and program.Expr has no literal-data kind
		// to lower one into.
		return nil, nil, unsupported(expr.Value, "integer literals are not part of the verified data domain; compare against a variable, MIN, or MAX instead")
	case *ast.CallExpr:
		// Calls are statements (macro inlining), never expressions:
		// program.Expr has no call kind, matching spec.md §4.7's
		// "macro call" being one of the statement forms the verifier
		// loop dispatches, not a value an outer expression folds in.
		return nil, nil, unsupported(expr.Callee.Value, "function call %s used as an expression; calls are only valid as statements", expr.Callee.Value)
	case *ast.BadExpr:
		return nil, nil, unsupported("", "parse-error recovery node reached the Program IR builder: %s", expr.Bad.Message)
	}
	return nil, nil, unsupported("", "unhandled expression form %T", e)
}

func binOp(op string) (program.BinOp, bool) {
	switch op {
	case "==":
		return program.OpEq, true
	case "!=":
		return program.OpNeq, true
	case "<=":
		return program.OpLe, true
	case "<":
		return program.OpLt, true
	case ">=":
		return program.OpGe, true
	case ">":
		return program.OpGt, true
	case "&&":
		return program.OpAnd, true
	case "||":
		return program.OpOr, true
	}
	return 0, false
}
