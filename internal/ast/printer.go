package ast

import (
	"fmt"
	"strings"
)

func indent(level int) string { return strings.Repeat("    ", level) }

func (p *Program) String() string {
	var b strings.Builder
	for _, m := range p.Modules {
		b.WriteString(m.stringIndent(0))
	}
	return b.String()
}

func (i *Ident) String() string { return i.Value }

func (dc *DocComment) String() string { return dc.Text }
func (c *Comment) String() string     { return c.Text }

func (bd *BadDecl) String() string { return fmt.Sprintf("BadDecl: %s", bd.Bad.Message) }
func (bs *BadStmt) String() string { return fmt.Sprintf("BadStmt: %s", bs.Bad.Message) }
func (be *BadExpr) String() string { return fmt.Sprintf("BadExpr: %s", be.Bad.Message) }

func (m *Module) String() string { return m.stringIndent(0) }

func (m *Module) stringIndent(level int) string {
	var b strings.Builder
	if m.DocComment != nil {
		b.WriteString(indent(level) + m.DocComment.String() + "\n")
	}
	b.WriteString(fmt.Sprintf("%smodule %s {\n", indent(level), m.Name.Value))
	for _, s := range m.Structs {
		b.WriteString(s.stringIndent(level + 1))
	}
	for _, g := range m.Globals {
		b.WriteString(indent(level+1) + g.String() + "\n")
	}
	for _, f := range m.Functions {
		b.WriteString(f.stringIndent(level + 1))
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (s *Struct) String() string { return s.stringIndent(0) }

func (s *Struct) stringIndent(level int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%sstruct %s {\n", indent(level), s.Name.Value))
	for _, f := range s.Fields {
		b.WriteString(indent(level+1) + f.String() + "\n")
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (f *StructField) String() string {
	return fmt.Sprintf("%s: %s,", f.Name.Value, f.Type.String())
}

func (t *TypeRef) String() string {
	if t.Sort == "Ptr" {
		return fmt.Sprintf("Ptr<%s>", t.PtrTo.Value)
	}
	return t.Sort
}

func (g *GlobalVar) String() string {
	kind := "local"
	if g.Shared {
		kind = "shared"
	}
	return fmt.Sprintf("%s %s: %s;", kind, g.Name.Value, g.Type.String())
}

func (f *Function) String() string { return f.stringIndent(0) }

func (f *Function) stringIndent(level int) string {
	var b strings.Builder
	if f.DocComment != nil {
		b.WriteString(indent(level) + f.DocComment.String() + "\n")
	}
	b.WriteString(indent(level))
	if f.Interface {
		b.WriteString("interface ")
	} else {
		b.WriteString("macro ")
	}
	b.WriteString(fmt.Sprintf("fun %s(", f.Name.Value))
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(")")
	if len(f.Returns) > 0 {
		var rs []string
		for _, r := range f.Returns {
			rs = append(rs, r.String())
		}
		b.WriteString(": " + strings.Join(rs, ", "))
	}
	b.WriteString(" " + f.Body.stringIndent(level))
	return b.String()
}

func (p *FunctionParam) String() string {
	return fmt.Sprintf("%s: %s", p.Name.Value, p.Type.String())
}

func (blk *Block) String() string { return blk.stringIndent(0) }

func (blk *Block) stringIndent(level int) string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, s := range blk.Statements {
		b.WriteString(indent(level+1) + stmtString(s, level+1) + "\n")
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func stmtString(s Stmt, level int) string {
	switch st := s.(type) {
	case *SkipStmt:
		return "skip;"
	case *BreakStmt:
		return "break;"
	case *ContinueStmt:
		return "continue;"
	case *ReturnStmt:
		if len(st.Values) == 0 {
			return "return;"
		}
		var vs []string
		for _, v := range st.Values {
			vs = append(vs, v.String())
		}
		return "return " + strings.Join(vs, ", ") + ";"
	case *AssumeStmt:
		return fmt.Sprintf("assume(%s);", st.Cond.String())
	case *AssertStmt:
		return fmt.Sprintf("assert(%s);", st.Cond.String())
	case *MallocStmt:
		return fmt.Sprintf("%s = malloc(%s);", st.Target.Value, st.Type.Value)
	case *CasStmt:
		prefix := ""
		if st.Result != nil {
			prefix = st.Result.Value + " = "
		}
		return fmt.Sprintf("%sCAS(%s, %s, %s);", prefix, st.Dst.String(), st.Cmp.String(), st.Src.String())
	case *DerefAssignStmt:
		return fmt.Sprintf("%s = %s;", st.Target.String(), st.Value.String())
	case *AssignStmt:
		return fmt.Sprintf("%s = %s;", st.Target.Value, st.Value.String())
	case *IfStmt:
		out := fmt.Sprintf("if (%s) %s", st.Cond.String(), st.Then.stringIndent(level))
		if st.Else != nil {
			out = strings.TrimSuffix(out, "\n") + " else " + st.Else.stringIndent(level)
		}
		return out
	case *WhileStmt:
		return fmt.Sprintf("while (%s) %s", st.Cond.String(), st.Body.stringIndent(level))
	case *DoWhileStmt:
		out := "do " + st.Body.stringIndent(level)
		return strings.TrimSuffix(out, "\n") + fmt.Sprintf(" while (%s);", st.Cond.String())
	case *AtomicStmt:
		return "atomic " + st.Body.stringIndent(level)
	case *ChooseStmt:
		out := "choose " + st.Left.stringIndent(level)
		return strings.TrimSuffix(out, "\n") + " " + st.Right.stringIndent(level)
	case *CallStmt:
		prefix := ""
		if len(st.Assign) > 0 {
			var names []string
			for _, a := range st.Assign {
				names = append(names, a.Value)
			}
			prefix = strings.Join(names, ", ") + " = "
		}
		var args []string
		for _, a := range st.Args {
			args = append(args, a.String())
		}
		return fmt.Sprintf("%s%s(%s);", prefix, st.Callee.Value, strings.Join(args, ", "))
	case *BadStmt:
		return st.String()
	default:
		return ""
	}
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.Left.String(), e.Operator, e.Right.String())
}

func (e *UnaryExpr) String() string {
	return e.Operator + e.Value.String()
}

func (d *DerefExpr) String() string {
	return fmt.Sprintf("%s->%s", d.Base.String(), d.Field.Value)
}

func (e *CallExpr) String() string {
	var args []string
	for _, a := range e.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", e.Callee.Value, strings.Join(args, ", "))
}

func (e *IdentExpr) String() string { return e.Name.Value }
func (e *IntLiteral) String() string { return e.Value }
func (e *BoolLiteral) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}
func (e *NullLiteral) String() string { return "null" }
func (e *MinLiteral) String() string  { return "MIN" }
func (e *MaxLiteral) String() string  { return "MAX" }
func (e *ParenExpr) String() string   { return "(" + e.Value.String() + ")" }
