package grammar

import (
	"fmt"
	"strings"
)

func indent(level int) string {
	return strings.Repeat("    ", level)
}

func (p *Program) String() string {
	var b strings.Builder
	for _, s := range p.SourceElements {
		b.WriteString(s.StringWithIndent(0))
	}
	return b.String()
}

func (s *SourceElement) StringWithIndent(level int) string {
	if s.Comment != nil {
		return s.Comment.String() + "\n"
	}
	if s.Module != nil {
		return s.Module.StringWithIndent(level) + "\n"
	}
	return ""
}

func (c *Comment) String() string { return c.Text }
func (d *DocComment) String() string { return d.Text }

func (m *Module) StringWithIndent(level int) string {
	var b strings.Builder
	if m.DocComment != nil {
		b.WriteString(indent(level) + m.DocComment.String() + "\n")
	}
	b.WriteString(fmt.Sprintf("%smodule %s {\n", indent(level), m.Name))
	for _, s := range m.Structs {
		b.WriteString(s.StringWithIndent(level + 1))
	}
	for _, g := range m.Globals {
		b.WriteString(indent(level+1) + g.String() + "\n")
	}
	for _, f := range m.Functions {
		b.WriteString(f.StringWithIndent(level + 1))
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (s *Struct) StringWithIndent(level int) string {
	var b strings.Builder
	if s.DocComment != nil {
		b.WriteString(indent(level) + s.DocComment.String() + "\n")
	}
	b.WriteString(fmt.Sprintf("%sstruct %s {\n", indent(level), s.Name))
	for _, f := range s.Fields {
		b.WriteString(indent(level+1) + f.String() + "\n")
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (f *StructField) String() string {
	return fmt.Sprintf("%s: %s,", f.Name, f.Type.String())
}

func (t *Type) String() string {
	if t.Ptr != nil {
		return fmt.Sprintf("Ptr<%s>", *t.Ptr)
	}
	return t.Sort
}

func (g *GlobalVar) String() string {
	kind := "local"
	if g.Shared {
		kind = "shared"
	}
	return fmt.Sprintf("%s %s: %s;", kind, g.Name, g.Type.String())
}

func (f *Function) StringWithIndent(level int) string {
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
	b.WriteString(fmt.Sprintf("fun %s(", f.Name))
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
	b.WriteString(" " + f.Body.StringWithIndent(level))
	return b.String()
}

func (p *FunctionParam) String() string {
	return fmt.Sprintf("%s: %s", p.Name, p.Type.String())
}

func (blk *Block) StringWithIndent(level int) string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, s := range blk.Statements {
		b.WriteString(s.StringWithIndent(level + 1))
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (s *Statement) StringWithIndent(level int) string {
	in := indent(level)
	switch {
	case s.Comment != nil:
		return in + s.Comment.String() + "\n"
	case s.Skip != nil:
		return in + "skip;\n"
	case s.Break != nil:
		return in + "break;\n"
	case s.Continue != nil:
		return in + "continue;\n"
	case s.Return != nil:
		return in + s.Return.String() + "\n"
	case s.Assume != nil:
		return in + fmt.Sprintf("assume(%s);\n", s.Assume.Cond.String())
	case s.Assert != nil:
		return in + fmt.Sprintf("assert(%s);\n", s.Assert.Cond.String())
	case s.Malloc != nil:
		return in + fmt.Sprintf("%s = malloc(%s);\n", s.Malloc.Target, s.Malloc.Type)
	case s.Cas != nil:
		return in + s.Cas.String() + "\n"
	case s.DerefAssign != nil:
		return in + fmt.Sprintf("%s->%s = %s;\n", s.DerefAssign.Target.Base, s.DerefAssign.Target.Field, s.DerefAssign.Value.String())
	case s.Assign != nil:
		return in + fmt.Sprintf("%s = %s;\n", s.Assign.Target, s.Assign.Value.String())
	case s.If != nil:
		return in + s.If.StringWithIndent(level)
	case s.While != nil:
		return in + s.While.StringWithIndent(level)
	case s.DoWhile != nil:
		return in + s.DoWhile.StringWithIndent(level)
	case s.Atomic != nil:
		return in + "atomic " + s.Atomic.Body.StringWithIndent(level)
	case s.Choose != nil:
		return in + s.Choose.StringWithIndent(level)
	case s.Call != nil:
		return in + s.Call.String() + "\n"
	}
	return ""
}

func (r *ReturnStmt) String() string {
	if len(r.Values) == 0 {
		return "return;"
	}
	var vs []string
	for _, v := range r.Values {
		vs = append(vs, v.String())
	}
	return "return " + strings.Join(vs, ", ") + ";"
}

func (c *CasStmt) String() string {
	prefix := ""
	if c.Result != nil {
		prefix = *c.Result + " = "
	}
	return fmt.Sprintf("%sCAS(%s->%s, %s, %s);", prefix, c.Dst.Base, c.Dst.Field, c.Cmp.String(), c.Src.String())
}

func (i *IfStmt) StringWithIndent(level int) string {
	s := fmt.Sprintf("if (%s) %s", i.Cond.String(), i.Then.StringWithIndent(level))
	if i.Else != nil {
		s = strings.TrimSuffix(s, "\n") + " else " + i.Else.StringWithIndent(level)
	}
	return s
}

func (w *WhileStmt) StringWithIndent(level int) string {
	return fmt.Sprintf("while (%s) %s", w.Cond.String(), w.Body.StringWithIndent(level))
}

func (d *DoWhileStmt) StringWithIndent(level int) string {
	s := "do " + d.Body.StringWithIndent(level)
	return strings.TrimSuffix(s, "\n") + fmt.Sprintf(" while (%s);\n", d.Cond.String())
}

func (c *ChooseStmt) StringWithIndent(level int) string {
	s := "choose " + c.Left.StringWithIndent(level)
	return strings.TrimSuffix(s, "\n") + " " + c.Right.StringWithIndent(level)
}

func (c *CallStmt) String() string {
	prefix := ""
	if len(c.Assign) > 0 {
		prefix = strings.Join(c.Assign, ", ") + " = "
	}
	var args []string
	for _, a := range c.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s%s(%s);", prefix, c.Callee, strings.Join(args, ", "))
}

func (e *Expr) String() string {
	if e.Binary != nil {
		return e.Binary.String()
	}
	return ""
}

func (b *BinaryExpr) String() string {
	s := b.Left.String()
	for _, op := range b.Ops {
		s += " " + op.String()
	}
	return s
}

func (b *BinOp) String() string {
	return fmt.Sprintf("%s %s", b.Operator, b.Right.String())
}

func (u *UnaryExpr) String() string {
	var b strings.Builder
	if u.Operator != nil {
		b.WriteString(*u.Operator)
	}
	b.WriteString(u.Value.String())
	return b.String()
}

func (p *PostfixExpr) String() string {
	s := p.Primary.String()
	for _, f := range p.Fields {
		s += "->" + f
	}
	return s
}

func (p *PrimaryExpr) String() string {
	switch {
	case p.Null != nil:
		return "null"
	case p.Min != nil:
		return "MIN"
	case p.Max != nil:
		return "MAX"
	case p.True != nil:
		return "true"
	case p.False != nil:
		return "false"
	case p.Number != nil:
		return *p.Number
	case p.Call != nil:
		return p.Call.String()
	case p.Ident != nil:
		return *p.Ident
	case p.Parens != nil:
		return "(" + p.Parens.String() + ")"
	}
	return ""
}

func (c *CallExpr) String() string {
	var args []string
	for _, a := range c.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}
