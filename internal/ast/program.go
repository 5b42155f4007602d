package ast

// Decl is any module-level declaration: a Struct, a GlobalVar, a
// Function, or a BadDecl.
type Decl interface {
	Node
	isDecl()
}

// Program is the whole of one source file: a sequence of modules and
// the comments standing between them.
type Program struct {
	Pos      Position
	EndPos   Position
	Modules  []*Module
	metadata *Metadata
}

// Module declares one set of record types, shared/local variables, and
// interface/macro functions (spec.md §6).
type Module struct {
	Pos        Position
	EndPos     Position
	DocComment *DocComment
	Name       Ident
	Structs    []*Struct
	Globals    []*GlobalVar
	Functions  []*Function
	metadata   *Metadata
}

// Struct declares a nominal record type: an ordered field list, each
// field carrying its own type (spec.md §3 "Types").
type Struct struct {
	Pos        Position
	EndPos     Position
	DocComment *DocComment
	Name       Ident
	Fields     []*StructField
	metadata   *Metadata
}

func (s *Struct) isDecl() {}

type StructField struct {
	Pos      Position
	EndPos   Position
	Name     Ident
	Type     *TypeRef
	metadata *Metadata
}

// TypeRef is either a bare sort (Bool, Data, Void) or Ptr<Record>
// naming a pointer to a declared record type.
type TypeRef struct {
	Pos      Position
	EndPos   Position
	Sort     string // "Bool", "Data", "Void", or "Ptr"
	PtrTo    *Ident // set when Sort == "Ptr"
	metadata *Metadata
}

// GlobalVar declares a module-level variable; Shared makes it visible
// to every thread, otherwise it is thread-local (spec.md §3 "Program
// variables").
type GlobalVar struct {
	Pos      Position
	EndPos   Position
	Shared   bool
	Name     Ident
	Type     *TypeRef
	metadata *Metadata
}

func (g *GlobalVar) isDecl() {}

// Function is tagged Interface (an API entry point, verified in
// isolation) or left as a macro (inlined at every call site), per
// spec.md §6.
type Function struct {
	Pos        Position
	EndPos     Position
	DocComment *DocComment
	Interface  bool
	Name       Ident
	Params     []*FunctionParam
	Returns    []*TypeRef
	Body       *Block
	metadata   *Metadata
}

func (f *Function) isDecl() {}

type FunctionParam struct {
	Pos      Position
	EndPos   Position
	Name     Ident
	Type     *TypeRef
	metadata *Metadata
}

// Block is a brace-delimited sequence of statements, the unit a scope
// in internal/program corresponds to.
type Block struct {
	Pos        Position
	EndPos     Position
	Statements []Stmt
	metadata   *Metadata
}

func (p *Program) NodePos() Position       { return p.Pos }
func (p *Program) NodeEndPos() Position    { return p.EndPos }
func (*Program) NodeType() NodeType        { return PROGRAM }
func (p *Program) GetMetadata() *Metadata  { return p.metadata }
func (p *Program) SetMetadata(m *Metadata) { p.metadata = m }

func (m *Module) NodePos() Position       { return m.Pos }
func (m *Module) NodeEndPos() Position    { return m.EndPos }
func (*Module) NodeType() NodeType        { return MODULE }
func (m *Module) GetMetadata() *Metadata  { return m.metadata }
func (m *Module) SetMetadata(md *Metadata) { m.metadata = md }

func (s *Struct) NodePos() Position       { return s.Pos }
func (s *Struct) NodeEndPos() Position    { return s.EndPos }
func (*Struct) NodeType() NodeType        { return STRUCT }
func (s *Struct) GetMetadata() *Metadata  { return s.metadata }
func (s *Struct) SetMetadata(m *Metadata) { s.metadata = m }

func (sf *StructField) NodePos() Position       { return sf.Pos }
func (sf *StructField) NodeEndPos() Position    { return sf.EndPos }
func (*StructField) NodeType() NodeType         { return STRUCT_FIELD }
func (sf *StructField) GetMetadata() *Metadata  { return sf.metadata }
func (sf *StructField) SetMetadata(m *Metadata) { sf.metadata = m }

func (t *TypeRef) NodePos() Position       { return t.Pos }
func (t *TypeRef) NodeEndPos() Position    { return t.EndPos }
func (*TypeRef) NodeType() NodeType        { return TYPE_REF }
func (t *TypeRef) GetMetadata() *Metadata  { return t.metadata }
func (t *TypeRef) SetMetadata(m *Metadata) { t.metadata = m }

func (g *GlobalVar) NodePos() Position       { return g.Pos }
func (g *GlobalVar) NodeEndPos() Position    { return g.EndPos }
func (*GlobalVar) NodeType() NodeType        { return GLOBAL_VAR }
func (g *GlobalVar) GetMetadata() *Metadata  { return g.metadata }
func (g *GlobalVar) SetMetadata(m *Metadata) { g.metadata = m }

func (f *Function) NodePos() Position       { return f.Pos }
func (f *Function) NodeEndPos() Position    { return f.EndPos }
func (*Function) NodeType() NodeType        { return FUNCTION }
func (f *Function) GetMetadata() *Metadata  { return f.metadata }
func (f *Function) SetMetadata(m *Metadata) { f.metadata = m }

func (fp *FunctionParam) NodePos() Position       { return fp.Pos }
func (fp *FunctionParam) NodeEndPos() Position    { return fp.EndPos }
func (*FunctionParam) NodeType() NodeType         { return FUNCTION_PARAM }
func (fp *FunctionParam) GetMetadata() *Metadata  { return fp.metadata }
func (fp *FunctionParam) SetMetadata(m *Metadata) { fp.metadata = m }

func (b *Block) NodePos() Position       { return b.Pos }
func (b *Block) NodeEndPos() Position    { return b.EndPos }
func (*Block) NodeType() NodeType        { return BLOCK }
func (b *Block) GetMetadata() *Metadata  { return b.metadata }
func (b *Block) SetMetadata(m *Metadata) { b.metadata = m }
