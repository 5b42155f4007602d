package ast

// Position tracks a location in a source file, for error reporting and
// LSP hover/goto support.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

// Node is implemented by every surface-syntax tree node produced by
// internal/parser from a grammar.Program.
type Node interface {
	NodePos() Position
	NodeEndPos() Position
	NodeType() NodeType
	String() string

	GetMetadata() *Metadata
	SetMetadata(*Metadata)
}

// Ident is any identifier: a module, struct, field, variable, or
// function name.
type Ident struct {
	Pos      Position
	EndPos   Position
	Value    string
	metadata *Metadata
}

// BadNode records a construct the builder could not lower, carrying
// enough of the surface text to report a useful diagnostic.
type BadNode struct {
	Pos     Position
	EndPos  Position
	Message string
}

// BadDecl stands in for a module-level declaration the builder
// rejected.
type BadDecl struct {
	Bad      BadNode
	metadata *Metadata
}

// BadStmt stands in for a statement the builder rejected.
type BadStmt struct {
	Bad      BadNode
	metadata *Metadata
}

// BadExpr stands in for an expression the builder rejected.
type BadExpr struct {
	Bad      BadNode
	metadata *Metadata
}

func (i *Ident) NodePos() Position       { return i.Pos }
func (i *Ident) NodeEndPos() Position    { return i.EndPos }
func (*Ident) NodeType() NodeType        { return IDENT }
func (i *Ident) GetMetadata() *Metadata  { return i.metadata }
func (i *Ident) SetMetadata(m *Metadata) { i.metadata = m }

func (bd *BadDecl) NodePos() Position       { return bd.Bad.Pos }
func (bd *BadDecl) NodeEndPos() Position    { return bd.Bad.EndPos }
func (*BadDecl) NodeType() NodeType         { return BAD_DECL }
func (bd *BadDecl) GetMetadata() *Metadata  { return bd.metadata }
func (bd *BadDecl) SetMetadata(m *Metadata) { bd.metadata = m }
func (bd *BadDecl) isDecl()                 {}

func (bs *BadStmt) NodePos() Position       { return bs.Bad.Pos }
func (bs *BadStmt) NodeEndPos() Position    { return bs.Bad.EndPos }
func (*BadStmt) NodeType() NodeType         { return BAD_STMT }
func (bs *BadStmt) GetMetadata() *Metadata  { return bs.metadata }
func (bs *BadStmt) SetMetadata(m *Metadata) { bs.metadata = m }
func (bs *BadStmt) isStmt()                 {}

func (be *BadExpr) NodePos() Position       { return be.Bad.Pos }
func (be *BadExpr) NodeEndPos() Position    { return be.Bad.EndPos }
func (*BadExpr) NodeType() NodeType         { return BAD_EXPR }
func (be *BadExpr) GetMetadata() *Metadata  { return be.metadata }
func (be *BadExpr) SetMetadata(m *Metadata) { be.metadata = m }
func (be *BadExpr) isExpr()                 {}

func (dc *DocComment) NodePos() Position       { return dc.Pos }
func (dc *DocComment) NodeEndPos() Position    { return dc.EndPos }
func (*DocComment) NodeType() NodeType         { return DOC_COMMENT }
func (dc *DocComment) GetMetadata() *Metadata  { return dc.metadata }
func (dc *DocComment) SetMetadata(m *Metadata) { dc.metadata = m }

func (c *Comment) NodePos() Position       { return c.Pos }
func (c *Comment) NodeEndPos() Position    { return c.EndPos }
func (*Comment) NodeType() NodeType        { return COMMENT }
func (c *Comment) GetMetadata() *Metadata  { return c.metadata }
func (c *Comment) SetMetadata(m *Metadata) { c.metadata = m }

// DocComment is a `///`-prefixed documentation comment attached to the
// declaration that follows it.
type DocComment struct {
	Pos      Position
	EndPos   Position
	Text     string
	metadata *Metadata
}

// Comment is a `//`-prefixed comment standing on its own as a
// top-level source element.
type Comment struct {
	Pos      Position
	EndPos   Position
	Text     string
	metadata *Metadata
}
