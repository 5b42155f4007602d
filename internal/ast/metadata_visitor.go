package ast

// MetadataVisitor walks a parsed Program once, assigning each node a
// NodeID/SourceRange/SourceText/ParentID so internal/lsp can answer a
// hover or goto-definition request by NodeID lookup instead of
// re-walking the tree from the root on every keystroke.
type MetadataVisitor struct {
	tracker    *NodeTracker
	sourceText string
}

func NewMetadataVisitor(sourceText string) *MetadataVisitor {
	return &MetadataVisitor{tracker: NewNodeTracker(), sourceText: sourceText}
}

func (mv *MetadataVisitor) Tracker() *NodeTracker { return mv.tracker }

func (mv *MetadataVisitor) Assign(node Node, parentID NodeID) {
	if node == nil {
		return
	}

	id := mv.tracker.GenerateID()
	start, end := node.NodePos(), node.NodeEndPos()
	meta := &Metadata{
		NodeID:     id,
		Source:     CreateSourceRange(start, end),
		SourceText: mv.extract(start, end),
		ParentID:   parentID,
	}
	node.SetMetadata(meta)
	mv.tracker.SetMetadata(id, meta)

	mv.visitChildren(node, id)
}

func (mv *MetadataVisitor) extract(start, end Position) string {
	if mv.sourceText == "" || start.Offset < 0 || end.Offset < 0 ||
		start.Offset > len(mv.sourceText) || end.Offset > len(mv.sourceText) || start.Offset > end.Offset {
		return ""
	}
	return mv.sourceText[start.Offset:end.Offset]
}

func (mv *MetadataVisitor) visitChildren(node Node, parentID NodeID) {
	switch n := node.(type) {
	case *Program:
		for _, m := range n.Modules {
			mv.Assign(m, parentID)
		}
	case *Module:
		mv.Assign(&n.Name, parentID)
		for _, s := range n.Structs {
			mv.Assign(s, parentID)
		}
		for _, g := range n.Globals {
			mv.Assign(g, parentID)
		}
		for _, f := range n.Functions {
			mv.Assign(f, parentID)
		}
	case *Struct:
		mv.Assign(&n.Name, parentID)
		for _, f := range n.Fields {
			mv.Assign(f, parentID)
		}
	case *StructField:
		mv.Assign(&n.Name, parentID)
		mv.Assign(n.Type, parentID)
	case *TypeRef:
		if n.PtrTo != nil {
			mv.Assign(n.PtrTo, parentID)
		}
	case *GlobalVar:
		mv.Assign(&n.Name, parentID)
		mv.Assign(n.Type, parentID)
	case *Function:
		mv.Assign(&n.Name, parentID)
		for _, p := range n.Params {
			mv.Assign(p, parentID)
		}
		for _, r := range n.Returns {
			mv.Assign(r, parentID)
		}
		mv.Assign(n.Body, parentID)
	case *FunctionParam:
		mv.Assign(&n.Name, parentID)
		mv.Assign(n.Type, parentID)
	case *Block:
		for _, s := range n.Statements {
			mv.Assign(s, parentID)
		}
	case *ReturnStmt:
		for _, e := range n.Values {
			mv.Assign(e, parentID)
		}
	case *AssumeStmt:
		mv.Assign(n.Cond, parentID)
	case *AssertStmt:
		mv.Assign(n.Cond, parentID)
	case *MallocStmt:
		mv.Assign(&n.Target, parentID)
		mv.Assign(&n.Type, parentID)
	case *CasStmt:
		mv.Assign(n.Dst, parentID)
		mv.Assign(n.Cmp, parentID)
		mv.Assign(n.Src, parentID)
	case *DerefAssignStmt:
		mv.Assign(n.Target, parentID)
		mv.Assign(n.Value, parentID)
	case *AssignStmt:
		mv.Assign(&n.Target, parentID)
		mv.Assign(n.Value, parentID)
	case *IfStmt:
		mv.Assign(n.Cond, parentID)
		mv.Assign(n.Then, parentID)
		if n.Else != nil {
			mv.Assign(n.Else, parentID)
		}
	case *WhileStmt:
		mv.Assign(n.Cond, parentID)
		mv.Assign(n.Body, parentID)
	case *DoWhileStmt:
		mv.Assign(n.Body, parentID)
		mv.Assign(n.Cond, parentID)
	case *AtomicStmt:
		mv.Assign(n.Body, parentID)
	case *ChooseStmt:
		mv.Assign(n.Left, parentID)
		mv.Assign(n.Right, parentID)
	case *CallStmt:
		for i := range n.Assign {
			mv.Assign(&n.Assign[i], parentID)
		}
		mv.Assign(&n.Callee, parentID)
		for _, a := range n.Args {
			mv.Assign(a, parentID)
		}
	case *DerefExpr:
		mv.Assign(n.Base, parentID)
		mv.Assign(&n.Field, parentID)
	case *BinaryExpr:
		mv.Assign(n.Left, parentID)
		mv.Assign(n.Right, parentID)
	case *UnaryExpr:
		mv.Assign(n.Value, parentID)
	case *CallExpr:
		mv.Assign(&n.Callee, parentID)
		for _, a := range n.Args {
			mv.Assign(a, parentID)
		}
	case *IdentExpr:
		mv.Assign(&n.Name, parentID)
	case *ParenExpr:
		mv.Assign(n.Value, parentID)
	}
}
