package types

import "fmt"

// FieldDecl is one entry of a record type's ordered field map.
type FieldDecl struct {
	Name string
	Type *RecordType // nil for scalar-sorted fields (Data/Bool/Ptr-to-anything not yet resolved)
	Sort Sort         // the sort this field evaluates to when read
}

// RecordType is a nominal record declaration: a name, a sort, and an
// ordered field map. Two RecordTypes are equal iff they are the same
// declared object — nominal, never structural (spec.md §3).
type RecordType struct {
	Name   string
	Sort   Sort
	Fields []FieldDecl
}

// Field looks up a declared field by name, returning its declaration
// and whether it exists.
func (rt *RecordType) Field(name string) (FieldDecl, bool) {
	for _, f := range rt.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDecl{}, false
}

// PointerFields returns the fields whose sort is Ptr, in declaration
// order — these are the candidates for flow-graph edges (spec.md §4.4).
func (rt *RecordType) PointerFields() []FieldDecl {
	var out []FieldDecl
	for _, f := range rt.Fields {
		if f.Sort == Ptr {
			out = append(out, f)
		}
	}
	return out
}

func (rt *RecordType) String() string {
	return fmt.Sprintf("%s(%s)", rt.Name, rt.Sort)
}

// Equal is nominal identity: two types are the same iff they are the
// same declared object.
func (rt *RecordType) Equal(other *RecordType) bool {
	return rt == other
}

// Registry resolves record type names to their declarations within a
// single verified program. It is built once by the parser/loader and
// is read-only during verification.
type Registry struct {
	byName map[string]*RecordType
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*RecordType)}
}

// Declare registers a new record type. It returns an error if the name
// is already declared — the caller (internal/parser's Lower) wraps
// this as an unsupported-construct error, not an engine panic.
func (r *Registry) Declare(rt *RecordType) error {
	if _, exists := r.byName[rt.Name]; exists {
		return fmt.Errorf("record type %q already declared", rt.Name)
	}
	r.byName[rt.Name] = rt
	return nil
}

func (r *Registry) Lookup(name string) (*RecordType, bool) {
	rt, ok := r.byName[name]
	return rt, ok
}

func (r *Registry) All() []*RecordType {
	out := make([]*RecordType, 0, len(r.byName))
	for _, rt := range r.byName {
		out = append(out, rt)
	}
	return out
}
