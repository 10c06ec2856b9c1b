// Package model defines the plain data structures shared by the oracle
// synthesis pipeline.
package model

import "fmt"

// VoidType is the declared type of a statement that produces no value.
const VoidType = "void"

// VarRef identifies the value produced by the statement at Position.
// It is used as a map key and never mutated after creation.
type VarRef struct {
	Position int
	Type     string
}

// NewVarRef constructs a VarRef for the statement at position.
func NewVarRef(position int, typ string) VarRef {
	return VarRef{Position: position, Type: typ}
}

// IsVoid reports whether the reference holds no value.
func (v VarRef) IsVoid() bool {
	return v.Type == "" || v.Type == VoidType
}

// Name is the identifier used when a check is rendered.
func (v VarRef) Name() string {
	return fmt.Sprintf("v%d", v.Position)
}

func (v VarRef) String() string {
	return fmt.Sprintf("%s:%s", v.Name(), v.Type)
}

// Less orders references by position, then by declared type.
func (v VarRef) Less(other VarRef) bool {
	if v.Position != other.Position {
		return v.Position < other.Position
	}

	return v.Type < other.Type
}

// Builtin reports whether the declared type is a predeclared scalar type.
// Such values are compared with == and cmp.Compare instead of Equal and
// Compare methods.
func (v VarRef) Builtin() bool {
	_, ok := builtinTypes[v.Type]
	return ok
}

var builtinTypes = map[string]struct{}{
	"bool": {}, "string": {}, "byte": {}, "rune": {},
	"int": {}, "int8": {}, "int16": {}, "int32": {}, "int64": {},
	"uint": {}, "uint8": {}, "uint16": {}, "uint32": {}, "uint64": {}, "uintptr": {},
	"float32": {}, "float64": {},
}

// CompatibleWith reports whether two references may be compared with each other.
// Self-comparison is never compatible.
func (v VarRef) CompatibleWith(other VarRef) bool {
	if v == other || v.IsVoid() || other.IsVoid() {
		return false
	}

	return v.Type == other.Type
}
