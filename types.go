package cstruct

import (
	"github.com/zavdimka/cstruct/codec"
	"github.com/zavdimka/cstruct/internal/layout"
)

// Declarations
type (
	FieldDecl  = layout.FieldDecl
	StructDecl = layout.StructDecl
)

// Resolved layouts
type (
	Layout = layout.Struct
	Field  = layout.Field
)

// Values
type (
	Value    = codec.Value
	Int      = codec.Int
	Uint     = codec.Uint
	Float    = codec.Float
	Sequence = codec.Sequence
	Member   = codec.Member
	Struct   = codec.Struct
)

// Memory
type (
	Memory = codec.Memory
	Bytes  = codec.Bytes
)

// NewBytes returns an in-process Memory backed by buf.
func NewBytes(buf []byte) *Bytes {
	return codec.NewBytes(buf)
}
