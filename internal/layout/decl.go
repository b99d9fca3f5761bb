package layout

import (
	"strconv"
	"strings"
)

// FieldDecl is one field as produced by a front-end.
type FieldDecl struct {
	Name string
	// Type is a primitive name or a structure name.
	Type string
	// ArrayLen is the element count, all dimensions multiplied; 0 for scalars.
	ArrayLen int
	// BitWidth marks a bit-field when non-zero.
	BitWidth int
}

// StructDecl is one structure declaration: a name and its fields in
// declaration order.
type StructDecl struct {
	Name   string
	Fields []FieldDecl
}

func (f FieldDecl) IsArray() bool {
	return f.ArrayLen > 0
}

func (f FieldDecl) IsBitField() bool {
	return f.BitWidth > 0
}

// String renders the field roughly as it would appear in C.
func (f FieldDecl) String() string {
	var b strings.Builder
	b.WriteString(f.Type)
	b.WriteByte(' ')
	b.WriteString(f.Name)
	if f.ArrayLen > 0 {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(f.ArrayLen))
		b.WriteByte(']')
	}
	if f.BitWidth > 0 {
		b.WriteString(" : ")
		b.WriteString(strconv.Itoa(f.BitWidth))
	}
	return b.String()
}
