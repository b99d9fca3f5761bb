// Package layout resolves C structure declarations into byte layouts.
//
// Resolution computes, for every declared structure, its total size, each
// field's byte offset, nested structure references, and bit-field storage
// units. Layouts are tightly packed: there is no alignment padding between
// ordinary fields.
//
// # Bit-field Units
//
// Consecutive bit-fields share a storage unit sized to the primitive of the
// field that opened it. A new unit opens when the next bit-field would not
// fit in the bits left, or after any ordinary field:
//
//	unsigned int a:3;   unit 0, bits 0..2
//	unsigned int b:2;   unit 0, bits 3..4
//	unsigned int c:1;   unit 0, bit 5
//	unsigned int d;     offset 4
//	                    total 8 bytes
//
// A bit-field of a different integer type continues the open unit as long
// as it fits; the unit keeps the width of its first field.
//
// # Errors
//
// Resolution stops at the first error and returns no partial result:
// unknown_type, circular_dependency, unsupported_bitfield or
// invalid_declaration.
//
// This package is internal to cstruct.
package layout
