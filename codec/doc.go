// Package codec converts between packed bytes and Values using resolved
// structure layouts.
//
// Decoding walks the fields of a layout.Struct with an explicit cursor:
//
//	dec := codec.NewDecoder(binary.LittleEndian)
//	v, err := dec.Decode(buf, st)
//	x, _ := v.Get("x")
//
// Encoding is the inverse and always produces exactly st.Size bytes:
//
//	enc := codec.NewEncoder(binary.LittleEndian)
//	buf, err := enc.Encode(codec.Struct{{Name: "x", Value: codec.Int(1)}}, st)
//
// # Values
//
// Signed integers decode to Int, unsigned integers and all bit-fields to
// Uint, floats to Float. Arrays become a Sequence and nested structures a
// Struct. Bit-fields are never sign extended.
//
// # Memory
//
// DecodeFromMemory and EncodeToMemory work against any Memory, such as a
// Bytes buffer or a wrapped WebAssembly linear memory.
package codec
