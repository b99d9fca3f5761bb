// Package cstruct resolves packed C structure layouts and converts between
// byte buffers and structured values.
//
// Declarations describe structures as ordered fields: a primitive C type, a
// previously declared structure, a fixed-length array of either, or an
// unsigned bit-field. Layouts are tightly packed with no alignment padding.
// Consecutive bit-fields share a storage unit sized by the first field's type
// until the next width would overflow it.
//
// # Packages
//
//	cstruct/            Registry facade, options and type aliases
//	├── codec/          Value variant, Decoder and Encoder
//	├── memory/         wazero linear memory adapter
//	├── header/         C header and YAML declaration front-ends
//	├── dump/           layout and value tree printing
//	├── config/         tool configuration
//	├── errors/         structured error types
//	└── internal/       primitive table, layout resolver, bit helpers
//
// # Quick Start
//
//	reg := cstruct.New(cstruct.WithEndian("little"))
//	err := reg.Ingest(cstruct.StructDecl{
//	    Name: "Point",
//	    Fields: []cstruct.FieldDecl{
//	        {Name: "x", Type: "int"},
//	        {Name: "y", Type: "int"},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := reg.Resolve(); err != nil {
//	    log.Fatal(err)
//	}
//
//	buf, err := reg.Pack(cstruct.Struct{{Name: "x", Value: cstruct.Int(1)}}, "Point")
//	// buf == 01 00 00 00 00 00 00 00
//
//	v, err := reg.Unpack(buf, "Point")
//	// v == {x: 1, y: 0}
//
// # Lifecycle
//
// A Registry accepts declarations until Resolve succeeds. Resolve computes
// every layout at once and either publishes all of them or none. After that
// the registry is read-only and Pack, Unpack and the lookup methods may be
// called from any number of goroutines.
//
// # Errors
//
// Every error is an *errors.Error carrying a phase, a kind and the dotted
// path of the field involved:
//
//	[unpack] truncated_buffer in ObjectState at history[1].x: need 2 bytes at offset 23, buffer length 24
//
// Match them with the standard library's errors.Is and the sentinels of
// the errors package:
//
//	import stderrors "errors"
//
//	if stderrors.Is(err, errors.ErrUnknownStructure) { ... }
package cstruct
