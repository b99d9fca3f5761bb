// Package errors provides structured error types for the cstruct module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: structure name, field path, C type name,
// buffer offsets, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePack, errors.KindTypeMismatch).
//		Struct("Packet").
//		Path("header", "len").
//		Type("uint16_t").
//		Detail("got sequence").
//		Build()
//
// Or use convenience constructors for the common cases:
//
//	err := errors.UnknownStructure(errors.PhaseUnpack, "Packet")
//	err := errors.TruncatedBuffer("Packet", path, 12, 4, 14)
//
// All errors implement the standard error interface and work with the
// standard library's errors.Is and errors.As. The Err* sentinels match on
// kind alone:
//
//	import stderrors "errors"
//
//	if stderrors.Is(err, errors.ErrCircularDependency) { ... }
package errors
