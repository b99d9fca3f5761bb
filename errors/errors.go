package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseResolve Phase = "resolve" // layout resolution
	PhasePack    Phase = "pack"    // mapping to bytes
	PhaseUnpack  Phase = "unpack"  // bytes to mapping
	PhaseLookup  Phase = "lookup"  // registry queries
	PhaseIngest  Phase = "ingest"  // declaration ingestion
	PhaseParse   Phase = "parse"   // header/YAML front-ends
	PhaseLoad    Phase = "load"    // file loading
	PhaseConfig  Phase = "config"  // configuration
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownType         Kind = "unknown_type"
	KindCircularDependency  Kind = "circular_dependency"
	KindUnsupportedBitField Kind = "unsupported_bitfield"
	KindUnknownStructure    Kind = "unknown_structure"
	KindTruncatedBuffer     Kind = "truncated_buffer"
	KindInvalidDeclaration  Kind = "invalid_declaration"
	KindTypeMismatch        Kind = "type_mismatch"
	KindOverflow            Kind = "overflow"
	KindNotInitialized      Kind = "not_initialized"
	KindFrozen              Kind = "frozen"
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidData         Kind = "invalid_data"
)

// Sentinels for errors.Is checks that only care about the kind.
var (
	ErrUnknownType         = &Error{Kind: KindUnknownType}
	ErrCircularDependency  = &Error{Kind: KindCircularDependency}
	ErrUnsupportedBitField = &Error{Kind: KindUnsupportedBitField}
	ErrUnknownStructure    = &Error{Kind: KindUnknownStructure}
	ErrTruncatedBuffer     = &Error{Kind: KindTruncatedBuffer}
	ErrInvalidDeclaration  = &Error{Kind: KindInvalidDeclaration}
	ErrNotInitialized      = &Error{Kind: KindNotInitialized}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Struct string
	Type   string
	Detail string
	Path   []string
	// Offset and Need are set for buffer errors; -1 when unknown.
	Offset int
	Need   int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Struct != "" {
		b.WriteString(" in ")
		b.WriteString(e.Struct)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
			Need:   -1,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Struct sets the structure name
func (b *Builder) Struct(name string) *Builder {
	b.err.Struct = name
	return b
}

// Type sets the C type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the resolver

// UnknownType creates an error for a field referring to an undeclared type
func UnknownType(structName string, path []string, typeName string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnknownType,
		Struct: structName,
		Path:   path,
		Type:   typeName,
		Detail: fmt.Sprintf("unknown structure type %q", typeName),
		Offset: -1,
		Need:   -1,
	}
}

// CircularDependency creates an error for a structure that contains itself.
// chain lists the structures from the outermost to the repeated one.
func CircularDependency(structName string, chain []string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindCircularDependency,
		Struct: structName,
		Detail: "circular dependency: " + strings.Join(chain, " -> "),
		Value:  chain,
		Offset: -1,
		Need:   -1,
	}
}

// UnsupportedBitField creates an error for a bit-field over a non-integer type
func UnsupportedBitField(structName string, path []string, typeName string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnsupportedBitField,
		Struct: structName,
		Path:   path,
		Type:   typeName,
		Detail: "bit-fields require an integer type",
		Offset: -1,
		Need:   -1,
	}
}

// InvalidDeclaration creates an error for a malformed declaration
func InvalidDeclaration(structName string, path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindInvalidDeclaration,
		Struct: structName,
		Path:   path,
		Detail: detail,
		Offset: -1,
		Need:   -1,
	}
}

// Convenience constructors for the codec and registry

// UnknownStructure creates an error for a name absent from the registry
func UnknownStructure(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownStructure,
		Struct: name,
		Detail: fmt.Sprintf("structure %q not found", name),
		Offset: -1,
		Need:   -1,
	}
}

// TruncatedBuffer creates an error for a read past the end of the input.
// offset is where the failed read started, need is how many bytes it wanted.
func TruncatedBuffer(structName string, path []string, offset, need, length int) *Error {
	return &Error{
		Phase:  PhaseUnpack,
		Kind:   KindTruncatedBuffer,
		Struct: structName,
		Path:   path,
		Detail: "need " + strconv.Itoa(need) + " bytes at offset " + strconv.Itoa(offset) +
			", buffer length " + strconv.Itoa(length),
		Offset: offset,
		Need:   need,
	}
}

// TypeMismatch creates an error for a value of the wrong shape
func TypeMismatch(phase Phase, path []string, got, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Type:   want,
		Detail: "got " + got,
		Offset: -1,
		Need:   -1,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Type:   targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
		Offset: -1,
		Need:   -1,
	}
}

// NotInitialized creates an error for use before resolution
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not resolved", component),
		Offset: -1,
		Need:   -1,
	}
}

// Frozen creates an error for mutation of a resolved registry
func Frozen(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFrozen,
		Detail: fmt.Sprintf("%s is frozen", what),
		Offset: -1,
		Need:   -1,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
		Offset: -1,
		Need:   -1,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
		Offset: -1,
		Need:   -1,
	}
}

// Load creates a file loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
		Offset: -1,
		Need:   -1,
	}
}
