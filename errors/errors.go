package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode   Phase = "encode"   // descriptor to type bytes
	PhaseDecode   Phase = "decode"   // type bytes to descriptor
	PhasePack     Phase = "pack"     // dynamic value to buffer
	PhaseUnpack   Phase = "unpack"   // buffer to dynamic value
	PhaseRelocate Phase = "relocate" // pointer slot relocation
	PhaseRegistry Phase = "registry" // lifecycle registry (internal only)
	PhaseParse    Phase = "parse"    // declaration parsing
	PhasePrint    Phase = "print"    // declaration printing
	PhaseApply    Phase = "apply"    // applying type metadata
	PhaseLibrary  Phase = "library"  // type library access
	PhaseLayout   Phase = "layout"   // size and member offset computation
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindTruncated      Kind = "truncated"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindFieldMissing   Kind = "field_missing"
	KindFieldUnknown   Kind = "field_unknown"
	KindLengthMismatch Kind = "length_mismatch"
	KindOverflow       Kind = "overflow"
	KindUnresolved     Kind = "unresolved"
	KindLimitExceeded  Kind = "limit_exceeded"
	KindNotFound       Kind = "not_found"
	KindClosed         Kind = "closed"
	KindInvalidInput   Kind = "invalid_input"
	KindNoType         Kind = "no_type"
)

// NoOffset marks an error that is not tied to a byte position.
const NoOffset int64 = -1

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
	Offset int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Offset >= 0 {
		b.WriteString(" (offset ")
		b.WriteString(strconv.FormatInt(e.Offset, 10))
		b.WriteByte(')')
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

// Is reports whether target matches this error.
// A target with an empty Kind matches any error of the same phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if e.Phase != t.Phase {
			return false
		}
		return t.Kind == "" || e.Kind == t.Kind
	}
	return false
}

// PathString joins the member path with dots.
func (e *Error) PathString() string {
	return strings.Join(e.Path, ".")
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
			Offset: NoOffset,
		},
	}
}

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = clonePath(path)
	return b
}

// Offset sets the byte offset the failure refers to
func (b *Builder) Offset(off int64) *Builder {
	b.err.Offset = off
	return b
}

// Type sets the printable type name
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

func clonePath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}

// Sentinels for errors.Is matching on phase alone.
var (
	EncodeError     = &Error{Phase: PhaseEncode}
	DecodeError     = &Error{Phase: PhaseDecode}
	PackError       = &Error{Phase: PhasePack}
	UnpackError     = &Error{Phase: PhaseUnpack}
	RelocationError = &Error{Phase: PhaseRelocate}
	ParseError      = &Error{Phase: PhaseParse}
	PrintError      = &Error{Phase: PhasePrint}
	RegistryError   = &Error{Phase: PhaseRegistry}
)

// Convenience constructors for common error patterns

// Truncated creates an error for input that ends before a value is complete
func Truncated(phase Phase, offset int64, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, %d remaining", need, have),
	}
}

// OutOfBounds creates an out of bounds error for a read or write of size bytes at offset
func OutOfBounds(phase Phase, path []string, offset int64, size uint64, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   clonePath(path),
		Offset: offset,
		Detail: fmt.Sprintf("%d bytes at offset %d exceed source length %d", size, offset, length),
		Value:  offset,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, got, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   clonePath(path),
		Offset: NoOffset,
		Type:   want,
		Detail: "value kind " + got,
	}
}

// FieldMissing creates a missing member error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   clonePath(path),
		Offset: NoOffset,
		Detail: fmt.Sprintf("required member %q not found", fieldName),
	}
}

// FieldUnknown creates an unknown member error
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   clonePath(path),
		Offset: NoOffset,
		Detail: fmt.Sprintf("unknown member %q", fieldName),
	}
}

// LengthMismatch creates an array length mismatch error
func LengthMismatch(phase Phase, path []string, got, want uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLengthMismatch,
		Path:   clonePath(path),
		Offset: NoOffset,
		Detail: fmt.Sprintf("length %d, descriptor declares %d", got, want),
		Value:  got,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   clonePath(path),
		Offset: NoOffset,
		Type:   target,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// Unresolved creates an error for a named reference the library cannot resolve
func Unresolved(phase Phase, offset int64, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolved,
		Offset: offset,
		Detail: fmt.Sprintf("unresolved type reference %q", name),
		Value:  name,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Offset: NoOffset,
		Detail: what,
	}
}

// LimitExceeded creates an error for a recursion or size guard trip
func LimitExceeded(phase Phase, path []string, what string, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLimitExceeded,
		Path:   clonePath(path),
		Offset: NoOffset,
		Detail: fmt.Sprintf("%s limit %d exceeded", what, limit),
		Value:  limit,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, offset int64, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Offset: offset,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Offset: NoOffset,
		Detail: detail,
	}
}

// NoType creates the error returned when an operation that needs a type
// is given the empty type.
func NoType(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoType,
		Offset: NoOffset,
		Detail: "no type",
	}
}

// IsNoType reports whether err was caused by an empty type.
func IsNoType(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindNoType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Offset: NoOffset,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Closed creates an error for use of a closed resource
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Offset: NoOffset,
		Detail: what + " closed",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: NoOffset,
		Detail: detail,
		Cause:  cause,
	}
}
