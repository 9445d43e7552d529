// Package errors provides structured error types for the typeinf module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the member path, the byte offset the failure refers to,
// the printable type name and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePack, errors.KindTypeMismatch).
//		Path("hdr", "flags").
//		Type("unsigned int").
//		Detail("aggregate value for scalar member").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FieldMissing(errors.PhasePack, path, "b")
//	err := errors.OutOfBounds(errors.PhaseUnpack, path, 8, 4, 10)
//
// The phase sentinels (EncodeError, DecodeError, PackError, UnpackError,
// RelocationError) match any error of that phase with errors.Is:
//
//	if errors.Is(err, errors.UnpackError) { ... }
package errors
