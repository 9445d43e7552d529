// Package registry tracks live type descriptors and detail blocks.
//
// Descriptors borrow from the type-library context they were decoded
// against. Before that context is destroyed every live descriptor must
// drop its references, which is what the registry coordinates:
//
//	reg := registry.New(logger)
//	reg.Register(desc)
//	...
//	reg.Shutdown(lib.Close) // ClearAll exactly once, then close
//
// Registration is idempotent by identity. Deregister clears a handle and
// forgets it. ClearAll clears every handle in category order without
// forgetting any and never fails.
//
// # Thread Safety
//
// A single mutex guards the handle table. Clear calls and observer
// notifications run outside it, so handles and observers may call back
// into the registry.
package registry
