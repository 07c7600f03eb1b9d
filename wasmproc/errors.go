package wasmproc

import "fmt"

var (
	// ErrModuleRejected covers every malformed-module case from module
	// parsing to unsupported imports and missing/extra memory exports.
	ErrModuleRejected = fmt.Errorf("redshirt: wasmproc: module rejected")

	// ErrOutOfBounds is returned by ReadMemory/WriteMemory for an
	// out-of-range offset/length pair.
	ErrOutOfBounds = fmt.Errorf("redshirt: wasmproc: memory access out of bounds")

	// ErrFunctionNotExported is returned by StartThread when the named
	// function is not exported, or is exported with a mismatched
	// signature.
	ErrFunctionNotExported = fmt.Errorf("redshirt: wasmproc: function not exported with a matching signature")

	// ErrDoubleResume is the programmer-error panic raised by
	// ResumeThread when called with a value on a thread that has not
	// yet reached a WaitImport outcome.
	ErrDoubleResume = fmt.Errorf("redshirt: wasmproc: resume value supplied for a thread not waiting on an import")

	// ErrAborted tags the Errored outcome produced by Abort.
	ErrAborted = fmt.Errorf("redshirt: wasmproc: process aborted")
)
