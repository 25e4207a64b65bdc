// Package exitcode exports wasmserve's exit status numbers.
package exitcode

const (
	// Success is returned when wasmserve finished without error.
	Success = iota
	// UsageError is returned when there was a syntax or usage error in the arguments.
	UsageError
	// FatalError is returned when the server could not start, e.g. the
	// listen address is already in use.
	FatalError
	// CheckFailed is returned when one or more wasm modules failed validation.
	CheckFailed
)
