package project

import "errors"

// Sentinel domain errors. Wrap with contextual information at the call site.
var (
	// ErrMissingInput marks an explicitly requested render target that does
	// not exist on disk. Fatal for the invocation.
	ErrMissingInput = errors.New("renderkit: missing input")

	// ErrDiscovery marks a failure while walking the project tree.
	ErrDiscovery = errors.New("renderkit: discovery error")
)
