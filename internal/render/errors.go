package render

import "errors"

// ErrRender marks a single file's conversion failure. It is non-aborting:
// the orchestrator records it as the batch's first error and continues with
// the remaining files.
var ErrRender = errors.New("renderkit: render error")
