package config

import "errors"

// ErrInvalidConfig marks a malformed project configuration. It is fatal and
// surfaces before any project file is touched.
var ErrInvalidConfig = errors.New("renderkit: invalid configuration")
