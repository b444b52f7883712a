// Package ratelimit implements fixed window admission control: a counter
// store shared by all engine instances, deterministic key composition per
// scope, and a registry of named endpoint profiles.
package ratelimit

import "errors"

// ErrInvalidConfig indicates a config or profile with a non-positive limit
// or window. It is raised at construction time, never at request time.
var ErrInvalidConfig = errors.New("invalid rate limit config")
