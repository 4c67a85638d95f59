package service

import "errors"

// Command-level error kinds. Auth failures (fatal to a connection attempt)
// live in the auth package; these reject a single command while the
// connection stays open, except for ErrBanned which also closes it.
var (
	ErrForbidden  = errors.New("service: forbidden")
	ErrMuted      = errors.New("service: muted")
	ErrBanned     = errors.New("service: banned")
	ErrValidation = errors.New("service: validation")
)
