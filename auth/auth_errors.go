package auth

import "errors"

var (
	// ErrMissingDependency is returned by NewService when a required collaborator is nil.
	ErrMissingDependency = errors.New("missing dependency")
)
