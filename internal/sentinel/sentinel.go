// Package sentinel holds infrastructure-level error facts. Repositories
// return these (optionally wrapped) and services translate them into their
// own error kinds.
package sentinel

import "errors"

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint kept a row from being written.
	ErrConflict = errors.New("conflict")
)
