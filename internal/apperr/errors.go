// Package apperr holds sentinel errors shared by the content readers.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidName = errors.New("invalid name")
)
