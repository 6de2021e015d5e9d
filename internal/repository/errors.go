// Package repository holds the errors shared by every storage backend.
package repository

import "errors"

var (
	// ErrNotFound means the row, key or referenced parent does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness rule rejected the write.
	ErrConflict = errors.New("conflict")
)
