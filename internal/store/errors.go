package store

import "errors"

var (
	// ErrNotFound is returned when no mission row matches the given id.
	// It is an expected outcome, not a backend failure.
	ErrNotFound = errors.New("mission not found")

	// ErrStaleWrite is returned when an update's revision guard matched no
	// row: someone else committed a newer revision since this mission was
	// read. The caller should re-read and retry.
	ErrStaleWrite = errors.New("mission was modified by another writer")
)
