package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a mapping with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrOriginalURLExists is returned when an attempt is made to create
	// a mapping for an original URL that is already shortened.
	ErrOriginalURLExists = errors.New("original url exists")
	// ErrURLNotFound is returned when no mapping exists for the given
	// short code or original URL.
	ErrURLNotFound = errors.New("url not found")
)
