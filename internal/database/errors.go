package database

import "errors"

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("entity not found")

// ErrInvalidNetwork is returned when a network file cannot be used
var ErrInvalidNetwork = errors.New("invalid network file")
