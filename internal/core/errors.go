package core

import "errors"

var (
	ErrEmptyGrid       = errors.New("grid must be at least 1x1")
	ErrRaggedGrid      = errors.New("grid rows differ in length")
	ErrNoStates        = errors.New("rule table has no rows")
	ErrTooManyStates   = errors.New("rule table has too many rows")
	ErrColumnCount     = errors.New("rule table row must have 9 columns")
	ErrStateOutOfRange = errors.New("state out of range")
)
