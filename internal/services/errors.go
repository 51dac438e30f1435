package services

import "errors"

// QoL service errors
var (
	ErrNoInput      = errors.New("no input table given")
	ErrSolveTimeout = errors.New("solve timed out")
	ErrEmptyResult  = errors.New("solver returned no columns")
)
