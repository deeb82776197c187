package domain

import "errors"

var (
	// ErrValidation marks preference or request input rejected before scoring.
	ErrValidation = errors.New("validation failed")
	// ErrSourceUnavailable marks a catalog source that failed or timed out.
	// It is logged and counted, never returned from a recommendation.
	ErrSourceUnavailable = errors.New("catalog source unavailable")
	// ErrPersistence marks a failed history load or save.
	ErrPersistence = errors.New("history persistence failed")
)
