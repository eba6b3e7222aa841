package benchmark

import "errors"

// Failure classes that end more than a single worker
var (
	// ErrConfiguration means the run cannot proceed at all: bad server
	// data, unusable settings, a missing tool. Nothing is benchmarked.
	ErrConfiguration = errors.New("configuration failure")

	// ErrEnvironment means the machine cannot execute the current
	// hardware path. The path is abandoned; other paths continue.
	ErrEnvironment = errors.New("environment failure")
)
