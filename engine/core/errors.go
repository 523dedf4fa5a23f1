package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrCapacityExceeded is returned when a collection would go past its fixed maximum.
	ErrCapacityExceeded = errors.New("resource capacity exceeded")
	// ErrDuplicateGroupName is returned when a grouping strategy name is already registered.
	ErrDuplicateGroupName = errors.New("duplicate group name")
	// ErrInvalidStrategy is returned for strategies without a name or predicate.
	ErrInvalidStrategy = errors.New("invalid grouping strategy")
	// ErrAllocationFailure wraps every rejection coming from a native allocator.
	ErrAllocationFailure = errors.New("native allocation failed")
	// ErrEngineAlreadyCreated is returned when a second engine is constructed while one is alive.
	ErrEngineAlreadyCreated = errors.New("engine already created")
	ErrInvalidConfig        = errors.New("invalid configuration")
)
