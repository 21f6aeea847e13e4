package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrInvalidConfig      = errors.New("invalid generation config")
	ErrNoCapacity         = errors.New("no cache folder has capacity")
	ErrNoActiveFolder     = errors.New("no active cache folder")
	ErrClaimConflict      = errors.New("job not claimable")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrNoJobAvailable     = errors.New("no job available")
	ErrDuplicateJob       = errors.New("duplicate job")
)
