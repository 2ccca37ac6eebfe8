package schedule

import "errors"

var (
	// ErrInvalidVersionName is returned when a freeze uses an empty, reserved
	// or already used version name
	ErrInvalidVersionName = errors.New("invalid version name")

	// ErrAlreadyFrozen is returned when freezing a schedule that is not the
	// event's WIP
	ErrAlreadyFrozen = errors.New("schedule is already frozen")

	// ErrNotFrozen is returned when unfreezing the WIP itself
	ErrNotFrozen = errors.New("schedule is not frozen")

	// ErrInvalidEventID is returned when an event ID contains a key separator
	ErrInvalidEventID = errors.New("invalid event id")

	// ErrEventExists is returned when creating an event whose ID is taken
	ErrEventExists = errors.New("event already exists")

	// ErrVersionNotFound is returned when a version name does not resolve
	ErrVersionNotFound = errors.New("version not found")
)
