package entity

import "errors"

// Domain errors for the entity package.
var (
	// ErrSensorNotFound is returned when a unique id does not exist.
	ErrSensorNotFound = errors.New("entity: sensor not found")

	// ErrInvalidSensor is returned when a record is missing its unique id or key.
	ErrInvalidSensor = errors.New("entity: invalid sensor")
)
