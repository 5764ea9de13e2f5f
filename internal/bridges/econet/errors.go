package econet

import "errors"

// Domain errors for the ecoNET bridge package.
var (
	// ErrInvalidSnapshot is returned when an ingest payload is not a
	// well-formed controller snapshot.
	ErrInvalidSnapshot = errors.New("econet: invalid snapshot")

	// ErrEmptySnapshot is returned when a snapshot carries neither
	// regParams nor sysParams.
	ErrEmptySnapshot = errors.New("econet: snapshot has no parameters")

	// ErrNotConnected is returned when a publish is attempted while the
	// MQTT client is disconnected.
	ErrNotConnected = errors.New("econet: mqtt not connected")

	// ErrPublishFailed is returned when a discovery or state message could
	// not be published.
	ErrPublishFailed = errors.New("econet: publish failed")
)
