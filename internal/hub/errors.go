package hub

import "errors"

var (
	// ErrEntityNotFound is returned when an entity ID is not registered.
	ErrEntityNotFound = errors.New("hub: entity not found")

	// ErrServiceNotSupported is returned when an entity does not implement a service.
	ErrServiceNotSupported = errors.New("hub: service not supported by entity")

	// ErrPlatformNotFound is returned when loading a platform nobody registered.
	ErrPlatformNotFound = errors.New("hub: platform not registered")
)
