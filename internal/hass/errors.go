package hass

import "errors"

var (
	// ErrInvalidCommand is returned for command payloads other than ON and OFF.
	ErrInvalidCommand = errors.New("hass: invalid command payload")

	// ErrUnknownTopic is returned for messages on topics that are not command topics.
	ErrUnknownTopic = errors.New("hass: not a command topic")
)
