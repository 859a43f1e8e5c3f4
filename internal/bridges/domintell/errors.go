package domintell

import "errors"

// Domain errors for the Domintell bridge package.
var (
	// ErrNotConnected is returned when an operation requires a gateway
	// connection that is not currently established.
	ErrNotConnected = errors.New("domintell: not connected to gateway")

	// ErrConnectionFailed is returned when dialling the gateway fails.
	ErrConnectionFailed = errors.New("domintell: connection to gateway failed")

	// ErrProtocolDesync is returned when the inbound stream can no longer
	// be framed. It is always fatal for the current connection.
	ErrProtocolDesync = errors.New("domintell: protocol desync")

	// ErrGatewayUnresponsive is returned when the gateway sends nothing,
	// not even a PONG, for two read timeouts in a row.
	ErrGatewayUnresponsive = errors.New("domintell: gateway unresponsive")

	// ErrMalformedFrame is returned by codecs for lines they cannot decode.
	ErrMalformedFrame = errors.New("domintell: malformed frame")

	// ErrInvalidValue is returned when a value cannot be encoded.
	ErrInvalidValue = errors.New("domintell: invalid value")

	// ErrCommandFailed is returned when writing a command to the gateway fails.
	ErrCommandFailed = errors.New("domintell: command failed")

	// ErrAlreadyStarted is returned by Start on a gateway that is running.
	ErrAlreadyStarted = errors.New("domintell: gateway already started")

	// ErrAlreadySetup is returned when the component is set up twice on one hub.
	ErrAlreadySetup = errors.New("domintell: already set up")

	// ErrNoGateways is returned when no configured gateway could be set up.
	ErrNoGateways = errors.New("domintell: no gateways could be set up")
)
